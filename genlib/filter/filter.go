/*
NaiveSystems Analyze - A tool for static code analysis
Copyright (C) 2023  Naive Systems Ltd.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

/*
Package filter selects what the generator works on: the filter table lists
the functions to intercept together with their module, and input patterns
select the header files to scan.
*/
package filter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/golang/glog"
)

const (
	functionColumn = "function"
	moduleColumn   = "module"
)

// Table maps a function name to the module exporting it.
type Table map[string]string

func (t Table) Module(function string) (string, bool) {
	module, ok := t[function]
	return module, ok
}

// LoadTable reads a CSV file whose header names a function and a module
// column. Other columns are ignored. Surrounding whitespace of every field
// is insignificant. A later row overrides an earlier one.
func LoadTable(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open: %w", err)
	}
	defer f.Close()
	table, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

func ReadTable(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("empty filter table")
	}
	if err != nil {
		return nil, fmt.Errorf("csv.Read: %w", err)
	}
	functionIndex, moduleIndex := -1, -1
	for i, field := range header {
		switch strings.TrimSpace(field) {
		case functionColumn:
			functionIndex = i
		case moduleColumn:
			moduleIndex = i
		}
	}
	if functionIndex < 0 || moduleIndex < 0 {
		return nil, fmt.Errorf("filter table header %q lacks a %s or %s column", header, functionColumn, moduleColumn)
	}
	table := Table{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv.Read: %w", err)
		}
		function, module := field(record, functionIndex), field(record, moduleIndex)
		if function == "" {
			continue
		}
		table[function] = module
	}
	return table, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ExpandInputs resolves every pattern to the files it names, keeping the
// order of the patterns. Matches of one pattern are sorted. A file named
// twice is kept at its first position. A pattern matching nothing is an
// error.
func ExpandInputs(patterns []string) ([]string, error) {
	files := []string{}
	seen := map[string]bool{}
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("doublestar.FilepathGlob(%s): %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%s: %w", pattern, os.ErrNotExist)
		}
		sort.Strings(matches)
		for _, match := range matches {
			if seen[match] {
				continue
			}
			seen[match] = true
			files = append(files, match)
		}
	}
	return files, nil
}

// MatchIgnorePatterns returns the first pattern matching path.
func MatchIgnorePatterns(ignorePatterns []string, path string) (string, bool, error) {
	for _, pattern := range ignorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return "", false, fmt.Errorf("malformed ignore pattern %s", pattern)
		}
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			return "", false, fmt.Errorf("malformed ignore pattern %s", pattern)
		}
		if matched {
			glog.V(1).Infof("input %s ignored due to pattern %s", path, pattern)
			return pattern, true, nil
		}
	}
	return "", false, nil
}
