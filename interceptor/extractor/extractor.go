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
Package extractor finds function declarations of the form

	RETURN_TYPE
	WINAPI
	FUNCTION_NAME(
	    ...
	    );

in the text of a header file. Anything that does not fit this shape (macro
wrapped declarations, #ifdef groups between the tokens, missing return type)
is skipped without error.
*/
package extractor

import (
	"fmt"
	"regexp"
)

const DefaultCallingConvention = "WINAPI"

type Declaration struct {
	Name       string
	ReturnType string
	// Params is the raw text between the parentheses, newlines included.
	Params string
}

type Extractor struct {
	re          *regexp.Regexp
	retIndex    int
	nameIndex   int
	paramsIndex int
}

// New builds an extractor for declarations using the given calling
// convention keyword. The keyword is matched case-insensitively.
func New(callingConvention string) (*Extractor, error) {
	if callingConvention == "" {
		return nil, fmt.Errorf("empty calling convention")
	}
	// The parameter list runs up to the last ')' before the terminating ';'
	// and may therefore contain embedded parentheses.
	pattern := `(?i)(?P<ret>\w+)\s+` +
		regexp.QuoteMeta(callingConvention) +
		`\s+(?P<name>\w+)\s*\((?P<params>[^;]+)\)\s*;`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("regexp.Compile: %v", err)
	}
	return &Extractor{
		re:          re,
		retIndex:    re.SubexpIndex("ret"),
		nameIndex:   re.SubexpIndex("name"),
		paramsIndex: re.SubexpIndex("params"),
	}, nil
}

// Visit calls fn for every declaration found in content, left to right.
// Matches never overlap.
func (e *Extractor) Visit(content string, fn func(Declaration)) {
	for _, m := range e.re.FindAllStringSubmatch(content, -1) {
		fn(Declaration{
			Name:       m[e.nameIndex],
			ReturnType: m[e.retIndex],
			Params:     m[e.paramsIndex],
		})
	}
}
