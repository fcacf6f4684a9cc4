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

package stats

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hhatto/gocloc"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"naive.systems/interceptor/atomic"
)

var headerLangs = []string{"C Header", "C++ Header"}

// Summary counts what happened to the declarations of one run.
type Summary struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	// Files lists the scanned files in order.
	Files           []string
	FilesScanned    int
	FilesIgnored    int
	Declarations    int
	NotInFilter     int
	Duplicates      int
	UnnamedParams   int
	NoBufferTag     int
	Intercepted     int
	HeaderCodeLines int
	PerModule       map[string]int
}

func NewSummary() *Summary {
	return &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		PerModule: map[string]int{},
	}
}

func (s *Summary) AddFile(path string) {
	s.Files = append(s.Files, path)
	s.FilesScanned++
}

func (s *Summary) AddInterceptor(module string) {
	s.Intercepted++
	s.PerModule[module]++
}

func (s *Summary) Finish() {
	s.Duration = time.Since(s.StartedAt)
}

// Modules returns the modules with at least one interceptor, sorted.
func (s *Summary) Modules() []string {
	modules := maps.Keys(s.PerModule)
	slices.Sort(modules)
	return modules
}

func (s *Summary) Struct() (*structpb.Struct, error) {
	perModule := map[string]interface{}{}
	for module, count := range s.PerModule {
		perModule[module] = count
	}
	return structpb.NewStruct(map[string]interface{}{
		"run_id":            s.RunID,
		"started_at":        s.StartedAt.UTC().Format(time.RFC3339),
		"duration_seconds":  s.Duration.Seconds(),
		"files_scanned":     s.FilesScanned,
		"files_ignored":     s.FilesIgnored,
		"declarations":      s.Declarations,
		"not_in_filter":     s.NotInFilter,
		"duplicates":        s.Duplicates,
		"unnamed_params":    s.UnnamedParams,
		"no_buffer_tag":     s.NoBufferTag,
		"intercepted":       s.Intercepted,
		"header_code_lines": s.HeaderCodeLines,
		"per_module":        perModule,
	})
}

// WriteSummary stores the summary as JSON.
func WriteSummary(path string, s *Summary) error {
	st, err := s.Struct()
	if err != nil {
		return fmt.Errorf("structpb.NewStruct: %w", err)
	}
	options := protojson.MarshalOptions{
		Multiline: true,
		Indent:    "  ",
	}
	content, err := options.Marshal(st)
	if err != nil {
		return fmt.Errorf("protojson.Marshal: %w", err)
	}
	return atomic.Write(path, content)
}

// CountHeaderLines counts the code lines of the given C and C++ headers,
// comments and blank lines excluded.
func CountHeaderLines(paths []string) (int, error) {
	clocOpts := gocloc.NewClocOptions()
	languages := gocloc.NewDefinedLanguages()
	for _, lang := range headerLangs {
		if _, exists := languages.Langs[lang]; exists {
			clocOpts.IncludeLangs[lang] = struct{}{}
		}
	}
	processor := gocloc.NewProcessor(languages, clocOpts)
	result, err := processor.Analyze(paths)
	if err != nil {
		return 0, fmt.Errorf("gocloc: %w", err)
	}
	sum := 0
	for _, file := range result.Files {
		sum += int(file.Code)
	}
	return sum, nil
}
