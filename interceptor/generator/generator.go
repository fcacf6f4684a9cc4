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
Package generator drives a generation run: it scans header files, keeps the
declarations listed in the filter table, and accumulates the interceptor
implementations, filter entries and DEF file exports of those that carry a
buffer annotation.

The three outputs are derived from a base name:

	<base>_impl.gen
	<base>_instrumentation_filter.gen
	<base>.def.gen

They are held in memory and replaced together by Flush.
*/
package generator

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
	"naive.systems/interceptor/atomic"
	"naive.systems/interceptor/genlib/charset"
	"naive.systems/interceptor/genlib/filter"
	"naive.systems/interceptor/genlib/stats"
	"naive.systems/interceptor/interceptor/extractor"
	"naive.systems/interceptor/interceptor/policy"
	"naive.systems/interceptor/interceptor/renderer"
	"naive.systems/interceptor/interceptor/tokenizer"
)

var ErrOutputExists = errors.New("output files already exist")

const (
	ImplSuffix   = "_impl.gen"
	FilterSuffix = "_instrumentation_filter.gen"
	DefSuffix    = ".def.gen"
)

type Outputs struct {
	Impl   string
	Filter string
	Def    string
}

func OutputsFor(base string) Outputs {
	return Outputs{
		Impl:   base + ImplSuffix,
		Filter: base + FilterSuffix,
		Def:    base + DefSuffix,
	}
}

func (o Outputs) Paths() []string {
	return []string{o.Impl, o.Filter, o.Def}
}

// Existing returns the outputs already present on disk.
func (o Outputs) Existing() []string {
	existing := []string{}
	for _, path := range o.Paths() {
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	return existing
}

type Options struct {
	OutputBase string
	// FilterFile is the CSV filter table.
	FilterFile string
	// DefFile is copied verbatim ahead of the new exports.
	DefFile        string
	Overwrite      bool
	Renderer       renderer.Config
	InputCharset   string
	IgnorePatterns []string
}

type interceptedKey struct {
	name   string
	params string
}

type Generator struct {
	outputs        Outputs
	filter         filter.Table
	extractor      *extractor.Extractor
	renderer       *renderer.Renderer
	inputCharset   string
	ignorePatterns []string

	intercepted map[interceptedKey]bool
	impl        bytes.Buffer
	filterOut   bytes.Buffer
	def         bytes.Buffer
	flushed     bool

	summary *stats.Summary
}

// New checks that the outputs may be written before reading anything else,
// then loads the filter table and the DEF file.
func New(opts Options) (*Generator, error) {
	outputs := OutputsFor(opts.OutputBase)
	if !opts.Overwrite {
		if existing := outputs.Existing(); len(existing) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, strings.Join(existing, ", "))
		}
	}
	table, err := filter.LoadTable(opts.FilterFile)
	if err != nil {
		return nil, fmt.Errorf("filter.LoadTable: %w", err)
	}
	defContent, err := os.ReadFile(opts.DefFile)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}
	e, err := extractor.New(opts.Renderer.CallingConvention)
	if err != nil {
		return nil, fmt.Errorf("extractor.New: %w", err)
	}
	r, err := renderer.New(opts.Renderer)
	if err != nil {
		return nil, fmt.Errorf("renderer.New: %w", err)
	}
	g := &Generator{
		outputs:        outputs,
		filter:         table,
		extractor:      e,
		renderer:       r,
		inputCharset:   opts.InputCharset,
		ignorePatterns: opts.IgnorePatterns,
		intercepted:    map[interceptedKey]bool{},
		summary:        stats.NewSummary(),
	}
	g.def.Write(defContent)
	glog.Infof("loaded %d functions from filter table %s", len(table), opts.FilterFile)
	return g, nil
}

func (g *Generator) Outputs() Outputs {
	return g.outputs
}

func (g *Generator) Summary() *stats.Summary {
	return g.summary
}

// GenerateFunctionInterceptor appends the artifacts of decl to the outputs
// if decl is in the filter table, was not seen before with the same
// parameters, names every parameter and has a buffer annotation. It
// reports whether it did.
func (g *Generator) GenerateFunctionInterceptor(decl extractor.Declaration) (bool, error) {
	g.summary.Declarations++
	module, ok := g.filter.Module(decl.Name)
	if !ok {
		g.summary.NotInFilter++
		glog.V(1).Infof("%s: not in the filter table", decl.Name)
		return false, nil
	}
	key := interceptedKey{name: decl.Name, params: decl.Params}
	if g.intercepted[key] {
		g.summary.Duplicates++
		glog.V(1).Infof("%s: already intercepted", decl.Name)
		return false, nil
	}
	params := tokenizer.Split(decl.Params)
	if unnamed := tokenizer.Unnamed(params); len(unnamed) > 0 {
		g.summary.UnnamedParams++
		glog.V(1).Infof("%s: cannot name parameters %q", decl.Name, unnamed)
		return false, nil
	}
	d, ok := policy.Decide(decl, params)
	if !ok {
		g.summary.NoBufferTag++
		glog.V(1).Infof("%s: no buffer annotation", decl.Name)
		return false, nil
	}
	g.intercepted[key] = true
	logDecision(d)

	artifacts, err := g.renderer.Render(d, module)
	if err != nil {
		return false, fmt.Errorf("renderer.Render(%s): %w", decl.Name, err)
	}
	g.impl.WriteString(artifacts.Impl)
	g.filterOut.WriteString(artifacts.FilterEntry)
	g.def.WriteString(artifacts.DefLine)
	g.summary.AddInterceptor(module)
	return true, nil
}

func logDecision(d *policy.Decision) {
	if !glog.V(1) {
		return
	}
	glog.Infof("function to intercept: %s %s, buffer %s (%s, %s bytes)",
		d.Function.ReturnType, d.Function.Name, d.Buffer.Name, d.Access, d.BufferSize)
	for _, p := range d.Params {
		if p.Arg == nil {
			glog.Infof("    %s: not annotated", p.Name)
			continue
		}
		glog.Infof("    %s", strings.Join(strings.Fields(p.Arg.Text), " "))
		glog.Infof("      tag: %s, tag arguments: %q, type: %s, name: %s",
			p.Arg.Tag, p.Arg.TagArgs, p.Arg.Type, p.Arg.Name)
	}
}

// VisitFile processes every declaration of one header file.
func (g *Generator) VisitFile(path string) error {
	pattern, ignored, err := filter.MatchIgnorePatterns(g.ignorePatterns, path)
	if err != nil {
		return fmt.Errorf("filter.MatchIgnorePatterns: %w", err)
	}
	if ignored {
		g.summary.FilesIgnored++
		glog.Infof("%s ignored due to pattern %s", path, pattern)
		return nil
	}
	content, err := charset.ReadFile(path, g.inputCharset)
	if err != nil {
		return fmt.Errorf("charset.ReadFile: %w", err)
	}
	g.summary.AddFile(path)
	glog.V(1).Infof("scanning %s", path)
	var visitErr error
	g.extractor.Visit(content, func(decl extractor.Declaration) {
		if visitErr != nil {
			return
		}
		_, visitErr = g.GenerateFunctionInterceptor(decl)
	})
	return visitErr
}

// VisitFunctionsInFiles processes the files in order. The first error
// aborts the run.
func (g *Generator) VisitFunctionsInFiles(files []string) error {
	for _, path := range files {
		if err := g.VisitFile(path); err != nil {
			return err
		}
	}
	return nil
}

// Flush replaces the three outputs with the accumulated content. Later
// calls are no-ops.
func (g *Generator) Flush() error {
	if g.flushed {
		return nil
	}
	err := atomic.WriteFiles([]atomic.File{
		{Name: g.outputs.Impl, Data: g.impl.Bytes()},
		{Name: g.outputs.Filter, Data: g.filterOut.Bytes()},
		{Name: g.outputs.Def, Data: g.def.Bytes()},
	})
	if err != nil {
		return fmt.Errorf("atomic.WriteFiles: %w", err)
	}
	g.flushed = true
	g.summary.Finish()
	return nil
}

// Run generates the interceptors of the given header files and writes the
// outputs. Nothing is written if any step fails.
func Run(opts Options, files []string) (*stats.Summary, error) {
	g, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := g.VisitFunctionsInFiles(files); err != nil {
		return nil, err
	}
	if err := g.Flush(); err != nil {
		return nil, err
	}
	return g.Summary(), nil
}
