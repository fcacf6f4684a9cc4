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
Package renderer turns an interception decision into three pieces of text:
the interceptor implementation, an instrumentation filter entry and a DEF
file export line.

For WriteFile the interceptor looks like this:

	BOOL WINAPI asan_WriteFile(
	    _In_ HANDLE hFile,
	    _In_reads_bytes_opt_(nNumberOfBytesToWrite) LPCVOID lpBuffer,
	    ...
	    ) {
	  if (lpBuffer != NULL) {
	    TestMemoryRange(reinterpret_cast<const uint8*>(lpBuffer),
	                    nNumberOfBytesToWrite,
	                    HeapProxy::ASAN_READ_ACCESS);
	  }
	  <pre-call checks>

	  BOOL ret = ::WriteFile(hFile, lpBuffer, ...);

	  if (interceptor_tail_callback != NULL)
	    (*interceptor_tail_callback)();

	  <post-call checks>
	  if (lpBuffer != NULL) {
	    ...
	  }

	  return ret;
	}
*/
package renderer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"naive.systems/interceptor/interceptor/policy"
)

const templates = `{{define "check"}}  if ({{.Name}} != NULL) {
    {{.Func}}(reinterpret_cast<const uint8*>({{.Name}}),
{{.Indent}}{{.Size}},
{{.Indent}}{{.Access}});
  }
{{end}}{{define "interceptor"}}
{{.ReturnType}} {{.CallingConvention}} {{.Prefix}}{{.Name}}({{.Params}}) {
{{template "check" .Buffer}}  {{range .PreCall}}
{{template "check" .}}{{end}}

  {{.ReturnType}} ret = ::{{.Name}}({{.ParamNames}});

  if ({{.TailCallback}} != NULL)
    (*{{.TailCallback}})();

  {{range .PostCall}}
{{template "check" .}}{{end}}
{{template "check" .Buffer}}
  return ret;
}
{{end}}{{define "filter"}}
{ "{{.Name}}", "{{.Placeholder}}", "{{.Module}}", NULL, true },
{{end}}{{define "def"}}{{.Prefix}}{{.Name}}
{{end}}`

type Config struct {
	CallingConvention string
	Prefix            string
	CheckFunction     string
	// AccessTypeFormat receives READ or WRITE.
	AccessTypeFormat  string
	TailCallback      string
	FilterPlaceholder string
}

func DefaultConfig() Config {
	return Config{
		CallingConvention: "WINAPI",
		Prefix:            "asan_",
		CheckFunction:     "TestMemoryRange",
		AccessTypeFormat:  "HeapProxy::ASAN_%s_ACCESS",
		TailCallback:      "interceptor_tail_callback",
		FilterPlaceholder: "NOT SET",
	}
}

type Artifacts struct {
	Impl        string
	FilterEntry string
	DefLine     string
}

type Renderer struct {
	config Config
	tmpl   *template.Template
}

type checkView struct {
	Name   string
	Size   string
	Access string
	Func   string
	Indent string
}

type interceptorView struct {
	ReturnType        string
	CallingConvention string
	Prefix            string
	Name              string
	Params            string
	ParamNames        string
	TailCallback      string
	Buffer            checkView
	PreCall           []checkView
	PostCall          []checkView
}

type filterView struct {
	Name        string
	Placeholder string
	Module      string
}

type defView struct {
	Prefix string
	Name   string
}

func New(config Config) (*Renderer, error) {
	if config.CheckFunction == "" || config.CallingConvention == "" {
		return nil, fmt.Errorf("incomplete renderer config: %+v", config)
	}
	if strings.Count(config.AccessTypeFormat, "%s") != 1 {
		return nil, fmt.Errorf("access type format %q must contain exactly one %%s", config.AccessTypeFormat)
	}
	tmpl, err := template.New("renderer").Parse(templates)
	if err != nil {
		return nil, fmt.Errorf("template.Parse: %v", err)
	}
	return &Renderer{config: config, tmpl: tmpl}, nil
}

func (r *Renderer) check(name, size string, access policy.AccessMode) checkView {
	return checkView{
		Name:   name,
		Size:   size,
		Access: fmt.Sprintf(r.config.AccessTypeFormat, access),
		Func:   r.config.CheckFunction,
		// continuation lines line up with the first argument
		Indent: strings.Repeat(" ", len("    ")+len(r.config.CheckFunction)+len("(")),
	}
}

func (r *Renderer) checks(checks []policy.Check) []checkView {
	views := []checkView{}
	for _, c := range checks {
		views = append(views, r.check(c.Arg.Name, "sizeof(*"+c.Arg.Name+")", c.Access))
	}
	return views
}

func (r *Renderer) execute(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("ExecuteTemplate(%s): %v", name, err)
	}
	return buf.String(), nil
}

// Render has no side effects: the same decision always yields the same text.
func (r *Renderer) Render(d *policy.Decision, module string) (Artifacts, error) {
	impl, err := r.execute("interceptor", interceptorView{
		ReturnType:        d.Function.ReturnType,
		CallingConvention: r.config.CallingConvention,
		Prefix:            r.config.Prefix,
		Name:              d.Function.Name,
		Params:            d.Function.Params,
		ParamNames:        d.ParamNames(),
		TailCallback:      r.config.TailCallback,
		Buffer:            r.check(d.Buffer.Name, d.BufferSize, d.Access),
		PreCall:           r.checks(d.PreCall),
		PostCall:          r.checks(d.PostCall),
	})
	if err != nil {
		return Artifacts{}, err
	}
	filterEntry, err := r.execute("filter", filterView{
		Name:        d.Function.Name,
		Placeholder: r.config.FilterPlaceholder,
		Module:      module,
	})
	if err != nil {
		return Artifacts{}, err
	}
	defLine, err := r.execute("def", defView{Prefix: r.config.Prefix, Name: d.Function.Name})
	if err != nil {
		return Artifacts{}, err
	}
	return Artifacts{Impl: impl, FilterEntry: filterEntry, DefLine: defLine}, nil
}
