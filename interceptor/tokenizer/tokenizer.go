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

package tokenizer

import (
	"regexp"
	"strings"
)

/*
argTokensRe matches one SAL annotated argument, e.g.:

	_In_ HANDLE hFile
	_In_reads_bytes_opt_(nNumberOfBytesToWrite) LPCVOID lpBuffer
	_Out_writes_to_opt_(nBufferLength, return + 1) LPWSTR lpBuffer
	_Out_writes_bytes_opt_(nNumber) __out_data_source(FILE) LPVOID lpBuffer
	_Out_writes_to_opt_(cchBufferLength, *lpcchReturnLength) _Post_
	    _NullNull_terminated_ LPWCH lpszVolumePathNames
	_In_ FILE_SEGMENT_ELEMENT aSegmentArray[]
	_In_reads_bytes_opt_(PropertyBufferSize) CONST PBYTE PropertyBuffer

Groups:
  - tag: the SAL annotation, starts and ends with an underscore.
  - args: optional arguments of the annotation, kept as written.
  - type: the argument type, optionally prefixed with CONST or FAR.
  - name: the argument name, optionally followed by "[]".

Secondary annotations between the tag and the type (_Post_,
__out_data_source(FILE), ...) are consumed and dropped.
*/
var argTokensRe = regexp.MustCompile(`(?i)` +
	`(?P<tag>_\w+_)` +
	`(?:\((?P<args>[^)]*)\))?` +
	`\s+(?:(?:_[^ ]+\s+)*)?` +
	`(?P<type>(?:(?:CONST|FAR)\s*)?[a-zA-Z][a-zA-Z_]+)` +
	`(?:\*)?\s+(?:\*\s*)?(?P<name>\w+)(?:\[\])?`)

var (
	tagIndex  = argTokensRe.SubexpIndex("tag")
	argsIndex = argTokensRe.SubexpIndex("args")
	typeIndex = argTokensRe.SubexpIndex("type")
	nameIndex = argTokensRe.SubexpIndex("name")
)

var (
	// paramNameRe picks the variable name of an argument without annotation.
	paramNameRe = regexp.MustCompile(`[\s*&](\w+)\s*$`)
	// funcPtrNameRe picks the name of a function pointer, as in
	// "int (WINAPI *cb)(int, int)".
	funcPtrNameRe = regexp.MustCompile(`\(\s*(?:\w+\s+)*[*&]\s*(\w+)\s*\)\s*\(`)
	arraySuffixRe = regexp.MustCompile(`\[[^\]]*\]`)
)

// trailingMarkers are legacy annotation macros written after the name.
var trailingMarkers = map[string]bool{"OPTIONAL": true, "IN": true, "OUT": true}

// typeWords never name a parameter: "unsigned int" has no name.
var typeWords = map[string]bool{
	"char": true, "short": true, "int": true, "long": true, "float": true,
	"double": true, "signed": true, "unsigned": true, "void": true,
	"const": true, "volatile": true, "struct": true, "enum": true, "union": true,
}

type Argument struct {
	Tag string
	// TagArgs is nil when the tag has no parenthesised arguments.
	TagArgs []string
	Type    string
	Name    string
	// Text is the matched source text.
	Text string
}

// SizeExpr returns the first argument of the tag, which for buffer
// annotations is the size of the buffer.
func (a Argument) SizeExpr() (string, bool) {
	if len(a.TagArgs) == 0 {
		return "", false
	}
	return a.TagArgs[0], true
}

// Parameter is one comma separated element of a parameter list.
type Parameter struct {
	Name string
	Text string
	// Arg is nil when the parameter carries no recognizable annotation.
	Arg *Argument
}

// Parse matches a single argument. It returns false when the text is not an
// annotated argument.
func Parse(text string) (Argument, bool) {
	m := argTokensRe.FindStringSubmatchIndex(text)
	if m == nil {
		return Argument{}, false
	}
	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return text[m[2*i]:m[2*i+1]]
	}
	arg := Argument{
		Tag:  group(tagIndex),
		Type: group(typeIndex),
		Name: group(nameIndex),
		Text: text[m[0]:m[1]],
	}
	if m[2*argsIndex] >= 0 {
		arg.TagArgs = strings.Split(group(argsIndex), ",")
	}
	return arg, true
}

// Split cuts a raw parameter list on top level commas and returns every
// parameter, annotated or not, in source order. A void list, "..." and
// empty trailing elements are dropped. A parameter whose name cannot be
// found is kept with an empty Name; see Unnamed.
func Split(params string) []Parameter {
	parameters := []Parameter{}
	for _, text := range splitTopLevel(params) {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || trimmed == "..." || strings.EqualFold(trimmed, "void") {
			continue
		}
		if arg, ok := Parse(text); ok {
			parameters = append(parameters, Parameter{Name: arg.Name, Text: text, Arg: &arg})
			continue
		}
		parameters = append(parameters, Parameter{Name: plainName(trimmed), Text: text})
	}
	return parameters
}

// Unnamed returns the trimmed text of every parameter Split could not name.
func Unnamed(params []Parameter) []string {
	var unnamed []string
	for _, p := range params {
		if p.Name == "" {
			unnamed = append(unnamed, strings.TrimSpace(p.Text))
		}
	}
	return unnamed
}

func plainName(text string) string {
	if m := funcPtrNameRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	text = arraySuffixRe.ReplaceAllString(text, "")
	text = strings.NewReplacer("*", " * ", "&", " & ").Replace(text)
	words := strings.Fields(text)
	for len(words) > 0 && trailingMarkers[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	identifiers := 0
	for _, w := range words {
		if w != "*" && w != "&" {
			identifiers++
		}
	}
	if identifiers < 2 {
		// a bare type such as "HANDLE" or "int*"
		return ""
	}
	m := paramNameRe.FindStringSubmatch(" " + strings.Join(words, " "))
	if m == nil || typeWords[m[1]] {
		return ""
	}
	return m[1]
}

func splitTopLevel(params string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, c := range params {
		switch c {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, params[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, params[start:])
}
