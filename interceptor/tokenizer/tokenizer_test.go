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
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	for _, testCase := range [...]struct {
		name        string
		text        string
		expectedOk  bool
		expectedArg Argument
	}{
		{
			name:       "plain tag",
			text:       "_In_ HANDLE hFile",
			expectedOk: true,
			expectedArg: Argument{
				Tag:  "_In_",
				Type: "HANDLE",
				Name: "hFile",
				Text: "_In_ HANDLE hFile",
			},
		},
		{
			name:       "tag with a size argument",
			text:       "_In_reads_bytes_opt_(nNumberOfBytesToWrite) LPCVOID lpBuffer",
			expectedOk: true,
			expectedArg: Argument{
				Tag:     "_In_reads_bytes_opt_",
				TagArgs: []string{"nNumberOfBytesToWrite"},
				Type:    "LPCVOID",
				Name:    "lpBuffer",
				Text:    "_In_reads_bytes_opt_(nNumberOfBytesToWrite) LPCVOID lpBuffer",
			},
		},
		{
			name:       "tag with two arguments",
			text:       "_Out_writes_to_opt_(nBufferLength, return + 1) LPWSTR lpBuffer",
			expectedOk: true,
			expectedArg: Argument{
				Tag:     "_Out_writes_to_opt_",
				TagArgs: []string{"nBufferLength", " return + 1"},
				Type:    "LPWSTR",
				Name:    "lpBuffer",
				Text:    "_Out_writes_to_opt_(nBufferLength, return + 1) LPWSTR lpBuffer",
			},
		},
		{
			name:       "secondary annotation with parentheses",
			text:       "_Out_writes_bytes_opt_(nNumber) __out_data_source(FILE) LPVOID lpBuf",
			expectedOk: true,
			expectedArg: Argument{
				Tag:     "_Out_writes_bytes_opt_",
				TagArgs: []string{"nNumber"},
				Type:    "LPVOID",
				Name:    "lpBuf",
				Text:    "_Out_writes_bytes_opt_(nNumber) __out_data_source(FILE) LPVOID lpBuf",
			},
		},
		{
			name:       "several secondary annotations",
			text:       "_Out_writes_to_opt_(cchBufferLength, *lpcchReturnLength) _Post_ _NullNull_terminated_ LPWCH lpszVolumePathNames",
			expectedOk: true,
			expectedArg: Argument{
				Tag:     "_Out_writes_to_opt_",
				TagArgs: []string{"cchBufferLength", " *lpcchReturnLength"},
				Type:    "LPWCH",
				Name:    "lpszVolumePathNames",
				Text:    "_Out_writes_to_opt_(cchBufferLength, *lpcchReturnLength) _Post_ _NullNull_terminated_ LPWCH lpszVolumePathNames",
			},
		},
		{
			name:       "array suffix",
			text:       "_In_ FILE_SEGMENT_ELEMENT aSegmentArray[]",
			expectedOk: true,
			expectedArg: Argument{
				Tag:  "_In_",
				Type: "FILE_SEGMENT_ELEMENT",
				Name: "aSegmentArray",
				Text: "_In_ FILE_SEGMENT_ELEMENT aSegmentArray[]",
			},
		},
		{
			name:       "CONST qualified type",
			text:       "_In_reads_bytes_opt_(PropertyBufferSize) CONST PBYTE PropertyBuffer",
			expectedOk: true,
			expectedArg: Argument{
				Tag:     "_In_reads_bytes_opt_",
				TagArgs: []string{"PropertyBufferSize"},
				Type:    "CONST PBYTE",
				Name:    "PropertyBuffer",
				Text:    "_In_reads_bytes_opt_(PropertyBufferSize) CONST PBYTE PropertyBuffer",
			},
		},
		{
			name:       "pointer marker before the name",
			text:       "_Out_ const char *name",
			expectedOk: true,
			expectedArg: Argument{
				Tag:  "_Out_",
				Type: "const char",
				Name: "name",
				Text: "_Out_ const char *name",
			},
		},
		{
			name:       "not annotated",
			text:       "HANDLE hFile",
			expectedOk: false,
		},
		{
			name:       "missing type",
			text:       "_Out_writes_to_opt_(cchBufferLength, *lpcchReturnLength) _Post_ _NullNull_terminated_ lpszVolumePathNames",
			expectedOk: false,
		},
		{
			name:       "empty string",
			text:       "",
			expectedOk: false,
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			arg, ok := Parse(testCase.text)
			if ok != testCase.expectedOk {
				t.Fatalf("unexpected result for test %v. ok: %v. expected: %v.", testCase.name, ok, testCase.expectedOk)
			}
			if ok && !reflect.DeepEqual(arg, testCase.expectedArg) {
				t.Errorf("unexpected result for test %v. result: %#v. expected: %#v.", testCase.name, arg, testCase.expectedArg)
			}
		})
	}
}

func TestSizeExpr(t *testing.T) {
	arg, _ := Parse("_Out_writes_to_opt_(nBufferLength, return + 1) LPWSTR lpBuffer")
	size, ok := arg.SizeExpr()
	if !ok || size != "nBufferLength" {
		t.Errorf("unexpected result. Get %q %v, Expect %q true", size, ok, "nBufferLength")
	}
	arg, _ = Parse("_In_ HANDLE hFile")
	if _, ok := arg.SizeExpr(); ok {
		t.Errorf("a tag without arguments has no size expression")
	}
}

func TestSplit(t *testing.T) {
	params := "\n    _In_ HANDLE hFile,\n" +
		"    _In_reads_bytes_opt_(nNumberOfBytesToWrite) LPCVOID lpBuffer,\n" +
		"    DWORD nNumberOfBytesToWrite,\n" +
		"    _Out_writes_to_opt_(cch, *pcch) _Post_\n        _NullNull_terminated_ LPWCH names,\n" +
		"    int *flags,\n" +
		"    char path[MAX_PATH]\n    "
	parameters := Split(params)
	names := []string{}
	tagged := []bool{}
	for _, p := range parameters {
		names = append(names, p.Name)
		tagged = append(tagged, p.Arg != nil)
	}
	expectedNames := []string{"hFile", "lpBuffer", "nNumberOfBytesToWrite", "names", "flags", "path"}
	expectedTagged := []bool{true, true, false, true, false, false}
	if !reflect.DeepEqual(names, expectedNames) {
		t.Errorf("unexpected names. Get %v, Expect %v", names, expectedNames)
	}
	if !reflect.DeepEqual(tagged, expectedTagged) {
		t.Errorf("unexpected tags. Get %v, Expect %v", tagged, expectedTagged)
	}
	if tag := parameters[3].Arg.Tag; tag != "_Out_writes_to_opt_" {
		t.Errorf("unexpected tag %q", tag)
	}
	if args := parameters[3].Arg.TagArgs; !reflect.DeepEqual(args, []string{"cch", " *pcch"}) {
		t.Errorf("unexpected tag arguments %q", args)
	}
}

func TestSplitSkipsVoidAndVariadic(t *testing.T) {
	for _, testCase := range [...]struct {
		name     string
		params   string
		expected []string
	}{
		{name: "void", params: "VOID", expected: []string{}},
		{name: "lower case void", params: " void ", expected: []string{}},
		{name: "empty", params: "", expected: []string{}},
		{name: "variadic", params: "_In_ LPCSTR fmt, ...", expected: []string{"fmt"}},
		{name: "trailing comma", params: "_In_ type1 param1[],\n    _Inout_opt_ type3 param3,\n    ", expected: []string{"param1", "param3"}},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			names := []string{}
			for _, p := range Split(testCase.params) {
				names = append(names, p.Name)
			}
			if !reflect.DeepEqual(names, testCase.expected) {
				t.Errorf("unexpected result for test %v. result: %v. expected: %v.", testCase.name, names, testCase.expected)
			}
		})
	}
}

func TestSplitUntaggedNames(t *testing.T) {
	for _, testCase := range [...]struct {
		name            string
		params          string
		expectedNames   []string
		expectedUnnamed []string
	}{
		{
			name:          "function pointer",
			params:        "_In_ HANDLE h, _In_reads_bytes_opt_(n) LPCVOID p, _In_ DWORD n, int (*cb)(int, int)",
			expectedNames: []string{"h", "p", "n", "cb"},
		},
		{
			name:          "function pointer with calling convention",
			params:        "void (WINAPI *pfnCallback)(LPVOID), LPVOID ctx",
			expectedNames: []string{"pfnCallback", "ctx"},
		},
		{
			name:          "trailing OPTIONAL",
			params:        "_In_ DWORD n, HANDLE hTemplate OPTIONAL",
			expectedNames: []string{"n", "hTemplate"},
		},
		{
			name:          "leading and trailing markers",
			params:        "IN HANDLE hFile, OUT LPDWORD lpSize OPTIONAL",
			expectedNames: []string{"hFile", "lpSize"},
		},
		{
			name:          "pointer without spaces",
			params:        "int*p, const char* const name",
			expectedNames: []string{"p", "name"},
		},
		{
			name:            "bare types",
			params:          "HANDLE, int*, unsigned int, const char *",
			expectedNames:   []string{"", "", "", ""},
			expectedUnnamed: []string{"HANDLE", "int*", "unsigned int", "const char *"},
		},
		{
			name:            "unnamed among named",
			params:          "_In_ DWORD n, LPVOID",
			expectedNames:   []string{"n", ""},
			expectedUnnamed: []string{"LPVOID"},
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			parameters := Split(testCase.params)
			names := []string{}
			for _, p := range parameters {
				names = append(names, p.Name)
			}
			if !reflect.DeepEqual(names, testCase.expectedNames) {
				t.Errorf("unexpected names for test %v. result: %q. expected: %q.", testCase.name, names, testCase.expectedNames)
			}
			if unnamed := Unnamed(parameters); !reflect.DeepEqual(unnamed, testCase.expectedUnnamed) {
				t.Errorf("unexpected unnamed parameters for test %v. result: %q. expected: %q.", testCase.name, unnamed, testCase.expectedUnnamed)
			}
		})
	}
}

func annotated(params string) []Argument {
	args := []Argument{}
	for _, p := range Split(params) {
		if p.Arg != nil {
			args = append(args, *p.Arg)
		}
	}
	return args
}

func TestAnnotatedArgumentsKeepSourceOrder(t *testing.T) {
	params := "_Out_opt_ LPDWORD a, HANDLE b, _In_ DWORD c, _Inout_ LPVOID d"
	names := []string{}
	for _, a := range annotated(params) {
		names = append(names, a.Name)
	}
	expected := []string{"a", "c", "d"}
	if !reflect.DeepEqual(names, expected) {
		t.Errorf("unexpected result. Get %v, Expect %v", names, expected)
	}
}
