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
Package policy decides, from the SAL annotations of a declaration, whether it
gets an interceptor and which arguments the interceptor checks.

The buffer tags below refer to a buffer whose size is given by the first
argument of the tag. The first argument carrying one of them becomes the
primary buffer, checked over its full size before and after the call.

Arguments tagged _Out_ or _Out_opt_ point to a single object written by the
callee. They are checked with sizeof(*arg) before and after the call.
_Inout_ and _Inout_opt_ arguments are only checked before the call, as an
asynchronous system call may invalidate them once it returns.
*/
package policy

import (
	"strings"

	"github.com/golang/glog"
	"naive.systems/interceptor/interceptor/extractor"
	"naive.systems/interceptor/interceptor/tokenizer"
)

type AccessMode int

const (
	Read AccessMode = iota
	Write
)

func (m AccessMode) String() string {
	switch m {
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	}
	return "UNKNOWN"
}

type TagKind int

const (
	// KindOther tags never lead to a check.
	KindOther TagKind = iota
	// KindBuffer tags may select the primary buffer.
	KindBuffer
	// KindPreCall tags are checked before the call only.
	KindPreCall
	// KindPrePostCall tags are checked before and after the call.
	KindPrePostCall
)

var bufferTags = map[string]AccessMode{
	"_In_reads_bytes_opt_":      Read,
	"_Out_writes_to_opt_":       Write,
	"_Out_writes_bytes_opt_":    Write,
	"_Out_writes_bytes_to_opt_": Write,
}

var tagKinds = map[string]TagKind{
	"_In_reads_bytes_opt_":      KindBuffer,
	"_Out_writes_to_opt_":       KindBuffer,
	"_Out_writes_bytes_opt_":    KindBuffer,
	"_Out_writes_bytes_to_opt_": KindBuffer,
	"_Out_":                     KindPrePostCall,
	"_Out_opt_":                 KindPrePostCall,
	"_Inout_":                   KindPreCall,
	"_Inout_opt_":               KindPreCall,
}

func Kind(tag string) TagKind {
	return tagKinds[tag]
}

// BufferAccess returns the access mode of a buffer tag.
func BufferAccess(tag string) (AccessMode, bool) {
	mode, ok := bufferTags[tag]
	return mode, ok
}

// CheckedBeforeCall reports whether an argument with this tag gets a
// fixed size check before the call.
func CheckedBeforeCall(tag string) bool {
	k := Kind(tag)
	return k == KindPreCall || k == KindPrePostCall
}

// CheckedAfterCall reports whether an argument with this tag gets a fixed
// size check after the call. It implies CheckedBeforeCall.
func CheckedAfterCall(tag string) bool {
	return Kind(tag) == KindPrePostCall
}

// ArgumentAccess is the access mode of a fixed size check, inferred from
// the tag name: tags mentioning "In" are read, everything else is written.
func ArgumentAccess(tag string) AccessMode {
	if strings.Contains(tag, "In") {
		return Read
	}
	return Write
}

type Check struct {
	Arg    tokenizer.Argument
	Access AccessMode
}

type Decision struct {
	Function   extractor.Declaration
	Buffer     tokenizer.Argument
	BufferSize string
	Access     AccessMode
	PreCall    []Check
	PostCall   []Check
	Params     []tokenizer.Parameter
}

// ParamNames is the argument list of the call to the original function.
func (d *Decision) ParamNames() string {
	names := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

// PrimaryBuffer returns the first argument whose tag is a buffer tag with a
// size argument.
func PrimaryBuffer(params []tokenizer.Parameter) (tokenizer.Argument, AccessMode, string, bool) {
	for _, p := range params {
		if p.Arg == nil {
			continue
		}
		mode, ok := BufferAccess(p.Arg.Tag)
		if !ok {
			continue
		}
		size, ok := p.Arg.SizeExpr()
		if !ok {
			glog.Warningf("buffer tag %s of %s has no size argument", p.Arg.Tag, p.Arg.Name)
			continue
		}
		return *p.Arg, mode, size, true
	}
	return tokenizer.Argument{}, Read, "", false
}

// Decide returns the interception decision for a declaration, or false
// when none of its arguments carries a buffer tag or a parameter has no
// name to forward. Allow-list and de-duplication are the caller's business.
func Decide(decl extractor.Declaration, params []tokenizer.Parameter) (*Decision, bool) {
	if len(tokenizer.Unnamed(params)) > 0 {
		return nil, false
	}
	buffer, mode, size, ok := PrimaryBuffer(params)
	if !ok {
		return nil, false
	}
	d := &Decision{
		Function:   decl,
		Buffer:     buffer,
		BufferSize: size,
		Access:     mode,
		PreCall:    []Check{},
		PostCall:   []Check{},
		Params:     params,
	}
	for _, p := range params {
		if p.Arg == nil || !CheckedBeforeCall(p.Arg.Tag) {
			continue
		}
		c := Check{Arg: *p.Arg, Access: ArgumentAccess(p.Arg.Tag)}
		d.PreCall = append(d.PreCall, c)
		if CheckedAfterCall(p.Arg.Tag) {
			d.PostCall = append(d.PostCall, c)
		}
	}
	return d, true
}
