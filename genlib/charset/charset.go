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

// Package charset converts header files shipped in legacy code pages to
// UTF-8 before they are scanned.
package charset

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/golang/glog"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

func isUTF8(charset string) bool {
	switch strings.ToLower(charset) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

// Decode converts b from the named MIME charset. Unknown charsets and
// undecodable input are returned unchanged, as UTF-8.
func Decode(b []byte, charset string) string {
	if isUTF8(charset) {
		return string(b)
	}
	e, err := ianaindex.MIME.Encoding(charset)
	if err != nil {
		glog.Warningf("ianaindex.MIME.Encoding(%s): %v, the charset is considered as UTF-8 by default", charset, err)
		return string(b)
	}
	if e == nil {
		glog.Warningf("charset %s not supported, the charset is considered as UTF-8 by default", charset)
		return string(b)
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(b), e.NewDecoder()))
	if err != nil {
		glog.Warningf("decoding %s failed: %v, the charset is considered as UTF-8 by default", charset, err)
		return string(b)
	}
	return string(decoded)
}

// ReadFile reads the whole file and decodes it.
func ReadFile(path, charset string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("os.ReadFile: %w", err)
	}
	return Decode(b, charset), nil
}
