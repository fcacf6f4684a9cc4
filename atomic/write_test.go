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

package atomic

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReplaces(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "out.gen")
	if err := os.WriteFile(name, []byte("old content that is longer"), 0644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	if err := Write(name, []byte("new")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("os.ReadFile: %v", err)
	}
	if string(data) != "new" {
		t.Errorf("unexpected content %q", data)
	}
	info, err := os.Stat(name)
	if err != nil {
		t.Fatalf("os.Stat: %v", err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("unexpected permissions %v", info.Mode().Perm())
	}
}

func TestWriteFilesLeavesNoTemporaries(t *testing.T) {
	dir := t.TempDir()
	files := []File{
		{Name: filepath.Join(dir, "a.gen"), Data: []byte("a")},
		{Name: filepath.Join(dir, "b.gen"), Data: []byte("b")},
	}
	if err := WriteFiles(files); err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("os.ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("unexpected directory content %v", entries)
	}
}

func TestWriteFilesStagingFailure(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.gen")
	if err := os.WriteFile(first, []byte("prior"), 0644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	files := []File{
		{Name: first, Data: []byte("a")},
		{Name: filepath.Join(dir, "missing", "b.gen"), Data: []byte("b")},
	}
	if err := WriteFiles(files); err == nil {
		t.Fatalf("expected an error for a missing directory")
	}
	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("os.ReadFile: %v", err)
	}
	if string(data) != "prior" {
		t.Errorf("first file should be untouched, got %q", data)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("os.ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("staged files were not cleaned up: %v", entries)
	}
}
