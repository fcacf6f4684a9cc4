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

// Package atomic replaces files so that readers never observe a partially
// written one.
package atomic

import (
	"fmt"
	"os"
	"path/filepath"
)

// Write replaces name with data.
func Write(name string, data []byte) error {
	return WriteFiles([]File{{Name: name, Data: data}})
}

type File struct {
	Name string
	Data []byte
}

// WriteFiles stages every file next to its target before renaming any of
// them, so a failure while staging leaves all targets untouched.
func WriteFiles(files []File) error {
	staged := make([]string, 0, len(files))
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()
	for _, file := range files {
		tmp, err := stage(file)
		if err != nil {
			return err
		}
		staged = append(staged, tmp)
	}
	for i, file := range files {
		if err := os.Rename(staged[i], file.Name); err != nil {
			return fmt.Errorf("failed to rename file %s to %s: %w", staged[i], file.Name, err)
		}
	}
	return nil
}

func stage(file File) (string, error) {
	pattern := "tmp-*-" + filepath.Base(file.Name)
	f, err := os.CreateTemp(filepath.Dir(file.Name), pattern)
	if err != nil {
		return "", fmt.Errorf("os.CreateTemp: %w", err)
	}
	defer f.Close()
	// CreateTemp uses 0600
	if err := os.Chmod(f.Name(), 0644); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("os.Chmod: %w", err)
	}
	if _, err := f.Write(file.Data); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write to file %s: %w", f.Name(), err)
	}
	return f.Name(), nil
}
