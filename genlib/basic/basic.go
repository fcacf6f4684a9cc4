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
This package should not import any other package of the module to
avoid recursive import.
*/
package basic

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
)

// Stdout receives console messages.
var Stdout io.Writer = os.Stdout

func PrintfWithTimeStamp(format string, arg ...any) {
	prefix := fmt.Sprintf("%v ", time.Now().Format("2006-01-02 15:04:05"))
	message := fmt.Sprintf(prefix+format, arg...)
	fmt.Fprintln(Stdout, message)
	glog.Info(message)
}

func FormatTimeDuration(d time.Duration) string {
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	if ms == 0 {
		return fmt.Sprintf("%ds", s)
	}
	return fmt.Sprintf("%d.%ss", s, strings.TrimRight(fmt.Sprintf("%03d", ms), "0"))
}
