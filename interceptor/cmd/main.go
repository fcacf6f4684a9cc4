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

// Command cmd generates ASan system interceptors from SAL annotated headers.
//
//	cmd -output_base=asan_system_interceptors -filter=filter.csv \
//	    -def_file=syzyasan_rtl.def fileapi.h @more_headers.rsp 'sdk/**/*.h'
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
	"naive.systems/interceptor/genlib/basic"
	"naive.systems/interceptor/genlib/filter"
	"naive.systems/interceptor/genlib/i18n"
	"naive.systems/interceptor/genlib/options"
	"naive.systems/interceptor/genlib/stats"
	"naive.systems/interceptor/interceptor/generator"
	"naive.systems/interceptor/interceptor/renderer"
)

// templateConfig overlays the non-empty template settings of the config file
// on the defaults.
func templateConfig(config *options.Config) renderer.Config {
	c := renderer.DefaultConfig()
	for _, setting := range []struct {
		value  string
		target *string
	}{
		{config.CallingConvention, &c.CallingConvention},
		{config.InterceptorPrefix, &c.Prefix},
		{config.CheckFunction, &c.CheckFunction},
		{config.AccessTypeFormat, &c.AccessTypeFormat},
		{config.TailCallback, &c.TailCallback},
		{config.FilterPlaceholder, &c.FilterPlaceholder},
	} {
		if setting.value != "" {
			*setting.target = setting.value
		}
	}
	return c
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] header...\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	opts := options.NewOptions(flag.CommandLine)
	flag.Usage = usage
	flag.Parse()
	defer glog.Flush()

	printer := i18n.GetPrinter(opts.GetLang())
	if opts.GetVerbose() {
		for name, value := range map[string]string{"v": "1", "alsologtostderr": "true"} {
			if err := flag.Set(name, value); err != nil {
				glog.Fatalf("failed to set %s: %v", name, err)
			}
		}
	}

	if err := opts.Validate(); err != nil {
		var missing *options.MissingOptionError
		if errors.As(err, &missing) {
			fmt.Fprintln(os.Stderr, printer.Sprintf(i18n.MsgMissingOption, missing.Name))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		flag.Usage()
		os.Exit(2)
	}

	config := &options.Config{}
	if opts.GetConfig() != "" {
		var err error
		config, err = options.LoadConfig(opts.GetConfig())
		if err != nil {
			glog.Fatalf("options.LoadConfig: %v", err)
		}
	}
	opts.ApplyConfig(flag.CommandLine, config)

	args, err := options.ExpandResponseFiles(flag.Args())
	if err != nil {
		glog.Fatalf("options.ExpandResponseFiles: %v", err)
	}
	files, err := filter.ExpandInputs(args)
	if err != nil {
		glog.Fatalf("filter.ExpandInputs: %v", err)
	}
	if len(files) == 0 {
		glog.Warning(printer.Sprintf(i18n.MsgNoInput))
	}

	startTime := time.Now()
	basic.PrintfWithTimeStamp(printer.Sprintf(i18n.MsgStartScanning, len(files)))
	summary, err := generator.Run(generator.Options{
		OutputBase:     opts.GetOutputBase(),
		FilterFile:     opts.GetFilter(),
		DefFile:        opts.GetDefFile(),
		Overwrite:      opts.GetOverwrite(),
		Renderer:       templateConfig(config),
		InputCharset:   opts.GetInputCharset(),
		IgnorePatterns: opts.GetIgnorePatterns(),
	}, files)
	if errors.Is(err, generator.ErrOutputExists) {
		existing := generator.OutputsFor(opts.GetOutputBase()).Existing()
		fmt.Fprintln(os.Stderr, printer.Sprintf(i18n.MsgOutputExists, strings.Join(existing, ", ")))
		glog.Errorf("generator.Run: %v", err)
		glog.Flush()
		os.Exit(1)
	}
	if err != nil {
		glog.Fatal(printer.Sprintf(i18n.MsgRunFailed, err))
	}

	if len(summary.Files) > 0 {
		lines, err := stats.CountHeaderLines(summary.Files)
		if err != nil {
			glog.Warningf("stats.CountHeaderLines: %v", err)
		}
		summary.HeaderCodeLines = lines
	}

	outputs := generator.OutputsFor(opts.GetOutputBase())
	basic.PrintfWithTimeStamp(printer.Sprintf(i18n.MsgGenerated, summary.Intercepted, basic.FormatTimeDuration(time.Since(startTime))))
	basic.PrintfWithTimeStamp(printer.Sprintf(i18n.MsgOutputsGenerated, outputs.Impl, outputs.Filter, outputs.Def))
	glog.Info(printer.Sprintf(i18n.MsgSummary, summary.FilesScanned, summary.Declarations, summary.NotInFilter, summary.Duplicates, summary.UnnamedParams, summary.NoBufferTag))
	glog.Info(printer.Sprintf(i18n.MsgHeaderCodeLines, summary.HeaderCodeLines))
	for _, module := range summary.Modules() {
		glog.Info(printer.Sprintf(i18n.MsgModuleSummary, module, summary.PerModule[module]))
	}
	glog.Infof("run id: %s", summary.RunID)

	if opts.GetStatsFile() != "" {
		if err := stats.WriteSummary(opts.GetStatsFile(), summary); err != nil {
			glog.Fatalf("stats.WriteSummary: %v", err)
		}
		basic.PrintfWithTimeStamp(printer.Sprintf(i18n.MsgStatsWritten, opts.GetStatsFile()))
	}
}
