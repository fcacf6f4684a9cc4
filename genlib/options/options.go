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

package options

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	"gopkg.in/yaml.v2"

	"naive.systems/interceptor/genlib/i18n"
)

var ErrMissingOption = errors.New("missing required option")

type MissingOptionError struct {
	Name string
}

func (e *MissingOptionError) Error() string {
	return fmt.Sprintf("%v -%s", ErrMissingOption, e.Name)
}

func (e *MissingOptionError) Unwrap() error {
	return ErrMissingOption
}

type ArrayFlags []string

func (i *ArrayFlags) String() string {
	return strings.Join(*i, ",")
}

func (i *ArrayFlags) Set(value string) error {
	*i = append(*i, value)
	return nil
}

type Options struct {
	Config         *string
	DefFile        *string
	Filter         *string
	IgnorePatterns ArrayFlags
	InputCharset   *string
	Lang           *string
	OutputBase     *string
	Overwrite      *bool
	StatsFile      *string
	Verbose        *bool
}

func (o *Options) GetConfig() string {
	return *o.Config
}

func (o *Options) GetDefFile() string {
	return *o.DefFile
}

func (o *Options) GetFilter() string {
	return *o.Filter
}

func (o *Options) GetIgnorePatterns() []string {
	return o.IgnorePatterns
}

func (o *Options) GetInputCharset() string {
	return *o.InputCharset
}

func (o *Options) GetLang() string {
	return *o.Lang
}

func (o *Options) GetOutputBase() string {
	return *o.OutputBase
}

func (o *Options) GetOverwrite() bool {
	return *o.Overwrite
}

func (o *Options) GetStatsFile() string {
	return *o.StatsFile
}

func (o *Options) GetVerbose() bool {
	return *o.Verbose
}

type DefaultOptionValues struct {
	Config       string
	DefFile      string
	Filter       string
	InputCharset string
	Lang         string
	OutputBase   string
	Overwrite    bool
	StatsFile    string
	Verbose      bool
}

var Defaults = DefaultOptionValues{
	Config:       "",
	DefFile:      "",
	Filter:       "",
	InputCharset: "UTF-8",
	Lang:         "en",
	OutputBase:   "",
	Overwrite:    false,
	StatsFile:    "",
	Verbose:      false,
}

// NewOptions registers the generator flags on fs.
func NewOptions(fs *flag.FlagSet) *Options {
	option := &Options{}

	option.Config = fs.String("config", Defaults.Config, "YAML file with template and input settings")
	option.DefFile = fs.String("def_file", Defaults.DefFile, "The DEF file to extend with the new interceptors")
	option.Filter = fs.String("filter", Defaults.Filter, "CSV file listing the functions to intercept, with function and module columns")
	fs.Var(&option.IgnorePatterns, "ignore_pattern", "Skip input headers matching this pattern, may be repeated")
	option.InputCharset = fs.String("input_charset", Defaults.InputCharset, "Charset of the input headers")
	option.Lang = fs.String("lang", Defaults.Lang, "Language of console messages. Support en and zh")
	option.OutputBase = fs.String("output_base", Defaults.OutputBase, "Base name of the output files")
	option.Overwrite = fs.Bool("overwrite", Defaults.Overwrite, "Overwrite the output files if they already exist")
	option.StatsFile = fs.String("stats_file", Defaults.StatsFile, "Write a JSON run summary to this file")
	option.Verbose = fs.Bool("verbose", Defaults.Verbose, "Log every declaration and argument considered")
	return option
}

// Validate reports the first missing required option.
func (o *Options) Validate() error {
	for _, required := range []struct {
		name  string
		value string
	}{
		{"output_base", o.GetOutputBase()},
		{"filter", o.GetFilter()},
		{"def_file", o.GetDefFile()},
	} {
		if required.value == "" {
			return &MissingOptionError{Name: required.name}
		}
	}
	if !i18n.Supported(o.GetLang()) {
		return fmt.Errorf("unsupported language %s, support %s", o.GetLang(), strings.Join(i18n.Langs(), " and "))
	}
	return nil
}

// Config is the content of the -config file. Empty fields keep their
// defaults.
type Config struct {
	CallingConvention string   `yaml:"calling_convention"`
	InterceptorPrefix string   `yaml:"interceptor_prefix"`
	CheckFunction     string   `yaml:"check_function"`
	AccessTypeFormat  string   `yaml:"access_type_format"`
	TailCallback      string   `yaml:"tail_callback"`
	FilterPlaceholder string   `yaml:"filter_placeholder"`
	InputCharset      string   `yaml:"input_charset"`
	IgnorePatterns    []string `yaml:"ignore_patterns"`
}

func LoadConfig(path string) (*Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}
	config := &Config{}
	if err := yaml.UnmarshalStrict(contents, config); err != nil {
		return nil, fmt.Errorf("yaml.UnmarshalStrict(%s): %w", path, err)
	}
	return config, nil
}

// ApplyConfig copies the input settings of config into the options whose
// flags were not given on the command line.
func (o *Options) ApplyConfig(fs *flag.FlagSet, config *Config) {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["input_charset"] && config.InputCharset != "" {
		*o.InputCharset = config.InputCharset
	}
	if !set["ignore_pattern"] && len(config.IgnorePatterns) > 0 {
		o.IgnorePatterns = append(ArrayFlags{}, config.IgnorePatterns...)
	}
}

// ExpandResponseFiles replaces every @file argument by the arguments listed
// in that file. Relative paths in a response file are relative to the file.
func ExpandResponseFiles(args []string) ([]string, error) {
	expanded := []string{}
	for _, arg := range args {
		if !strings.HasPrefix(arg, "@") {
			expanded = append(expanded, arg)
			continue
		}
		rsp := arg[1:]
		contents, err := os.ReadFile(rsp)
		if err != nil {
			return nil, fmt.Errorf("os.ReadFile: %w", err)
		}
		listed, err := shlex.Split(string(contents))
		if err != nil {
			return nil, fmt.Errorf("shlex.Split(%s): %w", rsp, err)
		}
		for _, path := range listed {
			if !filepath.IsAbs(path) {
				path = filepath.Join(filepath.Dir(rsp), path)
			}
			expanded = append(expanded, path)
		}
	}
	return expanded, nil
}
