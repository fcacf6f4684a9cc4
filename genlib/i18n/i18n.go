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

package i18n

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Operator facing messages. The English text doubles as the catalog key.
const (
	MsgMissingOption    = "missing required option -%s"
	MsgOutputExists     = "output files already exist, use the -overwrite flag to overwrite them: %s"
	MsgNoInput          = "no input header files"
	MsgStartScanning    = "Start to scan %d header files"
	MsgGenerated        = "Generated %d interceptors in %s"
	MsgSummary          = "%d files, %d declarations, %d not in filter, %d duplicates, %d with unnamed parameters, %d without buffer annotation"
	MsgModuleSummary    = "%s: %d interceptors"
	MsgStatsWritten     = "Run summary written to %s"
	MsgRunFailed        = "generation failed: %v"
	MsgHeaderCodeLines  = "%d lines of code in input headers"
	MsgOutputsGenerated = "Outputs: %s, %s, %s"
)

var languageMap = map[string]language.Tag{"en": language.English, "zh": language.Chinese}

// DefaultLang is used when the requested language is not supported.
const DefaultLang = "en"

var zh = map[string]string{
	MsgMissingOption:    "缺少必需的选项 -%s",
	MsgOutputExists:     "输出文件已存在，请使用 -overwrite 选项覆盖：%s",
	MsgNoInput:          "没有输入的头文件",
	MsgStartScanning:    "开始扫描 %d 个头文件",
	MsgGenerated:        "已生成 %d 个拦截函数，耗时 %s",
	MsgSummary:          "%d 个文件，%d 个声明，%d 个不在过滤表中，%d 个重复，%d 个含无名参数，%d 个没有缓冲区注解",
	MsgModuleSummary:    "%s：%d 个拦截函数",
	MsgStatsWritten:     "运行统计已写入 %s",
	MsgRunFailed:        "生成失败：%v",
	MsgHeaderCodeLines:  "输入头文件共 %d 行代码",
	MsgOutputsGenerated: "输出：%s，%s，%s",
}

func init() {
	for key, msg := range zh {
		if err := message.SetString(language.English, key, key); err != nil {
			panic(err)
		}
		if err := message.SetString(language.Chinese, key, msg); err != nil {
			panic(err)
		}
	}
}

// Supported reports whether lang has a message catalog.
func Supported(lang string) bool {
	_, exist := languageMap[lang]
	return exist
}

// Langs returns the languages with a message catalog, sorted.
func Langs() []string {
	langs := maps.Keys(languageMap)
	slices.Sort(langs)
	return langs
}

func GetPrinter(lang string) *message.Printer {
	var langTag language.Tag
	if _, exist := languageMap[lang]; exist {
		langTag = languageMap[lang]
	} else {
		langTag = languageMap[DefaultLang]
	}
	return message.NewPrinter(langTag)
}
