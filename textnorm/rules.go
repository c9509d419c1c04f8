package textnorm

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule 是规则表中的一条规则，三种形式互斥：
//   - strip: 删除 Unicode 大类（L/M/N/P/S/Z/C）属于列表的字符，未分配码位算作 C；
//   - pattern/replace: RE2 正则替换，repeat 为真时重复直到不再变化；
//   - form: Unicode 规范化（NFC/NFD/NFKC/NFKD）。
type Rule struct {
	Name       string   `yaml:"name" json:"name"`
	Categories []string `yaml:"strip,omitempty" json:"strip,omitempty"`
	Pattern    string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Replace    string   `yaml:"replace,omitempty" json:"replace,omitempty"`
	Repeat     bool     `yaml:"repeat,omitempty" json:"repeat,omitempty"`
	Form       string   `yaml:"form,omitempty" json:"form,omitempty"`
}

func (r Rule) kind() (string, error) {
	var kinds []string
	if len(r.Categories) > 0 {
		kinds = append(kinds, "strip")
	}
	if r.Pattern != "" {
		kinds = append(kinds, "pattern")
	}
	if r.Form != "" {
		kinds = append(kinds, "form")
	}
	if len(kinds) != 1 {
		return "", fmt.Errorf("规则 %q 必须且只能包含 strip、pattern、form 之一，实际为 %v", r.Name, kinds)
	}
	return kinds[0], nil
}

// 词边界：字母、组合符号、数字与下划线之外的字符，或行首行尾。
const wordEdge = `[^\p{L}\p{M}\p{N}_]`

// DefaultRules 返回渲染前的默认清洗规则，顺序有意义。
func DefaultRules() []Rule {
	return []Rule{
		{Name: "strip-control-symbol", Categories: []string{"C", "S"}},
		{Name: "strip-emoji-residue", Pattern: `[0-9#*]?[\x{FE0E}\x{FE0F}\x{20E3}]+`},
		{Name: "ornate-parens-open", Pattern: `﴾`, Replace: "("},
		{Name: "ornate-parens-close", Pattern: `﴿`, Replace: ")"},
		{Name: "leading-diacritic", Pattern: `^[\x{064B}-\x{0650}\x{0674}]+`},
		{
			Name:    "isolated-hamza",
			Pattern: `(^|` + wordEdge + `)[\x{0621}\x{0674}](` + wordEdge + `|$)`,
			Replace: "${1}${2}",
			Repeat:  true,
		},
	}
}

// CorpusRules 是抓取语料的清洗规则：去除拉丁词、替换标点、统一引号、压缩空白。
// 它们排在默认规则之前，收尾规则排在最后。
func CorpusRules() []Rule {
	return []Rule{
		{Name: "foreign-word", Pattern: `[A-Za-z0-9_\p{Latin}]+`},
		{Name: "arabic-comma", Pattern: `,`, Replace: "،"},
		{Name: "arabic-full-stop", Pattern: `\.`, Replace: "۔"},
		{Name: "quote-double", Pattern: `"([\p{L}\p{M}\p{N}_]+?)"`, Replace: "«${1}»"},
		{Name: "quote-single", Pattern: `'([\p{L}\p{M}\p{N}_]+?)'`, Replace: "«${1}»"},
		{Name: "quote-curly-double", Pattern: `“([\p{L}\p{M}\p{N}_]+?)”`, Replace: "«${1}»"},
		{Name: "quote-curly-single", Pattern: `‘([\p{L}\p{M}\p{N}_]+?)’`, Replace: "«${1}»"},
		{Name: "stray-quote", Pattern: `["'“”‘’;]`},
		{Name: "dash-to-space", Pattern: `[\-—=:\x{00A0}⇒\t]`, Replace: " "},
		{Name: "punctuation-run", Pattern: `[^\p{L}\p{M}\p{N}_\s«»]{4,}`},
	}
}

func cleanupRules() []Rule {
	return []Rule{
		{Name: "collapse-space", Pattern: ` {2,}`, Replace: " "},
		{Name: "trim-space", Pattern: `^ +| +$`},
		{Name: "punctuation-only", Pattern: `^[،۔«»﴾﴿() ]+$`},
	}
}

// Preset names.
const (
	PresetDefault = "default"
	PresetCorpus  = "corpus"
	PresetNone    = "none"
)

// Preset 返回命名的规则表。
func Preset(name string) ([]Rule, error) {
	switch strings.ToLower(name) {
	case "", PresetDefault:
		return DefaultRules(), nil
	case PresetCorpus:
		rules := append(CorpusRules(), DefaultRules()...)
		return append(rules, cleanupRules()...), nil
	case PresetNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("未知的规则预设 %q", name)
	}
}

// File 是规则文件的结构：先展开 preset，再追加 rules。
type File struct {
	Preset string `yaml:"preset"`
	Rules  []Rule `yaml:"rules"`
}

// LoadRules 读取 YAML 规则文件。
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取规则文件 %s 失败: %w", path, err)
	}
	return ParseRules(data)
}

// ParseRules 解析 YAML 规则。未写 preset 时不包含默认规则。
func ParseRules(data []byte) ([]Rule, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("解析规则失败: %w", err)
	}
	preset := f.Preset
	if preset == "" {
		preset = PresetNone
	}
	rules, err := Preset(preset)
	if err != nil {
		return nil, err
	}
	return append(rules, f.Rules...), nil
}
