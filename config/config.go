// Package config 定义一次合成运行的全部参数：默认值、YAML 配置文件与命令行覆盖。
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/raqim/layout"
	"github.com/ByLCY/raqim/source"
	"github.com/ByLCY/raqim/textnorm"
)

// Error 表示某个参数无效，属于致命的配置错误。
type Error struct {
	Field string
	Msg   string
}

func (e *Error) Error() string { return fmt.Sprintf("配置项 %s 无效: %s", e.Field, e.Msg) }

// Config 保存全部运行参数。长度以带单位的字符串书写（例如 210mm、1in），
// 输出 config.json 时原样保留，便于复现。
type Config struct {
	Input        string   `yaml:"input" json:"input"`
	Out          string   `yaml:"out" json:"out"`
	Mode         string   `yaml:"mode" json:"mode"`
	Kind         string   `yaml:"kind" json:"kind,omitempty"`
	DPI          int      `yaml:"dpi" json:"dpi"`
	PageWidth    string   `yaml:"page-width" json:"pageWidth"`
	PageHeight   string   `yaml:"page-height" json:"pageHeight"`
	Margin       string   `yaml:"margin" json:"margin"`
	MarginTop    string   `yaml:"margin-top" json:"marginTop,omitempty"`
	MarginRight  string   `yaml:"margin-right" json:"marginRight,omitempty"`
	MarginBottom string   `yaml:"margin-bottom" json:"marginBottom,omitempty"`
	MarginLeft   string   `yaml:"margin-left" json:"marginLeft,omitempty"`
	Font         string   `yaml:"font" json:"font"`
	FontSize     float64  `yaml:"font-size" json:"fontSize"` // pt
	FontTable    string   `yaml:"font-table" json:"fontTable,omitempty"`
	LineSpacing  string   `yaml:"line-spacing" json:"lineSpacing"`
	SpacingRule  string   `yaml:"spacing-rule" json:"spacingRule"`
	Spacing      string   `yaml:"spacing" json:"spacing,omitempty"` // 覆盖所有行距
	MinAlpha     float64  `yaml:"min-alpha" json:"minAlpha"`
	MaxAlpha     float64  `yaml:"max-alpha" json:"maxAlpha"`
	Alpha        *float64 `yaml:"alpha" json:"alpha,omitempty"`
	Background   string   `yaml:"background" json:"background,omitempty"`
	BGPattern    string   `yaml:"background-pattern" json:"backgroundPattern,omitempty"`
	Warn         bool     `yaml:"warn" json:"warn"`
	Verbose      bool     `yaml:"verbose" json:"verbose"`
	Continuo     bool     `yaml:"continuo" json:"continuo"`
	EndPage      int      `yaml:"end-page" json:"endPage"`
	Coverage     string   `yaml:"coverage" json:"coverage"`
	Rules        string   `yaml:"rules" json:"rules"`
	Encoding     string   `yaml:"encoding" json:"encoding,omitempty"`
	Seed         int64    `yaml:"seed" json:"seed"`
	NameTemplate string   `yaml:"name-template" json:"nameTemplate"`
	Debug        string   `yaml:"debug" json:"debug,omitempty"`
}

// Default 返回默认配置：A4、1in 边距、200dpi、12pt、行距 0.5in。
func Default() *Config {
	return &Config{
		Out:          "outputs",
		Mode:         layout.ModePage,
		DPI:          layout.DefaultDPI,
		PageWidth:    "210mm",
		PageHeight:   "297mm",
		Margin:       "1in",
		Font:         "embed:goregular",
		FontSize:     12,
		LineSpacing:  "0.5in",
		SpacingRule:  "single",
		MinAlpha:     0.85,
		MaxAlpha:     1.0,
		Coverage:     string(layout.CoverageSkip),
		Rules:        textnorm.PresetDefault,
		NameTemplate: "${source}.${timestamp}.${id}.d",
	}
}

// Load 在默认配置之上读取 YAML 文件，未出现的键保持默认值，未知的键报错。
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	return cfg, nil
}

// Validate 检查全部参数，返回第一个 *Error。
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return &Error{Field: "input", Msg: "缺少输入文件"}
	}
	if _, err := layout.ParseMode(c.Mode); err != nil {
		return &Error{Field: "mode", Msg: err.Error()}
	}
	if _, err := source.ParseKind(c.Kind); err != nil {
		return &Error{Field: "kind", Msg: err.Error()}
	}
	if c.DPI <= 0 {
		return &Error{Field: "dpi", Msg: fmt.Sprintf("必须为正数，实际 %d", c.DPI)}
	}
	if _, err := c.Geometry(); err != nil {
		return err
	}
	if c.FontSize <= 0 {
		return &Error{Field: "font-size", Msg: fmt.Sprintf("必须为正数，实际 %g", c.FontSize)}
	}
	if strings.TrimSpace(c.Font) == "" {
		return &Error{Field: "font", Msg: "缺少默认字体"}
	}
	if _, ok := layout.ParseSpacing(c.LineSpacing); !ok {
		return &Error{Field: "line-spacing", Msg: fmt.Sprintf("无法解析 %q", c.LineSpacing)}
	}
	if _, ok := layout.SpacingRuleFactor(c.SpacingRule); !ok {
		return &Error{Field: "spacing-rule", Msg: fmt.Sprintf("%q 不是 single、1.5 或 double", c.SpacingRule)}
	}
	if c.Spacing != "" {
		if _, err := c.SpacingOverride(); err != nil {
			return err
		}
	}
	if _, err := c.AlphaRange(); err != nil {
		return err
	}
	if c.EndPage < 0 {
		return &Error{Field: "end-page", Msg: "不能为负数"}
	}
	switch layout.CoverageMode(c.Coverage) {
	case layout.CoverageOff, layout.CoverageSkip, layout.CoverageStrict:
	default:
		return &Error{Field: "coverage", Msg: fmt.Sprintf("%q 不是 skip、strict 或 off", c.Coverage)}
	}
	if _, err := c.NormalizerRules(); err != nil {
		return err
	}
	if strings.TrimSpace(c.NameTemplate) == "" {
		return &Error{Field: "name-template", Msg: "不能为空"}
	}
	return nil
}

// Geometry 把页面尺寸与边距换算为像素几何。
func (c *Config) Geometry() (layout.Geometry, error) {
	width, err := parseLength("page-width", c.PageWidth)
	if err != nil {
		return layout.Geometry{}, err
	}
	height, err := parseLength("page-height", c.PageHeight)
	if err != nil {
		return layout.Geometry{}, err
	}
	all, err := parseLength("margin", c.Margin)
	if err != nil {
		return layout.Geometry{}, err
	}
	side := func(field, v string) (layout.Length, error) {
		if strings.TrimSpace(v) == "" {
			return all, nil
		}
		return parseLength(field, v)
	}
	var margins [4]layout.Length
	for i, s := range []struct{ field, value string }{
		{"margin-top", c.MarginTop},
		{"margin-right", c.MarginRight},
		{"margin-bottom", c.MarginBottom},
		{"margin-left", c.MarginLeft},
	} {
		if margins[i], err = side(s.field, s.value); err != nil {
			return layout.Geometry{}, err
		}
	}
	g := layout.Geometry{
		Width:  width.ToPx(c.DPI),
		Height: height.ToPx(c.DPI),
		Margin: layout.Margin{
			Top:    margins[0].ToPx(c.DPI),
			Right:  margins[1].ToPx(c.DPI),
			Bottom: margins[2].ToPx(c.DPI),
			Left:   margins[3].ToPx(c.DPI),
		},
	}
	if err := g.Validate(); err != nil {
		return layout.Geometry{}, err
	}
	return g, nil
}

// FontSizePx 返回默认字号的像素值。
func (c *Config) FontSizePx() float64 {
	return layout.Length{Value: c.FontSize, Unit: layout.UnitPT}.ToPxF(c.DPI)
}

// SpacingSpec 返回默认行距。
func (c *Config) SpacingSpec() layout.SpacingSpec {
	spec, ok := layout.ParseSpacing(c.LineSpacing)
	if !ok {
		return layout.DefaultSpacing
	}
	return spec
}

// SpacingRuleFactor 返回行距倍率。
func (c *Config) SpacingRuleFactor() float64 {
	f, ok := layout.SpacingRuleFactor(c.SpacingRule)
	if !ok {
		return 1
	}
	return f
}

// SpacingOverride 返回 -spacing 指定的统一行距（像素）；不带单位的数字按英寸解释。
func (c *Config) SpacingOverride() (float64, error) {
	v := strings.TrimSpace(c.Spacing)
	if v == "" {
		return 0, nil
	}
	l, ok := layout.ParseLength(v)
	if !ok || l.Value <= 0 {
		return 0, &Error{Field: "spacing", Msg: fmt.Sprintf("无法解析 %q", c.Spacing)}
	}
	if l.Unit == layout.UnitNone {
		l.Unit = layout.UnitIN
	}
	return l.ToPxF(c.DPI), nil
}

// AlphaRange 返回墨迹不透明度区间；设置了 alpha 时上下限相同。
func (c *Config) AlphaRange() (layout.AlphaRange, error) {
	r := layout.AlphaRange{Min: c.MinAlpha, Max: c.MaxAlpha}
	if c.Alpha != nil {
		r = layout.AlphaRange{Min: *c.Alpha, Max: *c.Alpha}
	}
	if r.Min < 0 || r.Max > 1 || r.Min > r.Max {
		return layout.AlphaRange{}, &Error{Field: "alpha", Msg: fmt.Sprintf("区间 [%g, %g] 必须满足 0 <= min <= max <= 1", r.Min, r.Max)}
	}
	// 零区间在引擎中表示未设置（不透明），这里直接拒绝完全透明的墨迹。
	if r.Max == 0 {
		return layout.AlphaRange{}, &Error{Field: "alpha", Msg: "max 为 0 时墨迹完全透明"}
	}
	return r, nil
}

// NormalizerRules 返回规范化规则：预设名、none 或规则文件路径。
func (c *Config) NormalizerRules() ([]textnorm.Rule, error) {
	switch name := strings.TrimSpace(c.Rules); name {
	case "", "none", "off":
		return nil, nil
	default:
		if rules, err := textnorm.Preset(name); err == nil {
			return rules, nil
		}
		rules, err := textnorm.LoadRules(name)
		if err != nil {
			return nil, &Error{Field: "rules", Msg: err.Error()}
		}
		return rules, nil
	}
}

func parseLength(field, v string) (layout.Length, error) {
	l, ok := layout.ParseLength(v)
	if !ok || l.Value < 0 {
		return layout.Length{}, &Error{Field: field, Msg: fmt.Sprintf("无法解析长度 %q", v)}
	}
	if l.Unit == layout.UnitNone {
		return layout.Length{}, &Error{Field: field, Msg: fmt.Sprintf("长度 %q 缺少单位（mm、cm、in、pt、px）", v)}
	}
	return l, nil
}
