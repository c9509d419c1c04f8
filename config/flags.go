package config

import "flag"

// Flags 把命令行参数绑定到一份独立的 Config 上，Apply 时只覆盖显式设置过的参数，
// 因此优先级为：命令行 > 配置文件 > 默认值。
type Flags struct {
	fs         *flag.FlagSet
	values     Config
	alpha      float64
	configPath string
	apply      map[string]func(dst *Config)
}

// NewFlags 在 fs 上注册全部参数。
func NewFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs, values: *Default(), apply: map[string]func(*Config){}}
	fs.StringVar(&f.configPath, "config", "", "YAML 配置文件路径")

	bind(f, "out", func(c *Config) *string { return &c.Out }, fs.StringVar, "输出根目录")
	bind(f, "mode", func(c *Config) *string { return &c.Mode }, fs.StringVar, "输出模式：page 或 glyph")
	bind(f, "kind", func(c *Config) *string { return &c.Kind }, fs.StringVar, "输入格式：text、chars 或 document（默认按扩展名判断）")
	bind(f, "dpi", func(c *Config) *int { return &c.DPI }, fs.IntVar, "分辨率")
	bind(f, "page-width", func(c *Config) *string { return &c.PageWidth }, fs.StringVar, "页面宽度，例如 210mm")
	bind(f, "page-height", func(c *Config) *string { return &c.PageHeight }, fs.StringVar, "页面高度，例如 297mm")
	bind(f, "margin", func(c *Config) *string { return &c.Margin }, fs.StringVar, "四边边距")
	bind(f, "margin-top", func(c *Config) *string { return &c.MarginTop }, fs.StringVar, "上边距，覆盖 -margin")
	bind(f, "margin-right", func(c *Config) *string { return &c.MarginRight }, fs.StringVar, "右边距，覆盖 -margin")
	bind(f, "margin-bottom", func(c *Config) *string { return &c.MarginBottom }, fs.StringVar, "下边距，覆盖 -margin")
	bind(f, "margin-left", func(c *Config) *string { return &c.MarginLeft }, fs.StringVar, "左边距，覆盖 -margin")
	bind(f, "font", func(c *Config) *string { return &c.Font }, fs.StringVar, "默认字体：字体名、文件路径或 embed:<name>")
	bind(f, "font-size", func(c *Config) *float64 { return &c.FontSize }, fs.Float64Var, "默认字号（pt）")
	bind(f, "font-table", func(c *Config) *string { return &c.FontTable }, fs.StringVar, "字体表文件（YAML/JSON）")
	bind(f, "line-spacing", func(c *Config) *string { return &c.LineSpacing }, fs.StringVar, "默认行距：倍数（1.5x）或长度（0.5in）")
	bind(f, "spacing-rule", func(c *Config) *string { return &c.SpacingRule }, fs.StringVar, "行距倍率：single、1.5 或 double")
	bind(f, "spacing", func(c *Config) *string { return &c.Spacing }, fs.StringVar, "统一行距，覆盖文档样式；不带单位时为英寸")
	bind(f, "min-alpha", func(c *Config) *float64 { return &c.MinAlpha }, fs.Float64Var, "墨迹最小不透明度")
	bind(f, "max-alpha", func(c *Config) *float64 { return &c.MaxAlpha }, fs.Float64Var, "墨迹最大不透明度")
	bind(f, "background", func(c *Config) *string { return &c.Background }, fs.StringVar, "背景图片目录")
	bind(f, "background-pattern", func(c *Config) *string { return &c.BGPattern }, fs.StringVar, "背景文件匹配模式，默认 *")
	bind(f, "warn", func(c *Config) *bool { return &c.Warn }, fs.BoolVar, "输出警告日志")
	bind(f, "verbose", func(c *Config) *bool { return &c.Verbose }, fs.BoolVar, "输出调试日志")
	bind(f, "continuo", func(c *Config) *bool { return &c.Continuo }, fs.BoolVar, "连写模式：用 ZWJ 代替空白")
	bind(f, "end-page", func(c *Config) *int { return &c.EndPage }, fs.IntVar, "最多输出的页码，0 表示不限")
	bind(f, "coverage", func(c *Config) *string { return &c.Coverage }, fs.StringVar, "缺字处理：skip、strict 或 off")
	bind(f, "rules", func(c *Config) *string { return &c.Rules }, fs.StringVar, "规范化规则：default、corpus、none 或规则文件")
	bind(f, "encoding", func(c *Config) *string { return &c.Encoding }, fs.StringVar, "输入编码，例如 windows-1256")
	bind(f, "seed", func(c *Config) *int64 { return &c.Seed }, fs.Int64Var, "随机种子，0 表示按时间生成")
	bind(f, "name-template", func(c *Config) *string { return &c.NameTemplate }, fs.StringVar, "会话目录名模板")
	bind(f, "debug", func(c *Config) *string { return &c.Debug }, fs.StringVar, "调试 JSON 输出路径")

	fs.Float64Var(&f.alpha, "alpha", 0, "统一墨迹不透明度，覆盖 -min-alpha 与 -max-alpha")
	f.apply["alpha"] = func(dst *Config) {
		v := f.alpha
		dst.Alpha = &v
	}
	return f
}

func bind[T any](f *Flags, name string, field func(*Config) *T, register func(*T, string, T, string), usage string) {
	register(field(&f.values), name, *field(&f.values), usage)
	f.apply[name] = func(dst *Config) { *field(dst) = *field(&f.values) }
}

// ConfigPath 返回 -config 的值。
func (f *Flags) ConfigPath() string { return f.configPath }

// Apply 把显式设置过的参数写入 cfg；第一个位置参数作为输入文件。
func (f *Flags) Apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		if set, ok := f.apply[fl.Name]; ok {
			set(cfg)
		}
	})
	if f.fs.NArg() > 0 {
		cfg.Input = f.fs.Arg(0)
	}
}
