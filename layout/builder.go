package layout

import (
	"fmt"
	"strings"

	"github.com/ByLCY/raqim/dsl"
)

// BuildOptions 提供结构化文档未声明时使用的默认值。
type BuildOptions struct {
	DPI         int
	Font        FontResource // 默认字体
	FontSizePx  float64
	Spacing     SpacingSpec // 默认行距
	SpacingRule float64     // 行距倍率（single=1, 1.5, double=2），作用于所有行距
}

// ResourceSet 收集 resources 段中声明的字体与样式。
type ResourceSet struct {
	Fonts  map[string]FontResource `json:"fonts"`
	Styles StyleSheet              `json:"styles"`
}

// Build 根据 DSL AST 生成标准化文本流：段落内每个文本字面量对应一个 Run，pagebreak 对应分页块。
func Build(doc *dsl.Document, opts BuildOptions) (*Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	if opts.DPI <= 0 {
		opts.DPI = DefaultDPI
	}
	if opts.SpacingRule <= 0 {
		opts.SpacingRule = 1
	}
	if opts.Spacing == (SpacingSpec{}) {
		opts.Spacing = DefaultSpacing
	}

	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	out := &Document{Meta: collectMeta(doc)}

	b := &docBuilder{opts: opts, res: res, out: out}
	pages := 0
	for _, section := range doc.Sections {
		if section.Page == nil {
			continue
		}
		if pages == 0 {
			g, err := resolveGeometry(section.Page.Spec, opts.DPI)
			if err != nil {
				return nil, err
			}
			out.Geometry = &g
		} else {
			// 每个 page 段落从新的一页开始。
			b.pageBreak()
		}
		pages++
		if section.Page.Block == nil {
			continue
		}
		if err := b.processBlock(section.Page.Block, nil); err != nil {
			return nil, err
		}
	}
	if pages == 0 {
		return nil, fmt.Errorf("文档中缺少 page 段落")
	}
	return out, nil
}

type docBuilder struct {
	opts BuildOptions
	res  ResourceSet
	out  *Document
}

// processBlock 依次处理 page 或 paragraph 中的语句，支持 paragraph、run、pagebreak 与文本字面量。
func (b *docBuilder) processBlock(block *dsl.Block, para attrStack) error {
	for _, stmt := range block.Statements {
		switch {
		case stmt.Text != nil:
			if err := b.appendRun(string(stmt.Text.Value), para, stmt.Text.Pos.Line); err != nil {
				return err
			}
		case stmt.Command != nil:
			if err := b.handleCommand(stmt.Command, para); err != nil {
				return fmt.Errorf("第 %d 行 %s: %w", stmt.Command.Pos.Line, stmt.Command.Name, err)
			}
		}
	}
	return nil
}

func (b *docBuilder) handleCommand(cmd *dsl.Command, para attrStack) error {
	switch cmd.Name {
	case "pagebreak":
		b.pageBreak()
		return nil
	case "paragraph", "run":
		if cmd.Name == "paragraph" && para != nil {
			return fmt.Errorf("paragraph 不能嵌套")
		}
		style, inline := parseArgs(cmd.Args, true)
		attrs, err := b.stack(style, inline, para)
		if err != nil {
			return err
		}
		if cmd.Block == nil {
			return nil
		}
		if cmd.Name == "run" {
			return b.appendRun(extractText(cmd.Block), attrs, cmd.Pos.Line)
		}
		return b.processBlock(cmd.Block, attrs)
	default:
		return fmt.Errorf("未知指令")
	}
}

// stack 构造属性查找顺序：行内参数、样式链、外层段落。
func (b *docBuilder) stack(style string, inline map[string]string, parent attrStack) (attrStack, error) {
	out := attrStack{attrMap(inline)}
	if style != "" {
		chain, err := b.res.Styles.Chain(style)
		if err != nil {
			return nil, err
		}
		out = append(out, chain)
	}
	return append(out, parent...), nil
}

func (b *docBuilder) pageBreak() {
	b.out.Blocks = append(b.out.Blocks, Block{PageBreak: true})
}

func (b *docBuilder) appendRun(text string, attrs attrStack, line int) error {
	run, err := b.resolveRun(text, attrs)
	if err != nil {
		return err
	}
	run.SourceNo = line
	b.out.Blocks = append(b.out.Blocks, Block{Run: &run})
	return nil
}

// resolveRun 按 (value, ok) 顺序回退解析字体、字号、行距与缩进。
func (b *docBuilder) resolveRun(text string, attrs attrStack) (Run, error) {
	dpi := b.opts.DPI
	run := Run{Text: text, Font: b.opts.Font, SizePx: b.opts.FontSizePx}

	if name, ok := attrs.Lookup("font"); ok {
		run.Font = b.resolveFont(name)
	}
	if v, ok := attrs.first("size", "font-size"); ok {
		l, ok := ParseLength(v)
		if !ok || l.Value <= 0 {
			return Run{}, fmt.Errorf("字号无效：%s", v)
		}
		if l.Unit == UnitNone {
			l.Unit = UnitPT
		}
		run.SizePx = l.ToPxF(dpi)
	}
	if run.SizePx <= 0 {
		return Run{}, fmt.Errorf("未指定字号")
	}

	spacing := b.opts.Spacing
	if v, ok := attrs.first("spacing", "line-spacing"); ok {
		spec, ok := ParseSpacing(v)
		if !ok {
			return Run{}, fmt.Errorf("行距无效：%s", v)
		}
		spacing = spec
	}
	run.Spacing = spacing.Resolve(run.SizePx, dpi) * b.opts.SpacingRule

	for _, side := range []struct {
		key string
		dst *int
	}{{"indent-left", &run.Indent.Left}, {"indent-right", &run.Indent.Right}} {
		v, ok := attrs.Lookup(side.key)
		if !ok {
			continue
		}
		l, ok := ParseLength(v)
		if !ok || l.Value < 0 {
			return Run{}, fmt.Errorf("缩进无效：%s %s", side.key, v)
		}
		*side.dst = l.ToPx(dpi)
	}
	return run, nil
}

func (b *docBuilder) resolveFont(name string) FontResource {
	if f, ok := b.res.Fonts[name]; ok {
		return f
	}
	return FontResource{Name: name}
}

func collectResources(doc *dsl.Document) (ResourceSet, error) {
	res := ResourceSet{
		Fonts:  map[string]FontResource{},
		Styles: StyleSheet{},
	}
	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			if stmt.Command == nil {
				continue
			}
			switch stmt.Command.Name {
			case "font":
				font := parseFontResource(stmt.Command)
				if font.Name != "" {
					res.Fonts[font.Name] = font
				}
			case "style":
				style := parseStyleResource(stmt.Command)
				if style.Name != "" {
					res.Styles[style.Name] = style
				}
			}
		}
	}
	if err := res.Styles.Validate(); err != nil {
		return res, err
	}
	return res, nil
}

func collectMeta(doc *dsl.Document) Meta {
	var meta Meta
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = stmt.Assignment.Value.Text()
			case "author":
				meta.Author = stmt.Assignment.Value.Text()
			case "keywords":
				meta.Keywords = valueToStringSlice(stmt.Assignment.Value)
			}
		}
	}
	return meta
}

func parseFontResource(cmd *dsl.Command) FontResource {
	if len(cmd.Args) == 0 {
		return FontResource{}
	}
	font := FontResource{Name: cmd.Args[0].Value}
	if cmd.Block == nil {
		return font
	}
	for _, stmt := range cmd.Block.Statements {
		if stmt.Assignment != nil && stmt.Assignment.Key == "src" {
			font.Src = stmt.Assignment.Value.Text()
		}
	}
	return font
}

func parseStyleResource(cmd *dsl.Command) Style {
	if len(cmd.Args) == 0 {
		return Style{}
	}
	style := Style{
		Name:  cmd.Args[0].Value,
		Props: map[string]string{},
	}
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		style.Extends = cmd.Args[2].Value
	}
	if cmd.Block == nil {
		return style
	}
	for _, stmt := range cmd.Block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		val := stmt.Assignment.Value.Text()
		if val == "" {
			continue
		}
		style.Props[stmt.Assignment.Key] = val
	}
	return style
}

// PageSizes 为常用纸张尺寸（纵向）。
var PageSizes = map[string][2]Length{
	"A3":     {{297, UnitMM}, {420, UnitMM}},
	"A4":     {{210, UnitMM}, {297, UnitMM}},
	"A5":     {{148, UnitMM}, {210, UnitMM}},
	"LETTER": {{8.5, UnitIN}, {11, UnitIN}},
	"LEGAL":  {{8.5, UnitIN}, {14, UnitIN}},
}

// DefaultMargin 与常见文字处理软件的默认页边距一致。
var DefaultMargin = Length{Value: 1, Unit: UnitIN}

func resolveGeometry(spec dsl.PageSpec, dpi int) (Geometry, error) {
	size, ok := PageSizes[strings.ToUpper(spec.Size)]
	if !ok {
		return Geometry{}, fmt.Errorf("暂不支持的纸张尺寸：%s", spec.Size)
	}
	width, height := size[0], size[1]
	for _, token := range spec.Params {
		if token.Value == "landscape" {
			width, height = height, width
		}
	}
	margin, err := resolveMargin(spec.Params)
	if err != nil {
		return Geometry{}, err
	}
	g := Geometry{
		Width:  width.ToPx(dpi),
		Height: height.ToPx(dpi),
		Margin: Margin{
			Top:    margin[0].ToPx(dpi),
			Right:  margin[1].ToPx(dpi),
			Bottom: margin[2].ToPx(dpi),
			Left:   margin[3].ToPx(dpi),
		},
	}
	return g, g.Validate()
}

// resolveMargin 按 CSS 语义解析 margin 后的 1～4 个长度：上、右、下、左。
func resolveMargin(params []*dsl.Lexeme) ([4]Length, error) {
	m := DefaultMargin
	margin := [4]Length{m, m, m, m}
	for i := 0; i < len(params); i++ {
		if params[i].Value != "margin" {
			continue
		}
		var vals []Length
		for j := i + 1; j < len(params) && len(vals) < 4; j++ {
			l, ok := ParseLength(params[j].Value)
			if !ok {
				break
			}
			if l.Unit == UnitNone {
				l.Unit = UnitMM
			}
			vals = append(vals, l)
		}
		switch len(vals) {
		case 0:
			return margin, fmt.Errorf("margin 缺少长度")
		case 1:
			margin = [4]Length{vals[0], vals[0], vals[0], vals[0]}
		case 2:
			margin = [4]Length{vals[0], vals[1], vals[0], vals[1]}
		case 3:
			margin = [4]Length{vals[0], vals[1], vals[2], vals[1]}
		default:
			margin = [4]Length{vals[0], vals[1], vals[2], vals[3]}
		}
		i += len(vals)
	}
	return margin, nil
}

// parseArgs 解析指令参数：可选的样式名，之后是 key value 对。
func parseArgs(args []*dsl.Lexeme, allowStyle bool) (string, map[string]string) {
	result := map[string]string{}
	if len(args) == 0 {
		return "", result
	}
	cursor := 0
	var style string
	// 参数个数为奇数时首个 Ident 视为样式名。
	if allowStyle && args[0].Type == "Ident" && len(args)%2 == 1 {
		style = args[0].Value
		cursor = 1
	}
	for cursor < len(args)-1 {
		result[args[cursor].Value] = args[cursor+1].Value
		cursor += 2
	}
	return style, result
}

func extractText(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var parts []string
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			parts = append(parts, string(stmt.Text.Value))
		}
	}
	return strings.Join(parts, " ")
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array == nil {
		if s := val.Text(); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(val.Array.Values))
	for _, v := range val.Array.Values {
		if s := v.Text(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
