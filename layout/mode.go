package layout

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

// ErrNothingRendered 表示一行在合成后没有可用的包围盒（例如修剪后为空），引擎跳过该行。
var ErrNothingRendered = errors.New("layout: 没有可标注的墨迹")

// Mode 是输出策略：决定一行如何绘制、何时 flush、flush 时输出哪张图。
type Mode interface {
	Name() string
	// Render 绘制一行并追加标注；返回 true 表示该页需要立即 flush。
	Render(c Compositor, page *Page, line PlacedLine, alpha uint8) (bool, error)
	// Output 返回 flush 时持久化的图像。
	Output(page *Page) image.Image
}

// Mode names accepted by ParseMode.
const (
	ModePage  = "page"
	ModeGlyph = "glyph"
)

// ParseMode 根据名称返回输出策略。
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ModePage:
		return PageMode{}, nil
	case ModeGlyph, "char", "character":
		return GlyphMode{}, nil
	default:
		return nil, fmt.Errorf("layout: 未知的输出模式 %q", name)
	}
}

// PageMode 把每一行合成到同一张页面上，整页输出。
type PageMode struct{}

func (PageMode) Name() string { return ModePage }

func (PageMode) Render(c Compositor, page *Page, line PlacedLine, alpha uint8) (bool, error) {
	box, err := c.DrawLine(page.Canvas, line, alpha)
	if err != nil {
		return false, err
	}
	page.Annotations = append(page.Annotations, Annotation{Text: line.Text, BBox: box})
	return false, nil
}

func (PageMode) Output(page *Page) image.Image { return page.Canvas }

// GlyphMode 每个字符单元单独成图：绘制后裁剪紧致包围盒并立即 flush。
type GlyphMode struct{}

func (GlyphMode) Name() string { return ModeGlyph }

func (GlyphMode) Render(c Compositor, page *Page, line PlacedLine, alpha uint8) (bool, error) {
	crop, box, err := c.CropGlyph(page.Canvas, line, alpha)
	if err != nil {
		return false, err
	}
	page.Crop = crop
	page.Annotations = append(page.Annotations, Annotation{Text: line.Text, BBox: box})
	return true, nil
}

func (GlyphMode) Output(page *Page) image.Image {
	if page.Crop != nil {
		return page.Crop
	}
	return page.Canvas
}
