package layout

import (
	"image"
	"math"
	"strings"
	"unicode/utf8"
)

// stubFace 每个字符宽 charW 像素，行高固定；missing 中的字符视为缺字。
type stubFace struct {
	charW      float64
	lineHeight float64
	missing    string
}

func (f stubFace) Measure(text string) float64 {
	return float64(utf8.RuneCountInString(text)) * f.charW
}

func (f stubFace) LineHeight() float64 { return f.lineHeight }

func (f stubFace) Missing(text string) []rune {
	var out []rune
	for _, r := range text {
		if strings.ContainsRune(f.missing, r) {
			out = append(out, r)
		}
	}
	return out
}

// stubTypesetter 是一个最小实现，仅用于测试，避免引入 renderer 造成循环依赖。
type stubTypesetter struct {
	face stubFace
}

func (s *stubTypesetter) Face(font FontResource, sizePx float64) (Face, error) {
	return s.face, nil
}

// stubCompositor 不绘制像素，只按行的度量返回包围盒。
type stubCompositor struct {
	g     Geometry
	lines []PlacedLine
	pages int
}

func (c *stubCompositor) NewPage(g Geometry) (*image.RGBA, error) {
	c.pages++
	return image.NewRGBA(image.Rect(0, 0, g.Width, g.Height)), nil
}

func (c *stubCompositor) box(line PlacedLine) BBox {
	return BBox{
		int(math.Floor(line.X)),
		int(math.Floor(line.Y)),
		int(math.Ceil(line.X + line.Width)),
		int(math.Ceil(line.Y + line.SizePx)),
	}
}

func (c *stubCompositor) DrawLine(canvas *image.RGBA, line PlacedLine, alpha uint8) (BBox, error) {
	c.lines = append(c.lines, line)
	return c.box(line), nil
}

func (c *stubCompositor) CropGlyph(canvas *image.RGBA, line PlacedLine, alpha uint8) (image.Image, BBox, error) {
	c.lines = append(c.lines, line)
	box, ok := TrimKashida(c.box(line), line.Text, 5)
	if !ok {
		return nil, BBox{}, ErrNothingRendered
	}
	return canvas.SubImage(box.Rect()), box, nil
}

type writtenPage struct {
	number      int
	bounds      image.Rectangle
	annotations []Annotation
}

type recordingWriter struct {
	pages []writtenPage
}

func (w *recordingWriter) WritePage(number int, img image.Image, annotations []Annotation) error {
	w.pages = append(w.pages, writtenPage{
		number:      number,
		bounds:      img.Bounds(),
		annotations: append([]Annotation(nil), annotations...),
	})
	return nil
}
