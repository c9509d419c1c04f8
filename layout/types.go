package layout

import (
	"errors"
	"fmt"
	"image"
)

// 该文件定义页面几何、输入文本流与标注结构，供排版引擎、渲染器与会话输出共用。

// ErrDegenerateGeometry 表示页面尺寸或边距无法留出正面积的可排版区域。
var ErrDegenerateGeometry = errors.New("layout: 页面几何无效")

// Margin 以像素为单位。
type Margin struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Geometry 描述一页画布的像素尺寸与边距。
type Geometry struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Margin Margin `json:"margin"`
}

// SafeWidth 返回左右边距之间的可排版宽度。
func (g Geometry) SafeWidth() int { return g.Width - g.Margin.Left - g.Margin.Right }

// SafeHeight 返回上下边距之间的可排版高度。
func (g Geometry) SafeHeight() int { return g.Height - g.Margin.Top - g.Margin.Bottom }

// Bottom 返回可排版区域底部的 y 坐标。
func (g Geometry) Bottom() int { return g.Height - g.Margin.Bottom }

// Validate 拒绝零面积或负边距的几何，必须在会话开始前调用。
func (g Geometry) Validate() error {
	m := g.Margin
	switch {
	case g.Width <= 0 || g.Height <= 0:
		return fmt.Errorf("%w: 页面尺寸 %dx%d", ErrDegenerateGeometry, g.Width, g.Height)
	case m.Top < 0 || m.Right < 0 || m.Bottom < 0 || m.Left < 0:
		return fmt.Errorf("%w: 边距不能为负 %+v", ErrDegenerateGeometry, m)
	case g.SafeWidth() <= 0:
		return fmt.Errorf("%w: 左右边距 %d+%d 超出宽度 %d", ErrDegenerateGeometry, m.Left, m.Right, g.Width)
	case g.SafeHeight() <= 0:
		return fmt.Errorf("%w: 上下边距 %d+%d 超出高度 %d", ErrDegenerateGeometry, m.Top, m.Bottom, g.Height)
	}
	return nil
}

// BBox 为 (left, top, right, bottom)，页面像素坐标，原点在左上角。
type BBox [4]int

func (b BBox) Left() int   { return b[0] }
func (b BBox) Top() int    { return b[1] }
func (b BBox) Right() int  { return b[2] }
func (b BBox) Bottom() int { return b[3] }
func (b BBox) Width() int  { return b[2] - b[0] }
func (b BBox) Height() int { return b[3] - b[1] }

// Valid reports whether the box has positive area.
func (b BBox) Valid() bool { return b[2] > b[0] && b[3] > b[1] }

// Rect converts the box to an image.Rectangle.
func (b BBox) Rect() image.Rectangle { return image.Rect(b[0], b[1], b[2], b[3]) }

// BBoxFromRect is the inverse of Rect.
func BBoxFromRect(r image.Rectangle) BBox {
	return BBox{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y}
}

// Annotation 记录一行（或字形模式下的一个字符单元）的文本与包围盒，追加后不可修改。
type Annotation struct {
	Text string `json:"text"`
	BBox BBox   `json:"bbox"`
}

// FontResource 描述字体资源：Src 可以是文件路径或 embed:<name>；为空时按 Name 查字体表。
type FontResource struct {
	Name string `json:"name"`
	Src  string `json:"src,omitempty"`
}

// Key 返回用于缓存与错误信息的字体标识。
func (f FontResource) Key() string {
	if f.Src != "" {
		return f.Src
	}
	return f.Name
}

// Indent 为段落的左右缩进（像素）。
type Indent struct {
	Left  int `json:"left,omitempty"`
	Right int `json:"right,omitempty"`
}

// Run 是输入文本的基本单位：共享同一字体、字号与行距。
type Run struct {
	Text     string       `json:"text"`
	Font     FontResource `json:"font"`
	SizePx   float64      `json:"sizePx"`
	Spacing  float64      `json:"spacing"`
	Indent   Indent       `json:"indent"`
	SourceNo int          `json:"sourceNo,omitempty"` // 源文件中的行号或段落序号，仅用于日志
}

// Block 是排版引擎消费的流元素：一个 Run，或一个显式分页符。
type Block struct {
	Run       *Run `json:"run,omitempty"`
	PageBreak bool `json:"pageBreak,omitempty"`
}

// Document 是与输入格式无关的标准化文本流。Geometry 仅在结构化文档声明了页面时非空。
type Document struct {
	Geometry *Geometry `json:"geometry,omitempty"`
	Blocks   []Block   `json:"blocks"`
	Meta     Meta      `json:"meta"`
}

// Meta 保存结构化文档的元信息。
type Meta struct {
	Title    string   `json:"title,omitempty"`
	Author   string   `json:"author,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// Runs 返回文档中全部 Run（按文档顺序）。
func (d *Document) Runs() []*Run {
	if d == nil {
		return nil
	}
	out := make([]*Run, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		if b.Run != nil {
			out = append(out, b.Run)
		}
	}
	return out
}

// PlacedLine 是已确定位置的一行：X 为行左端，Y 为行顶部，均为页面像素坐标。
type PlacedLine struct {
	Text   string
	X      float64
	Y      float64
	Width  float64
	Font   FontResource
	SizePx float64
}

// Page 是正在构建的一页：由合成器持有画布，引擎在 flush 后丢弃。
type Page struct {
	Number      int
	Canvas      *image.RGBA
	Annotations []Annotation
	// Crop 仅在字形模式下设置，为最终输出的裁剪图像。
	Crop image.Image
}

// Empty reports whether nothing has been drawn on the page.
func (p *Page) Empty() bool { return p == nil || len(p.Annotations) == 0 }
