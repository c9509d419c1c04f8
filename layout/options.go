package layout

import (
	"image"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// Face 提供某一字体在某一字号下的度量（像素）。
type Face interface {
	// Measure 返回文本按从右到左整形后的前进宽度。
	Measure(text string) float64
	// LineHeight 返回名义行高（ascent + descent）。
	LineHeight() float64
	// Missing 返回字体 cmap 未覆盖的字符（忽略控制与格式字符）。
	Missing(text string) []rune
}

// Typesetter 根据字体资源与字号提供度量接口。
type Typesetter interface {
	Face(font FontResource, sizePx float64) (Face, error)
}

// Compositor 负责页面画布的创建与逐行合成。
type Compositor interface {
	// NewPage 创建一张与几何一致的画布（背景图或纯白）。
	NewPage(g Geometry) (*image.RGBA, error)
	// DrawLine 以给定 alpha 将一行合成到画布上，返回页面坐标下的包围盒。
	DrawLine(canvas *image.RGBA, line PlacedLine, alpha uint8) (BBox, error)
	// CropGlyph 绘制字符单元并返回按 kashida 修剪后的裁剪图与包围盒。
	CropGlyph(canvas *image.RGBA, line PlacedLine, alpha uint8) (image.Image, BBox, error)
}

// PageWriter 接收 flush 后的页面，通常由 session 实现。
type PageWriter interface {
	WritePage(number int, img image.Image, annotations []Annotation) error
}

// CoverageMode 决定缺字行的处理方式。
type CoverageMode string

const (
	CoverageOff    CoverageMode = "off"
	CoverageSkip   CoverageMode = "skip"
	CoverageStrict CoverageMode = "strict"
)

// AlphaRange 为墨迹不透明度的取值区间，取值 0..1。
type AlphaRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// EngineOptions 配置排版引擎。
type EngineOptions struct {
	Geometry   Geometry
	Typesetter Typesetter
	Compositor Compositor
	Writer     PageWriter
	Mode       Mode
	Delimiter  string // 折行分隔符，默认空格；连写模式下为 ZWJ
	FirstPage  int    // 首页页码，默认 1
	MaxPage    int    // <=0 表示不限
	Coverage   CoverageMode
	Alpha      AlphaRange // 零值表示不透明；完全透明的区间由调用方拒绝
	Rand       *rand.Rand
	Logger     logrus.FieldLogger
}
