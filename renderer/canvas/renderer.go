package canvasrenderer

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"golang.org/x/image/draw"

	"github.com/ByLCY/raqim/background"
	"github.com/ByLCY/raqim/fonts"
	"github.com/ByLCY/raqim/layout"
	"github.com/ByLCY/raqim/renderer"
	"github.com/ByLCY/raqim/textnorm"
)

// 画布单位约定：canvas 内部以 mm 为单位，这里把 1 个画布单位当作 1 个设备像素，
// 栅格化时使用 DPMM(1)。字体面需要 pt，创建时做一次 px→pt。

// Renderer 基于 github.com/tdewolff/canvas 提供字体度量与页面合成。
type Renderer struct {
	fonts       *fonts.Table
	backgrounds *background.Pool
	rng         *rand.Rand
	log         logrus.FieldLogger

	fontMu       sync.Mutex
	fontFamilies map[string]*fontFamilyEntry
	faces        map[faceKey]*Face
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Face       = (*Face)(nil)
)

type fontFamilyEntry struct {
	family   *canvas.FontFamily
	coverage *fonts.Coverage
}

type faceKey struct {
	font string
	size float64
}

// Options configures the canvas renderer.
type Options struct {
	// Fonts 解析字体名；为空时只接受 embed:<name> 与文件路径。
	Fonts *fonts.Table
	// Backgrounds 为空时使用纯白页面。
	Backgrounds *background.Pool
	Rand        *rand.Rand
	Logger      logrus.FieldLogger
}

// NewRenderer creates a renderer with the given resources.
func NewRenderer(opts Options) *Renderer {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Renderer{
		fonts:        opts.Fonts,
		backgrounds:  opts.Backgrounds,
		rng:          rng,
		log:          log,
		fontFamilies: map[string]*fontFamilyEntry{},
		faces:        map[faceKey]*Face{},
	}
}

// Face 是某一字体在某一像素字号下的度量与绘制句柄。
type Face struct {
	face     *canvas.FontFace
	coverage *fonts.Coverage
	sizePx   float64
}

// Measure 返回 RLM 前缀文本的整形前进宽度（像素）。
func (f *Face) Measure(text string) float64 {
	return f.face.TextWidth(textnorm.RenderText(text))
}

// LineHeight 返回 ascent + descent（像素）。
func (f *Face) LineHeight() float64 {
	m := f.face.Metrics()
	return m.Ascent + m.Descent
}

// Missing 返回字体 cmap 中缺失的字符。
func (f *Face) Missing(text string) []rune {
	if f.coverage == nil {
		return nil
	}
	return f.coverage.Missing(text)
}

// KashidaWidth 返回延长符自身的前进宽度；字体没有延长符字形时为 0，不做修剪。
func (f *Face) KashidaWidth() float64 {
	if len(f.Missing(string(layout.Tatweel))) > 0 {
		return 0
	}
	return f.face.TextWidth(string(layout.Tatweel))
}

// Face 实现 layout.Typesetter。
func (r *Renderer) Face(font layout.FontResource, sizePx float64) (layout.Face, error) {
	return r.fontFace(font, sizePx)
}

func (r *Renderer) fontFace(font layout.FontResource, sizePx float64) (*Face, error) {
	if sizePx <= 0 || math.IsNaN(sizePx) || math.IsInf(sizePx, 0) {
		return nil, fmt.Errorf("字体 %s 的字号无效: %g", font.Key(), sizePx)
	}
	entry, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	key := faceKey{font: font.Key(), size: sizePx}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if f, ok := r.faces[key]; ok {
		return f, nil
	}
	// 墨迹统一用不透明黑色栅格化，透明度在合成时通过遮罩施加。
	face := entry.family.Face(toPt(sizePx), canvas.Black, canvas.FontRegular, canvas.FontNormal)
	f := &Face{face: face, coverage: entry.coverage, sizePx: sizePx}
	r.faces[key] = f
	return f, nil
}

func (r *Renderer) ensureFontFamily(font layout.FontResource) (*fontFamilyEntry, error) {
	key := font.Key()
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry, nil
	}
	data, err := r.fonts.Resolve(font.Name, font.Src)
	if err != nil {
		return nil, err
	}
	familyName := font.Name
	if familyName == "" {
		familyName = key
	}
	family := canvas.NewFontFamily(familyName)
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, &fonts.ResolutionError{Name: font.Name, Path: font.Src, Err: err}
	}
	coverage, err := fonts.NewCoverage(data)
	if err != nil {
		// 字体可以绘制但 cmap 无法解析时，缺字检查退化为不检查。
		r.log.WithField("font", key).Warnf("无法读取字体字符表，跳过缺字检查: %v", err)
		coverage = nil
	}
	entry := &fontFamilyEntry{family: family, coverage: coverage}
	r.fontFamilies[key] = entry
	return entry, nil
}

// NewPage 返回与几何一致的画布：背景池非空时随机选一张背景，否则为不透明白色。
func (r *Renderer) NewPage(g layout.Geometry) (*image.RGBA, error) {
	if r.backgrounds.Len() > 0 {
		img, err := r.backgrounds.Canvas(r.rng, g.Width, g.Height)
		if err != nil {
			return nil, err
		}
		return img, nil
	}
	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img, nil
}

// DrawLine 在透明叠加层上绘制一行，再以 alpha 合成到页面上。
// 包围盒取叠加层墨迹的紧致边界（页面坐标），没有墨迹时退化为度量框，结果裁剪到页面内。
func (r *Renderer) DrawLine(page *image.RGBA, line layout.PlacedLine, alpha uint8) (layout.BBox, error) {
	f, err := r.fontFace(line.Font, line.SizePx)
	if err != nil {
		return layout.BBox{}, err
	}
	return r.drawLine(page, f, line, alpha)
}

func (r *Renderer) drawLine(page *image.RGBA, f *Face, line layout.PlacedLine, alpha uint8) (layout.BBox, error) {
	bounds := page.Bounds()
	lineHeight := f.LineHeight()
	// 叠加层是整页宽的一条带，上下各留半个字号，容纳超出度量的变音符号。
	pad := math.Ceil(f.sizePx / 2)
	band := image.Rect(
		bounds.Min.X, int(math.Floor(line.Y-pad)),
		bounds.Max.X, int(math.Ceil(line.Y+lineHeight+pad)),
	).Intersect(bounds)
	if band.Empty() {
		return layout.BBox{}, layout.ErrNothingRendered
	}

	overlay := f.rasterize(line.Text, line.X-float64(band.Min.X), line.Y-float64(band.Min.Y), band.Dx(), band.Dy())
	mask := image.NewUniform(color.Alpha{A: alpha})
	draw.DrawMask(page, band, overlay, overlay.Bounds().Min, mask, image.Point{}, draw.Over)

	box := inkBounds(overlay)
	if box.Empty() {
		width := line.Width
		if width <= 0 {
			width = f.Measure(line.Text)
		}
		box = image.Rect(
			int(math.Floor(line.X)), int(math.Floor(line.Y)),
			int(math.Ceil(line.X+width)), int(math.Ceil(line.Y+lineHeight)),
		)
	} else {
		box = box.Add(band.Min)
	}
	box = box.Intersect(bounds)
	if box.Empty() {
		return layout.BBox{}, layout.ErrNothingRendered
	}
	return layout.BBoxFromRect(box), nil
}

// CropGlyph 绘制一个字符单元，按延长符修剪包围盒后返回裁剪图。
func (r *Renderer) CropGlyph(page *image.RGBA, line layout.PlacedLine, alpha uint8) (image.Image, layout.BBox, error) {
	f, err := r.fontFace(line.Font, line.SizePx)
	if err != nil {
		return nil, layout.BBox{}, err
	}
	box, err := r.drawLine(page, f, line, alpha)
	if err != nil {
		return nil, layout.BBox{}, err
	}
	trimmed, ok := layout.TrimKashida(box, line.Text, f.KashidaWidth())
	if !ok {
		return nil, layout.BBox{}, layout.ErrNothingRendered
	}
	rect := trimmed.Rect()
	crop := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(crop, crop.Bounds(), page, rect.Min, draw.Src)
	return crop, trimmed, nil
}

// rasterize 在 w×h 的透明画布上绘制文本，(x, y) 为行左上角。
func (f *Face) rasterize(text string, x, y float64, w, h int) *image.RGBA {
	c := canvas.New(float64(w), float64(h))
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与页面保持左上角为原点
	textLine := canvas.NewTextLine(f.face, textnorm.RenderText(text), canvas.Left)
	baseline := y + f.face.Metrics().Ascent
	ctx.DrawText(x, baseline, textLine)
	return rasterizer.Draw(c, canvas.DPMM(1.0), canvas.DefaultColorSpace)
}

// inkBounds 返回 alpha 非零像素的最小外接矩形（图像坐标）。
func inkBounds(img *image.RGBA) image.Rectangle {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X, b.Min.Y
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := b.Min.X; x < b.Max.X; x++ {
			if row[(x-b.Min.X)*4+3] == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x >= maxX {
				maxX = x + 1
			}
			if y < minY {
				minY = y
			}
			if y >= maxY {
				maxY = y + 1
			}
		}
	}
	if minX >= maxX || minY >= maxY {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX, maxY)
}

// toPt 将像素（画布单位 mm）转换为点(pt)。
func toPt(px float64) float64 { return px * layout.MmToPt }
