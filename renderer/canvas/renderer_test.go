package canvasrenderer

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/raqim/background"
	"github.com/ByLCY/raqim/fonts"
	"github.com/ByLCY/raqim/layout"
)

var goRegular = layout.FontResource{Name: "Body", Src: "embed:goregular"}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	return NewRenderer(Options{Rand: rand.New(rand.NewSource(1))})
}

func testFace(t *testing.T, r *Renderer, size float64) *Face {
	t.Helper()
	f, err := r.fontFace(goRegular, size)
	if err != nil {
		t.Fatalf("face: %v", err)
	}
	return f
}

func TestFaceMetrics(t *testing.T) {
	r := newTestRenderer(t)
	f := testFace(t, r, 40)

	a, ab := f.Measure("a"), f.Measure("ab")
	if a <= 0 || ab <= a {
		t.Fatalf("expected growing advances, got a=%g ab=%g", a, ab)
	}
	if lh := f.LineHeight(); lh < 30 || lh > 60 {
		t.Fatalf("line height %g out of range for a 40px face", lh)
	}
	// RLM 不占宽度
	if diff := math.Abs(f.Measure("\u200fab") - ab); diff > 1e-6 {
		t.Fatalf("RLM prefix changed width by %g", diff)
	}
	if diff := cmp.Diff([]rune{'س'}, f.Missing("a سa")); diff != "" {
		t.Fatalf("missing runes mismatch (-want +got):\n%s", diff)
	}

	again, err := r.Face(goRegular, 40)
	if err != nil {
		t.Fatalf("Face: %v", err)
	}
	if again != layout.Face(f) {
		t.Fatalf("expected cached face for identical font and size")
	}
}

func TestFaceErrors(t *testing.T) {
	r := newTestRenderer(t)
	var resErr *fonts.ResolutionError
	if _, err := r.Face(layout.FontResource{Name: "NoSuchFont"}, 20); !errors.As(err, &resErr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
	if _, err := r.Face(goRegular, 0); err == nil {
		t.Fatalf("expected error for zero size")
	}

	table := fonts.NewTable(map[string]string{"Naskh": "embed:gobold"})
	named := NewRenderer(Options{Fonts: table})
	if _, err := named.Face(layout.FontResource{Name: "Naskh"}, 20); err != nil {
		t.Fatalf("font table lookup failed: %v", err)
	}
}

// 宽度恰好等于预算时不应换行。
func TestWrapWithRealFaceEqualWidth(t *testing.T) {
	r := newTestRenderer(t)
	f := testFace(t, r, 24)

	first := "SAMPLE-A"
	limit := f.Measure(first)
	lines := layout.Wrap(first+" SAMPLE-B", f, limit, " ")
	if diff := cmp.Diff([]string{"SAMPLE-A", "SAMPLE-B"}, lines); diff != "" {
		t.Fatalf("wrap mismatch (-want +got):\n%s", diff)
	}
	for i, ln := range lines {
		if w := f.Measure(ln); w-limit > 1e-6 {
			t.Fatalf("line %d width %g exceeds limit %g", i, w, limit)
		}
	}
}

func TestNewPageWhite(t *testing.T) {
	r := newTestRenderer(t)
	img, err := r.NewPage(layout.Geometry{Width: 30, Height: 20})
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 30, 20) {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	white := color.RGBA{255, 255, 255, 255}
	for _, p := range []image.Point{{0, 0}, {29, 19}, {15, 10}} {
		if got := img.RGBAAt(p.X, p.Y); got != white {
			t.Fatalf("pixel %v = %v, want white", p, got)
		}
	}
}

func TestNewPageBackground(t *testing.T) {
	dir := t.TempDir()
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 0, 0, 255, 255
	}
	f, err := os.Create(filepath.Join(dir, "blue.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	pool, err := background.Load(dir, "")
	if err != nil {
		t.Fatalf("background.Load: %v", err)
	}
	r := NewRenderer(Options{Backgrounds: pool, Rand: rand.New(rand.NewSource(3))})
	img, err := r.NewPage(layout.Geometry{Width: 50, Height: 40})
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 40 {
		t.Fatalf("background not scaled to geometry: %v", img.Bounds())
	}
	if got := img.RGBAAt(25, 20); got.B < 250 || got.R > 5 {
		t.Fatalf("expected blue background, got %v", got)
	}
}

func drawHello(t *testing.T, alpha uint8) (*image.RGBA, layout.PlacedLine, layout.BBox) {
	t.Helper()
	r := newTestRenderer(t)
	page, err := r.NewPage(layout.Geometry{Width: 400, Height: 120})
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	f := testFace(t, r, 32)
	line := layout.PlacedLine{Text: "Hello", X: 40, Y: 30, Font: goRegular, SizePx: 32}
	line.Width = f.Measure(line.Text)
	box, err := r.DrawLine(page, line, alpha)
	if err != nil {
		t.Fatalf("DrawLine: %v", err)
	}
	return page, line, box
}

func TestDrawLineBBox(t *testing.T) {
	page, line, box := drawHello(t, 255)
	if !box.Valid() {
		t.Fatalf("invalid bbox %v", box)
	}
	if box.Left() < int(line.X)-2 || float64(box.Right()) > math.Ceil(line.X+line.Width)+2 {
		t.Fatalf("bbox %v outside advance [%g, %g]", box, line.X, line.X+line.Width)
	}
	if box.Top() < int(line.Y)-1 || box.Bottom() > int(line.Y)+48 {
		t.Fatalf("bbox %v outside line band starting at %g", box, line.Y)
	}
	if darkest(page, box.Rect()) > 10 {
		t.Fatalf("expected solid ink inside bbox")
	}
	// 包围盒之外保持白色
	outside := []image.Rectangle{
		image.Rect(0, 0, 400, box.Top()),
		image.Rect(0, box.Bottom(), 400, 120),
		image.Rect(0, 0, box.Left(), 120),
		image.Rect(box.Right(), 0, 400, 120),
	}
	for _, rect := range outside {
		if d := darkest(page, rect); d != 255 {
			t.Fatalf("ink leaked outside bbox into %v (darkest %d)", rect, d)
		}
	}
}

func TestDrawLineAlpha(t *testing.T) {
	page, _, box := drawHello(t, 128)
	// 白底上以 128/255 的不透明度合成纯黑，最深处约为 127。
	if d := darkest(page, box.Rect()); d < 120 || d > 135 {
		t.Fatalf("expected half-transparent ink, darkest channel %d", d)
	}
}

func TestDrawLineOffPage(t *testing.T) {
	r := newTestRenderer(t)
	page, _ := r.NewPage(layout.Geometry{Width: 100, Height: 50})
	line := layout.PlacedLine{Text: "x", X: 10, Y: 500, Font: goRegular, SizePx: 20}
	if _, err := r.DrawLine(page, line, 255); !errors.Is(err, layout.ErrNothingRendered) {
		t.Fatalf("expected ErrNothingRendered, got %v", err)
	}
}

func TestCropGlyph(t *testing.T) {
	r := newTestRenderer(t)
	page, _ := r.NewPage(layout.Geometry{Width: 120, Height: 120})
	line := layout.PlacedLine{Text: "W", X: 40, Y: 30, Font: goRegular, SizePx: 40}
	crop, box, err := r.CropGlyph(page, line, 255)
	if err != nil {
		t.Fatalf("CropGlyph: %v", err)
	}
	if got := crop.Bounds(); got.Dx() != box.Width() || got.Dy() != box.Height() {
		t.Fatalf("crop %v does not match bbox %v", got, box)
	}
	if darkest(crop.(*image.RGBA), crop.Bounds()) > 10 {
		t.Fatalf("crop contains no ink")
	}
}

func TestCropGlyphWithoutKashidaGlyph(t *testing.T) {
	r := newTestRenderer(t)
	f := testFace(t, r, 40)
	// Go 字体不含阿拉伯文字形，延长符缺失时裁剪框保持绘制时的墨迹边界。
	if diff := cmp.Diff([]rune{layout.Tatweel}, f.Missing("Wـ")); diff != "" {
		t.Fatalf("missing runes mismatch (-want +got):\n%s", diff)
	}
	if w := f.KashidaWidth(); w != 0 {
		t.Fatalf("kashida width without the glyph = %g, want 0", w)
	}

	g := layout.Geometry{Width: 160, Height: 120}
	line := layout.PlacedLine{Text: "ـWـ", X: 40, Y: 30, Font: goRegular, SizePx: 40}
	drawn, _ := r.NewPage(g)
	want, err := r.DrawLine(drawn, line, 255)
	if err != nil {
		t.Fatalf("DrawLine: %v", err)
	}
	cropped, _ := r.NewPage(g)
	crop, box, err := r.CropGlyph(cropped, line, 255)
	if err != nil {
		t.Fatalf("CropGlyph: %v", err)
	}
	if box != want {
		t.Fatalf("crop box %v should equal the drawn box %v", box, want)
	}
	if got := crop.Bounds(); got.Dx() != want.Width() || got.Dy() != want.Height() {
		t.Fatalf("crop %v does not match bbox %v", got, want)
	}
}

func darkest(img *image.RGBA, rect image.Rectangle) uint8 {
	rect = rect.Intersect(img.Bounds())
	min := uint8(255)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			c := img.RGBAAt(x, y)
			for _, v := range []uint8{c.R, c.G, c.B} {
				if v < min {
					min = v
				}
			}
		}
	}
	return min
}
