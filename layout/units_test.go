package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		mm := pt * PtToMm
		back := mm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt mm=%g back=%g diff=%g", pt, mm, back, diff)
		}
	}
}

// TestLengthToPx 覆盖常见单位到设备像素的换算，结果截断取整。
func TestLengthToPx(t *testing.T) {
	cases := []struct {
		in   string
		dpi  int
		want int
	}{
		{"1in", 200, 200},
		{"2.54cm", 200, 200},
		{"25.4mm", 100, 100},
		{"72pt", 300, 300},
		{"210mm", 200, 1653}, // 1653.54 截断
		{"297mm", 200, 2338}, // 2338.58 截断
		{"40px", 600, 40},
		{"0.5in", 200, 100},
	}
	for _, tc := range cases {
		l, ok := ParseLength(tc.in)
		if !ok {
			t.Fatalf("ParseLength(%q) failed", tc.in)
		}
		if got := l.ToPx(tc.dpi); got != tc.want {
			t.Fatalf("%s @%ddpi 期望 %dpx，实际 %d", tc.in, tc.dpi, tc.want, got)
		}
	}
	if _, ok := ParseLength("abc"); ok {
		t.Fatalf("expected parse failure")
	}
}

// TestLengthToConversions 覆盖 Length 在常见单位上的转换正确性（到 mm/pt）。
func TestLengthToConversions(t *testing.T) {
	in := Length{Value: 1, Unit: UnitIN}
	if got := in.ToMM(); math.Abs(got-25.4) > 1e-9 {
		t.Fatalf("1in 转 mm 期望 25.4，实际 %g", got)
	}
	mm := Length{Value: 10, Unit: UnitMM}
	if got := mm.ToPT(); math.Abs(got-10/MmPerIn*PtPerIn) > 1e-9 {
		t.Fatalf("10mm 转 pt 实际 %g", got)
	}
	if got := (Length{Value: 12, Unit: UnitPT}).ToPxF(200); math.Abs(got-12.0/72*200) > 1e-9 {
		t.Fatalf("12pt 转 px 实际 %g", got)
	}
}

// TestSpacingResolve 验证行距解析：规则名、倍数与绝对值三种写法。
func TestSpacingResolve(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"single", 40},
		{"1.5", 60},
		{"double", 80},
		{"1.2x", 48},
		{"0.5in", 100},
		{"36pt", 100},
	}
	for _, tc := range cases {
		spec, ok := ParseSpacing(tc.in)
		if !ok {
			t.Fatalf("ParseSpacing(%q) failed", tc.in)
		}
		if got := spec.Resolve(40, 200); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s 期望 %g，实际 %g", tc.in, tc.want, got)
		}
	}
	for _, bad := range []string{"", "-1", "0x", "wide"} {
		if _, ok := ParseSpacing(bad); ok {
			t.Fatalf("ParseSpacing(%q) should fail", bad)
		}
	}
}
