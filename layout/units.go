package layout

import (
	"math"
	"strconv"
	"strings"
)

// This file defines unit-safe types for physical lengths and their conversion to device pixels.

// Unit represents the original unit of a length value as written by the user.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers like factors
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
	UnitPX               // device pixels, independent of DPI
)

// Conversion constants between pt, mm and in.
const (
	PtToMm  = 0.352777
	MmToPt  = 1.0 / PtToMm
	MmPerIn = 25.4
	PtPerIn = 72.0
)

// DefaultDPI matches the resolution the generated datasets were tuned for.
const DefaultDPI = 200

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPX:
		return "px"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// Inches converts a physical length to inches. Pixel and unit-less values have no physical size
// and are returned unchanged; callers resolve them with ToPx.
func (l Length) Inches() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value / MmPerIn
	case UnitCM:
		return l.Value * 10 / MmPerIn
	case UnitIN:
		return l.Value
	case UnitPT:
		return l.Value / PtPerIn
	default:
		return l.Value
	}
}

// ToPx converts the length into device pixels at dpi. Like the original tooling the result is
// truncated, so a page never grows by a rounding pixel.
func (l Length) ToPx(dpi int) int {
	switch l.Unit {
	case UnitPX, UnitNone:
		return int(l.Value)
	default:
		return int(l.Inches() * float64(dpi))
	}
}

// ToPxF is ToPx without truncation, used for font sizes where sub-pixel precision matters.
func (l Length) ToPxF(dpi int) float64 {
	switch l.Unit {
	case UnitPX, UnitNone:
		return l.Value
	default:
		return l.Inches() * float64(dpi)
	}
}

func (l Length) ToMM() float64 {
	if l.Unit == UnitPX || l.Unit == UnitNone {
		return l.Value
	}
	return l.Inches() * MmPerIn
}

func (l Length) ToPT() float64 {
	if l.Unit == UnitPX || l.Unit == UnitNone {
		return l.Value
	}
	return l.Inches() * PtPerIn
}

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + UnitToString(l.Unit)
}

// ParseRawLengthStr parses a length string preserving its unit. Unparseable input yields a zero
// Length with UnitNone.
func ParseRawLengthStr(value string) Length {
	l, _ := ParseLength(value)
	return l
}

// ParseLength is ParseRawLengthStr with an explicit success flag.
func ParseLength(value string) (Length, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return Length{Value: 0, Unit: UnitNone}, false
	}
	lower := strings.ToLower(v)
	unit := UnitNone
	num := lower
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"px", UnitPX}} {
		if strings.HasSuffix(lower, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(lower, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Length{Value: 0, Unit: UnitNone}, false
	}
	return Length{Value: f, Unit: unit}, true
}

// SpacingKind distinguishes factor-based vs absolute inter-line spacing.
type SpacingKind int

const (
	SpacingFactor SpacingKind = iota
	SpacingAbsolute
)

// Named spacing rules as offered by word processors.
var spacingRules = map[string]float64{
	"single":  1,
	"1":       1,
	"1.5":     1.5,
	"onehalf": 1.5,
	"double":  2,
	"2":       2,
}

// SpacingRuleFactor returns the multiplier for a named spacing rule.
func SpacingRuleFactor(rule string) (float64, bool) {
	f, ok := spacingRules[strings.ToLower(strings.TrimSpace(rule))]
	return f, ok
}

// SpacingSpec preserves author intent: either a factor of the font size (e.g. 1.5x, "double")
// or an absolute length (e.g. 0.5in).
type SpacingSpec struct {
	Kind   SpacingKind `json:"kind"`
	Factor float64     `json:"factor,omitempty"`
	Len    Length      `json:"len,omitempty"`
}

// DefaultSpacing advances half an inch per line regardless of font size.
var DefaultSpacing = SpacingSpec{Kind: SpacingAbsolute, Len: Length{Value: 0.5, Unit: UnitIN}}

// ParseSpacing accepts rule names ("single", "1.5", "double"), factors ("1.2x", "1.2") and
// absolute lengths ("18pt", "0.5in").
func ParseSpacing(value string) (SpacingSpec, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return SpacingSpec{}, false
	}
	if f, ok := SpacingRuleFactor(v); ok {
		return SpacingSpec{Kind: SpacingFactor, Factor: f}, true
	}
	if strings.HasSuffix(v, "x") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "x"), 64)
		if err != nil || f <= 0 {
			return SpacingSpec{}, false
		}
		return SpacingSpec{Kind: SpacingFactor, Factor: f}, true
	}
	l, ok := ParseLength(v)
	if !ok || l.Value <= 0 {
		return SpacingSpec{}, false
	}
	if l.Unit == UnitNone {
		return SpacingSpec{Kind: SpacingFactor, Factor: l.Value}, true
	}
	return SpacingSpec{Kind: SpacingAbsolute, Len: l}, true
}

// Resolve computes the spacing in pixels for a font of fontSizePx at dpi.
func (s SpacingSpec) Resolve(fontSizePx float64, dpi int) float64 {
	switch s.Kind {
	case SpacingFactor:
		return fontSizePx * s.Factor
	case SpacingAbsolute:
		return s.Len.ToPxF(dpi)
	default:
		// fallback to 1.5x if unspecified
		return fontSizePx * 1.5
	}
}
