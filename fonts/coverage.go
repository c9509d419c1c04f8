package fonts

import (
	"bytes"
	"fmt"
	"unicode"

	"seehuhn.de/go/sfnt"
	"seehuhn.de/go/sfnt/cmap"
)

// Coverage 基于字体的 cmap 判断字符是否有对应字形。
type Coverage struct {
	sub cmap.Subtable
}

// NewCoverage 解析 TrueType/OpenType 数据并选取最合适的 cmap 子表。
func NewCoverage(data []byte) (*Coverage, error) {
	f, err := sfnt.Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解析字体失败: %w", err)
	}
	sub, err := f.CMapTable.GetBest()
	if err != nil {
		return nil, fmt.Errorf("字体缺少可用的 cmap: %w", err)
	}
	return &Coverage{sub: sub}, nil
}

// Has reports whether the font maps r to a non-zero glyph.
func (c *Coverage) Has(r rune) bool {
	return c.sub.Lookup(r) != 0
}

// Missing 按出现顺序返回 text 中未被覆盖的字符（去重）。
// 控制字符、格式字符（如 ZWJ、RLM）与空白不参与检查，它们不产生可见字形。
func (c *Coverage) Missing(text string) []rune {
	var out []rune
	seen := map[rune]bool{}
	for _, r := range text {
		if seen[r] || unicode.IsSpace(r) || unicode.In(r, unicode.Cc, unicode.Cf) {
			continue
		}
		seen[r] = true
		if !c.Has(r) {
			out = append(out, r)
		}
	}
	return out
}
