package layout

import (
	"math"
	"unicode/utf8"
)

// Tatweel 是阿拉伯文的连写延长符（kashida）。
const Tatweel = 'ـ'

// TrimKashida 修剪字形裁剪框两侧的延长笔画。
// 文本从右向左书写：以延长符开头时收缩右边，以延长符结尾时收缩左边，收缩量为延长符自身宽度（向上取整）。
// 修剪后面积为零或为负时返回 false。
func TrimKashida(box BBox, text string, kashidaWidth float64) (BBox, bool) {
	if kashidaWidth <= 0 || text == "" {
		return box, box.Valid()
	}
	shift := int(math.Ceil(kashidaWidth))
	first, _ := utf8.DecodeRuneInString(text)
	last, _ := utf8.DecodeLastRuneInString(text)
	if first == Tatweel {
		box[2] -= shift
	}
	if last == Tatweel {
		box[0] += shift
	}
	return box, box.Valid()
}
