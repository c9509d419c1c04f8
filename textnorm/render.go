package textnorm

import "strings"

const (
	// RLM 强制从右到左的段落方向，只在测量与绘制时添加。
	RLM = "\u200f"
	// ZWJ 用于连写模式，把词连成一个不可断开的整体。
	ZWJ = "\u200d"
)

// RenderText 返回用于测量与绘制的文本；标注中保留原文。
func RenderText(line string) string {
	if strings.HasPrefix(line, RLM) {
		return line
	}
	return RLM + line
}

// Continuo 把空白折叠为 ZWJ（scriptio continuo），须在 Normalize 之后调用。
func Continuo(line string) string {
	return strings.Join(strings.Fields(line), ZWJ)
}
