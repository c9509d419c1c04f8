package layout

import "strings"

// Measurer 返回文本的前进宽度（像素）。Face 满足该接口。
type Measurer interface {
	Measure(text string) float64
}

// MeasureFunc adapts a plain function to Measurer.
type MeasureFunc func(string) float64

func (f MeasureFunc) Measure(s string) float64 { return f(s) }

// Wrap 使用贪心算法按 delimiter 分词并折行：
// 试探性地把下一个词接到当前行末尾，测量宽度不超过 budget 时接受，否则另起一行。
// 单个词本身超宽时独占一行、不做词内拆分。空词（连续分隔符）被丢弃，不会产生空行。
func Wrap(text string, m Measurer, budget float64, delimiter string) []string {
	if delimiter == "" {
		delimiter = " "
	}
	var lines []string
	current := ""
	for _, token := range strings.Split(text, delimiter) {
		if strings.TrimSpace(token) == "" {
			continue
		}
		if current == "" {
			current = token
			continue
		}
		tentative := current + delimiter + token
		if m.Measure(tentative) <= budget {
			current = tentative
			continue
		}
		lines = append(lines, current)
		current = token
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
