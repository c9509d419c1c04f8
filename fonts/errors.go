package fonts

import (
	"fmt"
	"strings"
)

// ResolutionError 表示字体名称无法解析为可读取的字体文件。
type ResolutionError struct {
	Name string
	Path string
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("字体 %q 未在字体表中登记", e.Name)
	}
	return fmt.Sprintf("字体 %q (%s) 无法读取: %v", e.Name, e.Path, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// CoverageError 表示字体 cmap 缺少文本所需的字符。
type CoverageError struct {
	Font    string
	Missing []rune
}

func (e *CoverageError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, r := range e.Missing {
		parts = append(parts, fmt.Sprintf("%q(U+%04X)", r, r))
	}
	return fmt.Sprintf("字体 %s 缺少 %d 个字符: %s", e.Font, len(e.Missing), strings.Join(parts, " "))
}
