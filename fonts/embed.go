package fonts

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// EmbedPrefix 标记内置字体，例如 "embed:goregular"。
const EmbedPrefix = "embed:"

var builtin = map[string][]byte{
	"goregular": goregular.TTF,
	"gobold":    gobold.TTF,
	"goitalic":  goitalic.TTF,
	"gomono":    gomono.TTF,
}

// IsEmbedded reports whether src names a built-in font.
func IsEmbedded(src string) bool { return strings.HasPrefix(src, EmbedPrefix) }

// Builtin 返回内置字体名称列表（已排序）。
func Builtin() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load 返回内置字体的字节数据，path 可写为 "embed:goregular" 或直接 "goregular"，也接受 .ttf 后缀。
func Load(path string) ([]byte, error) {
	name := strings.TrimPrefix(path, EmbedPrefix)
	name = strings.TrimSuffix(strings.ToLower(name), ".ttf")
	data, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 可用字体 %v", path, Builtin())
	}
	return data, nil
}
