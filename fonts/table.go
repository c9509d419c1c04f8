package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Table 将逻辑字体名映射到字体文件路径或 embed:<name>。
// 表文件可以是 YAML 或 JSON（JSON 是 YAML 的子集），相对路径以表文件所在目录为基准。
type Table struct {
	entries map[string]string

	mu    sync.Mutex
	cache map[string][]byte
}

// NewTable 使用给定映射创建字体表。
func NewTable(entries map[string]string) *Table {
	t := &Table{entries: map[string]string{}, cache: map[string][]byte{}}
	for name, src := range entries {
		t.entries[name] = src
	}
	return t
}

// LoadTable 读取字体表文件。
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体表 %s 失败: %w", path, err)
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("解析字体表 %s 失败: %w", path, err)
	}
	base := filepath.Dir(path)
	for name, src := range raw {
		if !IsEmbedded(src) && !filepath.IsAbs(src) {
			raw[name] = filepath.Join(base, src)
		}
	}
	return NewTable(raw), nil
}

// Names 返回已登记的字体名（已排序）。
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup 返回字体名对应的来源。
func (t *Table) Lookup(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	src, ok := t.entries[name]
	return src, ok
}

// Resolve 解析字体并返回字节数据，结果按来源缓存。
// 顺序：显式 src；name 为 embed:<name>；name 为已存在的文件；字体表登记。
// 找不到或无法读取时返回 *ResolutionError。
func (t *Table) Resolve(name, src string) ([]byte, error) {
	if src == "" {
		switch {
		case IsEmbedded(name):
			src = name
		case fileExists(name):
			src = name
		default:
			var ok bool
			if src, ok = t.Lookup(name); !ok {
				return nil, &ResolutionError{Name: name}
			}
		}
	}
	if t != nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if data, ok := t.cache[src]; ok {
			return data, nil
		}
	}
	var (
		data []byte
		err  error
	)
	if IsEmbedded(src) {
		data, err = Load(src)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, &ResolutionError{Name: name, Path: src, Err: err}
	}
	if t != nil {
		t.cache[src] = data
	}
	return data, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
