package binding

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Vars 是模板变量；值可以是嵌套的 map[string]any，用 ${a.b} 访问。
type Vars map[string]any

// Expand 将文本中的 ${path.to.value} 替换为 vars 中的值。
// 任一占位符无法解析时返回错误，并列出全部未解析的名字。
func Expand(text string, vars Vars) (string, error) {
	var missing []string
	out := exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		path := strings.TrimSpace(groups[1])
		if val, ok := resolvePath(vars, path); ok {
			return fmt.Sprint(val)
		}
		missing = append(missing, path)
		return match
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("模板 %q 中的变量未定义: %s", text, strings.Join(missing, ", "))
	}
	return out, nil
}

// Placeholders 返回模板中出现的变量名（按出现顺序，去重）。
func Placeholders(text string) []string {
	var names []string
	seen := map[string]bool{}
	for _, groups := range exprPattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(groups[1])
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func resolvePath(vars Vars, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var current any = map[string]any(vars)
	for _, segment := range strings.Split(path, ".") {
		var ok bool
		current, ok = descendMap(current, segment)
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func descendMap(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		val, ok := c[key]
		return val, ok
	case Vars:
		val, ok := c[key]
		return val, ok
	default:
		return nil, false
	}
}
