package layout

import (
	"fmt"
	"strings"
)

// Style 是命名样式。属性保持书写时的原始字符串，使用时再按需解析。
type Style struct {
	Name    string            `json:"name"`
	Extends string            `json:"extends,omitempty"`
	Props   map[string]string `json:"props,omitempty"`
}

// StyleChain 是从具体样式到根样式的有序列表，查找时先到先得。
type StyleChain []Style

// Lookup 沿链查找属性。
func (c StyleChain) Lookup(key string) (string, bool) {
	for _, s := range c {
		if v, ok := s.Props[key]; ok {
			return v, true
		}
	}
	return "", false
}

// Names 返回链上的样式名，用于调试输出。
func (c StyleChain) Names() []string {
	out := make([]string, 0, len(c))
	for _, s := range c {
		out = append(out, s.Name)
	}
	return out
}

// StyleSheet 按名称保存样式。
type StyleSheet map[string]Style

// Chain 展开样式的继承链。引用未定义的父样式或出现循环继承时返回错误。
func (s StyleSheet) Chain(name string) (StyleChain, error) {
	var chain StyleChain
	seen := map[string]bool{}
	for cur := name; cur != ""; {
		if seen[cur] {
			return nil, fmt.Errorf("style 继承存在循环：%s", strings.Join(append(chain.Names(), cur), " -> "))
		}
		seen[cur] = true
		style, ok := s[cur]
		if !ok {
			if cur == name {
				return nil, fmt.Errorf("style %s 未定义", cur)
			}
			return nil, fmt.Errorf("style %s 继承了未定义的 %s", chain[len(chain)-1].Name, cur)
		}
		chain = append(chain, style)
		cur = style.Extends
	}
	return chain, nil
}

// Validate 检查全部样式的继承链。
func (s StyleSheet) Validate() error {
	for name := range s {
		if _, err := s.Chain(name); err != nil {
			return err
		}
	}
	return nil
}

// attrSource 是属性来源：样式链、行内参数或默认值。
type attrSource interface {
	Lookup(key string) (string, bool)
}

type attrMap map[string]string

func (m attrMap) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// attrStack 依次询问各来源，返回第一个命中的值。
type attrStack []attrSource

func (s attrStack) Lookup(key string) (string, bool) {
	return s.first(key)
}

// first 支持属性别名：同一来源内的任一别名都优先于后续来源。
func (s attrStack) first(keys ...string) (string, bool) {
	for _, src := range s {
		if src == nil {
			continue
		}
		for _, k := range keys {
			if v, ok := src.Lookup(k); ok {
				return v, true
			}
		}
	}
	return "", false
}
