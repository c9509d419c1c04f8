package textnorm

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Normalizer 按顺序执行编译后的规则。纯函数，可并发使用。
type Normalizer struct {
	steps []func(string) string
}

// New 编译规则表。
func New(rules []Rule) (*Normalizer, error) {
	n := &Normalizer{}
	for i, r := range rules {
		step, err := compile(r)
		if err != nil {
			return nil, fmt.Errorf("第 %d 条规则: %w", i+1, err)
		}
		n.steps = append(n.steps, step)
	}
	return n, nil
}

// Default 返回使用默认规则的 Normalizer。
func Default() *Normalizer {
	n, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return n
}

// extraPasses 是在字符数之外额外允许的整表执行次数。
// 一遍规则表可能只去掉一个词元（例如去掉行首变音符后 trim 又露出下一个），
// 所以上限随输入长度增长。
const extraPasses = 8

// Normalize 清洗一行文本。整张规则表重复执行直到结果不再变化，因此结果再次清洗不变。
func (n *Normalizer) Normalize(line string) string {
	if n == nil {
		return line
	}
	limit := utf8.RuneCountInString(line) + extraPasses
	for pass := 0; pass < limit; pass++ {
		next := line
		for _, step := range n.steps {
			next = step(next)
		}
		if next == line {
			break
		}
		line = next
	}
	return line
}

func compile(r Rule) (func(string) string, error) {
	kind, err := r.kind()
	if err != nil {
		return nil, err
	}
	switch kind {
	case "strip":
		drop := map[string]bool{}
		for _, c := range r.Categories {
			c = strings.ToUpper(strings.TrimSpace(c))
			if _, ok := majorTables[c]; !ok {
				return nil, fmt.Errorf("规则 %q: 未知的 Unicode 大类 %q", r.Name, c)
			}
			drop[c] = true
		}
		return func(s string) string {
			return strings.Map(func(r rune) rune {
				if drop[majorCategory(r)] {
					return -1
				}
				return r
			}, s)
		}, nil
	case "form":
		var f norm.Form
		switch strings.ToUpper(r.Form) {
		case "NFC":
			f = norm.NFC
		case "NFD":
			f = norm.NFD
		case "NFKC":
			f = norm.NFKC
		case "NFKD":
			f = norm.NFKD
		default:
			return nil, fmt.Errorf("规则 %q: 未知的规范化形式 %q", r.Name, r.Form)
		}
		return f.String, nil
	default:
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("规则 %q: %w", r.Name, err)
		}
		if !r.Repeat {
			return func(s string) string { return re.ReplaceAllString(s, r.Replace) }, nil
		}
		return func(s string) string {
			for {
				next := re.ReplaceAllString(s, r.Replace)
				if next == s {
					return s
				}
				s = next
			}
		}, nil
	}
}

var majorTables = map[string]*unicode.RangeTable{
	"L": unicode.L,
	"M": unicode.M,
	"N": unicode.N,
	"P": unicode.P,
	"S": unicode.S,
	"Z": unicode.Z,
	"C": unicode.C,
}

var majorOrder = []string{"L", "M", "N", "P", "S", "Z", "C"}

// majorCategory 返回字符的 Unicode 大类，未分配码位（Cn）归为 C。
func majorCategory(r rune) string {
	for _, c := range majorOrder {
		if unicode.Is(majorTables[c], r) {
			return c
		}
	}
	return "C"
}
