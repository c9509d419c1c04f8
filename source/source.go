// Package source 把纯文本、字符列表与结构化文档读成统一的 layout.Document 文本流。
package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/ByLCY/raqim/dsl"
	"github.com/ByLCY/raqim/fonts"
	"github.com/ByLCY/raqim/layout"
	"github.com/ByLCY/raqim/textnorm"
)

// Kind 是输入格式。
type Kind string

const (
	KindText     Kind = "text"     // 每行一个 Run
	KindChars    Kind = "chars"    // 每行一个字符单元，不做规范化
	KindDocument Kind = "document" // DSL 结构化文档
)

// DocumentExts 是按扩展名识别为结构化文档的后缀。
var DocumentExts = []string{".raqim", ".papyrus"}

// Options 控制读取与规范化。
type Options struct {
	Kind     Kind
	Encoding string // htmlindex 名称，例如 windows-1256；空表示 UTF-8
	// Normalizer 为空时不做规范化。
	Normalizer *textnorm.Normalizer
	Continuo   bool
	// Template 为纯文本与字符列表提供字体、字号、行距与缩进。
	Template layout.Run
	// Build 为结构化文档提供默认值。
	Build  layout.BuildOptions
	Logger logrus.FieldLogger
}

// Detect 根据扩展名推断输入格式。
func Detect(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range DocumentExts {
		if ext == e {
			return KindDocument
		}
	}
	return KindText
}

// ParseKind 校验格式名称。
func ParseKind(name string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(name))); k {
	case "":
		return "", nil
	case KindText, KindChars, KindDocument:
		return k, nil
	default:
		return "", fmt.Errorf("未知的输入格式 %q（可选 text、chars、document）", name)
	}
}

// Read 读取并解码 path，返回标准化文本流。
func Read(path string, opts Options) (*layout.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取输入 %s 失败: %w", path, err)
	}
	text, err := Decode(data, opts.Encoding)
	if err != nil {
		return nil, fmt.Errorf("解码 %s 失败: %w", path, err)
	}
	kind := opts.Kind
	if kind == "" {
		kind = Detect(path)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	log := opts.Logger.WithFields(logrus.Fields{"source": filepath.Base(path), "kind": kind})
	r := reader{opts: opts, log: log}
	switch kind {
	case KindText:
		return r.text(text), nil
	case KindChars:
		return r.chars(text), nil
	case KindDocument:
		return r.document(text, filepath.Dir(path))
	default:
		return nil, fmt.Errorf("未知的输入格式 %q", kind)
	}
}

// Decode 把 data 从 encoding 转为 UTF-8，并去掉开头的 BOM。
// encoding 为空时要求输入本身是合法的 UTF-8。
func Decode(data []byte, encoding string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(encoding))
	if name == "" || name == "utf-8" || name == "utf8" {
		data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
		if !utf8.Valid(data) {
			return "", fmt.Errorf("输入不是合法的 UTF-8，请用 -encoding 指定编码")
		}
		return string(data), nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", fmt.Errorf("不支持的编码 %q: %w", encoding, err)
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("按 %s 解码失败: %w", encoding, err)
	}
	return strings.TrimPrefix(string(decoded), "\ufeff"), nil
}

type reader struct {
	opts Options
	log  logrus.FieldLogger
}

// clean 依次做规范化与连写处理。
func (r reader) clean(line string) string {
	if r.opts.Normalizer != nil {
		line = r.opts.Normalizer.Normalize(line)
	}
	if r.opts.Continuo {
		line = textnorm.Continuo(line)
	}
	return line
}

func (r reader) text(text string) *layout.Document {
	doc := &layout.Document{}
	for i, raw := range splitLines(text) {
		line := r.clean(raw)
		if strings.TrimSpace(line) == "" {
			if strings.TrimSpace(raw) != "" {
				r.log.WithField("line", i+1).Debug("规范化后为空，跳过")
			}
			continue
		}
		run := r.opts.Template
		run.Text = line
		run.SourceNo = i + 1
		doc.Blocks = append(doc.Blocks, layout.Block{Run: &run})
	}
	return doc
}

func (r reader) chars(text string) *layout.Document {
	doc := &layout.Document{}
	for i, raw := range splitLines(text) {
		unit := strings.TrimSpace(raw)
		if unit == "" {
			continue
		}
		run := r.opts.Template
		run.Text = unit
		run.SourceNo = i + 1
		doc.Blocks = append(doc.Blocks, layout.Block{Run: &run})
	}
	return doc
}

func (r reader) document(text, baseDir string) (*layout.Document, error) {
	ast, err := dsl.ParseString(text)
	if err != nil {
		return nil, fmt.Errorf("解析文档失败: %w", err)
	}
	doc, err := layout.Build(ast, r.opts.Build)
	if err != nil {
		return nil, fmt.Errorf("构建文本流失败: %w", err)
	}
	blocks := doc.Blocks[:0]
	for _, b := range doc.Blocks {
		if b.Run == nil {
			blocks = append(blocks, b)
			continue
		}
		b.Run.Text = r.clean(b.Run.Text)
		if strings.TrimSpace(b.Run.Text) == "" {
			r.log.WithField("line", b.Run.SourceNo).Debug("规范化后为空，跳过")
			continue
		}
		if b.Run.Font != r.opts.Build.Font {
			b.Run.Font = rebaseFont(b.Run.Font, baseDir)
		}
		blocks = append(blocks, b)
	}
	doc.Blocks = blocks
	return doc, nil
}

// rebaseFont 把文档中的相对字体路径解释为相对文档所在目录。
func rebaseFont(f layout.FontResource, baseDir string) layout.FontResource {
	if f.Src == "" || fonts.IsEmbedded(f.Src) || filepath.IsAbs(f.Src) {
		return f
	}
	f.Src = filepath.Join(baseDir, f.Src)
	return f
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
