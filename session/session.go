// Package session 管理一次合成的输出目录：逐页写入图像与标注，最后写入运行配置。
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ByLCY/raqim/binding"
	"github.com/ByLCY/raqim/layout"
)

// DefaultTemplate 是输出目录名模板，可用变量：source、timestamp、date、id。
const DefaultTemplate = "${source}.${timestamp}.${id}.d"

// ConfigFile 是会话级运行配置的文件名。
const ConfigFile = "config.json"

// maxAttempts 是目录名冲突时的重试次数。
const maxAttempts = 8

// ErrClosed 表示会话已经 finalize 或 discard。
var ErrClosed = errors.New("session: 会话已结束")

// Options 配置会话目录的命名。
type Options struct {
	Template string
	Now      func() time.Time
	NewID    func() string
	Logger   logrus.FieldLogger
}

// Session 对应一次运行的输出目录。目录在第一次写页时才创建，未写任何页时不会留下目录。
type Session struct {
	source string
	root   string
	opts   Options
	log    logrus.FieldLogger

	dir    string
	pages  []int
	closed bool
}

var _ layout.PageWriter = (*Session)(nil)

// Begin 为 source 准备一个会话。模板中出现未知变量时立即返回错误。
func Begin(source, root string, opts Options) (*Session, error) {
	if opts.Template == "" {
		opts.Template = DefaultTemplate
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = shortID
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if root == "" {
		root = "."
	}
	s := &Session{source: source, root: root, opts: opts}
	s.log = opts.Logger.WithField("source", filepath.Base(source))
	if _, err := s.name(); err != nil {
		return nil, err
	}
	return s, nil
}

func shortID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

func (s *Session) name() (string, error) {
	now := s.opts.Now()
	name, err := binding.Expand(s.opts.Template, binding.Vars{
		"source":    filepath.Base(s.source),
		"timestamp": strconv.FormatInt(now.Unix(), 10),
		"date":      now.Format("20060102-150405"),
		"id":        s.opts.NewID(),
	})
	if err != nil {
		return "", fmt.Errorf("会话目录模板无效: %w", err)
	}
	if name == "" || strings.ContainsRune(name, os.PathSeparator) || name == "." || name == ".." {
		return "", fmt.Errorf("会话目录名无效: %q", name)
	}
	return name, nil
}

// create 以排他方式创建目录，名字冲突时换一个 id 重试。
// 模板不含 ${id} 时重试得到的仍是同一个名字，只尝试一次。
func (s *Session) create() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("创建输出根目录 %s 失败: %w", s.root, err)
	}
	attempts := maxAttempts
	if !slices.Contains(binding.Placeholders(s.opts.Template), "id") {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		name, err := s.name()
		if err != nil {
			return err
		}
		dir := filepath.Join(s.root, name)
		err = os.Mkdir(dir, 0o755)
		if err == nil {
			s.dir = dir
			s.log.WithField("dir", dir).Debug("创建会话目录")
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("创建会话目录 %s 失败: %w", dir, err)
		}
		lastErr = err
	}
	return fmt.Errorf("无法得到唯一的会话目录（已尝试 %d 次）: %w", attempts, lastErr)
}

// Dir 返回会话目录；尚未写页时为空。
func (s *Session) Dir() string { return s.dir }

// Pages 返回已写入的页码。
func (s *Session) Pages() []int { return append([]int(nil), s.pages...) }

// WritePage 写入 {n}.png 与 {n}.json。两个文件先写入临时文件再改名，不会留下半成品。
func (s *Session) WritePage(number int, img image.Image, annotations []layout.Annotation) error {
	if s.closed {
		return ErrClosed
	}
	if s.dir == "" {
		if err := s.create(); err != nil {
			return err
		}
	}
	if annotations == nil {
		annotations = []layout.Annotation{}
	}
	stem := strconv.Itoa(number)
	pngTmp, err := s.writeTemp(stem+".png", func(w io.Writer) error { return png.Encode(w, img) })
	if err != nil {
		return err
	}
	jsonTmp, err := s.writeTemp(stem+".json", func(w io.Writer) error { return encodeJSON(w, annotations) })
	if err != nil {
		os.Remove(pngTmp)
		return err
	}
	if err := os.Rename(pngTmp, filepath.Join(s.dir, stem+".png")); err != nil {
		os.Remove(pngTmp)
		os.Remove(jsonTmp)
		return fmt.Errorf("保存第 %d 页图像失败: %w", number, err)
	}
	if err := os.Rename(jsonTmp, filepath.Join(s.dir, stem+".json")); err != nil {
		os.Remove(jsonTmp)
		os.Remove(filepath.Join(s.dir, stem+".png"))
		return fmt.Errorf("保存第 %d 页标注失败: %w", number, err)
	}
	s.pages = append(s.pages, number)
	s.log.WithFields(logrus.Fields{"page": number, "lines": len(annotations)}).
		Infof("已保存 %s", filepath.Join(s.dir, stem+".png"))
	return nil
}

// Finalize 写入 config.json 并结束会话。没有写过任何页时等同于 Discard。
func (s *Session) Finalize(config any) error {
	if s.closed {
		return ErrClosed
	}
	if len(s.pages) == 0 {
		return s.Discard()
	}
	tmp, err := s.writeTemp(ConfigFile, func(w io.Writer) error { return encodeJSON(w, config) })
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, ConfigFile)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("保存运行配置失败: %w", err)
	}
	s.closed = true
	return nil
}

// Discard 删除整个会话目录。
func (s *Session) Discard() error {
	s.closed = true
	if s.dir == "" {
		return nil
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("删除会话目录 %s 失败: %w", s.dir, err)
	}
	s.log.WithField("dir", s.dir).Debug("丢弃会话目录")
	s.dir = ""
	s.pages = nil
	return nil
}

func (s *Session) writeTemp(target string, write func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(s.dir, "."+target+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("创建临时文件失败: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("写入 %s 失败: %w", target, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("写入 %s 失败: %w", target, err)
	}
	return f.Name(), nil
}

// encodeJSON 输出 UTF-8 原文，不转义非 ASCII 与 HTML 字符。
func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
