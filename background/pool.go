// Package background 管理页面背景图片池：加载后只读，可在多个渲染器间共享。
package background

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmptyPool 表示背景目录中没有匹配且可解码的图片。
var ErrEmptyPool = errors.New("background: 背景目录中没有可用图片")

// DefaultPattern 匹配目录下全部文件，再按扩展名过滤。
const DefaultPattern = "*"

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// Pool 是不可变的背景图片集合，只保存路径，按需解码。
type Pool struct {
	dir   string
	paths []string
}

// Load 读取 dir 下匹配 pattern 的图片文件。没有可用图片时返回 ErrEmptyPool。
func Load(dir, pattern string) (*Pool, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("读取背景目录 %s 失败: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("背景路径 %s 不是目录", dir)
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("背景匹配模式 %q 无效: %w", pattern, err)
	}
	var paths []string
	for _, m := range matches {
		if !imageExts[strings.ToLower(filepath.Ext(m))] {
			continue
		}
		if fi, err := os.Stat(m); err != nil || fi.IsDir() {
			continue
		}
		paths = append(paths, m)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrEmptyPool, dir, pattern)
	}
	sort.Strings(paths)
	return &Pool{dir: dir, paths: paths}, nil
}

// Dir 返回背景目录。
func (p *Pool) Dir() string { return p.dir }

// Len 返回图片数量。
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.paths)
}

// Pick 随机选择一张图片路径。
func (p *Pool) Pick(rng *rand.Rand) string {
	return p.paths[rng.Intn(len(p.paths))]
}

// Canvas 随机选一张背景，缩放到 width×height 并转换为 RGBA。
func (p *Pool) Canvas(rng *rand.Rand, width, height int) (*image.RGBA, error) {
	path := p.Pick(rng)
	src, err := Decode(path)
	if err != nil {
		return nil, err
	}
	return Scale(src, width, height), nil
}

// Decode 解码一张图片，支持 png/jpeg/gif/webp/bmp/tiff。
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取背景 %s 失败: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("解码背景 %s 失败: %w", path, err)
	}
	return img, nil
}

// Scale 将 src 拉伸到精确尺寸（不保持宽高比），使用 Catmull-Rom 插值。
func Scale(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
