package layout

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ByLCY/raqim/fonts"
)

// State 是分页引擎的状态。
type State int

const (
	StateAwaitingContent State = iota // 当前页尚未绘制任何行
	StateLayingOut                    // 当前页已有内容
	StateOverflowing                  // 下一行放不下，正在 flush
	StateFlushed                      // 引擎已关闭或达到页数上限
)

func (s State) String() string {
	switch s {
	case StateAwaitingContent:
		return "awaiting-content"
	case StateLayingOut:
		return "laying-out"
	case StateOverflowing:
		return "overflowing"
	case StateFlushed:
		return "flushed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Cursor 记录当前页码与当前页已消耗的纵向位置（从页面顶部算起，含上边距）。
type Cursor struct {
	Page       int     `json:"page"`
	CumSpacing float64 `json:"cumSpacing"`
}

// Stats 汇总一次排版的结果。
type Stats struct {
	PagesWritten  int  `json:"pagesWritten"`
	LinesDrawn    int  `json:"linesDrawn"`
	LinesRejected int  `json:"linesRejected"`
	Stopped       bool `json:"stopped"` // 因页数上限提前停止
}

// Engine 是逐行推进的分页状态机：一次会话一个实例，同一时刻只持有一页。
type Engine struct {
	opts   EngineOptions
	log    logrus.FieldLogger
	page   *Page
	cursor Cursor
	state  State
	stats  Stats
}

// NewEngine 校验几何与依赖并创建引擎。几何无效属于致命配置错误，必须在会话创建前暴露。
func NewEngine(opts EngineOptions) (*Engine, error) {
	if err := opts.Geometry.Validate(); err != nil {
		return nil, err
	}
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	if opts.Compositor == nil {
		return nil, fmt.Errorf("layout: 缺少合成器 Compositor")
	}
	if opts.Writer == nil {
		return nil, fmt.Errorf("layout: 缺少页面输出 PageWriter")
	}
	if opts.Mode == nil {
		opts.Mode = PageMode{}
	}
	if opts.Delimiter == "" {
		opts.Delimiter = " "
	}
	if opts.FirstPage <= 0 {
		opts.FirstPage = 1
	}
	switch opts.Coverage {
	case "":
		opts.Coverage = CoverageSkip
	case CoverageOff, CoverageSkip, CoverageStrict:
	default:
		return nil, fmt.Errorf("layout: 未知的缺字策略 %q", opts.Coverage)
	}
	if opts.Alpha == (AlphaRange{}) {
		opts.Alpha = AlphaRange{Min: 1, Max: 1}
	}
	if opts.Alpha.Min < 0 || opts.Alpha.Max > 1 || opts.Alpha.Min > opts.Alpha.Max {
		return nil, fmt.Errorf("layout: 不透明度区间无效 [%g, %g]", opts.Alpha.Min, opts.Alpha.Max)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		opts:   opts,
		log:    log.WithField("mode", opts.Mode.Name()),
		cursor: Cursor{Page: opts.FirstPage, CumSpacing: float64(opts.Geometry.Margin.Top)},
		state:  StateAwaitingContent,
	}, nil
}

func (e *Engine) Cursor() Cursor { return e.cursor }
func (e *Engine) State() State   { return e.state }
func (e *Engine) Stats() Stats   { return e.stats }

// Stopped reports whether the engine stopped consuming input.
func (e *Engine) Stopped() bool { return e.state == StateFlushed }

// Process 依次消费文档中的块，等价于逐个调用 AddRun/PageBreak。
// ctx 在每个块之前检查，取消时返回 ctx.Err()，已写出的页面不受影响。
func (e *Engine) Process(ctx context.Context, blocks []Block) error {
	for _, b := range blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.Stopped() {
			return nil
		}
		if b.PageBreak {
			if err := e.PageBreak(); err != nil {
				return err
			}
			continue
		}
		if b.Run == nil {
			continue
		}
		if err := e.AddRun(*b.Run); err != nil {
			return err
		}
	}
	return nil
}

// AddRun 将一个 Run 折行并逐行排入页面。
func (e *Engine) AddRun(run Run) error {
	if e.Stopped() {
		return nil
	}
	face, err := e.opts.Typesetter.Face(run.Font, run.SizePx)
	if err != nil {
		return err
	}
	g := e.opts.Geometry
	budget := float64(g.SafeWidth() - run.Indent.Left - run.Indent.Right)
	if budget <= 0 {
		e.reject(run.Text, "缩进后没有可用宽度")
		return nil
	}
	lineHeight := face.LineHeight()
	for _, line := range Wrap(run.Text, face, budget, e.opts.Delimiter) {
		if e.Stopped() {
			return nil
		}
		if err := e.placeLine(run, face, line, budget, lineHeight); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) placeLine(run Run, face Face, line string, budget, lineHeight float64) error {
	if strings.TrimSpace(line) == "" {
		e.reject(line, "空行")
		return nil
	}
	if e.opts.Coverage != CoverageOff {
		if missing := face.Missing(line); len(missing) > 0 {
			cerr := &fonts.CoverageError{Font: run.Font.Key(), Missing: missing}
			if e.opts.Coverage == CoverageStrict {
				return cerr
			}
			e.log.WithFields(logrus.Fields{"page": e.cursor.Page, "line": line}).Warnf("跳过缺字行: %v", cerr)
			e.stats.LinesRejected++
			return nil
		}
	}

	width := face.Measure(line)
	if width > budget {
		e.log.WithFields(logrus.Fields{"page": e.cursor.Page, "line": line}).
			Debugf("单词超出行宽 %.1f > %.1f，不拆分", width, budget)
	}

	g := e.opts.Geometry
	top := float64(g.Margin.Top)
	if e.cursor.CumSpacing-top+lineHeight > float64(g.SafeHeight()) {
		if e.page.Empty() {
			// 新页也放不下：flush 只会产生空页，直接丢弃该行。
			e.reject(line, fmt.Sprintf("行高 %.1f 超出可排版高度 %d", lineHeight, g.SafeHeight()))
			return nil
		}
		e.state = StateOverflowing
		if err := e.flush(); err != nil {
			return err
		}
		if e.Stopped() {
			return nil
		}
	}

	if e.page == nil {
		if err := e.newPage(); err != nil {
			return err
		}
	}
	placed := PlacedLine{
		Text:   line,
		X:      float64(g.Width-g.Margin.Right-run.Indent.Right) - width,
		Y:      e.cursor.CumSpacing,
		Width:  width,
		Font:   run.Font,
		SizePx: run.SizePx,
	}
	flush, err := e.opts.Mode.Render(e.opts.Compositor, e.page, placed, e.alpha())
	if errors.Is(err, ErrNothingRendered) {
		if e.page.Empty() {
			// 画布可能已被部分合成，丢弃以免污染下一行。
			e.page = nil
		}
		e.reject(line, "没有可标注的墨迹")
		return nil
	}
	if err != nil {
		return fmt.Errorf("绘制第 %d 页失败: %w", e.cursor.Page, err)
	}
	e.stats.LinesDrawn++
	e.state = StateLayingOut
	e.cursor.CumSpacing += run.Spacing
	if flush {
		return e.flush()
	}
	return nil
}

// PageBreak 强制换页；当前页为空时不做任何事，避免产生空白页。
func (e *Engine) PageBreak() error {
	if e.Stopped() || e.page.Empty() {
		return nil
	}
	return e.flush()
}

// Close 在输入耗尽时执行最后一次 flush。之后引擎不再接受输入。
func (e *Engine) Close() error {
	if e.Stopped() {
		return nil
	}
	err := e.flush()
	e.state = StateFlushed
	return err
}

func (e *Engine) newPage() error {
	canvas, err := e.opts.Compositor.NewPage(e.opts.Geometry)
	if err != nil {
		return fmt.Errorf("创建第 %d 页失败: %w", e.cursor.Page, err)
	}
	e.page = &Page{Number: e.cursor.Page, Canvas: canvas}
	e.cursor.CumSpacing = float64(e.opts.Geometry.Margin.Top)
	e.state = StateAwaitingContent
	return nil
}

// flush 把当前页交给 PageWriter 并开始新页。空页不落盘，也不消耗页码。
func (e *Engine) flush() error {
	page := e.page
	e.page = nil
	if !page.Empty() {
		if err := e.opts.Writer.WritePage(page.Number, e.opts.Mode.Output(page), page.Annotations); err != nil {
			return fmt.Errorf("写出第 %d 页失败: %w", page.Number, err)
		}
		e.stats.PagesWritten++
		e.log.WithFields(logrus.Fields{"page": page.Number, "lines": len(page.Annotations)}).Debug("页面已写出")
		e.cursor.Page++
	}
	e.cursor.CumSpacing = float64(e.opts.Geometry.Margin.Top)
	e.state = StateAwaitingContent
	if e.opts.MaxPage > 0 && e.cursor.Page > e.opts.MaxPage {
		e.log.WithField("maxPage", e.opts.MaxPage).Debug("达到页数上限，停止排版")
		e.stats.Stopped = true
		e.state = StateFlushed
	}
	return nil
}

func (e *Engine) reject(line, reason string) {
	e.stats.LinesRejected++
	e.log.WithFields(logrus.Fields{"page": e.cursor.Page, "line": line}).Warnf("跳过: %s", reason)
}

func (e *Engine) alpha() uint8 {
	a := e.opts.Alpha
	v := a.Min
	if a.Max > a.Min {
		v += e.opts.Rand.Float64() * (a.Max - a.Min)
	}
	return uint8(v * 255)
}

// CheckCoverage 在会话开始前一次性检查全部文本的字形覆盖（strict 模式）。
// 任一字体缺字即返回 *fonts.CoverageError，列出该字体缺失的全部字符。
func CheckCoverage(ts Typesetter, runs []*Run) error {
	missing := map[string]map[rune]bool{}
	var order []string
	for _, run := range runs {
		face, err := ts.Face(run.Font, run.SizePx)
		if err != nil {
			return err
		}
		for _, r := range face.Missing(run.Text) {
			key := run.Font.Key()
			set, ok := missing[key]
			if !ok {
				set = map[rune]bool{}
				missing[key] = set
				order = append(order, key)
			}
			set[r] = true
		}
	}
	if len(order) == 0 {
		return nil
	}
	key := order[0]
	runes := make([]rune, 0, len(missing[key]))
	for r := range missing[key] {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	return &fonts.CoverageError{Font: key, Missing: runes}
}
