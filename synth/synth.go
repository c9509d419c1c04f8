// Package synth 串联一次合成：读取输入、解析字体与背景、分页排版并写出会话目录。
package synth

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ByLCY/raqim/background"
	"github.com/ByLCY/raqim/config"
	"github.com/ByLCY/raqim/fonts"
	"github.com/ByLCY/raqim/layout"
	canvasrenderer "github.com/ByLCY/raqim/renderer/canvas"
	"github.com/ByLCY/raqim/session"
	"github.com/ByLCY/raqim/source"
	"github.com/ByLCY/raqim/textnorm"
)

// Options 注入日志与会话命名所需的时钟和 id，测试中用来固定输出目录名。
type Options struct {
	Logger logrus.FieldLogger
	Now    func() time.Time
	NewID  func() string
}

// Result 汇总一次运行。Dir 为空表示没有写出任何页面。
type Result struct {
	Dir   string
	Pages []int
	Stats layout.Stats
}

// Effective 是写入 config.json 的完整运行参数：用户参数加上解析后的几何、字号与行距。
type Effective struct {
	config.Config
	Geometry   layout.Geometry `json:"geometry"`
	FontSizePx float64         `json:"fontSizePx"`
	SpacingPx  float64         `json:"spacingPx"`
	Stats      layout.Stats    `json:"stats"`
}

// Run 按 cfg 处理一个输入文件。配置、字体、背景与 strict 缺字错误都在会话创建前返回。
// ctx 在块之间检查；取消时已写出的页面保留原样，会话不 finalize。
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("source", filepath.Base(cfg.Input))

	eff := Effective{Config: *cfg}
	if eff.Seed == 0 {
		eff.Seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(eff.Seed))

	mode, err := layout.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	kind, err := source.ParseKind(cfg.Kind)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		kind = source.Detect(cfg.Input)
		if kind == source.KindText && mode.Name() == layout.ModeGlyph {
			kind = source.KindChars
		}
	}
	eff.Kind = string(kind)

	rules, err := cfg.NormalizerRules()
	if err != nil {
		return nil, err
	}
	var normalizer *textnorm.Normalizer
	if len(rules) > 0 {
		if normalizer, err = textnorm.New(rules); err != nil {
			return nil, &config.Error{Field: "rules", Msg: err.Error()}
		}
	}

	var table *fonts.Table
	if cfg.FontTable != "" {
		if table, err = fonts.LoadTable(cfg.FontTable); err != nil {
			return nil, err
		}
	}
	var pool *background.Pool
	if cfg.Background != "" {
		if pool, err = background.Load(cfg.Background, cfg.BGPattern); err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{"dir": pool.Dir(), "backgrounds": pool.Len()}).Debug("已加载背景图片")
	}

	geometry, err := cfg.Geometry()
	if err != nil {
		return nil, err
	}
	defaultFont := layout.FontResource{Name: cfg.Font}
	eff.FontSizePx = cfg.FontSizePx()
	eff.SpacingPx = cfg.SpacingSpec().Resolve(eff.FontSizePx, cfg.DPI) * cfg.SpacingRuleFactor()
	override, err := cfg.SpacingOverride()
	if err != nil {
		return nil, err
	}
	if override > 0 {
		eff.SpacingPx = override
	}

	doc, err := source.Read(cfg.Input, source.Options{
		Kind:       kind,
		Encoding:   cfg.Encoding,
		Normalizer: normalizer,
		Continuo:   cfg.Continuo,
		Template:   layout.Run{Font: defaultFont, SizePx: eff.FontSizePx, Spacing: eff.SpacingPx},
		Build: layout.BuildOptions{
			DPI:         cfg.DPI,
			Font:        defaultFont,
			FontSizePx:  eff.FontSizePx,
			Spacing:     cfg.SpacingSpec(),
			SpacingRule: cfg.SpacingRuleFactor(),
		},
		Logger: log,
	})
	if err != nil {
		return nil, err
	}
	if doc.Geometry != nil {
		// 文档声明的页面优先于命令行尺寸。
		geometry = *doc.Geometry
	}
	if err := geometry.Validate(); err != nil {
		return nil, err
	}
	eff.Geometry = geometry
	if override > 0 {
		for _, run := range doc.Runs() {
			run.Spacing = override
		}
	}

	r := canvasrenderer.NewRenderer(canvasrenderer.Options{
		Fonts:       table,
		Backgrounds: pool,
		Rand:        rng,
		Logger:      log,
	})
	if err := resolveFonts(r, doc.Runs(), layout.CoverageMode(cfg.Coverage)); err != nil {
		return nil, err
	}

	sess, err := session.Begin(cfg.Input, cfg.Out, session.Options{
		Template: cfg.NameTemplate,
		Now:      opts.Now,
		NewID:    opts.NewID,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}
	alpha, err := cfg.AlphaRange()
	if err != nil {
		return nil, err
	}
	delimiter := " "
	if cfg.Continuo {
		delimiter = textnorm.ZWJ
	}
	engine, err := layout.NewEngine(layout.EngineOptions{
		Geometry:   geometry,
		Typesetter: r,
		Compositor: r,
		Writer:     sess,
		Mode:       mode,
		Delimiter:  delimiter,
		MaxPage:    cfg.EndPage,
		Coverage:   layout.CoverageMode(cfg.Coverage),
		Alpha:      alpha,
		Rand:       rng,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	if err := engine.Process(ctx, doc.Blocks); err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return &Result{Dir: sess.Dir(), Pages: sess.Pages(), Stats: engine.Stats()}, err
		}
		sess.Discard()
		return nil, err
	}
	if err := engine.Close(); err != nil {
		sess.Discard()
		return nil, err
	}

	stats := engine.Stats()
	eff.Stats = stats
	if cfg.Debug != "" {
		dump := layout.DebugDump{Geometry: geometry, Document: doc, Stats: stats}
		if err := layout.WriteDebugJSON(dump, cfg.Debug); err != nil {
			log.Warnf("输出调试 JSON 失败: %v", err)
		}
	}

	res := &Result{Dir: sess.Dir(), Pages: sess.Pages(), Stats: stats}
	if err := sess.Finalize(eff); err != nil {
		return nil, err
	}
	if len(res.Pages) == 0 {
		log.Warn("没有绘制任何行，未生成输出目录")
	}
	log.WithFields(logrus.Fields{
		"pages":    stats.PagesWritten,
		"lines":    stats.LinesDrawn,
		"rejected": stats.LinesRejected,
	}).Info("合成完成")
	return res, nil
}

// resolveFonts 在会话创建前解析全部字体；strict 模式下同时检查缺字。
func resolveFonts(ts layout.Typesetter, runs []*layout.Run, coverage layout.CoverageMode) error {
	if coverage == layout.CoverageStrict {
		return layout.CheckCoverage(ts, runs)
	}
	for _, run := range runs {
		if _, err := ts.Face(run.Font, run.SizePx); err != nil {
			return err
		}
	}
	return nil
}

// String 返回结果摘要，供命令行输出。
func (r *Result) String() string {
	if r.Dir == "" {
		return "没有生成任何页面"
	}
	return fmt.Sprintf("已生成 %d 页：%s", len(r.Pages), r.Dir)
}
