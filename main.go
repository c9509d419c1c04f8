package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/ByLCY/raqim/background"
	"github.com/ByLCY/raqim/config"
	"github.com/ByLCY/raqim/fonts"
	"github.com/ByLCY/raqim/layout"
	"github.com/ByLCY/raqim/synth"
)

const (
	exitFailure = 1
	exitConfig  = 2
)

func main() {
	fs := flag.NewFlagSet("raqim", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "用法: raqim [参数] <输入文件>\n\n")
		fs.PrintDefaults()
	}
	flags := config.NewFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg := config.Default()
	if path := flags.ConfigPath(); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitConfig)
		}
		cfg = loaded
	}
	flags.Apply(cfg)

	logger := newLogger(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := synth.Run(ctx, cfg, synth.Options{Logger: logger})
	if err != nil {
		logger.Errorf("合成失败: %v", err)
		if res != nil && res.Dir != "" {
			logger.Warnf("已写出的页面保留在 %s", res.Dir)
		}
		stop()
		os.Exit(exitCode(err))
	}
	fmt.Println(res)
}

// newLogger 默认只输出错误；-warn 打开警告，-verbose 打开调试日志。
func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:   term.IsTerminal(int(os.Stderr.Fd())),
		FullTimestamp: true,
	})
	switch {
	case cfg.Verbose:
		logger.SetLevel(logrus.DebugLevel)
	case cfg.Warn:
		logger.SetLevel(logrus.WarnLevel)
	default:
		logger.SetLevel(logrus.ErrorLevel)
	}
	return logger
}

// exitCode 区分配置类错误与运行期错误。
func exitCode(err error) int {
	var (
		cfgErr *config.Error
		resErr *fonts.ResolutionError
	)
	switch {
	case errors.As(err, &cfgErr),
		errors.As(err, &resErr),
		errors.Is(err, layout.ErrDegenerateGeometry),
		errors.Is(err, background.ErrEmptyPool):
		return exitConfig
	default:
		return exitFailure
	}
}
