// statemachine-gen 根据状态列表生成状态类型源码。
//
// 单个类型：
//
//	//go:generate statemachine-gen -type Door -states Unlocked,Locked
//
// 批量生成（YAML/JSON 声明文件，-watch 时文件变化自动重新生成）：
//
//	statemachine-gen -config states.yml -watch
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/junbin-yang/go-fsm/pkg/config"
	"github.com/junbin-yang/go-fsm/pkg/logger"
	"github.com/junbin-yang/go-fsm/pkg/statemachine/generator"
)

const version = "1.0.0"

// genConfig 声明文件结构
type genConfig struct {
	LogLevel     string                  `yaml:"log_level" json:"log_level" env:"STATEMACHINE_GEN_LOG_LEVEL"`
	LogFile      string                  `yaml:"log_file" json:"log_file" env:"STATEMACHINE_GEN_LOG_FILE"`
	LogRotate    string                  `yaml:"log_rotate" json:"log_rotate" env:"STATEMACHINE_GEN_LOG_ROTATE"`
	OutputDir    string                  `yaml:"output_dir" json:"output_dir" env:"STATEMACHINE_GEN_OUTPUT_DIR"`
	Declarations []generator.Declaration `yaml:"declarations" json:"declarations"`
}

type cliOptions struct {
	typ       string
	states    string
	pkg       string
	output    string
	cfgPath   string
	watch     bool
	logLevel  string
	logFile   string
	logRotate string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "statemachine-gen: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("statemachine-gen", flag.ContinueOnError)
	fs.SetOutput(stdout)

	var opts cliOptions
	fs.StringVar(&opts.typ, "type", "", "状态类型名")
	fs.StringVar(&opts.states, "states", "", "逗号分隔的状态列表（按声明顺序）")
	fs.StringVar(&opts.pkg, "pkg", os.Getenv("GOPACKAGE"), "包名（go:generate 下默认取 $GOPACKAGE）")
	fs.StringVar(&opts.output, "output", "", "输出文件路径，- 表示标准输出")
	fs.StringVar(&opts.cfgPath, "config", "", "声明文件路径（YAML/JSON）")
	fs.BoolVar(&opts.watch, "watch", false, "监听声明文件变化并重新生成")
	fs.StringVar(&opts.logLevel, "log-level", "", "日志级别: debug/info/warn/error")
	fs.StringVar(&opts.logFile, "log-file", "", "日志文件路径（默认输出到标准错误）")
	fs.StringVar(&opts.logRotate, "log-rotate", "", "日志切割方式: size/daily（默认 size）")
	showVersion := fs.Bool("version", false, "显示版本")

	fs.Usage = func() {
		fmt.Fprintln(stdout, "Usage:")
		fmt.Fprintln(stdout, "  statemachine-gen -type <Type> -states <A,B,...> [-pkg <name>] [-output <file>]")
		fmt.Fprintln(stdout, "  statemachine-gen -config <states.yml> [-watch]")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Options:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintf(stdout, "statemachine-gen version %s\n", version)
		return nil
	}

	if opts.cfgPath == "" {
		log, closeLog, err := newLogger(opts.logLevel, opts.logFile, firstNonEmpty(opts.logRotate, logger.RotateBySize))
		if err != nil {
			return err
		}
		defer closeLog()
		return runSingle(opts, stdout, log)
	}
	return runConfig(ctx, opts, stdout)
}

// runSingle 根据命令行参数生成单个类型
func runSingle(opts cliOptions, stdout io.Writer, log logger.Logger) error {
	if opts.typ == "" || opts.states == "" {
		return errors.New("-type and -states are required (or use -config)")
	}

	decl := generator.Declaration{
		Package: opts.pkg,
		Type:    opts.typ,
		States:  generator.ParseStates(opts.states),
		Output:  opts.output,
	}
	return generate(decl, ".", stdout, log)
}

// runConfig 根据声明文件批量生成
func runConfig(ctx context.Context, opts cliOptions, stdout io.Writer) error {
	cfg := &genConfig{}
	cm := config.NewConfigManager(cfg,
		config.WithAppName("statemachine-gen"),
		config.WithConfigWatch(opts.watch, 0),
	)
	defer cm.Close()

	if err := cm.LoadConfig(opts.cfgPath); err != nil {
		return err
	}

	log, closeLog, err := newLogger(
		firstNonEmpty(opts.logLevel, cfg.LogLevel),
		firstNonEmpty(opts.logFile, cfg.LogFile),
		firstNonEmpty(opts.logRotate, cfg.LogRotate, logger.RotateBySize),
	)
	if err != nil {
		return err
	}
	defer closeLog()

	baseDir := filepath.Dir(cm.ConfigPath())
	if err := generateAll(cfg, opts.pkg, baseDir, stdout, log); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}

	cm.OnChange(func(_, newCfg interface{}) {
		if err := generateAll(newCfg.(*genConfig), opts.pkg, baseDir, stdout, log); err != nil {
			log.Error("regenerate failed", logger.GetError(err))
		}
	})

	log.Info("watching declarations", logger.String("path", cm.ConfigPath()))
	<-ctx.Done()
	return nil
}

// generateAll 先校验全部声明，全部合法后再写文件
func generateAll(cfg *genConfig, defaultPkg, baseDir string, stdout io.Writer, log logger.Logger) error {
	if len(cfg.Declarations) == 0 {
		return errors.New("no declarations found")
	}

	outDir := baseDir
	if cfg.OutputDir != "" {
		outDir = cfg.OutputDir
		if !filepath.IsAbs(outDir) {
			outDir = filepath.Join(baseDir, outDir)
		}
	}

	decls := make([]generator.Declaration, len(cfg.Declarations))
	outputs := make(map[string]string, len(decls))
	for i, d := range cfg.Declarations {
		if d.Package == "" {
			d.Package = defaultPkg
		}
		if err := d.Validate(); err != nil {
			return fmt.Errorf("declaration #%d: %w", i+1, err)
		}
		if d.Output != "-" {
			path := outputPath(d, outDir)
			if owner, ok := outputs[path]; ok {
				return fmt.Errorf("declaration #%d: %w: %s and %s both write %s",
					i+1, generator.ErrConflict, owner, d.Type, path)
			}
			outputs[path] = d.Type
		}
		decls[i] = d
	}
	if err := generator.CheckConflicts(decls); err != nil {
		return err
	}

	for _, d := range decls {
		if err := generate(d, outDir, stdout, log); err != nil {
			return err
		}
	}
	return nil
}

// generate 生成并写出单个声明
func generate(decl generator.Declaration, dir string, stdout io.Writer, log logger.Logger) error {
	src, err := generator.Generate(decl)
	if err != nil {
		return err
	}

	if decl.Output == "-" {
		_, err = stdout.Write(src)
		return err
	}

	path := outputPath(decl, dir)
	if err := os.WriteFile(path, src, 0644); err != nil {
		return fmt.Errorf("write %s failed: %w", path, err)
	}

	log.Info("generated",
		logger.String("type", decl.Type),
		logger.Int("states", len(decl.States)),
		logger.String("file", path),
	)
	return nil
}

// outputPath 解析输出文件路径，相对路径基于 dir
func outputPath(decl generator.Declaration, dir string) string {
	path := decl.OutputFile()
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	return filepath.Clean(path)
}

// newLogger 创建命令行日志器，返回关闭函数
func newLogger(level, file, rotate string) (logger.Logger, func(), error) {
	if file == "" {
		l := logger.New(os.Stderr, logger.ParseLevel(level))
		return l, func() { _ = l.Sync() }, nil
	}

	w, err := logger.NewFileWriter(logger.FileConfig{
		Filename:   file,
		Rotate:     rotate,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 7,
	})
	if err != nil {
		return nil, nil, err
	}
	l := logger.New(w, logger.ParseLevel(level))
	return l, func() {
		_ = l.Sync()
		_ = w.Close()
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
