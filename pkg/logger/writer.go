package logger

import (
	"errors"
	"fmt"
	"io"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 日志文件切割方式
const (
	RotateBySize  = "size"
	RotateByDaily = "daily"
)

// FileConfig 日志文件输出配置
type FileConfig struct {
	Filename   string // 日志文件路径
	Rotate     string // 切割方式: size / daily
	MaxSizeMB  int    // 单文件最大尺寸（size模式）
	MaxBackups int    // 保留旧文件数量（size模式）
	MaxAgeDays int    // 保留天数
	Compress   bool   // 是否压缩旧文件（size模式）
}

// NewFileWriter 创建带切割功能的日志输出
func NewFileWriter(cfg FileConfig) (io.WriteCloser, error) {
	if cfg.Filename == "" {
		return nil, errors.New("log filename is empty")
	}

	switch cfg.Rotate {
	case "", RotateBySize:
		return &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}, nil
	case RotateByDaily:
		opts := []rotatelogs.Option{
			rotatelogs.WithLinkName(cfg.Filename),
			rotatelogs.WithRotationTime(24 * time.Hour),
		}
		if cfg.MaxAgeDays > 0 {
			opts = append(opts, rotatelogs.WithMaxAge(time.Duration(cfg.MaxAgeDays)*24*time.Hour))
		}
		w, err := rotatelogs.New(cfg.Filename+".%Y%m%d", opts...)
		if err != nil {
			return nil, fmt.Errorf("create rotatelogs failed: %w", err)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unknown rotate mode: %s", cfg.Rotate)
	}
}
