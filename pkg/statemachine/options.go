package statemachine

import "github.com/junbin-yang/go-fsm/pkg/logger"

// Option 状态机选项
type Option func(*options)

type options struct {
	name   string
	logger logger.Logger // nil 表示不输出日志
}

func defaultOptions() options {
	return options{
		name: "statemachine",
	}
}

// WithName 设置状态机名称（用于日志字段）
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger 设置日志实现，默认不输出
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
