package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ceyewan/pulse/clog"
)

// Option 配置 Meter 实例的选项
type Option func(*options)

type options struct {
	logger   clog.Logger
	registry *prometheus.Registry
}

// WithLogger 注入日志记录器，组件会追加 "metrics" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("metrics")
		}
	}
}

// WithRegistry 使用给定的 Prometheus Registry，默认为每个 Meter 新建一个
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}
