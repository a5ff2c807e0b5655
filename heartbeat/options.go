package heartbeat

import (
	"github.com/ceyewan/pulse/clog"
	"github.com/ceyewan/pulse/condition"
	"github.com/ceyewan/pulse/metrics"
)

// Option 心跳任务选项
type Option func(*options)

type options struct {
	logger     clog.Logger
	meter      metrics.Meter
	conditions []condition.Condition
}

// WithLogger 注入日志记录器，组件内部会追加 "heartbeat" namespace
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("heartbeat")
		}
	}
}

// WithMeter 注入指标收集器
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		if m != nil {
			o.meter = m
		}
	}
}

// WithConditions 追加激活条件，与默认条件共同生效
func WithConditions(conds ...condition.Condition) Option {
	return func(o *options) {
		o.conditions = append(o.conditions, conds...)
	}
}
