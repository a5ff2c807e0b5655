package metrics

import (
	"context"
	"net/http"
)

// Discard 返回空操作 Meter，未启用指标时使用
func Discard() Meter {
	return noopMeter{}
}

type noopMeter struct{}

func (noopMeter) Counter(string, string, ...MetricOption) (Counter, error) {
	return noopCounter{}, nil
}

func (noopMeter) Gauge(string, string, ...MetricOption) (Gauge, error) {
	return noopGauge{}, nil
}

func (noopMeter) Histogram(string, string, ...MetricOption) (Histogram, error) {
	return noopHistogram{}, nil
}

func (noopMeter) Handler() http.Handler { return http.NotFoundHandler() }

func (noopMeter) Shutdown(context.Context) error { return nil }

type noopCounter struct{}

func (noopCounter) Inc(context.Context, ...Label)          {}
func (noopCounter) Add(context.Context, float64, ...Label) {}

type noopGauge struct{}

func (noopGauge) Set(context.Context, float64, ...Label) {}
func (noopGauge) Inc(context.Context, ...Label)          {}
func (noopGauge) Dec(context.Context, ...Label)          {}

type noopHistogram struct{}

func (noopHistogram) Record(context.Context, float64, ...Label) {}

// CounterOrDiscard 创建计数器，m 为 nil 或创建失败时返回空操作实现
func CounterOrDiscard(m Meter, name, desc string, opts ...MetricOption) Counter {
	if m == nil {
		return noopCounter{}
	}
	c, err := m.Counter(name, desc, opts...)
	if err != nil {
		return noopCounter{}
	}
	return c
}

// GaugeOrDiscard 创建仪表盘，m 为 nil 或创建失败时返回空操作实现
func GaugeOrDiscard(m Meter, name, desc string, opts ...MetricOption) Gauge {
	if m == nil {
		return noopGauge{}
	}
	g, err := m.Gauge(name, desc, opts...)
	if err != nil {
		return noopGauge{}
	}
	return g
}

// HistogramOrDiscard 创建直方图，m 为 nil 或创建失败时返回空操作实现
func HistogramOrDiscard(m Meter, name, desc string, opts ...MetricOption) Histogram {
	if m == nil {
		return noopHistogram{}
	}
	h, err := m.Histogram(name, desc, opts...)
	if err != nil {
		return noopHistogram{}
	}
	return h
}
