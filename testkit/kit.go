// Package testkit 为各组件的测试提供共享依赖：写入内存的 Logger 和
// 基于独立 Prometheus Registry 的 Meter，便于断言日志内容和指标值。
package testkit

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	promclient "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/pulse/clog"
	"github.com/ceyewan/pulse/metrics"
)

// Kit 包含通用的测试依赖
type Kit struct {
	Ctx      context.Context
	Logger   clog.Logger
	Meter    metrics.Meter
	Registry *promclient.Registry

	t    *testing.T
	logs *bytes.Buffer
}

// NewKit 返回一个包含默认依赖的测试工具包，Meter 在测试结束时关闭
func NewKit(t *testing.T) *Kit {
	t.Helper()

	buf := &bytes.Buffer{}
	logger, err := clog.New(&clog.Config{Level: "debug", Format: "json", Output: "buffer"},
		clog.WithBuffer(buf), clog.WithNamespace("test"))
	require.NoError(t, err)

	reg := promclient.NewRegistry()
	meter, err := metrics.New(metrics.NewDevDefaultConfig("test"), metrics.WithRegistry(reg))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = meter.Shutdown(ctx)
	})

	return &Kit{
		Ctx:      context.Background(),
		Logger:   logger,
		Meter:    meter,
		Registry: reg,
		t:        t,
		logs:     buf,
	}
}

// Logs 返回已写入的日志，调用时不应有并发写入
func (k *Kit) Logs() string {
	return k.logs.String()
}

// CounterValue 汇总名称以 prefix 开头且包含全部 labels 的计数器值
func (k *Kit) CounterValue(prefix string, labels map[string]string) float64 {
	k.t.Helper()
	var total float64
	for _, m := range k.series(prefix, labels) {
		total += m.GetCounter().GetValue()
	}
	return total
}

// HistogramCount 汇总名称以 prefix 开头且包含全部 labels 的直方图样本数
func (k *Kit) HistogramCount(prefix string, labels map[string]string) uint64 {
	k.t.Helper()
	var total uint64
	for _, m := range k.series(prefix, labels) {
		total += m.GetHistogram().GetSampleCount()
	}
	return total
}

func (k *Kit) series(prefix string, labels map[string]string) []*dto.Metric {
	families, err := k.Registry.Gather()
	require.NoError(k.t, err)

	var out []*dto.Metric
	for _, f := range families {
		if !strings.HasPrefix(f.GetName(), prefix) {
			continue
		}
		for _, m := range f.GetMetric() {
			if hasLabels(m, labels) {
				out = append(out, m)
			}
		}
	}
	return out
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	for k, v := range want {
		found := false
		for _, lp := range m.GetLabel() {
			if lp.GetName() == k && lp.GetValue() == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// NewContext 返回一个带有超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewID 返回一个唯一的测试 ID (UUID v4 前 8 位)
func NewID() string {
	return uuid.New().String()[0:8]
}
