// Package relay 将进程内的心跳事件转发到 NATS，供进程外的监控方订阅。
//
// 转发在心跳事件的监听器中同步执行，发布失败由熔断器统计；熔断打开期间
// 心跳直接被丢弃，不会拖慢调度。
//
//	cfg, _ := relay.LoadConfig(resolver)
//	if cfg.Enabled {
//		conn, err := relay.Connect(ctx, cfg, logger)
//		...
//		r, err := relay.New(cfg, bus, conn, relay.WithLogger(logger))
//		c.Register("heartbeat-relay", r)
//	}
package relay

import (
	"context"
	"sync"

	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/pulse/clog"
	"github.com/ceyewan/pulse/container"
	"github.com/ceyewan/pulse/event"
	"github.com/ceyewan/pulse/heartbeat"
	"github.com/ceyewan/pulse/metrics"
	"github.com/ceyewan/pulse/xerrors"
)

// 失败原因
const (
	reasonEncode  = "encode"
	reasonPublish = "publish"
	reasonOpen    = "breaker_open"
)

// Publisher 消息发布能力，*nats.Conn 满足该接口
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Relay 心跳转发器
type Relay struct {
	cfg     *Config
	bus     *event.Bus
	pub     Publisher
	codec   Codec
	breaker *gobreaker.CircuitBreaker[struct{}]

	mu  sync.Mutex
	sub *event.Subscription

	logger    clog.Logger
	forwarded metrics.Counter
	failures  metrics.Counter
}

// New 创建转发器，Start 后开始订阅心跳事件
func New(cfg *Config, bus *event.Bus, pub Publisher, opts ...Option) (*Relay, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if bus == nil || pub == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "relay: bus and publisher are required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	codec, err := NewCodec(cfg.Codec)
	if err != nil {
		return nil, xerrors.ConfigError(KeyCodec, err)
	}

	o := &options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}

	r := &Relay{
		cfg:       cfg,
		bus:       bus,
		pub:       pub,
		codec:     codec,
		logger:    o.logger,
		forwarded: metrics.CounterOrDiscard(o.meter, metrics.MetricRelayForwarded, "已转发的心跳数"),
		failures:  metrics.CounterOrDiscard(o.meter, metrics.MetricRelayFailures, "心跳转发失败次数"),
	}
	r.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:          cfg.Subject,
		MaxRequests:   cfg.Breaker.MaxRequests,
		Interval:      cfg.Breaker.Interval,
		Timeout:       cfg.Breaker.Timeout,
		ReadyToTrip:   r.readyToTrip,
		OnStateChange: r.onStateChange,
	})

	r.logger.Info("heartbeat relay created",
		clog.String("subject", cfg.Subject),
		clog.String("codec", codec.Name()),
		clog.Float64("failure_ratio", cfg.Breaker.FailureRatio),
		clog.Int("minimum_requests", int(cfg.Breaker.MinimumRequests)))
	return r, nil
}

// Start 订阅心跳事件
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		return nil
	}
	r.sub = event.Subscribe[heartbeat.Event](r.bus, "relay", r)
	r.logger.InfoContext(ctx, "heartbeat relay started", clog.String("subject", r.cfg.Subject))
	return nil
}

// Stop 取消订阅，连接由调用方关闭
func (r *Relay) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub == nil {
		return nil
	}
	r.sub.Unsubscribe()
	r.sub = nil
	r.logger.InfoContext(ctx, "heartbeat relay stopped")
	return nil
}

// Phase 在心跳任务之前启动
func (r *Relay) Phase() int {
	return container.PhaseComponent
}

// OnEvent 实现 event.Listener
func (r *Relay) OnEvent(ctx context.Context, ev heartbeat.Event) error {
	return r.Forward(ctx, ev)
}

// Forward 编码并发布一条心跳
func (r *Relay) Forward(ctx context.Context, ev heartbeat.Event) error {
	msg := FromEvent(ev)
	service := metrics.L(metrics.LabelService, msg.ServiceName)

	data, err := r.codec.Marshal(msg)
	if err != nil {
		r.failures.Inc(ctx, service, metrics.L(metrics.LabelReason, reasonEncode))
		return xerrors.Wrap(err, "encode heartbeat")
	}

	_, err = r.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, r.pub.Publish(r.cfg.Subject, data)
	})
	switch {
	case err == nil:
		r.forwarded.Inc(ctx, service)
		return nil
	case xerrors.Is(err, gobreaker.ErrOpenState), xerrors.Is(err, gobreaker.ErrTooManyRequests):
		r.failures.Inc(ctx, service, metrics.L(metrics.LabelReason, reasonOpen))
		r.logger.DebugContext(ctx, "heartbeat dropped, breaker open", clog.String("service", msg.ServiceName))
		return xerrors.Wrap(err, "relay heartbeat")
	default:
		r.failures.Inc(ctx, service, metrics.L(metrics.LabelReason, reasonPublish))
		r.logger.WarnContext(ctx, "heartbeat publish failed",
			clog.String("service", msg.ServiceName),
			clog.String("subject", r.cfg.Subject),
			clog.Error(err))
		return xerrors.Wrap(err, "relay heartbeat")
	}
}

// BreakerState 返回熔断器当前状态
func (r *Relay) BreakerState() gobreaker.State {
	return r.breaker.State()
}

func (r *Relay) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < r.cfg.Breaker.MinimumRequests {
		return false
	}
	failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
	return failureRatio >= r.cfg.Breaker.FailureRatio
}

func (r *Relay) onStateChange(name string, from, to gobreaker.State) {
	r.logger.Info("relay breaker state changed",
		clog.String("subject", name),
		clog.String("from", from.String()),
		clog.String("to", to.String()))
}
