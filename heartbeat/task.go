// Package heartbeat 在服务运行期间周期性地发布心跳事件。
//
// 心跳任务在构造时对激活条件求值一次。条件满足时，Start 订阅
// discovery.ServiceStartedEvent 并按 heartbeat.initialDelay / heartbeat.interval
// 注册固定延迟调度；每次调度读取最近一次捕获的服务实例，连同当前健康状态
// 发布 Event。捕获实例之前的调度不做任何事。
//
//	task, err := heartbeat.NewTask(heartbeat.Deps{
//		Resolver:  c.Config,
//		Registry:  c.Registry,
//		Bus:       c.Bus,
//		Scheduler: c.Scheduler,
//		Health:    status,
//	}, heartbeat.WithLogger(c.Log), heartbeat.WithMeter(c.Meter))
//	if err != nil {
//		return err
//	}
//	c.Register("heartbeat", task)
//
// ServiceStoppedEvent 不会清除已捕获的实例，任务始终保留最后一次已知的实例。
package heartbeat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ceyewan/pulse/clog"
	"github.com/ceyewan/pulse/condition"
	"github.com/ceyewan/pulse/config"
	"github.com/ceyewan/pulse/container"
	"github.com/ceyewan/pulse/discovery"
	"github.com/ceyewan/pulse/event"
	"github.com/ceyewan/pulse/health"
	"github.com/ceyewan/pulse/metrics"
	"github.com/ceyewan/pulse/scheduler"
	"github.com/ceyewan/pulse/xerrors"
)

// Deps 心跳任务的依赖
type Deps struct {
	Resolver  config.Resolver
	Registry  container.Registry
	Bus       *event.Bus
	Scheduler *scheduler.Scheduler
	Health    health.Provider
}

// 跳过原因
const (
	reasonNoInstance   = "no_instance"
	reasonHealthFailed = "health_failed"
)

// 生命周期阶段，与是否已捕获实例共同决定 State
const (
	stageInactive int32 = iota
	stageActivated
	stageStarted
	stageStopped
)

// Task 心跳任务
type Task struct {
	deps Deps
	spec scheduler.Spec

	stage atomic.Int32
	slot  atomic.Pointer[discovery.ServiceInstance]

	mu     sync.Mutex
	sub    *event.Subscription
	handle *scheduler.Handle

	logger    clog.Logger
	published metrics.Counter
	skipped   metrics.Counter
}

// NewTask 对激活条件求值并创建心跳任务
//
// 条件不满足时返回处于 StateInactive 的任务，它的 Start/Stop 均为空操作。
// 条件求值出错或调度参数非法时返回错误，不创建任务。
func NewTask(deps Deps, opts ...Option) (*Task, error) {
	o := &options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	if deps.Resolver == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "heartbeat: resolver is required")
	}

	t := &Task{
		deps:      deps,
		logger:    o.logger,
		published: metrics.CounterOrDiscard(o.meter, metrics.MetricHeartbeatPublished, "已发布的心跳数"),
		skipped:   metrics.CounterOrDiscard(o.meter, metrics.MetricHeartbeatSkipped, "被跳过的心跳调度数"),
	}

	cond := condition.All(append([]condition.Condition{DefaultConditions()}, o.conditions...)...)
	unmet, err := condition.FirstUnmet(cond, deps.Resolver, deps.Registry)
	if err != nil {
		t.logger.Error("heartbeat activation failed", clog.String("condition", unmet), clog.Error(err))
		return nil, xerrors.Wrap(err, "heartbeat activation")
	}
	if unmet != "" {
		t.logger.Info("heartbeat inactive", clog.String("unmet", unmet))
		return t, nil
	}

	if deps.Bus == nil || deps.Scheduler == nil || deps.Health == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "heartbeat: bus, scheduler and health provider are required")
	}

	spec, err := scheduler.ResolveSpec(deps.Resolver, KeyInterval, DefaultInterval, KeyInitialDelay, DefaultInitialDelay)
	if err != nil {
		t.logger.Error("invalid heartbeat schedule", clog.Error(err))
		return nil, xerrors.Wrap(err, "heartbeat activation")
	}
	t.spec = spec
	t.stage.Store(stageActivated)

	t.logger.Info("heartbeat activated",
		clog.String("application", deps.Resolver.String(KeyApplicationName, "")),
		clog.Duration("interval", spec.Period),
		clog.Duration("initial_delay", spec.InitialDelay))
	return t, nil
}

// Start 订阅服务启动事件并注册调度，仅对已激活的任务生效，重复调用无副作用
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stage.Load() != stageActivated {
		return nil
	}

	t.sub = event.Subscribe[discovery.ServiceStartedEvent](t.deps.Bus, "heartbeat", t)
	handle, err := t.deps.Scheduler.ScheduleSpec(ScheduleName, t.Pulsate, t.spec)
	if err != nil {
		t.sub.Unsubscribe()
		t.sub = nil
		return xerrors.Wrap(err, "heartbeat start")
	}
	t.handle = handle
	t.stage.Store(stageStarted)

	t.logger.InfoContext(ctx, "heartbeat started")
	return nil
}

// Stop 取消调度和订阅，等待执行中的调度结束（受 ctx 约束）
func (t *Task) Stop(ctx context.Context) error {
	t.mu.Lock()
	if t.stage.Load() != stageStarted {
		t.mu.Unlock()
		return nil
	}
	t.stage.Store(stageStopped)
	handle, sub := t.handle, t.sub
	t.mu.Unlock()

	handle.Cancel()
	sub.Unsubscribe()

	select {
	case <-handle.Done():
	case <-ctx.Done():
		return xerrors.Wrap(ctx.Err(), "heartbeat stop")
	}
	t.logger.InfoContext(ctx, "heartbeat stopped")
	return nil
}

// Phase 实现 container.Lifecycle
func (t *Task) Phase() int {
	return container.PhaseService
}

// OnEvent 实现 event.Listener，转发到 OnServiceStarted
func (t *Task) OnEvent(ctx context.Context, ev discovery.ServiceStartedEvent) error {
	return t.OnServiceStarted(ctx, ev)
}

// OnServiceStarted 记录服务实例，多次调用以最后一次为准
func (t *Task) OnServiceStarted(ctx context.Context, ev discovery.ServiceStartedEvent) error {
	if ev.Instance == nil {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "service started event without instance")
	}
	prev := t.slot.Swap(ev.Instance)
	if prev == nil {
		t.logger.InfoContext(ctx, "service instance captured", clog.String("instance", ev.Instance.String()))
	} else if prev.ID != ev.Instance.ID {
		t.logger.InfoContext(ctx, "service instance replaced",
			clog.String("previous", prev.String()),
			clog.String("instance", ev.Instance.String()))
	}
	return nil
}

// Pulsate 执行一次心跳
//
// 尚未捕获实例时直接返回；健康状态查询失败时跳过本次并返回错误，由调度器记录。
// 心跳事件的监听器错误不影响本次心跳。
func (t *Task) Pulsate(ctx context.Context) error {
	inst := t.slot.Load()
	if inst == nil {
		t.skipped.Inc(ctx, metrics.L(metrics.LabelReason, reasonNoInstance))
		return nil
	}

	status, err := t.deps.Health.Current(ctx)
	if err != nil {
		t.skipped.Inc(ctx,
			metrics.L(metrics.LabelService, inst.Name),
			metrics.L(metrics.LabelReason, reasonHealthFailed))
		return xerrors.Wrap(err, "query health status")
	}

	ev := Event{Instance: inst, Status: status, At: time.Now()}
	if err := t.deps.Bus.Publish(ctx, ev); err != nil {
		t.logger.DebugContext(ctx, "heartbeat listeners reported errors", clog.Error(err))
	}
	t.published.Inc(ctx, metrics.L(metrics.LabelService, inst.Name))
	return nil
}

// State 返回当前状态
func (t *Task) State() State {
	switch t.stage.Load() {
	case stageInactive:
		return StateInactive
	case stageActivated:
		return StateActivated
	case stageStopped:
		return StateStopped
	}
	if t.slot.Load() == nil {
		return StateListening
	}
	return StatePulsing
}

// Instance 返回已捕获的服务实例，尚未捕获时返回 nil
func (t *Task) Instance() *discovery.ServiceInstance {
	return t.slot.Load()
}

// Spec 返回解析后的调度参数
func (t *Task) Spec() scheduler.Spec {
	return t.spec
}
