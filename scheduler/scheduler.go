// Package scheduler 提供固定延迟（fixed-delay）的周期任务调度。
//
// 每个调度拥有独立的 goroutine：首次执行在 initialDelay 之后，之后每次执行
// 都在上一次执行结束后再等待 period，因此同一调度不会重叠执行，慢执行也不会
// 造成积压。
//
//	sched := scheduler.New(scheduler.WithLogger(logger), scheduler.WithMeter(meter))
//	h, err := sched.Schedule("heartbeat", task.Pulsate, 5*time.Second, 15*time.Second)
//	if err != nil {
//		return err
//	}
//	defer h.Cancel()
//
// 单次执行返回的错误或 panic 只会被记录和计数，不会终止调度。
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ceyewan/pulse/clog"
	"github.com/ceyewan/pulse/metrics"
	"github.com/ceyewan/pulse/xerrors"
)

// Action 被调度执行的动作
//
// ctx 在调度被取消时随之取消，动作可据此提前结束；调度器不会强行中断执行中的动作。
type Action func(ctx context.Context) error

// Scheduler 固定延迟调度器，并发安全
type Scheduler struct {
	mu      sync.Mutex
	handles map[uint64]*Handle
	nextID  uint64
	closed  bool

	logger   clog.Logger
	ticks    metrics.Counter
	failures metrics.Counter
	duration metrics.Histogram
	active   metrics.Gauge
}

// New 创建调度器
func New(opts ...Option) *Scheduler {
	o := &options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return &Scheduler{
		handles:  make(map[uint64]*Handle),
		logger:   o.logger,
		ticks:    metrics.CounterOrDiscard(o.meter, metrics.MetricSchedulerTicks, "调度执行次数"),
		failures: metrics.CounterOrDiscard(o.meter, metrics.MetricSchedulerTickFailures, "调度执行失败次数"),
		duration: metrics.HistogramOrDiscard(o.meter, metrics.MetricSchedulerTickDuration, "单次调度执行耗时", metrics.WithUnit("s")),
		active:   metrics.GaugeOrDiscard(o.meter, metrics.MetricSchedulerActive, "当前活跃的调度数"),
	}
}

// Schedule 注册固定延迟调度
//
// initialDelay 和 period 均不能为负；period 为 0 表示上一次执行结束后立即开始下一次。
// 调度器已关闭时返回 ErrClosed。
func (s *Scheduler) Schedule(name string, action Action, initialDelay, period time.Duration) (*Handle, error) {
	if action == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "action is required")
	}
	if err := (Spec{InitialDelay: initialDelay, Period: period}).Validate(); err != nil {
		return nil, xerrors.Wrapf(err, "schedule %s", name)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, xerrors.Wrapf(xerrors.ErrClosed, "schedule %s", name)
	}
	s.nextID++
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		id:           s.nextID,
		name:         name,
		initialDelay: initialDelay,
		period:       period,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	s.handles[h.id] = h
	s.mu.Unlock()

	s.active.Inc(ctx)
	s.logger.Info("schedule registered",
		clog.String("schedule", name),
		clog.Duration("initial_delay", initialDelay),
		clog.Duration("period", period))

	go s.run(h, action)
	return h, nil
}

// run 调度主循环
func (s *Scheduler) run(h *Handle, action Action) {
	defer func() {
		s.release(h)
		close(h.done)
	}()

	timer := time.NewTimer(h.initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-timer.C:
		}
		// 取消与到期同时就绪时，以取消为准
		if h.ctx.Err() != nil {
			return
		}

		s.fire(h, action)
		timer.Reset(h.period)
	}
}

// fire 执行一次动作，错误与 panic 均被吸收
func (s *Scheduler) fire(h *Handle, action Action) {
	start := time.Now()
	err := invoke(h.ctx, action)
	elapsed := time.Since(start)

	label := metrics.L(metrics.LabelSchedule, h.name)
	s.duration.Record(h.ctx, elapsed.Seconds(), label)

	if err != nil {
		err = xerrors.WithCode(xerrors.Wrapf(err, "schedule %s", h.name), xerrors.CodeTickFailed)
		s.ticks.Inc(h.ctx, label, metrics.L(metrics.LabelOutcome, metrics.OutcomeError))
		s.failures.Inc(h.ctx, label)
		s.logger.Error("scheduled action failed",
			clog.String("schedule", h.name),
			clog.Duration("elapsed", elapsed),
			clog.Error(err))
		return
	}

	s.ticks.Inc(h.ctx, label, metrics.L(metrics.LabelOutcome, metrics.OutcomeSuccess))
	s.logger.Debug("scheduled action completed",
		clog.String("schedule", h.name),
		clog.Duration("elapsed", elapsed))
}

func invoke(ctx context.Context, action Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panic: %v", r)
		}
	}()
	return action(ctx)
}

func (s *Scheduler) release(h *Handle) {
	s.mu.Lock()
	_, ok := s.handles[h.id]
	delete(s.handles, h.id)
	s.mu.Unlock()

	if ok {
		s.active.Dec(context.Background())
		s.logger.Info("schedule stopped", clog.String("schedule", h.name))
	}
}

// Active 返回当前仍在运行的调度数
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Shutdown 取消全部调度并等待其退出
//
// 调用后不再接受新的调度。等待受 ctx 约束，超时返回 ctx 的错误，
// 此时仍在执行中的动作会在结束后自行退出。
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	handles := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
	for _, h := range handles {
		select {
		case <-h.Done():
		case <-ctx.Done():
			return xerrors.Wrap(ctx.Err(), "scheduler shutdown")
		}
	}
	return nil
}

// Handle 调度句柄
type Handle struct {
	id           uint64
	name         string
	initialDelay time.Duration
	period       time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Name 返回调度名称
func (h *Handle) Name() string { return h.name }

// Cancel 停止后续执行，执行中的动作会运行完毕。可重复调用。
func (h *Handle) Cancel() {
	h.cancel()
}

// Done 调度循环退出后关闭
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait 阻塞直到调度循环退出
func (h *Handle) Wait() {
	<-h.done
}

// Cancelled 报告句柄是否已被取消
func (h *Handle) Cancelled() bool {
	return h.ctx.Err() != nil
}
