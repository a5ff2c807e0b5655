// Package container 是 pulse 运行时的组装点。
//
// Container 持有进程内共享的基础组件：日志、配置解析器、组件注册表、
// 事件总线、调度器和指标收集器，并通过 LifecycleManager 按阶段启动和
// 逆序停止业务组件。
//
//	c, err := container.New(
//		container.WithLogger(logger),
//		container.WithResolver(loader.Resolver()),
//		container.WithMeter(meter),
//	)
//	if err != nil {
//		return err
//	}
//	defer c.Close(context.Background())
//
//	c.Register("heartbeat", task)
//	if err := c.Start(ctx); err != nil {
//		return err
//	}
package container

import (
	"context"

	"github.com/ceyewan/pulse/clog"
	"github.com/ceyewan/pulse/config"
	"github.com/ceyewan/pulse/event"
	"github.com/ceyewan/pulse/metrics"
	"github.com/ceyewan/pulse/scheduler"
	"github.com/ceyewan/pulse/xerrors"
)

// Container 应用容器，拥有所有共享组件
type Container struct {
	// 日志组件
	Log clog.Logger
	// 配置解析器
	Config config.Resolver
	// 组件注册表
	Registry *ComponentRegistry
	// 事件总线
	Bus *event.Bus
	// 调度器
	Scheduler *scheduler.Scheduler
	// 指标收集器
	Meter metrics.Meter

	// 生命周期管理器
	lifecycleManager *LifecycleManager
}

// Option 容器选项
type Option func(*Container)

// WithLogger 设置日志记录器
func WithLogger(l clog.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.Log = l
		}
	}
}

// WithResolver 设置配置解析器
func WithResolver(r config.Resolver) Option {
	return func(c *Container) {
		if r != nil {
			c.Config = r
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(m metrics.Meter) Option {
	return func(c *Container) {
		if m != nil {
			c.Meter = m
		}
	}
}

// New 创建容器，未指定的组件使用空实现
func New(opts ...Option) (*Container, error) {
	c := &Container{
		Log:      clog.Discard(),
		Config:   config.FromMap(nil),
		Registry: NewRegistry(),
		Meter:    metrics.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Bus = event.New(event.WithLogger(c.Log), event.WithMeter(c.Meter))
	c.Scheduler = scheduler.New(scheduler.WithLogger(c.Log), scheduler.WithMeter(c.Meter))
	c.lifecycleManager = NewLifecycleManager(c.Log.WithNamespace("container"))
	return c, nil
}

// Register 注册生命周期对象，在 Start 时按阶段启动
func (c *Container) Register(name string, instance Lifecycle) {
	c.lifecycleManager.Register(name, instance)
}

// Start 启动所有已注册的生命周期对象
func (c *Container) Start(ctx context.Context) error {
	if err := c.lifecycleManager.StartAll(ctx); err != nil {
		return xerrors.Wrap(err, "start container")
	}
	return nil
}

// Close 逆序停止生命周期对象，然后关闭调度器和指标收集器
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	errs = append(errs, c.lifecycleManager.StopAll(ctx))
	errs = append(errs, c.Scheduler.Shutdown(ctx))
	errs = append(errs, c.Meter.Shutdown(ctx))

	err := xerrors.Combine(errs...)
	if err != nil {
		c.Log.Error("container close failed", clog.Error(err))
		return err
	}
	c.Log.Info("container closed")
	return nil
}
