// Package event 提供进程内的同步事件总线。
//
// 特性：
//   - 按事件的具体 Go 类型分发，监听器只会收到自己订阅的类型，不支持通配
//   - 同一类型的监听器按订阅顺序依次调用
//   - 同步分发：Publish 在所有监听器返回后才返回
//   - 监听器之间相互隔离：某个监听器返回错误或 panic 只会被记录，
//     不会阻止后续监听器收到事件，也不会传播给发布方
//
// 基本使用：
//
//	bus := event.New(event.WithLogger(logger))
//	sub := event.SubscribeFunc(bus, "capture", func(ctx context.Context, e discovery.ServiceStartedEvent) error {
//		slot.Store(e.Instance)
//		return nil
//	})
//	defer sub.Unsubscribe()
//
//	_ = bus.Publish(ctx, discovery.ServiceStartedEvent{Instance: inst})
//
// 监听器运行在发布方的 goroutine 上，耗时操作应自行转交到其他 goroutine。
package event

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/ceyewan/pulse/clog"
	"github.com/ceyewan/pulse/metrics"
	"github.com/ceyewan/pulse/xerrors"
)

// Publisher 事件发布能力
type Publisher interface {
	// Publish 同步分发事件，返回值仅用于观测，调用方可以忽略
	Publish(ctx context.Context, event any) error
}

// Listener 类型为 E 的事件监听器
type Listener[E any] interface {
	OnEvent(ctx context.Context, event E) error
}

// ListenerFunc 函数适配器
type ListenerFunc[E any] func(ctx context.Context, event E) error

// OnEvent 实现 Listener
func (f ListenerFunc[E]) OnEvent(ctx context.Context, event E) error {
	return f(ctx, event)
}

// Bus 同步事件总线，并发安全
type Bus struct {
	mu        sync.RWMutex
	listeners map[reflect.Type][]*entry
	nextID    uint64

	logger    clog.Logger
	published metrics.Counter
	failures  metrics.Counter
}

type entry struct {
	id     uint64
	name   string
	invoke func(ctx context.Context, event any) error
}

// New 创建事件总线
func New(opts ...Option) *Bus {
	o := &options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return &Bus{
		listeners: make(map[reflect.Type][]*entry),
		logger:    o.logger,
		published: metrics.CounterOrDiscard(o.meter, metrics.MetricEventPublished, "已发布的事件数"),
		failures:  metrics.CounterOrDiscard(o.meter, metrics.MetricEventListenerFailures, "事件监听器执行失败次数"),
	}
}

// Subscribe 为类型 E 注册监听器
//
// E 应为具体类型：分发按事件的动态类型精确匹配，订阅接口类型不会收到任何事件。
func Subscribe[E any](b *Bus, name string, l Listener[E]) *Subscription {
	typ := reflect.TypeFor[E]()
	return b.add(typ, name, func(ctx context.Context, event any) error {
		return l.OnEvent(ctx, event.(E))
	})
}

// SubscribeFunc 以函数形式注册监听器
func SubscribeFunc[E any](b *Bus, name string, fn func(ctx context.Context, event E) error) *Subscription {
	return Subscribe[E](b, name, ListenerFunc[E](fn))
}

func (b *Bus) add(typ reflect.Type, name string, invoke func(context.Context, any) error) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	e := &entry{id: b.nextID, name: name, invoke: invoke}
	b.listeners[typ] = append(b.listeners[typ], e)

	b.logger.Debug("listener subscribed",
		clog.String("event", typ.String()),
		clog.String("listener", name))

	return &Subscription{bus: b, typ: typ, id: e.id}
}

func (b *Bus) remove(typ reflect.Type, id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.listeners[typ]
	for i, e := range entries {
		if e.id != id {
			continue
		}
		// 复制而非原地修改，正在进行的 Publish 持有旧切片
		next := make([]*entry, 0, len(entries)-1)
		next = append(next, entries[:i]...)
		next = append(next, entries[i+1:]...)
		if len(next) == 0 {
			delete(b.listeners, typ)
		} else {
			b.listeners[typ] = next
		}
		return true
	}
	return false
}

// Publish 将事件同步分发给该类型的全部监听器
//
// 每个监听器的错误和 panic 都被单独捕获、记录，并带上 CodeListenerFailed
// 合并后返回；没有监听器时返回 nil。
func (b *Bus) Publish(ctx context.Context, event any) error {
	if event == nil {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "publish nil event")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	typ := reflect.TypeOf(event)
	b.mu.RLock()
	entries := b.listeners[typ]
	b.mu.RUnlock()

	b.published.Inc(ctx, metrics.L(metrics.LabelEvent, typ.String()))

	var errs []error
	for _, e := range entries {
		if err := b.deliver(ctx, e, event); err != nil {
			b.failures.Inc(ctx, metrics.L(metrics.LabelEvent, typ.String()))
			b.logger.ErrorContext(ctx, "event listener failed",
				clog.String("event", typ.String()),
				clog.String("listener", e.name),
				clog.Error(err))
			errs = append(errs, err)
		}
	}
	return xerrors.Combine(errs...)
}

// deliver 调用单个监听器，panic 转为错误
func (b *Bus) deliver(ctx context.Context, e *entry, event any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
		if err != nil {
			err = xerrors.WithCode(xerrors.Wrapf(err, "listener %s", e.name), xerrors.CodeListenerFailed)
		}
	}()
	return e.invoke(ctx, event)
}

// ListenerCount 返回类型 E 当前的监听器数量
func ListenerCount[E any](b *Bus) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[reflect.TypeFor[E]()])
}

// Subscription 订阅句柄
type Subscription struct {
	bus  *Bus
	typ  reflect.Type
	id   uint64
	once sync.Once
}

// Unsubscribe 取消订阅，可重复调用
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.typ, s.id)
	})
}
