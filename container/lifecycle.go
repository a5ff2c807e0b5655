package container

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ceyewan/pulse/clog"
	"github.com/ceyewan/pulse/xerrors"
)

// Phase 定义启动阶段的常量
const (
	PhaseConnector = 10 // 连接器阶段
	PhaseComponent = 20 // 组件阶段
	PhaseService   = 30 // 服务阶段
)

// Lifecycle 定义了可由容器管理生命周期的对象的行为
type Lifecycle interface {
	// Start 启动服务，Phase 越小越先启动
	Start(ctx context.Context) error
	// Stop 关闭服务，按启动的逆序调用
	Stop(ctx context.Context) error
	// Phase 返回启动阶段，用于排序
	Phase() int
}

// Hook 用函数描述的生命周期对象，nil 函数视为空操作
type Hook struct {
	Order   int
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

func (h Hook) Start(ctx context.Context) error {
	if h.OnStart == nil {
		return nil
	}
	return h.OnStart(ctx)
}

func (h Hook) Stop(ctx context.Context) error {
	if h.OnStop == nil {
		return nil
	}
	return h.OnStop(ctx)
}

func (h Hook) Phase() int { return h.Order }

// LifecycleItem 生命周期项目
type LifecycleItem struct {
	Name     string
	Instance Lifecycle
}

// LifecycleManager 生命周期管理器
//
// StartAll 按 Phase 升序启动，同一阶段保持注册顺序；StopAll 只停止已成功启动的对象，
// 顺序与启动相反。
type LifecycleManager struct {
	mu      sync.Mutex
	items   []*LifecycleItem
	started []*LifecycleItem
	logger  clog.Logger
}

// NewLifecycleManager 创建新的生命周期管理器
func NewLifecycleManager(logger clog.Logger) *LifecycleManager {
	if logger == nil {
		logger = clog.Discard()
	}
	return &LifecycleManager{logger: logger}
}

// Register 注册生命周期对象
func (m *LifecycleManager) Register(name string, instance Lifecycle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, &LifecycleItem{Name: name, Instance: instance})
}

// StartAll 按阶段顺序启动所有尚未启动的生命周期对象
//
// 任一对象启动失败时，已启动的对象会被逆序停止，并返回 *LifecycleError。
func (m *LifecycleManager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	pending := m.pendingLocked()
	m.mu.Unlock()

	for _, item := range pending {
		m.logger.Info("starting component",
			clog.String("component", item.Name),
			clog.Int("phase", item.Instance.Phase()))

		if err := item.Instance.Start(ctx); err != nil {
			lerr := &LifecycleError{Phase: item.Instance.Phase(), Name: item.Name, Cause: err}
			m.logger.Error("component start failed", clog.String("component", item.Name), clog.Error(err))
			_ = m.StopAll(ctx)
			return lerr
		}

		m.mu.Lock()
		m.started = append(m.started, item)
		m.mu.Unlock()
	}
	return nil
}

// pendingLocked 返回按阶段稳定排序的未启动对象
func (m *LifecycleManager) pendingLocked() []*LifecycleItem {
	pending := make([]*LifecycleItem, 0, len(m.items))
	for _, item := range m.items {
		if !slices.Contains(m.started, item) {
			pending = append(pending, item)
		}
	}
	slices.SortStableFunc(pending, func(a, b *LifecycleItem) int {
		return a.Instance.Phase() - b.Instance.Phase()
	})
	return pending
}

// StopAll 按逆序停止所有已启动的生命周期对象，返回合并后的错误
func (m *LifecycleManager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	started := m.started
	m.started = nil
	m.mu.Unlock()

	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		item := started[i]
		if err := item.Instance.Stop(ctx); err != nil {
			m.logger.Warn("component stop failed", clog.String("component", item.Name), clog.Error(err))
			errs = append(errs, &LifecycleError{Phase: item.Instance.Phase(), Name: item.Name, Cause: err})
			continue
		}
		m.logger.Info("component stopped", clog.String("component", item.Name))
	}
	return xerrors.Combine(errs...)
}

// GetItems 获取所有生命周期项目
func (m *LifecycleManager) GetItems() []LifecycleItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]LifecycleItem, len(m.items))
	for i, item := range m.items {
		items[i] = *item
	}
	return items
}

// LifecycleError 生命周期错误
type LifecycleError struct {
	Phase int
	Name  string
	Cause error
}

// Error 实现 error 接口
func (e *LifecycleError) Error() string {
	return fmt.Sprintf("lifecycle error in phase %d [%s]: %v", e.Phase, e.Name, e.Cause)
}

// Unwrap 支持错误链
func (e *LifecycleError) Unwrap() error {
	return e.Cause
}
