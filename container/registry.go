package container

import (
	"sync"

	"github.com/ceyewan/pulse/xerrors"
)

// Registry 组件存在性查询
type Registry interface {
	// Has 报告名为 name 的组件是否已注册
	Has(name string) bool
}

// ComponentRegistry 按名称登记组件实例，并发安全
type ComponentRegistry struct {
	mu         sync.RWMutex
	components map[string]any
	order      []string
}

// NewRegistry 创建空的组件注册表
func NewRegistry() *ComponentRegistry {
	return &ComponentRegistry{components: make(map[string]any)}
}

// Register 登记组件，名称为空或重复时返回 ErrInvalidInput
func (r *ComponentRegistry) Register(name string, component any) error {
	if name == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "component name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.components[name]; ok {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "component %q already registered", name)
	}
	r.components[name] = component
	r.order = append(r.order, name)
	return nil
}

// Has 实现 Registry
func (r *ComponentRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.components[name]
	return ok
}

// Get 返回组件实例
func (r *ComponentRegistry) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[name]
	return c, ok
}

// Names 按注册顺序返回所有组件名
func (r *ComponentRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Lookup 按名称取出组件并断言为 T
func Lookup[T any](r *ComponentRegistry, name string) (T, error) {
	var zero T
	c, ok := r.Get(name)
	if !ok {
		return zero, xerrors.Wrapf(xerrors.ErrNotFound, "component %q", name)
	}
	typed, ok := c.(T)
	if !ok {
		return zero, xerrors.Wrapf(xerrors.ErrInvalidInput, "component %q has type %T", name, c)
	}
	return typed, nil
}
