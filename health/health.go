// Package health 描述服务的健康状态。
//
// HealthStatus 是不可变的快照，每次查询都会得到新的值；Provider 负责产生快照，
// CurrentStatus 是最简单的 Provider，持有一个可被更新的当前状态。
package health

import (
	"context"
	"maps"
	"sync"
)

// Status 健康状态码
type Status string

const (
	StatusUp      Status = "UP"
	StatusDown    Status = "DOWN"
	StatusUnknown Status = "UNKNOWN"
)

// HealthStatus 健康状态快照
type HealthStatus struct {
	status      Status
	description string
	details     map[string]any
}

// New 创建健康状态快照，details 会被复制
func New(status Status, description string, details map[string]any) HealthStatus {
	return HealthStatus{status: status, description: description, details: maps.Clone(details)}
}

var (
	// Up 服务正常
	Up = New(StatusUp, "", nil)
	// Down 服务不可用
	Down = New(StatusDown, "", nil)
	// Unknown 状态未知
	Unknown = New(StatusUnknown, "", nil)
)

// Status 返回状态码
func (h HealthStatus) Status() Status { return h.status }

// Description 返回描述
func (h HealthStatus) Description() string { return h.description }

// Details 返回详情的副本
func (h HealthStatus) Details() map[string]any { return maps.Clone(h.details) }

// IsUp 状态是否为 UP
func (h HealthStatus) IsUp() bool { return h.status == StatusUp }

// WithDescription 返回带有新描述的副本
func (h HealthStatus) WithDescription(description string) HealthStatus {
	return New(h.status, description, h.details)
}

// Provider 健康状态提供者
type Provider interface {
	// Current 返回当前健康状态
	Current(ctx context.Context) (HealthStatus, error)
}

// ProviderFunc 函数适配器
type ProviderFunc func(ctx context.Context) (HealthStatus, error)

// Current 实现 Provider
func (f ProviderFunc) Current(ctx context.Context) (HealthStatus, error) { return f(ctx) }

// CurrentStatus 持有当前健康状态，初始为 UP
type CurrentStatus struct {
	mu      sync.RWMutex
	current HealthStatus
}

// NewCurrentStatus 创建 CurrentStatus
func NewCurrentStatus() *CurrentStatus {
	return &CurrentStatus{current: Up}
}

// Current 实现 Provider
func (c *CurrentStatus) Current(context.Context) (HealthStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, nil
}

// Update 替换当前状态并返回之前的状态
func (c *CurrentStatus) Update(status HealthStatus) HealthStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.current
	c.current = status
	return prev
}
