package heartbeat

import (
	"time"

	"github.com/ceyewan/pulse/discovery"
	"github.com/ceyewan/pulse/health"
)

// Event 心跳事件，每次调度在已捕获服务实例时发布一次
type Event struct {
	Instance *discovery.ServiceInstance
	Status   health.HealthStatus
	At       time.Time
}

// State 心跳任务状态
type State int32

const (
	// StateInactive 激活条件不满足，任务不会订阅事件也不会调度
	StateInactive State = iota
	// StateActivated 条件满足，尚未启动
	StateActivated
	// StateListening 已启动，尚未捕获服务实例
	StateListening
	// StatePulsing 已启动且已捕获服务实例，每次调度都会发布心跳
	StatePulsing
	// StateStopped 已停止
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActivated:
		return "activated"
	case StateListening:
		return "listening"
	case StatePulsing:
		return "pulsing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
