package heartbeat

import (
	"time"

	"github.com/ceyewan/pulse/condition"
)

// 配置键
const (
	KeyEnabled         = "heartbeat.enabled"
	KeyApplicationName = "application.name"
	KeyInterval        = "heartbeat.interval"
	KeyInitialDelay    = "heartbeat.initialDelay"
)

// EmbeddedServer 激活心跳所需的组件名
const EmbeddedServer = "embedded-server"

// 默认调度参数
const (
	DefaultInterval     = 15 * time.Second
	DefaultInitialDelay = 5 * time.Second
)

// ScheduleName 心跳在调度器中的名称
const ScheduleName = "heartbeat"

// DefaultConditions 返回心跳任务的默认激活条件
//
//   - heartbeat.enabled 为 "true"（缺省为 "true"）
//   - application.name 已配置
//   - 注册表中存在 embedded-server 组件
func DefaultConditions() condition.Condition {
	return condition.All(
		condition.Property(KeyEnabled, "true", "true"),
		condition.PropertyPresent(KeyApplicationName),
		condition.ComponentPresent(EmbeddedServer),
	)
}
