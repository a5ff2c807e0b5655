package metrics

// 运行时内置指标名
const (
	MetricEventPublished        = "event_published_total"
	MetricEventListenerFailures = "event_listener_failures_total"
	MetricSchedulerTicks        = "scheduler_ticks_total"
	MetricSchedulerTickFailures = "scheduler_tick_failures_total"
	MetricSchedulerTickDuration = "scheduler_tick_duration_seconds"
	MetricSchedulerActive       = "scheduler_active_schedules"
	MetricHeartbeatPublished    = "heartbeat_published_total"
	MetricHeartbeatSkipped      = "heartbeat_skipped_total"
	MetricRelayForwarded        = "relay_forwarded_total"
	MetricRelayFailures         = "relay_failures_total"
)

// 常见的标签
const (
	LabelEvent    = "event"
	LabelSchedule = "schedule"
	LabelService  = "service"
	LabelReason   = "reason"
	LabelOutcome  = "outcome"
)

// 常见的结果
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)
