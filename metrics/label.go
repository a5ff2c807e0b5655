package metrics

// Label 指标标签，用于为指标添加维度
//
// 标签值应相对稳定，避免使用实例 ID 这类高基数取值。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数
//
//	counter.Inc(ctx, metrics.L("event", "heartbeat.Event"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}
