// Package config 为 pulse 运行时提供配置解析能力，基于 Viper 实现。
//
// 运行时核心只依赖 Resolver：按 key 读取字符串、布尔值和时长，缺省时回退到
// 调用方给出的默认值。Loader 负责从文件、.env 和环境变量加载配置，并提供
// 一个与其共享数据的 Resolver。
//
// 基本使用：
//
//	loader, _ := config.New(
//		config.WithConfigName("application"),
//		config.WithConfigPaths("./config"),
//		config.WithEnvPrefix("PULSE"),
//	)
//	if err := loader.Load(ctx); err != nil {
//		panic(err)
//	}
//
//	r := loader.Resolver()
//	interval, err := r.Duration("heartbeat.interval", 15*time.Second)
//
// 测试或嵌入场景：
//
//	r := config.FromMap(map[string]any{"application.name": "svc"})
package config

import (
	"context"
	"time"
)

// Resolver 按 key 解析配置值
//
// key 不区分大小写，层级以 "." 分隔。
// Bool 和 Duration 在值存在但格式非法时返回满足 IsInvalidInput 的错误。
type Resolver interface {
	// Lookup 返回 key 对应值的字符串形式，以及 key 是否存在
	Lookup(key string) (string, bool)

	// String 返回字符串值，不存在时返回 def
	String(key, def string) string

	// Bool 返回布尔值，不存在时返回 def
	Bool(key string, def bool) (bool, error)

	// Duration 返回时长（如 "15s"），不存在时返回 def
	Duration(key string, def time.Duration) (time.Duration, error)
}

// Loader 定义配置加载器的核心行为
// 职责：加载、解析和监听配置变化
type Loader interface {
	// Load 加载配置并初始化内部状态
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听配置变化，通过 context 取消监听
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Resolver 返回基于当前已加载配置的解析器
	Resolver() Resolver
}

// Event 配置变更事件
type Event struct {
	Key       string // 配置 key
	Value     any    // 新值
	OldValue  any    // 旧值
	Source    string // "file"
	Timestamp time.Time
}
