package relay

import (
	"time"

	"github.com/ceyewan/pulse/config"
	"github.com/ceyewan/pulse/xerrors"
)

// 配置键
const (
	KeyEnabled = "heartbeat.relay.enabled"
	KeyURL     = "heartbeat.relay.url"
	KeySubject = "heartbeat.relay.subject"
	KeyCodec   = "heartbeat.relay.codec"
)

// Config 心跳转发配置
type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
	Codec   string `mapstructure:"codec"` // json | msgpack

	// NATS 连接参数
	Name          string        `mapstructure:"name"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	Timeout       time.Duration `mapstructure:"timeout"`

	// 熔断参数
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	// MaxRequests 半开状态允许通过的请求数
	MaxRequests uint32 `mapstructure:"max_requests"`
	// Interval 闭合状态下清空计数的周期，0 表示不清空
	Interval time.Duration `mapstructure:"interval"`
	// Timeout 打开状态持续时间，之后进入半开
	Timeout time.Duration `mapstructure:"timeout"`
	// FailureRatio 触发熔断的失败率
	FailureRatio float64 `mapstructure:"failure_ratio"`
	// MinimumRequests 计算失败率前的最少请求数
	MinimumRequests uint32 `mapstructure:"minimum_requests"`
}

// DefaultConfig 返回默认配置，转发默认关闭
func DefaultConfig() *Config {
	return &Config{
		Enabled:       false,
		URL:           "nats://127.0.0.1:4222",
		Subject:       "heartbeat",
		Codec:         CodecJSON,
		Name:          "pulse-heartbeat-relay",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
		Timeout:       5 * time.Second,
		Breaker: BreakerConfig{
			MaxRequests:     1,
			Interval:        time.Minute,
			Timeout:         30 * time.Second,
			FailureRatio:    0.6,
			MinimumRequests: 5,
		},
	}
}

// LoadConfig 从配置解析器读取转发配置，未配置的项使用默认值
func LoadConfig(r config.Resolver) (*Config, error) {
	cfg := DefaultConfig()

	enabled, err := r.Bool(KeyEnabled, cfg.Enabled)
	if err != nil {
		return nil, err
	}
	cfg.Enabled = enabled
	cfg.URL = r.String(KeyURL, cfg.URL)
	cfg.Subject = r.String(KeySubject, cfg.Subject)
	cfg.Codec = r.String(KeyCodec, cfg.Codec)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Subject == "" {
		return xerrors.ConfigError(KeySubject, xerrors.New("subject is empty"))
	}
	if c.Enabled && c.URL == "" {
		return xerrors.ConfigError(KeyURL, xerrors.New("url is empty"))
	}
	if _, err := NewCodec(c.Codec); err != nil {
		return xerrors.ConfigError(KeyCodec, err)
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "breaker failure ratio %v out of range", c.Breaker.FailureRatio)
	}
	return nil
}
