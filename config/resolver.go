package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ceyewan/pulse/xerrors"
)

// viperResolver 基于 *viper.Viper 的 Resolver 实现，每次读取时从 source 取实例
type viperResolver struct {
	source func() *viper.Viper
}

func fixed(v *viper.Viper) func() *viper.Viper {
	return func() *viper.Viper { return v }
}

// FromMap 用给定的键值创建 Resolver，key 支持 "a.b" 形式的层级
func FromMap(values map[string]any) Resolver {
	v := viper.New()
	for k, val := range values {
		v.Set(k, val)
	}
	return &viperResolver{source: fixed(v)}
}

// FromViper 包装已有的 viper 实例，调用方需保证读取期间不修改它
func FromViper(v *viper.Viper) Resolver {
	return &viperResolver{source: fixed(v)}
}

func (r *viperResolver) Lookup(key string) (string, bool) {
	v := r.source()
	if !v.IsSet(key) {
		return "", false
	}
	raw := v.Get(key)
	if raw == nil {
		return "", false
	}
	if s, ok := raw.(string); ok {
		return s, true
	}
	return fmt.Sprint(raw), true
}

func (r *viperResolver) String(key, def string) string {
	if s, ok := r.Lookup(key); ok {
		return s
	}
	return def
}

func (r *viperResolver) Bool(key string, def bool) (bool, error) {
	raw := r.source().Get(key)
	switch val := raw.(type) {
	case nil:
		return def, nil
	case bool:
		return val, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return def, nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return def, xerrors.ConfigError(key, err)
		}
		return b, nil
	default:
		return def, xerrors.ConfigError(key, fmt.Errorf("unsupported bool value %v (%T)", raw, raw))
	}
}

// Duration 只接受带单位的时长字符串或 time.Duration，裸整数视为格式错误
func (r *viperResolver) Duration(key string, def time.Duration) (time.Duration, error) {
	raw := r.source().Get(key)
	switch val := raw.(type) {
	case nil:
		return def, nil
	case time.Duration:
		return val, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return def, nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(val))
		if err != nil {
			return def, xerrors.ConfigError(key, err)
		}
		return d, nil
	default:
		return def, xerrors.ConfigError(key, fmt.Errorf("unsupported duration value %v (%T)", raw, raw))
	}
}
