package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/pulse/clog"
	"github.com/ceyewan/pulse/xerrors"
)

// loader 实现 Loader 接口
//
// v 只在 Load 和 viper 的文件监听协程中读写；其他读取都走 snap，
// snap 是每次加载后生成的只读副本。
type loader struct {
	v         *viper.Viper
	snap      atomic.Pointer[viper.Viper]
	opts      *Config
	mu        sync.RWMutex
	watches   map[string][]chan Event
	oldValues map[string]any
}

func newLoader(opts *Config) *loader {
	l := &loader{
		v:         viper.New(),
		opts:      opts,
		watches:   make(map[string][]chan Event),
		oldValues: make(map[string]any),
	}
	l.snap.Store(viper.New())
	return l
}

// Load 初始化并从所有来源加载配置
//
// 优先级：环境变量 > .env > 环境特定配置 > 基础配置。
// 配置文件不存在不是错误，运行时核心的每个 key 都有默认值。
func (l *loader) Load(ctx context.Context) error {
	l.v.SetConfigName(l.opts.Name)
	l.v.SetConfigType(l.opts.FileType)
	for _, path := range l.opts.Paths {
		l.v.AddConfigPath(path)
	}

	l.v.SetEnvPrefix(l.opts.EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.loadDotEnv(); err != nil {
		l.opts.logger.Debug("no .env file loaded", clog.Error(err))
	}

	fileFound := true
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return WrapLoadError(err, l.opts.Name)
		}
		fileFound = false
		l.opts.logger.Warn("no configuration file found",
			clog.String("name", l.opts.Name),
			clog.Any("paths", l.opts.Paths))
	}

	if err := l.loadEnvironmentConfig(); err != nil {
		return err
	}

	l.refreshSnapshot()
	l.captureCurrentValues()

	file := l.v.ConfigFileUsed()
	if fileFound {
		l.v.OnConfigChange(func(e fsnotify.Event) {
			if err := l.loadEnvironmentConfig(); err != nil {
				l.opts.logger.Error("reload environment config failed", clog.Error(err))
			}
			l.refreshSnapshot()
			l.notifyWatches(e)
		})
		l.v.WatchConfig()
	}

	l.opts.logger.Info("configuration loaded",
		clog.String("file", file),
		clog.String("env_prefix", l.opts.EnvPrefix))
	return nil
}

// loadDotEnv 尝试从工作目录和搜索路径加载 .env 文件
func (l *loader) loadDotEnv() error {
	var envLoaded bool
	var lastErr error

	candidates := []string{".env"}
	for _, path := range l.opts.Paths {
		candidates = append(candidates, filepath.Join(path, ".env"))
	}
	for _, p := range candidates {
		if err := godotenv.Load(p); err == nil {
			envLoaded = true
		} else {
			lastErr = err
		}
	}

	if !envLoaded && lastErr != nil {
		return lastErr
	}
	return nil
}

// loadEnvironmentConfig 按 <PREFIX>_ENV 合并环境特定配置文件，如 application.dev.yaml
func (l *loader) loadEnvironmentConfig() error {
	env := os.Getenv(fmt.Sprintf("%s_ENV", l.opts.EnvPrefix))
	if env == "" {
		return nil
	}

	envConfigName := fmt.Sprintf("%s.%s", l.opts.Name, env)
	l.v.SetConfigName(envConfigName)
	defer l.v.SetConfigName(l.opts.Name)

	if err := l.v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return xerrors.Wrapf(err, "failed to merge environment config %s", envConfigName)
		}
		l.opts.logger.Info("no environment configuration file", clog.String("env", env))
		return nil
	}
	l.opts.logger.Info("loaded environment configuration", clog.String("env", env))
	return nil
}

// refreshSnapshot 把当前配置复制为新的只读 viper 实例，环境变量仍在读取时解析
func (l *loader) refreshSnapshot() {
	snap := viper.New()
	snap.SetEnvPrefix(l.opts.EnvPrefix)
	snap.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	snap.AutomaticEnv()
	if err := snap.MergeConfigMap(l.v.AllSettings()); err != nil {
		l.opts.logger.Error("snapshot configuration failed", clog.Error(err))
		return
	}
	l.snap.Store(snap)
}

func (l *loader) current() *viper.Viper {
	return l.snap.Load()
}

func (l *loader) captureCurrentValues() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key := range l.watches {
		l.oldValues[key] = l.current().Get(key)
	}
}

// Get 根据 key 获取原始配置值
func (l *loader) Get(key string) any {
	return l.current().Get(key)
}

// UnmarshalKey 将特定配置 key 反序列化到结构体
func (l *loader) UnmarshalKey(key string, v any) error {
	return l.current().UnmarshalKey(key, v)
}

// Resolver 返回跟随加载器的解析器，文件热更新后立即可见
func (l *loader) Resolver() Resolver {
	return &viperResolver{source: l.current}
}

// Watch 订阅特定配置 key 的变更，ctx 取消后通道关闭
func (l *loader) Watch(ctx context.Context, key string) (<-chan Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan Event, 10)
	l.watches[key] = append(l.watches[key], ch)
	l.oldValues[key] = l.current().Get(key)

	go func() {
		<-ctx.Done()
		l.removeWatch(key, ch)
	}()

	return ch, nil
}

func (l *loader) removeWatch(key string, ch chan Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	chans := l.watches[key]
	for i, c := range chans {
		if c == ch {
			l.watches[key] = append(chans[:i], chans[i+1:]...)
			break
		}
	}
	if len(l.watches[key]) == 0 {
		delete(l.watches, key)
		delete(l.oldValues, key)
	}
	close(ch)
}

// notifyWatches 对比新旧值，通知发生变化的 key 的监听者
func (l *loader) notifyWatches(_ fsnotify.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := l.current()
	for key, channels := range l.watches {
		newValue := snap.Get(key)
		oldValue := l.oldValues[key]
		if reflect.DeepEqual(oldValue, newValue) {
			continue
		}

		event := Event{
			Key:       key,
			Value:     newValue,
			OldValue:  oldValue,
			Source:    "file",
			Timestamp: time.Now(),
		}
		l.oldValues[key] = newValue

		for _, ch := range channels {
			select {
			case ch <- event:
			default:
				l.opts.logger.Warn("watch channel is full", clog.String("key", key))
			}
		}
	}
}
