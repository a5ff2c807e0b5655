package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/pulse/xerrors"
)

// TestLoaderLoad 测试配置加载的完整流程和优先级
func TestLoaderLoad(t *testing.T) {
	tmpDir := t.TempDir()

	base := `
application:
  name: "base-app"
heartbeat:
  enabled: "true"
  interval: "15s"
`
	dev := `
heartbeat:
  interval: "3s"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "application.yaml"), []byte(base), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "application.dev.yaml"), []byte(dev), 0o644))

	t.Setenv("PULSETEST_ENV", "dev")
	t.Setenv("PULSETEST_HEARTBEAT_ENABLED", "false")

	loader, err := New(
		WithConfigPaths(tmpDir),
		WithEnvPrefix("pulsetest"),
	)
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	r := loader.Resolver()

	// 基础配置
	assert.Equal(t, "base-app", r.String("application.name", ""))

	// 环境特定配置覆盖基础配置
	interval, err := r.Duration("heartbeat.interval", 15*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, interval)

	// 环境变量优先级最高
	enabled, err := r.Bool("heartbeat.enabled", true)
	require.NoError(t, err)
	assert.False(t, enabled)

	// 不存在的 key 回退默认值
	delay, err := r.Duration("heartbeat.initialDelay", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, delay)
}

// TestLoaderLoadWithoutFile 配置文件不存在时仍可加载，所有值走默认
func TestLoaderLoadWithoutFile(t *testing.T) {
	loader, err := New(
		WithConfigName("missing"),
		WithConfigPaths(t.TempDir()),
		WithEnvPrefix("PULSE_TEST_EMPTY"),
	)
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	_, ok := loader.Resolver().Lookup("application.name")
	assert.False(t, ok)
}

// TestLoaderWatch 测试配置文件变更通知
func TestLoaderWatch(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "watch.yaml")
	require.NoError(t, os.WriteFile(file, []byte("heartbeat:\n  interval: \"15s\"\n"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	loader, err := New(WithConfigName("watch"), WithConfigPaths(tmpDir), WithEnvPrefix("PULSE_WATCH"))
	require.NoError(t, err)
	require.NoError(t, loader.Load(ctx))

	ch, err := loader.Watch(ctx, "heartbeat.interval")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(file, []byte("heartbeat:\n  interval: \"30s\"\n"), 0o644))

	select {
	case ev := <-ch:
		assert.Equal(t, "heartbeat.interval", ev.Key)
		assert.Equal(t, "30s", ev.Value)
		assert.Equal(t, "15s", ev.OldValue)
		assert.Equal(t, "file", ev.Source)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for config change event")
	}

	d, err := loader.Resolver().Duration("heartbeat.interval", 0)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
}

// TestLoaderReloadWhileReading 热更新期间并发读取 Resolver，读到的值只能是新旧之一
func TestLoaderReloadWhileReading(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "reload.yaml")
	require.NoError(t, os.WriteFile(file, []byte("heartbeat:\n  interval: \"15s\"\n"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	loader, err := New(WithConfigName("reload"), WithConfigPaths(tmpDir), WithEnvPrefix("PULSE_RELOAD"))
	require.NoError(t, err)
	require.NoError(t, loader.Load(ctx))

	ch, err := loader.Watch(ctx, "heartbeat.interval")
	require.NoError(t, err)

	r := loader.Resolver()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	var mu sync.Mutex
	var unexpected []time.Duration
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				d, err := r.Duration("heartbeat.interval", 0)
				if err != nil || (d != 15*time.Second && d != 45*time.Second) {
					mu.Lock()
					unexpected = append(unexpected, d)
					mu.Unlock()
				}
				_ = loader.Get("heartbeat")
			}
		}()
	}

	// 先写临时文件再改名，避免监听协程读到截断后的半个文件
	tmp := filepath.Join(tmpDir, "reload.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("heartbeat:\n  interval: \"45s\"\n"), 0o644))
	require.NoError(t, os.Rename(tmp, file))
	timeout := time.After(5 * time.Second)
	for changed := false; !changed; {
		select {
		case ev := <-ch:
			changed = ev.Value == "45s"
		case <-timeout:
			t.Fatal("timeout waiting for config change event")
		}
	}
	close(stop)
	wg.Wait()

	assert.Empty(t, unexpected)
	d, err := r.Duration("heartbeat.interval", 0)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)
}

func TestFromMap(t *testing.T) {
	r := FromMap(map[string]any{
		"application.name":       "svc",
		"heartbeat.enabled":      "TRUE",
		"heartbeat.interval":     "1s",
		"heartbeat.initialDelay": 250 * time.Millisecond,
		"heartbeat.bad":          "abc",
		"heartbeat.flag":         true,
		"heartbeat.empty":        "",
		"server.port":            8080,
	})

	t.Run("Lookup", func(t *testing.T) {
		v, ok := r.Lookup("application.name")
		assert.True(t, ok)
		assert.Equal(t, "svc", v)

		v, ok = r.Lookup("server.port")
		assert.True(t, ok)
		assert.Equal(t, "8080", v)

		// 空字符串也算存在
		_, ok = r.Lookup("heartbeat.empty")
		assert.True(t, ok)

		_, ok = r.Lookup("missing.key")
		assert.False(t, ok)
	})

	t.Run("Bool", func(t *testing.T) {
		b, err := r.Bool("heartbeat.enabled", false)
		require.NoError(t, err)
		assert.True(t, b)

		b, err = r.Bool("heartbeat.flag", false)
		require.NoError(t, err)
		assert.True(t, b)

		b, err = r.Bool("heartbeat.empty", true)
		require.NoError(t, err)
		assert.True(t, b)

		_, err = r.Bool("heartbeat.bad", true)
		require.Error(t, err)
		assert.True(t, IsInvalidInput(err))
		assert.Equal(t, xerrors.CodeConfigInvalid, xerrors.GetCode(err))
	})

	t.Run("Duration", func(t *testing.T) {
		d, err := r.Duration("heartbeat.interval", 0)
		require.NoError(t, err)
		assert.Equal(t, time.Second, d)

		d, err = r.Duration("heartbeat.initialDelay", 0)
		require.NoError(t, err)
		assert.Equal(t, 250*time.Millisecond, d)

		d, err = r.Duration("heartbeat.missing", 15*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Second, d)

		_, err = r.Duration("heartbeat.bad", 0)
		assert.True(t, IsInvalidInput(err))

		// 裸整数不被接受
		_, err = r.Duration("server.port", 0)
		assert.True(t, IsInvalidInput(err))
	})
}
