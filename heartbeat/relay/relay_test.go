package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/pulse/config"
	"github.com/ceyewan/pulse/discovery"
	"github.com/ceyewan/pulse/event"
	"github.com/ceyewan/pulse/health"
	"github.com/ceyewan/pulse/heartbeat"
	"github.com/ceyewan/pulse/xerrors"
)

type fakePublisher struct {
	mu       sync.Mutex
	err      error
	subjects []string
	payloads [][]byte
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return p.err
}

func (p *fakePublisher) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

func testEvent(t *testing.T) heartbeat.Event {
	t.Helper()
	inst, err := discovery.NewInstance("orders", "10.0.0.1", 9000, map[string]string{"zone": "a"})
	require.NoError(t, err)
	return heartbeat.Event{
		Instance: inst,
		Status:   health.New(health.StatusUp, "ok", map[string]any{"db": "up"}),
		At:       time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(config.FromMap(nil))
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.URL)
	assert.Equal(t, "heartbeat", cfg.Subject)
	assert.Equal(t, CodecJSON, cfg.Codec)

	cfg, err = LoadConfig(config.FromMap(map[string]any{
		KeyEnabled: "true",
		KeyURL:     "nats://broker:4222",
		KeySubject: "svc.heartbeat",
		KeyCodec:   "msgpack",
	}))
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "nats://broker:4222", cfg.URL)
	assert.Equal(t, "svc.heartbeat", cfg.Subject)
	assert.Equal(t, CodecMsgpack, cfg.Codec)

	_, err = LoadConfig(config.FromMap(map[string]any{KeyCodec: "xml"}))
	assert.True(t, xerrors.HasCode(err, xerrors.CodeConfigInvalid))

	_, err = LoadConfig(config.FromMap(map[string]any{KeyEnabled: "maybe"}))
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestForward_Codecs(t *testing.T) {
	for _, name := range []string{CodecJSON, CodecMsgpack} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Codec = name
			pub := &fakePublisher{}
			r, err := New(cfg, event.New(), pub)
			require.NoError(t, err)

			ev := testEvent(t)
			require.NoError(t, r.Forward(context.Background(), ev))
			require.Equal(t, 1, pub.calls())
			assert.Equal(t, "heartbeat", pub.subjects[0])

			codec, err := NewCodec(name)
			require.NoError(t, err)
			var msg Message
			require.NoError(t, codec.Unmarshal(pub.payloads[0], &msg))
			assert.Equal(t, ev.Instance.ID, msg.ServiceID)
			assert.Equal(t, "orders", msg.ServiceName)
			assert.Equal(t, 9000, msg.Port)
			assert.Equal(t, "UP", msg.Status)
			assert.Equal(t, "a", msg.Metadata["zone"])
			assert.True(t, ev.At.Equal(msg.Timestamp))
		})
	}
}

func TestRelay_SubscribesToHeartbeats(t *testing.T) {
	bus := event.New()
	pub := &fakePublisher{}
	r, err := New(DefaultConfig(), bus, pub)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, testEvent(t)))
	assert.Equal(t, 0, pub.calls(), "Start 之前不转发")

	require.NoError(t, r.Start(ctx))
	require.NoError(t, r.Start(ctx))
	require.NoError(t, bus.Publish(ctx, testEvent(t)))
	assert.Equal(t, 1, pub.calls())

	require.NoError(t, r.Stop(ctx))
	require.NoError(t, bus.Publish(ctx, testEvent(t)))
	assert.Equal(t, 1, pub.calls())
}

func TestForward_BreakerOpens(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Breaker.MinimumRequests = 3
	cfg.Breaker.FailureRatio = 0.5
	cfg.Breaker.Timeout = time.Hour

	pub := &fakePublisher{err: errors.New("no responders")}
	r, err := New(cfg, event.New(), pub)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.Error(t, r.Forward(ctx, testEvent(t)))
	}
	assert.Equal(t, gobreaker.StateOpen, r.BreakerState())

	err = r.Forward(ctx, testEvent(t))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, pub.calls(), "熔断打开后不再调用发布方")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(DefaultConfig(), nil, &fakePublisher{})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	cfg := DefaultConfig()
	cfg.Codec = "yaml"
	_, err = New(cfg, event.New(), &fakePublisher{})
	assert.True(t, xerrors.HasCode(err, xerrors.CodeConfigInvalid))
}
