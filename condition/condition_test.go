package condition

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/pulse/config"
	"github.com/ceyewan/pulse/container"
)

func registryWith(t *testing.T, names ...string) *container.ComponentRegistry {
	t.Helper()
	r := container.NewRegistry()
	for _, n := range names {
		require.NoError(t, r.Register(n, struct{}{}))
	}
	return r
}

func TestProperty(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		want   bool
	}{
		{"absent uses default", nil, true},
		{"explicit true", map[string]any{"heartbeat.enabled": "true"}, true},
		{"bool value", map[string]any{"heartbeat.enabled": true}, true},
		{"upper case is not equal", map[string]any{"heartbeat.enabled": "TRUE"}, false},
		{"mixed case is not equal", map[string]any{"heartbeat.enabled": "True"}, false},
		{"padded is not equal", map[string]any{"heartbeat.enabled": " true "}, false},
		{"empty is not default", map[string]any{"heartbeat.enabled": ""}, false},
		{"explicit false", map[string]any{"heartbeat.enabled": "false"}, false},
		{"other text", map[string]any{"heartbeat.enabled": "yes"}, false},
	}

	cond := Property("heartbeat.enabled", "true", "true")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := cond.Evaluate(config.FromMap(tt.values), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	t.Run("default false", func(t *testing.T) {
		ok, err := Property("feature.x", "true", "false").Evaluate(config.FromMap(nil), nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("string equality", func(t *testing.T) {
		r := config.FromMap(map[string]any{"mode": "Cluster"})
		ok, _ := Property("mode", "cluster", "").Evaluate(r, nil)
		assert.False(t, ok)
		ok, _ = Property("mode", "Cluster", "").Evaluate(r, nil)
		assert.True(t, ok)
	})
}

func TestPropertyPresent(t *testing.T) {
	cond := PropertyPresent("application.name")

	ok, err := cond.Evaluate(config.FromMap(nil), nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = cond.Evaluate(config.FromMap(map[string]any{"application.name": "orders"}), nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cond.Evaluate(config.FromMap(map[string]any{"application.name": ""}), nil)
	require.NoError(t, err)
	assert.True(t, ok, "空串也视为存在")
}

func TestComponentPresent(t *testing.T) {
	cond := ComponentPresent("embedded-server")

	ok, err := cond.Evaluate(nil, registryWith(t, "embedded-server"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cond.Evaluate(nil, registryWith(t))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = cond.Evaluate(nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAll(t *testing.T) {
	r := config.FromMap(map[string]any{"application.name": "orders"})
	reg := registryWith(t, "embedded-server")

	t.Run("empty is true", func(t *testing.T) {
		ok, err := All().Evaluate(r, reg)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("all met", func(t *testing.T) {
		ok, err := All(
			Property("heartbeat.enabled", "true", "true"),
			PropertyPresent("application.name"),
			ComponentPresent("embedded-server"),
		).Evaluate(r, reg)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("short circuit", func(t *testing.T) {
		var called bool
		ok, err := All(
			ComponentPresent("missing"),
			Func("probe", func(config.Resolver, container.Registry) (bool, error) {
				called = true
				return true, nil
			}),
		).Evaluate(r, reg)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, called)
	})

	t.Run("error carries name", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := All(Func("exploding", func(config.Resolver, container.Registry) (bool, error) {
			return false, boom
		})).Evaluate(r, reg)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "exploding")
	})
}

func TestFirstUnmetAndDescribe(t *testing.T) {
	cond := All(
		Property("heartbeat.enabled", "true", "true"),
		All(PropertyPresent("application.name")),
		ComponentPresent("embedded-server"),
	)

	name, err := FirstUnmet(cond, config.FromMap(nil), registryWith(t))
	require.NoError(t, err)
	assert.Equal(t, "present(application.name)", name)

	name, err = FirstUnmet(cond, config.FromMap(map[string]any{"application.name": "x"}), registryWith(t, "embedded-server"))
	require.NoError(t, err)
	assert.Empty(t, name)

	assert.Equal(t,
		"all(property(heartbeat.enabled=true, default=true), all(present(application.name)), component(embedded-server))",
		Describe(cond))
	assert.Equal(t, "<nil>", Describe(nil))
}
