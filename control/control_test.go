// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

package control

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-ring/api"
	"github.com/momentics/hioload-ring/core/concurrency"
)

func TestRingMetrics_ObserveAndSnapshot(t *testing.T) {
	m, err := NewRingMetrics()
	require.NoError(t, err)

	r, err := concurrency.NewLockedRing("m", 1, 2, make([]byte, 2), concurrency.WithObserver(m))
	require.NoError(t, err)
	r.Push([]byte{1})
	r.Push([]byte{2})
	r.Push([]byte{3})
	r.Pop(make([]byte, 1))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ops.WithLabelValues("m", "push", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("m", "push", "full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.length.WithLabelValues("m")))

	snap := m.GetSnapshot()
	assert.Equal(t, int64(2), snap["m.push.ok"])
	assert.Equal(t, int64(1), snap["m.pop.ok"])
	assert.Equal(t, 1, snap["m.len"])
	assert.False(t, m.Updated().IsZero())
}

func TestRingMetrics_Handler(t *testing.T) {
	m, err := NewRingMetrics()
	require.NoError(t, err)
	m.Observe("h", concurrency.OpPop, api.StatusEmpty, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hioload_ring_operations_total{op="pop",ring="h",status="empty"} 1`)
}

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	RegisterPlatformProbes(dp)
	r, err := concurrency.NewLockedRing("dbg", 1, 4, make([]byte, 4))
	require.NoError(t, err)
	r.Push([]byte{1})
	dp.RegisterRing("dbg", r)

	state := dp.DumpState()
	assert.Equal(t, "ok", state["dbg.state"])
	assert.Equal(t, 1, state["dbg.len"])
	assert.Equal(t, 4, state["dbg.cap"])
	assert.Greater(t, state["platform.cpus"], 0)
	assert.Contains(t, state, "platform.pagesize")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Ring.Name)
	assert.Equal(t, uint32(10), cfg.Ring.Capacity)
	assert.Equal(t, 4, cfg.Ring.ElementSize)
	assert.Equal(t, "heap", cfg.Ring.Storage)
	assert.Equal(t, 16, cfg.Demo.Total)
	assert.Equal(t, time.Second, cfg.Demo.PushInterval)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ringdemo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"ring:",
		"  capacity: 3",
		"demo:",
		"  push_interval: 10ms",
		"  drop_on_full: true",
	}, "\n")), 0o600))
	t.Setenv("RINGDEMO_DEMO_TOTAL", "5")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), cfg.Ring.Capacity)
	assert.Equal(t, 10*time.Millisecond, cfg.Demo.PushInterval)
	assert.True(t, cfg.Demo.DropOnFull)
	assert.Equal(t, 5, cfg.Demo.Total)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("RINGDEMO_RING_CAPACITY", "1")
	_, err := Load(viper.New(), "")
	assert.ErrorIs(t, err, api.ErrInvalidParams)

	_, err = Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load(viper.New(), "")
	require.NoError(t, err)

	mutate := []func(*Config){
		func(c *Config) { c.Ring.Name = "" },
		func(c *Config) { c.Ring.ElementSize = 0 },
		func(c *Config) { c.Ring.Storage = "disk" },
		func(c *Config) { c.Demo.Total = -1 },
		func(c *Config) { c.Demo.PopInterval = -time.Second },
	}
	for i, fn := range mutate {
		c := *base
		fn(&c)
		assert.ErrorIs(t, c.Validate(), api.ErrInvalidParams, "case %d", i)
	}
}

func TestConfigStore_Reload(t *testing.T) {
	base, err := Load(viper.New(), "")
	require.NoError(t, err)
	cs := NewConfigStore(base)

	var got []time.Duration
	cs.OnReload(func(c *Config) { got = append(got, c.Demo.PopInterval) })

	next := *base
	next.Demo.PopInterval = 5 * time.Millisecond
	require.NoError(t, cs.Set(&next))
	assert.Equal(t, []time.Duration{5 * time.Millisecond}, got)
	assert.Equal(t, 5*time.Millisecond, cs.Get().Demo.PopInterval)

	bad := next
	bad.Ring.Capacity = 0
	assert.Error(t, cs.Set(&bad))
	assert.Same(t, &next, cs.Get())
	assert.Len(t, got, 1)
}

func TestReloadHooks_Order(t *testing.T) {
	rh := NewReloadHooks()
	var got []int
	rh.Register(func(*Config) { got = append(got, 1) })
	rh.Register(func(*Config) { got = append(got, 2) })
	rh.TriggerSync(&Config{})
	assert.Equal(t, []int{1, 2}, got)
}

func TestLoad_SearchesWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigName+".yaml"),
		[]byte("demo:\n  total: 7\n"), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	v := viper.New()
	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Demo.Total)
	assert.NotEmpty(t, v.ConfigFileUsed())
}

func TestLoad_NoFileInWorkingDir(t *testing.T) {
	v := viper.New()
	_, err := Load(v, "")
	require.NoError(t, err)
	assert.Empty(t, v.ConfigFileUsed())
}

func TestConfigStore_WatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ring.yaml")
	require.NoError(t, os.WriteFile(path, []byte("demo:\n  pop_interval: 1s\n"), 0o600))

	v := viper.New()
	cfg, err := Load(v, path)
	require.NoError(t, err)
	cs := NewConfigStore(cfg)

	var seen atomic.Int64
	cs.OnReload(func(c *Config) { seen.Store(int64(c.Demo.PopInterval)) })
	var rejected atomic.Int32
	cs.Watch(v, func(error) { rejected.Add(1) })

	replaceFile(t, path, "demo:\n  pop_interval: 250ms\n")
	require.Eventually(t, func() bool {
		return seen.Load() == int64(250*time.Millisecond)
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, cs.Get().Demo.PopInterval)

	replaceFile(t, path, "ring:\n  capacity: 1\n")
	require.Eventually(t, func() bool { return rejected.Load() > 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, cs.Get().Demo.PopInterval)
}

// replaceFile swaps content in with a rename so the watcher never sees a
// truncated file.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o600))
	require.NoError(t, os.Rename(tmp, path))
}
