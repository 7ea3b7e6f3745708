// File: internal/demo/command.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// cobra command wiring config, logging, storage, metrics and the driver.

package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/momentics/hioload-ring/api"
	"github.com/momentics/hioload-ring/control"
	"github.com/momentics/hioload-ring/core/concurrency"
	"github.com/momentics/hioload-ring/core/ring"
	"github.com/momentics/hioload-ring/pool"
)

// NewCommand builds the ringdemo root command.
func NewCommand() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:           "ringdemo",
		Short:         "Run a producer and a consumer against a fixed-capacity ring buffer",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := control.Load(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), v, v.ConfigFileUsed() != "", cfg)
		},
	}
	bindFlags(cmd.Flags(), v, &configFile)
	return cmd
}

func bindFlags(fs *pflag.FlagSet, v *viper.Viper, configFile *string) {
	fs.StringVarP(configFile, "config", "c", "", "path to a YAML config file, default ./ringdemo.yaml if present (watched for changes)")
	fs.Uint32("capacity", 10, "ring capacity in elements")
	fs.String("storage", pool.KindHeap, "backing storage: heap or mmap")
	fs.Int("total", 16, "number of elements to produce")
	fs.Duration("push-interval", time.Second, "delay between pushes")
	fs.Duration("pop-interval", time.Second, "delay between pops")
	fs.Bool("drop-on-full", false, "drop an element instead of retrying when the ring is full")
	fs.IntSlice("affinity", nil, "producer and consumer CPU ids, e.g. 0,1")
	fs.String("log-level", "info", "zap log level")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address")

	for key, flag := range map[string]string{
		"ring.capacity":      "capacity",
		"ring.storage":       "storage",
		"demo.total":         "total",
		"demo.push_interval": "push-interval",
		"demo.pop_interval":  "pop-interval",
		"demo.drop_on_full":  "drop-on-full",
		"demo.affinity":      "affinity",
		"log.level":          "log-level",
		"metrics.addr":       "metrics-addr",
	} {
		// Flags registered just above; BindPFlag only fails on a nil flag.
		_ = v.BindPFlag(key, fs.Lookup(flag))
	}
}

func newLogger(level string) (*zap.Logger, zap.AtomicLevel, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, lvl, fmt.Errorf("log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := zcfg.Build()
	if err != nil {
		return nil, lvl, err
	}
	return logger, lvl, nil
}

func run(ctx context.Context, out io.Writer, v *viper.Viper, watch bool, cfg *control.Config) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Ring.ElementSize != ring.Int32.Size() {
		return fmt.Errorf("config: ring.element_size %d, the demo carries int32 (%d): %w",
			cfg.Ring.ElementSize, ring.Int32.Size(), api.ErrInvalidParams)
	}
	logger, level, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	alloc, err := pool.NewAllocator(cfg.Ring.Storage)
	if err != nil {
		return err
	}
	size, err := pool.RegionSize(cfg.Ring.ElementSize, cfg.Ring.Capacity)
	if err != nil {
		return err
	}
	storage, err := alloc.Alloc(size)
	if err != nil {
		return err
	}
	// Storage must outlive the ring: this deferred Free runs after Close below.
	defer func() {
		if ferr := alloc.Free(storage); ferr != nil && err == nil {
			err = fmt.Errorf("free storage: %w", ferr)
		}
	}()

	metrics, err := control.NewRingMetrics()
	if err != nil {
		return err
	}
	if cfg.Metrics.Addr != "" {
		stop, err := serveMetrics(cfg.Metrics.Addr, metrics, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	r, err := concurrency.NewLockedRing(cfg.Ring.Name, cfg.Ring.ElementSize, cfg.Ring.Capacity, storage,
		concurrency.WithLogger(logger), concurrency.WithObserver(metrics))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Ring buffer initialized with capacity %d.\n", r.Cap())

	probes := control.NewDebugProbes()
	control.RegisterPlatformProbes(probes)
	probes.RegisterRing(cfg.Ring.Name, r)

	driver, err := NewDriver(r, Options{
		Total:        cfg.Demo.Total,
		PushInterval: cfg.Demo.PushInterval,
		PopInterval:  cfg.Demo.PopInterval,
		DropOnFull:   cfg.Demo.DropOnFull,
		Affinity:     cfg.Demo.Affinity,
	}, logger)
	if err != nil {
		_ = r.Close()
		return err
	}

	store := control.NewConfigStore(cfg)
	store.OnReload(func(c *control.Config) {
		driver.SetIntervals(c.Demo.PushInterval, c.Demo.PopInterval)
		if l, perr := zapcore.ParseLevel(c.Log.Level); perr == nil {
			level.SetLevel(l)
		}
		logger.Info("configuration reloaded",
			zap.Duration("push_interval", c.Demo.PushInterval),
			zap.Duration("pop_interval", c.Demo.PopInterval))
	})
	if watch {
		store.Watch(v, func(werr error) {
			logger.Warn("configuration change rejected", zap.Error(werr))
		})
	}

	report, runErr := driver.Run(ctx)
	fmt.Fprintf(out, "Final ring buffer state: %s\n", describeState(report.FinalState))
	logger.Info("run finished",
		zap.Int("pushed", report.Pushed),
		zap.Int("popped", report.Popped),
		zap.Int("dropped", report.Dropped),
		zap.Int("full_hits", report.FullHits),
		zap.Int("empty_hits", report.EmptyHits),
		zap.Any("probes", probes.DumpState()))

	if cerr := r.Close(); cerr != nil {
		return errors.Join(runErr, cerr)
	}
	fmt.Fprintln(out, "Ring buffer destroyed successfully.")
	return runErr
}

func describeState(st api.Status) string {
	switch st {
	case api.StatusFull:
		return "FULL"
	case api.StatusEmpty:
		return "EMPTY"
	case api.StatusOK:
		return "OK (Elements in buffer)"
	}
	return st.String()
}

func serveMetrics(addr string, m *control.RingMetrics, logger *zap.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
