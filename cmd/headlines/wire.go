package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pders01/headlines/internal/config"
	"github.com/pders01/headlines/internal/debuglog"
	"github.com/pders01/headlines/internal/feed"
	"github.com/pders01/headlines/internal/newsapi"
	"github.com/pders01/headlines/internal/rss"
	"github.com/pders01/headlines/internal/search"
	"github.com/pders01/headlines/internal/shake"
	"github.com/pders01/headlines/internal/storage"
)

// loadConfig reads and validates the config and starts file logging.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	rot := debuglog.Rotation{
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}
	if err := debuglog.SetupRotating(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File, rot); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runtime owns everything opened on behalf of one command.
type runtime struct {
	cfg      *config.Config
	store    *storage.Store
	index    *search.Index
	recorder *search.Recorder
	closers  []io.Closer
}

func openRuntime(cfg *config.Config) (*runtime, error) {
	rt := &runtime{cfg: cfg}
	if !cfg.Cache.Enabled {
		return rt, nil
	}

	store, err := storage.Open(cfg.Cache.Path, cfg.Cache.TTL, cfg.Cache.Timeout)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	rt.store = store

	if idx, err := search.Open(cfg.Cache.Index); err != nil {
		// History search is optional; the feed works without it.
		debuglog.Warnf("search index unavailable: %v", err)
	} else {
		rt.index = idx
	}
	rt.recorder = search.NewRecorder(store, rt.index)
	return rt, nil
}

func (rt *runtime) source() (feed.Source, error) {
	switch rt.cfg.API.Provider {
	case config.ProviderRSS:
		src, err := rss.NewSource(rt.cfg)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		var opts []newsapi.Option
		if rt.store != nil {
			opts = append(opts, newsapi.WithCache(rt.store))
		}
		return newsapi.NewClient(rt.cfg, opts...), nil
	}
}

// controller builds a feed controller whose events reach listeners and,
// when the cache is on, the history recorder.
func (rt *runtime) controller(listeners ...feed.Listener) (*feed.Controller, error) {
	src, err := rt.source()
	if err != nil {
		return nil, err
	}
	if rt.recorder != nil {
		listeners = append(listeners, rt.recorder)
	}
	opts := feed.OptionsFromConfig(rt.cfg)
	opts.Listener = feed.MultiListener(listeners...)
	return feed.NewController(src, opts), nil
}

// watchShakes feeds the configured sample stream to ctrl. An empty
// sensor_path leaves only the keyboard shake.
func (rt *runtime) watchShakes(ctx context.Context, ctrl *feed.Controller, stdin io.Reader) error {
	path := rt.cfg.Shake.SensorPath
	if path == "" {
		return nil
	}

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening shake sensor: %w", err)
		}
		rt.closers = append(rt.closers, f)
		r = f
	}

	sensor := &shake.ReplaySensor{R: r, Start: time.Now()}
	detector := shake.NewDetector(rt.cfg.Shake.Threshold, rt.cfg.Shake.Interval)
	return ctrl.WatchShakes(ctx, sensor, detector)
}

// Close drains the recorder before closing what it writes to.
func (rt *runtime) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if rt.recorder != nil {
		keep(rt.recorder.Close())
	}
	if rt.index != nil {
		keep(rt.index.Close())
	}
	if rt.store != nil {
		keep(rt.store.Close())
	}
	for _, c := range rt.closers {
		keep(c.Close())
	}
	return firstErr
}
