package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/pursuit/logging"
	"go.viam.com/pursuit/utils"
)

// A Watcher is responsible for delivering updates to a config file.
type Watcher interface {
	// Config returns a channel carrying every valid version of the file written after the
	// watcher started that differs from the previous one. Invalid versions are logged and
	// skipped.
	Config() <-chan *Config
	Close(ctx context.Context) error
}

type fsConfigWatcher struct {
	path    string
	logger  logging.Logger
	fsw     *fsnotify.Watcher
	out     chan *Config
	workers utils.StoppableWorkers

	// last is only touched by the watch goroutine.
	last *Config
}

// NewWatcher returns a watcher for the file cfg was read from. The parent directory is watched so
// that editors replacing the file by rename are noticed.
func NewWatcher(ctx context.Context, cfg *Config, logger logging.Logger) (Watcher, error) {
	if cfg.ConfigFilePath == "" {
		return nil, errors.New("config was not read from a file, nothing to watch")
	}
	path, err := filepath.Abs(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		return nil, multierr.Combine(err, fsw.Close())
	}
	w := &fsConfigWatcher{
		path:   path,
		logger: logger,
		fsw:    fsw,
		out:    make(chan *Config),
		last:   cfg,
	}
	w.workers = utils.NewStoppableWorkers(w.watch)
	return w, nil
}

func (w *fsConfigWatcher) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("error watching config", "path", w.path, "error", err)
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			cfg, err := Read(ctx, w.path, w.logger)
			if err != nil {
				// Partial writes land here too, the final write triggers another event.
				w.logger.Warnw("ignoring config change", "path", w.path, "error", err)
				continue
			}
			if DiffConfigs(w.last, cfg).ResourcesEqual() {
				continue
			}
			w.last = cfg
			select {
			case <-ctx.Done():
				return
			case w.out <- cfg:
			}
		}
	}
}

func (w *fsConfigWatcher) Config() <-chan *Config {
	return w.out
}

func (w *fsConfigWatcher) Close(ctx context.Context) error {
	w.workers.Stop()
	return w.fsw.Close()
}
