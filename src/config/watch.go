package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

//Watch reloads the settings file into st every time it is written, until ctx is done
//the parent directory is watched because editors often replace the file instead of writing it
//invalid content is logged and ignored, the store keeps its last valid settings
func Watch(ctx context.Context, path string, st *Store, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	path = filepath.Clean(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create settings watcher")
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "watch %s", path)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s, err := Load(path)
			if err != nil {
				log.Warn("settings reload rejected", "path", path, "error", err)
				continue
			}
			if err := st.Update(s); err != nil {
				log.Warn("settings reload rejected", "path", path, "error", err)
				continue
			}
			log.Info("settings reloaded", "path", path, "speed", s.EvolutionSpeed)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error("settings watcher", "error", err)
		}
	}
}
