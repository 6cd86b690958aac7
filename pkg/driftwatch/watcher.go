// Package driftwatch observes out-of-band changes to the files this tool
// exclusively owns: the bootloader config and the profile state record.
package driftwatch

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ChangeKind classifies an observed file change.
type ChangeKind string

const (
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// Change is one observed out-of-band modification.
type Change struct {
	Path string
	Kind ChangeKind
}

// Observer receives drift notifications. Optional.
type Observer interface {
	ObserveDrift()
}

// Watcher monitors a fixed set of files for modifications made outside this
// tool. Parent directories are watched rather than the files themselves, so
// atomic temp-then-rename replacements (the pattern both the grub backend and
// the state store use) are still observed.
type Watcher struct {
	paths    map[string]struct{}
	observer Observer
}

// NewWatcher creates a watcher for the given files. Nil observer disables
// metric observation; changes are always logged.
func NewWatcher(observer Observer, paths ...string) *Watcher {
	w := &Watcher{
		paths:    make(map[string]struct{}, len(paths)),
		observer: observer,
	}
	for _, p := range paths {
		if p != "" {
			w.paths[filepath.Clean(p)] = struct{}{}
		}
	}
	return w
}

// Watch blocks until the context is cancelled, sending each observed change
// to ch. The channel is not closed on return; the caller owns it.
func (w *Watcher) Watch(ctx context.Context, ch chan<- Change) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	dirs := make(map[string]struct{})
	for p := range w.paths {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			return err
		}
	}

	log.Info().
		Int("files", len(w.paths)).
		Msg("Watching for out-of-band changes")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			change, relevant := w.classify(event)
			if !relevant {
				continue
			}

			log.Warn().
				Str("path", change.Path).
				Str("kind", string(change.Kind)).
				Msg("File changed outside kargtune")
			if w.observer != nil {
				w.observer.ObserveDrift()
			}

			select {
			case ch <- change:
			case <-ctx.Done():
				return ctx.Err()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) classify(event fsnotify.Event) (Change, bool) {
	path := filepath.Clean(event.Name)
	if _, ok := w.paths[path]; !ok {
		return Change{}, false
	}

	switch {
	case event.Op.Has(fsnotify.Remove):
		return Change{Path: path, Kind: ChangeRemoved}, true
	case event.Op.Has(fsnotify.Write), event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Rename):
		return Change{Path: path, Kind: ChangeModified}, true
	default:
		return Change{}, false
	}
}
