package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/qafax/qafax/errors"
	"github.com/qafax/qafax/logger"
)

// Watcher captures artifacts as they land, using fsnotify events to
// wake up instead of busy-polling. Stability and hashing still go
// through the Poller, since a create event only means the copy started.
type Watcher struct {
	poller  *Poller
	watcher *fsnotify.Watcher

	mu   sync.Mutex
	seen map[string]int64

	artifacts chan Artifact
}

// NewWatcher creates a watcher over root. Call Start to begin capture
// and Close to release the underlying notifier.
func NewWatcher(root string, opts Options) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	if err := watcher.Add(root); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "watch directory %s", root)
	}
	poller := NewPoller(root, opts)
	return &Watcher{
		poller:    poller,
		watcher:   watcher,
		seen:      poller.Snapshot(),
		artifacts: make(chan Artifact, 16),
	}, nil
}

// Artifacts is the stream of captured files. Closed when the watch loop
// exits.
func (w *Watcher) Artifacts() <-chan Artifact {
	return w.artifacts
}

// Start runs the watch loop until the context is canceled or the
// notifier closes.
func (w *Watcher) Start(ctx context.Context) {
	go w.watchLoop(ctx)
}

// Close releases the underlying notifier, which in turn stops the loop.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.artifacts)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.handleCandidate(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("ingest watcher error",
				logger.FieldError, err)
		}
	}
}

func (w *Watcher) handleCandidate(ctx context.Context, path string) {
	name := filepath.Base(path)
	if isPartial(name) {
		return
	}
	if ok, err := filepath.Match(w.poller.opts.Pattern, name); err != nil || !ok {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	known, ok := w.seen[path]
	w.mu.Unlock()
	if ok && known == info.Size() {
		return
	}

	artifact, captured, err := w.poller.capture(ctx, path, info.Size())
	if err != nil || !captured {
		return
	}
	w.mu.Lock()
	w.seen[path] = artifact.Size
	w.mu.Unlock()

	select {
	case w.artifacts <- *artifact:
	case <-ctx.Done():
	}
}
