// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package localdocs

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reindexes the local document store when extraction files
// change on disk. Rapid event bursts (editors, extraction jobs writing
// page by page) are coalesced with a debounce timer.
type Watcher struct {
	watcher  *fsnotify.Watcher
	store    *Store
	debounce time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	timer    *time.Timer
	watching bool
	cancel   context.CancelFunc
}

// NewWatcher builds a watcher over the store's directory. debounce <= 0
// uses a 500ms default.
func NewWatcher(store *Store, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		watcher:  fw,
		store:    store,
		debounce: debounce,
		logger:   logger,
	}, nil
}

// Start watches the directory tree and triggers reindex on JSON changes.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watching {
		return nil
	}

	if err := w.addTree(w.store.docsPath); err != nil {
		return err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.watching = true
	go w.loop(ctx)

	w.logger.Info("watching local documents", "path", w.store.docsPath)
	return nil
}

// Stop cancels the event loop and closes the underlying watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.watching {
		return nil
	}
	w.cancel()
	w.watching = false
	if w.timer != nil {
		w.timer.Stop()
	}
	return w.watcher.Close()
}

// addTree registers the root and every subdirectory. fsnotify watches
// are not recursive.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			w.scheduleReindex(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// scheduleReindex resets the debounce timer; the reindex runs once the
// burst of events settles.
func (w *Watcher) scheduleReindex(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.store.Reindex(ctx); err != nil {
			w.logger.Error("reindex after file change failed", "error", err)
		}
	})
}
