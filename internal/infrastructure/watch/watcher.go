package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a change is reported.
const DefaultDebounce = 200 * time.Millisecond

// Change lists the document names that changed within one debounce window.
type Change struct {
	Dir       string
	Documents []string
}

// DirWatcher reports changes to the documents of one directory.
type DirWatcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	filter   *DocumentFilter
	debounce time.Duration
	onChange func(Change)
}

// NewDirWatcher watches dir, creating it if needed.
func NewDirWatcher(dir string, filter *DocumentFilter, debounce time.Duration, onChange func(Change)) (*DirWatcher, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create watch directory: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if filter == nil {
		filter = NewDocumentFilter()
	}
	return &DirWatcher{
		watcher:  w,
		dir:      dir,
		filter:   filter,
		debounce: debounce,
		onChange: onChange,
	}, nil
}

// Run delivers changes until ctx is cancelled.
func (w *DirWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close() //nolint:errcheck // shutdown

	debouncer := NewDebouncer(w.debounce, func(docs []string) {
		if w.onChange != nil {
			w.onChange(Change{Dir: w.dir, Documents: docs})
		}
	})
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			// Atomic saves arrive as a create or rename of the final name.
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) && !event.Op.Has(fsnotify.Remove) {
				continue
			}
			if !w.filter.Matches(event.Name) {
				continue
			}
			debouncer.Add(filepath.Base(event.Name))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}
