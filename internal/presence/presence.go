// Package presence provides the powered/presence predicates the scheduler
// evaluates every tick. Predicates must be cheap: they run at the tick rate.
package presence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	logx "tcasvoice/pkg/logx"
)

func Always() bool { return true }
func Never() bool  { return false }

// FileSource reports powered while a flag file exists. The file is tracked
// with fsnotify; Powered only reads an atomic.
type FileSource struct {
	path string
	log  logx.Logger
	on   atomic.Bool
}

func NewFileSource(path string, log logx.Logger) *FileSource {
	if log.IsZero() {
		log = logx.Nop()
	}
	f := &FileSource{path: filepath.Clean(path), log: log.With(logx.String("comp", "presence"))}
	f.refresh()
	return f
}

// Powered is the predicate.
func (f *FileSource) Powered() bool { return f.on.Load() }

func (f *FileSource) refresh() {
	_, err := os.Stat(f.path)
	on := err == nil
	if f.on.Swap(on) != on {
		f.log.Info("presence changed", logx.String("path", f.path), logx.Bool("powered", on))
	}
}

// Watch follows the flag file until ctx is done. The parent directory must exist.
func (f *FileSource) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(f.path)
	if err := w.Add(dir); err != nil {
		return err
	}
	// The file may have changed between construction and Add.
	f.refresh()

	base := filepath.Base(f.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("presence watcher closed")
			}
			if strings.EqualFold(filepath.Base(ev.Name), base) {
				f.refresh()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("presence watcher closed")
			}
			f.log.Warn("presence watch error", logx.Err(err))
			f.refresh()
		}
	}
}
