package liveness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileProbe watches a directory (typically the live session/transcript
// directory) and treats any write within the window as user activity. On
// start it seeds the last-activity timestamp from file modification times
// so a restart right after activity does not misread the workspace as
// idle.
type FileProbe struct {
	dir     string
	window  time.Duration
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	lastActivity atomic.Int64 // unix nanos
	done         chan struct{}
}

// NewFileProbe starts watching dir. The directory is created if missing.
func NewFileProbe(dir string, window time.Duration, logger *zap.Logger) (*FileProbe, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create watch directory: %w", err)
	}

	p := &FileProbe{
		dir:    dir,
		window: window,
		logger: logger,
		done:   make(chan struct{}),
	}
	p.seedFromMtimes()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	p.watcher = w

	go p.loop()
	logger.Info("file liveness probe watching", zap.String("dir", dir), zap.Duration("window", window))
	return p, nil
}

// seedFromMtimes initializes last activity from the newest file mtime.
func (p *FileProbe) seedFromMtimes() {
	newest := time.Time{}
	filepath.WalkDir(p.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil && info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	if !newest.IsZero() {
		p.lastActivity.Store(newest.UnixNano())
	}
}

func (p *FileProbe) loop() {
	defer close(p.done)
	for {
		select {
		case evt, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				p.lastActivity.Store(time.Now().UnixNano())
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("liveness watcher error", zap.Error(err))
		}
	}
}

// Active reports whether anything was written within the window.
func (p *FileProbe) Active(ctx context.Context) (bool, error) {
	last := p.lastActivity.Load()
	if last == 0 {
		return false, nil
	}
	return time.Since(time.Unix(0, last)) < p.window, nil
}

// Close stops the watcher.
func (p *FileProbe) Close() error {
	if p.watcher == nil {
		return nil
	}
	err := p.watcher.Close()
	<-p.done
	return err
}

var _ Probe = (*FileProbe)(nil)
