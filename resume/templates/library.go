// Package templates serves DOCX templates from a directory, caching their bytes
// until the file changes on disk.
package templates

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"voice-resume-backend/internal/shared/telemetry"
	"voice-resume-backend/internal/shared/util"
)

const Extension = ".docx"

var ErrTemplateNotFound = errors.New("template not found")

// Library loads templates by file name from Dir.
type Library struct {
	dir string

	mu    sync.RWMutex
	cache map[string][]byte

	watcher *fsnotify.Watcher
}

func New(dir string) *Library {
	return &Library{dir: dir, cache: make(map[string][]byte)}
}

func (l *Library) Dir() string {
	return l.dir
}

// Normalize validates a template name and adds the .docx extension when it is missing.
func Normalize(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", util.ErrInvalidFileName
	}
	if filepath.Ext(name) == "" {
		name += Extension
	}
	clean, err := util.SanitizeFileName(name)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(clean), Extension) {
		return "", fmt.Errorf("%w: %s is not a %s file", util.ErrInvalidFileName, clean, Extension)
	}
	return clean, nil
}

// Load returns the template bytes, reading the file on first use.
func (l *Library) Load(name string) ([]byte, error) {
	clean, err := Normalize(name)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	data, ok := l.cache[clean]
	l.mu.RUnlock()
	if ok {
		return data, nil
	}

	data, err = os.ReadFile(filepath.Join(l.dir, clean))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, clean)
		}
		return nil, fmt.Errorf("read template %s: %w", clean, err)
	}

	l.mu.Lock()
	l.cache[clean] = data
	l.mu.Unlock()
	return data, nil
}

// List returns the available template names, sorted. Office lock files are skipped.
func (l *Library) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "~$") || !strings.EqualFold(filepath.Ext(name), Extension) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Invalidate drops one cached template, or all of them when name is empty.
func (l *Library) Invalidate(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if name == "" {
		l.cache = make(map[string][]byte)
		return
	}
	delete(l.cache, name)
}

// Watch invalidates cached templates whenever their files change. It returns
// once the watcher is running; the watch loop ends with ctx or Close.
func (l *Library) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(l.dir); err != nil {
		w.Close()
		return err
	}
	l.mu.Lock()
	l.watcher = w
	l.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				w.Close()
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				l.Invalidate(filepath.Base(event.Name))
				telemetry.Info("templates.invalidated", map[string]any{
					"template": filepath.Base(event.Name),
					"op":       event.Op.String(),
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				// Events may have been dropped; start from a clean cache.
				l.Invalidate("")
				telemetry.Warn("templates.watch_error", map[string]any{"err": err})
			}
		}
	}()
	return nil
}

// Close stops the watcher started by Watch.
func (l *Library) Close() error {
	l.mu.Lock()
	w := l.watcher
	l.watcher = nil
	l.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}
