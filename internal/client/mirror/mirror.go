// Package mirror keeps a local file in step with a sync session: remote
// content is written to the file, and changes made to the file by other
// programs become edits.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Editor receives local changes. *syncclient.Client satisfies it.
type Editor interface {
	Edit(content string)
}

type Mirror struct {
	path   string
	logger zerolog.Logger

	mu sync.Mutex
	// known is the content last written or read, used to tell our own
	// writes apart from outside edits.
	known  string
	loaded bool
}

func New(path string, logger zerolog.Logger) (*Mirror, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("mirror: resolve path: %w", err)
	}
	return &Mirror{path: abs, logger: logger}, nil
}

func (m *Mirror) Path() string { return m.path }

// Apply writes remote content to the file. Writing the same content again is
// a no-op.
func (m *Mirror) Apply(content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded && content == m.known {
		return nil
	}
	if err := writeAtomic(m.path, content); err != nil {
		return err
	}
	m.known = content
	m.loaded = true
	return nil
}

// Run watches the file's directory until ctx is done.
func (m *Mirror) Run(ctx context.Context, editor Editor) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("mirror: create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often save by rename, which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		return fmt.Errorf("mirror: watch %s: %w", filepath.Dir(m.path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn().Err(err).Msg("mirror watcher error")
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != m.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			m.check(editor)
		}
	}
}

func (m *Mirror) check(editor Editor) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn().Err(err).Str("path", m.path).Msg("mirror read failed")
		}
		return
	}
	content := string(data)

	m.mu.Lock()
	changed := !m.loaded || content != m.known
	m.known = content
	m.loaded = true
	m.mu.Unlock()

	if changed {
		m.logger.Debug().Int("bytes", len(content)).Msg("local file changed")
		editor.Edit(content)
	}
}

func writeAtomic(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mirror: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("mirror: create temp: %w", err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("mirror: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("mirror: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("mirror: replace file: %w", err)
	}
	return nil
}
