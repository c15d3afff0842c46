package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"hooknotify/pkg/logx"
)

// Manager loads the config file and, in serve mode, watches it for edits.
//
// Watch republishes only after a successful strict re-parse; a broken edit
// keeps the last good config in place.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	log logx.Logger
}

func NewManager(path string, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{path: path, log: log}
}

// Parse reads and strictly decodes the config file, then expands
// credential environment references and a leading ~/ in paths.
func (m *Manager) Parse() (*Config, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}
	jb, err := coerceToJSONBytes(m.path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// Reject trailing tokens (e.g. concatenated JSON documents).
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}

	expandSensitiveFields(&cfg)
	cfg.Logging.File.Path = ExpandHome(cfg.Logging.File.Path)
	cfg.Storage.Path = ExpandHome(cfg.Storage.Path)
	cfg.Debounce.Dir = ExpandHome(cfg.Debounce.Dir)
	return &cfg, nil
}

// Load parses and commits. When the file is absent at the default location,
// the built-in defaults apply; an explicit missing path is an error the
// caller surfaces.
func (m *Manager) Load() (*Config, error) {
	cfg, err := m.Parse()
	if os.IsNotExist(err) && m.path == DefaultPath() {
		cfg = Default()
		expandSensitiveFields(cfg)
		err = nil
	}
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return cfg, nil
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Watch blocks until ctx is done, invoking onChange with each successfully
// re-parsed config. Events are debounced because editors commonly emit
// several writes (or a rename) per save.
func (m *Manager) Watch(ctx context.Context, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: many editors replace the file on save, which
	// drops a watch installed on the file itself.
	dir := filepath.Dir(m.path)
	if err := w.Add(dir); err != nil {
		return err
	}

	var debounce *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(m.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Warn("config watch error", logx.Err(err))

		case <-fire:
			cfg, err := m.Parse()
			if err != nil {
				m.log.Warn("config reload skipped (parse failed)", logx.Err(err))
				continue
			}
			m.mu.Lock()
			m.cfg = cfg
			m.mu.Unlock()
			m.log.Info("config reloaded")
			if onChange != nil {
				onChange(cfg)
			}
		}
	}
}
