package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leonardotrapani/diarscribe/internal/logger"
)

// reloadDebounce coalesces the burst of events an atomic save produces.
const reloadDebounce = 150 * time.Millisecond

// Manager holds the live configuration for long-running commands and reloads
// it when the file changes.
type Manager struct {
	mu       sync.RWMutex
	path     string
	config   *Config
	watcher  *fsnotify.Watcher
	wg       sync.WaitGroup
	log      *logger.Logger
	onChange []func(*Config)
}

func NewManager(path string, log *logger.Logger) (*Manager, error) {
	if path == "" {
		path = DefaultPath
	}
	log = log.WithComponent("config")

	config, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	log.Info("configuration loaded", logger.Fields("path", path))
	return &Manager{path: path, config: config, log: log}, nil
}

func (m *Manager) Path() string { return m.path }

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configCopy := *m.config
	return &configCopy
}

// OnChange registers fn to run after every successful reload. Must be called
// before StartWatching.
func (m *Manager) OnChange(fn func(*Config)) {
	m.onChange = append(m.onChange, fn)
}

// StartWatching watches the directory holding the config file so editors
// that replace the file are seen too.
func (m *Manager) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return err
	}
	m.watcher = watcher

	m.wg.Add(1)
	go m.watchLoop(ctx)

	m.log.Info("watching for changes", logger.Fields("path", m.path))
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	name := filepath.Base(m.path)
	var pending <-chan time.Time

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
				m.log.Debug("config file changed", logger.Fields("event", event.Op.String()))
				pending = time.After(reloadDebounce)
			}

		case <-pending:
			pending = nil
			m.reload()

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.log.Warn("watcher error", logger.ErrorFields("watch", err))

		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) reload() {
	newConfig, err := Load(m.path)
	if err != nil {
		m.log.Warn("failed to reload config", logger.ErrorFields("reload", err))
		return
	}
	if err := newConfig.Validate(); err != nil {
		m.log.Warn("invalid config after reload, keeping previous", logger.ErrorFields("validate", err))
		return
	}

	m.mu.Lock()
	m.config = newConfig
	m.mu.Unlock()

	m.log.Info("configuration reloaded")
	for _, fn := range m.onChange {
		c := *newConfig
		fn(&c)
	}
}
