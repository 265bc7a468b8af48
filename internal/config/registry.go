package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ConnectionManager is the registry of monitored ClickHouse servers, persisted
// as a YAML list. List re-reads the file on every call so that additions and
// removals take effect on the collector's next cycle without a restart.
type ConnectionManager struct {
	mu   sync.Mutex
	path string
}

// registryFile is the on-disk layout of the registry.
type registryFile struct {
	Connections []Connection `yaml:"connections"`
}

// NewConnectionManager creates a registry backed by the file at path. The
// file is created lazily on first mutation.
func NewConnectionManager(path string) *ConnectionManager {
	return &ConnectionManager{path: path}
}

// List returns all configured connections in file order.
func (m *ConnectionManager) List() []Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns, err := m.load()
	if err != nil {
		slog.Error("loading connection registry", "path", m.path, "error", err)
		return nil
	}
	return conns
}

// Get returns the connection with the given name, or false if absent.
func (m *ConnectionManager) Get(name string) (Connection, bool) {
	for _, c := range m.List() {
		if c.Name == name {
			return c, true
		}
	}
	return Connection{}, false
}

// Add appends a new connection and persists the registry.
func (m *ConnectionManager) Add(conn Connection) error {
	if err := validateConnection(conn); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	conns, err := m.load()
	if err != nil {
		return err
	}
	for _, c := range conns {
		if c.Name == conn.Name {
			return fmt.Errorf("connection %q already exists", conn.Name)
		}
	}
	conns = append(conns, withConnDefaults(conn))
	if err := m.persist(conns); err != nil {
		return err
	}
	slog.Info("added connection", "name", conn.Name)
	return nil
}

// Update replaces the connection named oldName and persists the registry.
func (m *ConnectionManager) Update(oldName string, conn Connection) error {
	if err := validateConnection(conn); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	conns, err := m.load()
	if err != nil {
		return err
	}
	for i, c := range conns {
		if c.Name == oldName {
			conns[i] = withConnDefaults(conn)
			if err := m.persist(conns); err != nil {
				return err
			}
			slog.Info("updated connection", "old", oldName, "new", conn.Name)
			return nil
		}
	}
	return fmt.Errorf("connection %q not found", oldName)
}

// Delete removes the named connection and persists the registry. Snapshot
// rows already collected under that name are left in place.
func (m *ConnectionManager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns, err := m.load()
	if err != nil {
		return err
	}
	for i, c := range conns {
		if c.Name == name {
			conns = append(conns[:i], conns[i+1:]...)
			if err := m.persist(conns); err != nil {
				return err
			}
			slog.Info("deleted connection", "name", name)
			return nil
		}
	}
	return fmt.Errorf("connection %q not found", name)
}

func (m *ConnectionManager) load() ([]Connection, error) {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing registry: %w", err)
	}
	for i := range f.Connections {
		f.Connections[i] = withConnDefaults(f.Connections[i])
	}
	return f.Connections, nil
}

func (m *ConnectionManager) persist(conns []Connection) error {
	data, err := yaml.Marshal(registryFile{Connections: conns})
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating registry dir: %w", err)
		}
	}
	// 0600: the registry holds server passwords.
	if err := os.WriteFile(m.path, data, 0o600); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	return nil
}

func validateConnection(c Connection) error {
	if c.Name == "" {
		return fmt.Errorf("connection name is required")
	}
	if c.Host == "" {
		return fmt.Errorf("connection host is required")
	}
	return nil
}

func withConnDefaults(c Connection) Connection {
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.User == "" {
		c.User = "default"
	}
	if c.Database == "" {
		c.Database = "default"
	}
	return c
}
