package hook

import (
	"slices"
	"sync"
)

// Memory is an in-process Hook used by tests and by --dry-run style
// callers.
type Memory struct {
	mu      sync.Mutex
	entries map[string][]string
}

// NewMemory returns an empty Memory hook.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]string)}
}

func (m *Memory) Register(name string, command []string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := checkCommand(command); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = slices.Clone(command)
	return nil
}

func (m *Memory) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, name)
	return nil
}

func (m *Memory) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.entries))
	for n := range m.entries {
		names = append(names, n)
	}
	slices.Sort(names)
	return names, nil
}

// Command returns the registered command for name.
func (m *Memory) Command(name string) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd, ok := m.entries[name]
	return slices.Clone(cmd), ok
}
