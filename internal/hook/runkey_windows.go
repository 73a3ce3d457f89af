//go:build windows

package hook

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"github.com/zjrosen/smartnotes/internal/log"
)

// RunKeyPath is the per-user Run key under HKEY_CURRENT_USER.
const RunKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`

// RunKey stores entries as string values of the current user's Run key.
type RunKey struct {
	Path string
}

// NewRunKey returns a RunKey backend on RunKeyPath.
func NewRunKey() *RunKey {
	return &RunKey{Path: RunKeyPath}
}

func (r *RunKey) open(access uint32) (registry.Key, error) {
	k, _, err := registry.CreateKey(registry.CURRENT_USER, r.Path, access)
	if err != nil {
		return 0, fmt.Errorf("opening Run key: %w", err)
	}
	return k, nil
}

func (r *RunKey) Register(name string, command []string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := checkCommand(command); err != nil {
		return err
	}
	k, err := r.open(registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer func() { _ = k.Close() }()
	if err := k.SetStringValue(name, windows.ComposeCommandLine(command)); err != nil {
		return fmt.Errorf("writing Run value %s: %w", name, err)
	}
	log.Info(log.CatHook, "Registered startup entry", "name", name, "backend", "runkey")
	return nil
}

func (r *RunKey) Unregister(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	k, err := r.open(registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer func() { _ = k.Close() }()
	if err := k.DeleteValue(name); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return fmt.Errorf("deleting Run value %s: %w", name, err)
	}
	return nil
}

func (r *RunKey) List() ([]string, error) {
	k, err := r.open(registry.QUERY_VALUE)
	if err != nil {
		return nil, err
	}
	defer func() { _ = k.Close() }()
	all, err := k.ReadValueNames(-1)
	if err != nil {
		return nil, fmt.Errorf("reading Run values: %w", err)
	}
	var names []string
	for _, n := range all {
		if strings.HasPrefix(n, EntryPrefix) {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	return names, nil
}
