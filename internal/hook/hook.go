// Package hook registers commands with the operating system's per-user
// login startup mechanism. Every backend stores one named entry per command
// and only ever touches entries whose names carry EntryPrefix.
package hook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zjrosen/smartnotes/internal/instance"
)

const (
	// EntryPrefix marks entries owned by smartnotes.
	EntryPrefix = "SmartNotes_"
	// GlobalEntryName is the single entry that runs the startup manager.
	GlobalEntryName = EntryPrefix + "StartupManager"
)

// ErrInvalidName is returned for names a backend cannot store safely.
var ErrInvalidName = errors.New("invalid startup entry name")

// Hook is a platform startup mechanism.
type Hook interface {
	// Register creates or replaces the entry.
	Register(name string, command []string) error
	// Unregister removes the entry. Removing an absent entry succeeds.
	Unregister(name string) error
	// List returns the names of all smartnotes entries.
	List() ([]string, error)
}

// EntryName is the per-instance entry name.
func EntryName(id string) string {
	return EntryPrefix + instance.ShortID(id)
}

// Contains reports whether name is registered with h.
func Contains(h Hook, name string) (bool, error) {
	names, err := h.List()
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

func checkName(name string) error {
	if !strings.HasPrefix(name, EntryPrefix) || len(name) == len(EntryPrefix) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.ContainsAny(name, `/\:*?"<>|`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func checkCommand(command []string) error {
	if len(command) == 0 || command[0] == "" {
		return errors.New("startup entry command is empty")
	}
	return nil
}
