package hook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"howett.net/plist"

	"github.com/zjrosen/smartnotes/internal/log"
)

const (
	labelPrefix = "com.smartnotes."
	plistExt    = ".plist"
)

// agentPlist is the subset of launchd.plist(5) keys an entry uses.
type agentPlist struct {
	Label            string   `plist:"Label"`
	ProgramArguments []string `plist:"ProgramArguments"`
	RunAtLoad        bool     `plist:"RunAtLoad"`
}

// LaunchAgent stores entries as RunAtLoad property lists in a
// LaunchAgents directory. launchd picks them up at the next login.
type LaunchAgent struct {
	Dir string
}

// NewLaunchAgent uses dir, or ~/Library/LaunchAgents when dir is empty.
func NewLaunchAgent(dir string) *LaunchAgent {
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, "Library", "LaunchAgents")
	}
	return &LaunchAgent{Dir: dir}
}

func (l *LaunchAgent) path(name string) string {
	return filepath.Join(l.Dir, labelPrefix+name+plistExt)
}

func (l *LaunchAgent) Register(name string, command []string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := checkCommand(command); err != nil {
		return err
	}
	if err := os.MkdirAll(l.Dir, 0o750); err != nil {
		return fmt.Errorf("creating LaunchAgents directory: %w", err)
	}
	data, err := renderPlist(labelPrefix+name, command)
	if err != nil {
		return err
	}
	if err := os.WriteFile(l.path(name), data, 0o600); err != nil {
		return fmt.Errorf("writing launch agent %s: %w", name, err)
	}
	log.Info(log.CatHook, "Registered startup entry", "name", name, "backend", "launchagent")
	return nil
}

func (l *LaunchAgent) Unregister(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(l.path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing launch agent %s: %w", name, err)
	}
	return nil
}

func (l *LaunchAgent) List() ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing LaunchAgents: %w", err)
	}
	var names []string
	for _, e := range entries {
		n, ok := strings.CutPrefix(e.Name(), labelPrefix)
		if !ok || e.IsDir() || !strings.HasSuffix(n, plistExt) {
			continue
		}
		n = strings.TrimSuffix(n, plistExt)
		if strings.HasPrefix(n, EntryPrefix) {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Arguments reads back the command registered under name.
func (l *LaunchAgent) Arguments(name string) ([]string, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.path(name))
	if err != nil {
		return nil, fmt.Errorf("reading launch agent %s: %w", name, err)
	}
	var p agentPlist
	if _, err := plist.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding launch agent %s: %w", name, err)
	}
	return p.ProgramArguments, nil
}

func renderPlist(label string, command []string) ([]byte, error) {
	data, err := plist.MarshalIndent(agentPlist{
		Label:            label,
		ProgramArguments: command,
		RunAtLoad:        true,
	}, plist.XMLFormat, "\t")
	if err != nil {
		return nil, fmt.Errorf("encoding launch agent %s: %w", label, err)
	}
	return data, nil
}
