package hook

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/zjrosen/smartnotes/internal/log"
)

const desktopExt = ".desktop"

// XDG stores entries as .desktop files in an XDG autostart directory.
type XDG struct {
	Dir string
}

// NewXDG uses dir, or $XDG_CONFIG_HOME/autostart (~/.config/autostart) when
// dir is empty.
func NewXDG(dir string) *XDG {
	if dir == "" {
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
		dir = filepath.Join(base, "autostart")
	}
	return &XDG{Dir: dir}
}

func (x *XDG) path(name string) string {
	return filepath.Join(x.Dir, name+desktopExt)
}

func (x *XDG) Register(name string, command []string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := checkCommand(command); err != nil {
		return err
	}
	if err := os.MkdirAll(x.Dir, 0o750); err != nil {
		return fmt.Errorf("creating autostart directory: %w", err)
	}
	var b bytes.Buffer
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", name)
	fmt.Fprintf(&b, "Exec=%s\n", desktopExec(command))
	b.WriteString("Terminal=false\n")
	b.WriteString("X-GNOME-Autostart-enabled=true\n")
	if err := os.WriteFile(x.path(name), b.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(x.path(name)), err)
	}
	log.Info(log.CatHook, "Registered startup entry", "name", name, "backend", "xdg")
	return nil
}

func (x *XDG) Unregister(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(x.path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing startup entry %s: %w", name, err)
	}
	return nil
}

func (x *XDG) List() ([]string, error) {
	entries, err := os.ReadDir(x.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing autostart directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasPrefix(n, EntryPrefix) || !strings.HasSuffix(n, desktopExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(n, desktopExt))
	}
	slices.Sort(names)
	return names, nil
}

// Exec reads back the Exec line of a registered entry.
func (x *XDG) Exec(name string) (string, error) {
	f, err := os.Open(x.path(name)) //nolint:gosec // G304: name validated on register
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if v, ok := strings.CutPrefix(sc.Text(), "Exec="); ok {
			return v, nil
		}
	}
	return "", sc.Err()
}

// desktopExec quotes arguments per the Desktop Entry Exec rules: arguments
// with reserved characters are double-quoted with ", `, $ and \ escaped.
func desktopExec(command []string) string {
	parts := make([]string, len(command))
	for i, arg := range command {
		parts[i] = desktopQuote(arg)
	}
	return strings.Join(parts, " ")
}

func desktopQuote(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\n\"'\\><~|&;$*?#()`%=") {
		return arg
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range arg {
		switch r {
		case '"', '`', '$', '\\':
			b.WriteByte('\\')
		case '%':
			b.WriteByte('%')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
