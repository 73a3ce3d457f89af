// Package legacy imports the deprecated instance registry
// (.smart_notes_instance_registry.json). Older managers mirrored every
// metadata file into it and some stored an auto_start flag per entry. Its
// contents are folded into the metadata files and the auto-start registry
// once, then the file is renamed out of the way and never read again.
package legacy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/zjrosen/smartnotes/internal/instance"
	"github.com/zjrosen/smartnotes/internal/log"
	"github.com/zjrosen/smartnotes/internal/store"
)

// MigratedSuffix is appended to the registry file name after import.
const MigratedSuffix = ".migrated"

// MetadataStore is the subset of store.Store the import needs.
type MetadataStore interface {
	Load(id string) (store.LoadResult, error)
	Write(inst instance.Instance) error
}

// AutoStartRegistry is the subset of autostart.Registry the import needs.
type AutoStartRegistry interface {
	IsEnabled(id string) bool
	Add(inst instance.Instance) error
}

type entry struct {
	instance.Instance
	AutoStart bool `json:"auto_start"`
}

// Result summarizes one import.
type Result struct {
	Found          bool
	Entries        int
	MetadataAdded  []string
	AutoStartAdded []string
	Skipped        []string
}

// Import folds the legacy registry at path into metadata and registry. A
// missing file is not an error. Entries that already have a metadata file
// keep it; entries flagged auto_start are enabled unless they already are.
// The file is renamed only when every entry was handled, so a failed write
// is retried on the next start.
func Import(path string, md MetadataStore, reg AutoStartRegistry) (Result, error) {
	var res Result
	data, err := os.ReadFile(path) //nolint:gosec // G304: path from layout
	if errors.Is(err, fs.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("reading legacy registry: %w", err)
	}
	res.Found = true

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn(log.CatStore, "Legacy registry is unreadable, setting it aside", "path", path, "error", err)
		return res, retire(path)
	}
	res.Entries = len(raw)

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var failed error
	for _, id := range ids {
		var e entry
		if err := json.Unmarshal(raw[id], &e); err != nil {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		e.ID = id
		if err := e.Validate(); err != nil {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		e.Normalize()

		existing, err := md.Load(id)
		if err != nil {
			// A corrupt metadata file is left alone; the scan reports it.
			res.Skipped = append(res.Skipped, id)
			continue
		}
		inst := existing.Instance
		if !existing.Found {
			inst = e.Instance
			if err := md.Write(inst); err != nil {
				failed = errors.Join(failed, fmt.Errorf("importing %s: %w", id, err))
				continue
			}
			res.MetadataAdded = append(res.MetadataAdded, id)
		}
		if e.AutoStart && !reg.IsEnabled(id) {
			if err := reg.Add(inst); err != nil {
				failed = errors.Join(failed, fmt.Errorf("enabling auto-start for %s: %w", id, err))
				continue
			}
			res.AutoStartAdded = append(res.AutoStartAdded, id)
		}
	}
	if failed != nil {
		return res, failed
	}

	log.Info(log.CatStore, "Imported legacy registry",
		"entries", res.Entries,
		"metadata", len(res.MetadataAdded),
		"autostart", len(res.AutoStartAdded),
		"skipped", len(res.Skipped))
	return res, retire(path)
}

func retire(path string) error {
	if err := os.Rename(path, path+MigratedSuffix); err != nil {
		return fmt.Errorf("retiring legacy registry: %w", err)
	}
	return nil
}
