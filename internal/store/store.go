// Package store is the Metadata Store: one JSON descriptor per instance,
// scanned from the data directory to rebuild the instance set.
//
// There is no locking. When the manager and a widget process write the same
// instance's metadata, the last writer wins.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/smartnotes/internal/cachemanager"
	"github.com/zjrosen/smartnotes/internal/instance"
	"github.com/zjrosen/smartnotes/internal/log"
	"github.com/zjrosen/smartnotes/internal/paths"
)

// ErrNotFound is returned when an instance has no metadata file.
var ErrNotFound = errors.New("instance metadata not found")

const parseCacheTTL = 30 * time.Minute

// parsed is a cached decode of one metadata file, valid while the file's
// size and mtime are unchanged.
type parsed struct {
	modTime time.Time
	size    int64
	inst    instance.Instance
}

// Store reads and writes instance metadata files.
type Store struct {
	layout paths.Layout
	cache  cachemanager.CacheManager[string, parsed]
}

// New returns a store over the data directory dir.
func New(dir string) *Store {
	return &Store{
		layout: paths.New(dir),
		cache: cachemanager.NewInMemoryCacheManager[string, parsed](
			"metadata", parseCacheTTL, cachemanager.DefaultCleanupInterval),
	}
}

// Layout exposes the file naming used by the store.
func (s *Store) Layout() paths.Layout {
	return s.layout
}

// Skipped records a metadata file that could not be used.
type Skipped struct {
	Path string
	Err  error
}

// ScanResult is the outcome of a directory scan.
type ScanResult struct {
	Instances map[string]instance.Instance
	Skipped   []Skipped
	// Err is set when the directory itself could not be read; Instances is
	// then empty.
	Err error
}

// Scan parses every metadata file in the data directory. A bad file is
// logged and listed in Skipped; it never aborts the scan.
func (s *Store) Scan() ScanResult {
	res := ScanResult{Instances: make(map[string]instance.Instance)}

	entries, err := os.ReadDir(s.layout.Dir)
	if err != nil {
		log.ErrorErr(log.CatStore, "Failed to scan data directory", err, "dir", s.layout.Dir)
		res.Err = err
		return res
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fileID, ok := paths.IDFromMetadataName(e.Name())
		if !ok {
			continue
		}
		path := filepath.Join(s.layout.Dir, e.Name())
		inst, err := s.readCached(path, e)
		if err == nil && inst.ID != fileID {
			err = fmt.Errorf("file name id %q does not match instance_id %q", fileID, inst.ID)
		}
		if err != nil {
			log.Warn(log.CatStore, "Skipping unreadable metadata", "path", path, "error", err)
			res.Skipped = append(res.Skipped, Skipped{Path: path, Err: err})
			continue
		}
		res.Instances[inst.ID] = inst
	}

	log.Debug(log.CatStore, "Scan complete", "instances", len(res.Instances), "skipped", len(res.Skipped))
	return res
}

func (s *Store) readCached(path string, e fs.DirEntry) (instance.Instance, error) {
	info, err := e.Info()
	if err != nil {
		return instance.Instance{}, err
	}
	ctx := context.Background()
	if p, ok := s.cache.Get(ctx, path); ok && p.size == info.Size() && p.modTime.Equal(info.ModTime()) {
		return p.inst, nil
	}
	inst, err := readFile(path)
	if err != nil {
		s.cache.Delete(ctx, path)
		return instance.Instance{}, err
	}
	s.cache.Set(ctx, path, parsed{modTime: info.ModTime(), size: info.Size(), inst: inst}, 0)
	return inst, nil
}

func readFile(path string) (instance.Instance, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path built from the data dir listing
	if err != nil {
		return instance.Instance{}, err
	}
	return instance.Decode(data)
}

// LoadResult distinguishes a missing instance from a read failure.
type LoadResult struct {
	Instance instance.Instance
	Found    bool
}

// Load reads one instance. A missing file is Found=false with a nil error.
func (s *Store) Load(id string) (LoadResult, error) {
	inst, err := readFile(s.layout.Metadata(id))
	if errors.Is(err, fs.ErrNotExist) {
		return LoadResult{}, nil
	}
	if err != nil {
		return LoadResult{}, fmt.Errorf("reading metadata for %s: %w", id, err)
	}
	return LoadResult{Instance: inst, Found: true}, nil
}

// Write replaces the instance's metadata file in full. The document is
// written to a temporary file and renamed over the old one so readers never
// see a half-written file.
func (s *Store) Write(inst instance.Instance) error {
	if err := inst.Validate(); err != nil {
		return fmt.Errorf("invalid instance: %w", err)
	}
	inst.Normalize()

	data, err := json.MarshalIndent(inst, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	target := s.layout.Metadata(inst.ID)
	if err := writeAtomic(target, data); err != nil {
		log.ErrorErr(log.CatStore, "Failed to write metadata", err, "id", inst.ID)
		return err
	}
	s.cache.Delete(context.Background(), target)
	log.Debug(log.CatStore, "Wrote metadata", "id", inst.ID, "name", inst.Name)
	return nil
}

func writeAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", filepath.Base(target), err)
	}
	return nil
}

// Remove deletes only the metadata file. A missing file is not an error.
func (s *Store) Remove(id string) error {
	path := s.layout.Metadata(id)
	s.cache.Delete(context.Background(), path)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing metadata for %s: %w", id, err)
	}
	return nil
}

// RemoveInstanceFiles deletes the metadata file and the four widget files.
// Each deletion is attempted independently; the failures are returned.
func (s *Store) RemoveInstanceFiles(id string) []error {
	var errs []error
	for _, path := range s.layout.InstanceFiles(id) {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn(log.CatStore, "Could not delete instance file", "path", path, "error", err)
			errs = append(errs, err)
		}
	}
	s.cache.Delete(context.Background(), s.layout.Metadata(id))
	return errs
}

// TouchNotes creates an empty notes file if none exists.
func (s *Store) TouchNotes(id string) error {
	path := s.layout.Role(id, paths.RoleNotes)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // G304: derived from instance id
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("creating notes file: %w", err)
	}
	return f.Close()
}

// CopyNotes copies the source instance's notes file byte for byte to the
// destination instance. copied is false when the source has no notes file.
func (s *Store) CopyNotes(srcID, dstID string) (copied bool, err error) {
	src, err := os.Open(s.layout.Role(srcID, paths.RoleNotes)) //nolint:gosec // G304: derived from instance id
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("opening source notes: %w", err)
	}
	defer func() { _ = src.Close() }()

	dstPath := s.layout.Role(dstID, paths.RoleNotes)
	tmp, err := os.CreateTemp(filepath.Dir(dstPath), filepath.Base(dstPath)+".*.tmp")
	if err != nil {
		return false, fmt.Errorf("creating clone notes: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return false, fmt.Errorf("copying notes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return false, fmt.Errorf("closing clone notes: %w", err)
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		_ = os.Remove(tmpPath)
		return false, fmt.Errorf("installing clone notes: %w", err)
	}
	return true, nil
}
