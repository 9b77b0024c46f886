package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gitai-reporter/promptfit/pkg/errors"
	"github.com/gitai-reporter/promptfit/pkg/interfaces"
	"github.com/gitai-reporter/promptfit/pkg/types"
)

const fileExt = ".json"

// FileBackend stores one serialized CacheEntry per file. The filename is the
// hex digest of the key string; files older than maxFileAge are treated as
// absent; corrupted or unreadable entries are deleted and treated as a miss.
type FileBackend struct {
	dir        string
	maxFileAge time.Duration

	// now is replaceable for tests
	now func() time.Time
}

// NewFileBackend creates a file-backed cache rooted at dir
func NewFileBackend(dir string, maxFileAge time.Duration) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewCacheError("failed to create cache directory", err)
	}
	return &FileBackend{
		dir:        dir,
		maxFileAge: maxFileAge,
		now:        time.Now,
	}, nil
}

func (f *FileBackend) path(key string) string {
	digest := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(digest[:])+fileExt)
}

// Get reads an entry from disk. Expiry is judged by file mtime.
func (f *FileBackend) Get(key string) (*types.CacheEntry, bool) {
	path := f.path(key)

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if f.maxFileAge > 0 && f.now().Sub(info.ModTime()) > f.maxFileAge {
		os.Remove(path)
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		os.Remove(path)
		return nil, false
	}

	var entry types.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		os.Remove(path)
		return nil, false
	}

	entry.AccessCount++
	entry.LastAccessed = f.now()
	// Persist the refreshed bookkeeping, restoring the mtime so expiry keeps
	// counting from the write, not the read.
	if refreshed, err := json.Marshal(&entry); err == nil {
		if os.WriteFile(path, refreshed, 0644) == nil {
			os.Chtimes(path, info.ModTime(), info.ModTime())
		}
	}
	return &entry, true
}

// Set serializes the entry to its key file
func (f *FileBackend) Set(key string, entry *types.CacheEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = f.now()
	}
	entry.Key = key

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.NewCacheError("failed to serialize cache entry", err)
	}
	if err := os.WriteFile(f.path(key), data, 0644); err != nil {
		return errors.NewCacheError("failed to write cache file", err)
	}
	return nil
}

// Delete removes the entry's file
func (f *FileBackend) Delete(key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.NewCacheError("failed to delete cache file", err)
	}
	return nil
}

// Keys returns the keys of live entries, most recently modified first.
// Expired and unreadable files are skipped.
func (f *FileBackend) Keys() []string {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil
	}

	type keyed struct {
		key     string
		modTime time.Time
	}
	var found []keyed
	for _, dirEntry := range entries {
		if dirEntry.IsDir() || filepath.Ext(dirEntry.Name()) != fileExt {
			continue
		}
		info, err := dirEntry.Info()
		if err != nil {
			continue
		}
		if f.maxFileAge > 0 && f.now().Sub(info.ModTime()) > f.maxFileAge {
			continue
		}

		data, err := os.ReadFile(filepath.Join(f.dir, dirEntry.Name()))
		if err != nil {
			continue
		}
		var entry types.CacheEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		found = append(found, keyed{key: entry.Key, modTime: info.ModTime()})
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].modTime.After(found[j].modTime)
	})

	keys := make([]string, len(found))
	for i, k := range found {
		keys[i] = k.key
	}
	return keys
}

// Len counts live entry files
func (f *FileBackend) Len() int {
	return len(f.Keys())
}

// Purge removes every entry file
func (f *FileBackend) Purge() error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return errors.NewCacheError("failed to read cache directory", err)
	}
	for _, dirEntry := range entries {
		if !dirEntry.IsDir() && filepath.Ext(dirEntry.Name()) == fileExt {
			os.Remove(filepath.Join(f.dir, dirEntry.Name()))
		}
	}
	return nil
}

var _ interfaces.CacheBackend = (*FileBackend)(nil)
