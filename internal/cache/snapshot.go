package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

// snapshotEntry is one serialized cache entry. Expired entries are
// skipped on both save and load.
type snapshotEntry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Snapshot serializes the store's live entries to a zstd-compressed
// JSON file so a later Initialize can start warm. The write goes
// through a temp file and rename so a crash never leaves a truncated
// snapshot behind.
func (s *Store) Snapshot(path string) error {
	now := time.Now()
	var entries []snapshotEntry
	for _, sh := range s.shards {
		sh.mu.RLock()
		for key, e := range sh.entries {
			if now.After(e.expiresAt) {
				continue
			}
			entries = append(entries, snapshotEntry{Key: key, Value: e.value, ExpiresAt: e.expiresAt})
		}
		sh.mu.RUnlock()
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Restore loads a snapshot into the store if the file exists and is
// younger than maxAge. Entries already expired are dropped. Returns the
// number of entries restored.
func (s *Store) Restore(path string, maxAge time.Duration) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	if maxAge > 0 && time.Since(info.ModTime()) > maxAge {
		s.logger.Debug("cache snapshot too old, ignoring", map[string]interface{}{
			"path": path,
			"age":  time.Since(info.ModTime()).String(),
		})
		return 0, nil
	}

	compressed, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return 0, err
	}
	defer dec.Close()

	data, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return 0, err
	}

	var entries []snapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, err
	}

	now := time.Now()
	restored := 0
	for _, e := range entries {
		if now.After(e.ExpiresAt) {
			continue
		}
		s.putRaw(e.Key, e.Value, e.ExpiresAt)
		restored++
	}
	return restored, nil
}
