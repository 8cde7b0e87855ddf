package cache

import (
	"encoding/json"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"strata/internal/logging"
	"strata/internal/paths"
)

const shardCount = 16

// entry is one cached payload. Entries are immutable after creation;
// they expire or get purged, never partially updated.
type entry struct {
	value     json.RawMessage
	expiresAt time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// StoreConfig bounds the store and its janitor.
type StoreConfig struct {
	MaxEntries      int
	JanitorInterval time.Duration
}

// StoreStats reports cache counters for diagnostics.
type StoreStats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// Store is the shared resolution cache: a sharded concurrent map keyed
// by request fingerprints. Values are stored JSON-encoded so snapshot
// round trips and typed reads agree on one representation. A janitor
// goroutine evicts expired entries in the background.
type Store struct {
	shards [shardCount]*shard
	cfg    StoreConfig
	logger *logging.Logger

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	stopJanitor chan struct{}
	stopOnce    sync.Once
}

// NewStore creates a store and starts its janitor.
func NewStore(cfg StoreConfig, logger *logging.Logger) *Store {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 2048
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = time.Minute
	}

	s := &Store{
		cfg:         cfg,
		logger:      logger,
		stopJanitor: make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]entry)}
	}

	go s.janitor()
	return s
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

// Get returns the JSON payload for a key if present and unexpired.
func (s *Store) Get(key string) (json.RawMessage, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return e.value, true
}

// Put stores a value under key for ttl. The value is JSON-encoded once
// here; readers unmarshal into their own typed destination.
func (s *Store) Put(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.putRaw(key, data, time.Now().Add(ttl))
	return nil
}

func (s *Store) putRaw(key string, data json.RawMessage, expiresAt time.Time) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if len(sh.entries) >= s.cfg.MaxEntries/shardCount {
		s.evictOneLocked(sh)
	}
	sh.entries[key] = entry{value: data, expiresAt: expiresAt}
}

// evictOneLocked drops the entry closest to expiry in the shard.
func (s *Store) evictOneLocked(sh *shard) {
	var victim string
	var earliest time.Time
	for k, e := range sh.entries {
		if victim == "" || e.expiresAt.Before(earliest) {
			victim = k
			earliest = e.expiresAt
		}
	}
	if victim != "" {
		delete(sh.entries, victim)
		s.evictions.Add(1)
	}
}

// InvalidateURI purges every entry whose fingerprint was derived from
// the given normalized URI. Entries keyed by the workspace-global scope
// are purged too, since their results may span the changed file.
// Returns the number of entries removed.
func (s *Store) InvalidateURI(normalizedURI string) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key := range sh.entries {
			keyURI := KeyURI(key)
			if keyURI == normalizedURI || keyURI == paths.WorkspaceScope {
				delete(sh.entries, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Clear removes every entry.
func (s *Store) Clear() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.entries = make(map[string]entry)
		sh.mu.Unlock()
	}
}

// Len returns the live entry count (expired entries not yet collected
// are included).
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// Stats returns cache counters.
func (s *Store) Stats() StoreStats {
	return StoreStats{
		Entries:   s.Len(),
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
	}
}

func (s *Store) janitor() {
	ticker := time.NewTicker(s.cfg.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.collectExpired()
		case <-s.stopJanitor:
			return
		}
	}
}

func (s *Store) collectExpired() {
	now := time.Now()
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, e := range sh.entries {
			if now.After(e.expiresAt) {
				delete(sh.entries, key)
				s.evictions.Add(1)
			}
		}
		sh.mu.Unlock()
	}
}

// Close stops the janitor. Idempotent.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stopJanitor) })
}
