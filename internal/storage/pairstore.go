// Package storage implements the per-(character,user) embedded store (C1):
// one SQLite file per pair plus a shared relationships database, additive
// schema migration, and the query surface the upper engines depend on.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"charactermemory/internal/models"
)

// PairStore is the durable store for a single (character_id, user_id) pair.
type PairStore struct {
	db          *sql.DB
	characterID string
	userID      string
	path        string
}

// Registry caches one PairStore per pair, mirroring the teacher's
// map-plus-RWMutex connection registry pattern (see connection_manager.go).
type Registry struct {
	mu        sync.RWMutex
	stores    map[string]*PairStore
	memoriesDir string
}

// NewRegistry creates a registry rooted at memoriesDir (created if absent).
func NewRegistry(memoriesDir string) (*Registry, error) {
	if err := os.MkdirAll(memoriesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create memories dir: %w", err)
	}
	return &Registry{
		stores:      make(map[string]*PairStore),
		memoriesDir: memoriesDir,
	}, nil
}

func pairKey(characterID, userID string) string {
	return characterID + "\x00" + userID
}

// Open returns the PairStore for (characterID, userID), opening and
// migrating it lazily on first use.
func (r *Registry) Open(characterID, userID string) (*PairStore, error) {
	key := pairKey(characterID, userID)

	r.mu.RLock()
	if s, ok := r.stores[key]; ok {
		r.mu.RUnlock()
		return s, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[key]; ok {
		return s, nil
	}

	path := filepath.Join(r.memoriesDir, fmt.Sprintf("%s_%s_memory.db", characterID, userID))
	store, err := openPairStore(path, characterID, userID)
	if err != nil {
		return nil, err
	}
	r.stores[key] = store
	if err := r.recordPair(characterID, userID); err != nil {
		return nil, fmt.Errorf("record pair manifest: %w", err)
	}
	return store, nil
}

// Pair names a (character,user) combination discovered on disk.
type Pair struct {
	CharacterID string
	UserID      string
}

// pairsManifestFile tracks every (character_id, user_id) pair ever opened,
// since the two IDs cannot be reliably split back out of the
// "{character_id}_{user_id}_memory.db" filename alone when either ID
// itself contains an underscore.
const pairsManifestFile = "pairs.manifest"

func (r *Registry) recordPair(characterID, userID string) error {
	path := filepath.Join(r.memoriesDir, pairsManifestFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(characterID + "\t" + userID + "\n")
	return err
}

// Pairs lists every (character,user) pair discovered on disk, used by the
// maintenance scheduler to sweep all known pairs.
func (r *Registry) Pairs() ([]Pair, error) {
	path := filepath.Join(r.memoriesDir, pairsManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	seen := make(map[string]bool)
	var pairs []Pair
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		pairs = append(pairs, Pair{CharacterID: parts[0], UserID: parts[1]})
	}
	return pairs, nil
}

func openPairStore(path, characterID, userID string) (*PairStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorageUnavailable, path, err)
	}
	db.SetMaxOpenConns(1) // SQLite serializes writers; one logical writer per pair

	s := &PairStore{db: db, characterID: characterID, userID: userID, path: path}
	if err := s.migrateIfNeeded(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *PairStore) Close() error {
	return s.db.Close()
}

var requiredTables = map[string]string{
	"memories": `CREATE TABLE memories (
		id TEXT PRIMARY KEY,
		character_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		content TEXT NOT NULL,
		memory_type TEXT NOT NULL,
		importance REAL NOT NULL DEFAULT 0.5,
		emotional_valence REAL NOT NULL DEFAULT 0,
		relationship_impact REAL NOT NULL DEFAULT 0,
		related_entity_ids TEXT NOT NULL DEFAULT '[]',
		archive_status TEXT NOT NULL DEFAULT 'active',
		compressed_content TEXT NOT NULL DEFAULT '',
		compression_ratio REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		last_accessed DATETIME NOT NULL,
		access_count INTEGER NOT NULL DEFAULT 0
	)`,
	"entities": `CREATE TABLE entities (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		name TEXT NOT NULL,
		normalized_name TEXT NOT NULL,
		aliases TEXT NOT NULL DEFAULT '[]',
		attributes TEXT NOT NULL DEFAULT '{}',
		first_seen DATETIME NOT NULL,
		last_seen DATETIME NOT NULL,
		mention_count INTEGER NOT NULL DEFAULT 1,
		confidence REAL NOT NULL DEFAULT 0.8,
		UNIQUE(user_id, type, normalized_name)
	)`,
	"entity_edges": `CREATE TABLE entity_edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_id TEXT NOT NULL,
		relationship_type TEXT NOT NULL,
		target_entity_id TEXT NOT NULL
	)`,
	"entity_mentions": `CREATE TABLE entity_mentions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_id TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		mentioned_at DATETIME NOT NULL
	)`,
	"context_windows": `CREATE TABLE context_windows (
		conversation_id TEXT PRIMARY KEY,
		entity_ids TEXT NOT NULL DEFAULT '[]',
		current_topic TEXT NOT NULL DEFAULT '',
		emotional_context TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL
	)`,
}

var requiredIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_memories_pair_ts ON memories(user_id, character_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_importance ON memories(importance DESC, archive_status)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_type_ts ON memories(memory_type, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_conv_ts ON memories(conversation_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name)`,
}

// migrateIfNeeded introspects existing tables/columns via SQLite PRAGMAs and
// applies additive-only migrations, matching the contract in
// SPEC_FULL.md section 4.1. Never drops a column.
func (s *PairStore) migrateIfNeeded() error {
	for table, createSQL := range requiredTables {
		exists, err := s.tableExists(table)
		if err != nil {
			return err
		}
		if !exists {
			log.Printf("🗂️ [STORAGE] creating table %s for pair %s/%s", table, s.characterID, s.userID)
			if _, err := s.db.Exec(createSQL); err != nil {
				return fmt.Errorf("create table %s: %w", table, err)
			}
		}
	}

	for _, idx := range requiredIndexes {
		if _, err := s.db.Exec(idx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}

func (s *PairStore) tableExists(name string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Vacuum reclaims space after compression/archival passes.
func (s *PairStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Analyze refreshes SQLite's query planner statistics.
func (s *PairStore) Analyze(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "ANALYZE")
	return err
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func unmarshalJSONOr[T any](raw string, fallback T) T {
	var v T
	if raw == "" {
		return fallback
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return fallback
	}
	return v
}
