package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"charactermemory/internal/models"
)

// InsertMemory writes a new memory row. Retries once after a fresh
// migration if the table is unexpectedly missing (per section 4.1's
// failure semantics).
func (s *PairStore) InsertMemory(ctx context.Context, m *models.MemoryEntry) error {
	err := s.insertMemory(ctx, m)
	if err != nil && isMissingTable(err) {
		if migErr := s.migrateIfNeeded(); migErr != nil {
			return fmt.Errorf("%w: %v", ErrMigrationFailed, migErr)
		}
		err = s.insertMemory(ctx, m)
	}
	return err
}

func (s *PairStore) insertMemory(ctx context.Context, m *models.MemoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO memories (
			id, character_id, user_id, conversation_id, content, memory_type,
			importance, emotional_valence, relationship_impact, related_entity_ids,
			archive_status, compressed_content, compression_ratio,
			created_at, last_accessed, access_count
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`,
		m.ID, m.CharacterID, m.UserID, m.ConversationID, m.Content, string(m.MemoryType),
		m.Importance, m.EmotionalValence, m.RelationshipImpact, marshalJSON(m.RelatedEntityIDs),
		string(m.ArchiveStatus), m.CompressedContent, m.CompressionRatio,
		m.CreatedAt, m.LastAccessed, m.AccessCount,
	)
	return err
}

// UpdateMemory applies a full overwrite of a memory row's mutable fields.
func (s *PairStore) UpdateMemory(ctx context.Context, m *models.MemoryEntry) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET
			content=?, memory_type=?, importance=?, emotional_valence=?,
			relationship_impact=?, related_entity_ids=?, archive_status=?,
			compressed_content=?, compression_ratio=?, last_accessed=?, access_count=?
		WHERE id=?
	`,
		m.Content, string(m.MemoryType), m.Importance, m.EmotionalValence,
		m.RelationshipImpact, marshalJSON(m.RelatedEntityIDs), string(m.ArchiveStatus),
		m.CompressedContent, m.CompressionRatio, m.LastAccessed, m.AccessCount,
		m.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMemory removes a memory row by id.
func (s *PairStore) DeleteMemory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id=?`, id)
	return err
}

// GetMemory fetches a single memory by id.
func (s *PairStore) GetMemory(ctx context.Context, id string) (*models.MemoryEntry, error) {
	row := s.db.QueryRowContext(ctx, memorySelectColumns+` FROM memories WHERE id=?`, id)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// QueryRecent returns the newest `limit` memories of any type for the pair.
func (s *PairStore) QueryRecent(ctx context.Context, limit int) ([]*models.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, memorySelectColumns+` FROM memories ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

// QueryByType returns up to `limit` newest memories of the given type.
func (s *PairStore) QueryByType(ctx context.Context, memType models.MemoryType, limit int) ([]*models.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, memorySelectColumns+` FROM memories WHERE memory_type=? ORDER BY created_at DESC LIMIT ?`, string(memType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

// QueryByImportance returns memories with importance >= min, highest first.
func (s *PairStore) QueryByImportance(ctx context.Context, min float64, limit int) ([]*models.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, memorySelectColumns+` FROM memories WHERE importance >= ? ORDER BY importance DESC LIMIT ?`, min, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

// SearchText returns memories whose content contains the query substring
// (case-insensitive), newest first. Deterministic lexical search per the
// spec's Open Question decision (no vector requirement).
func (s *PairStore) SearchText(ctx context.Context, query string, limit int) ([]*models.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, memorySelectColumns+` FROM memories WHERE lower(content) LIKE ? ORDER BY created_at DESC LIMIT ?`,
		"%"+strings.ToLower(query)+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

// CountByType returns how many rows of the given memory_type exist.
func (s *PairStore) CountByType(ctx context.Context, memType models.MemoryType) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM memories WHERE memory_type=?`, string(memType)).Scan(&n)
	return n, err
}

// OldestBufferMemories returns the oldest `limit` buffer memories, for
// promotion/eviction when the buffer window overflows.
func (s *PairStore) OldestBufferMemories(ctx context.Context, limit int) ([]*models.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, memorySelectColumns+` FROM memories WHERE memory_type=? ORDER BY created_at ASC LIMIT ?`,
		string(models.MemoryTypeBuffer), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

// QueryByTypes returns up to `limit` newest memories across any of the
// given memory types, for tiers (like the buffer tier) that span more
// than one memory_type value.
func (s *PairStore) QueryByTypes(ctx context.Context, types []models.MemoryType, limit int) ([]*models.MemoryEntry, error) {
	placeholders, args := typeInClause(types)
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, memorySelectColumns+` FROM memories WHERE memory_type IN (`+placeholders+`) ORDER BY created_at DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

// CountByTypes returns how many rows exist across any of the given types.
func (s *PairStore) CountByTypes(ctx context.Context, types []models.MemoryType) (int, error) {
	placeholders, args := typeInClause(types)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM memories WHERE memory_type IN (`+placeholders+`)`, args...).Scan(&n)
	return n, err
}

// OldestOfTypes returns the oldest `limit` memories across any of the
// given types, for promotion/eviction when a tier spanning multiple
// memory_type values overflows.
func (s *PairStore) OldestOfTypes(ctx context.Context, types []models.MemoryType, limit int) ([]*models.MemoryEntry, error) {
	placeholders, args := typeInClause(types)
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, memorySelectColumns+` FROM memories WHERE memory_type IN (`+placeholders+`) ORDER BY created_at ASC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

func typeInClause(types []models.MemoryType) (string, []any) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(types)), ",")
	args := make([]any, len(types))
	for i, t := range types {
		args[i] = string(t)
	}
	return placeholders, args
}

// MemoriesOlderThan returns active memories older than the cutoff, used by
// the archive/compress maintenance pass.
func (s *PairStore) MemoriesOlderThan(ctx context.Context, cutoff time.Time, archiveStatus models.ArchiveStatus) ([]*models.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, memorySelectColumns+` FROM memories WHERE created_at < ? AND archive_status=?`,
		cutoff, string(archiveStatus))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

const memorySelectColumns = `SELECT
	id, character_id, user_id, conversation_id, content, memory_type,
	importance, emotional_valence, relationship_impact, related_entity_ids,
	archive_status, compressed_content, compression_ratio,
	created_at, last_accessed, access_count`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (*models.MemoryEntry, error) {
	var m models.MemoryEntry
	var memType, archiveStatus, relatedIDs string
	if err := row.Scan(
		&m.ID, &m.CharacterID, &m.UserID, &m.ConversationID, &m.Content, &memType,
		&m.Importance, &m.EmotionalValence, &m.RelationshipImpact, &relatedIDs,
		&archiveStatus, &m.CompressedContent, &m.CompressionRatio,
		&m.CreatedAt, &m.LastAccessed, &m.AccessCount,
	); err != nil {
		return nil, err
	}
	m.MemoryType = models.MemoryType(memType)
	m.ArchiveStatus = models.ArchiveStatus(archiveStatus)
	m.RelatedEntityIDs = unmarshalJSONOr(relatedIDs, []string{})
	return &m, nil
}

func scanMemories(rows *sql.Rows) ([]*models.MemoryEntry, error) {
	var out []*models.MemoryEntry
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func isMissingTable(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "no such table")
}
