package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"charactermemory/internal/models"
)

// UpsertEntity inserts a new entity, or merges into an existing one sharing
// (user_id, type, normalized_name), per the uniqueness invariant in
// SPEC_FULL.md section 3.
func (s *PairStore) UpsertEntity(ctx context.Context, e *models.Entity) error {
	normalized := normalizeName(e.Name)

	existing, err := s.FindEntityByName(ctx, e.Type, e.Name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		existing.MentionCount++
		existing.LastSeen = e.LastSeen
		for k, v := range e.Attributes {
			existing.Attributes[k] = v
		}
		for _, alias := range e.Aliases {
			if !containsStr(existing.Aliases, alias) {
				existing.Aliases = append(existing.Aliases, alias)
			}
		}
		return s.updateEntity(ctx, existing)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities (id, user_id, type, name, normalized_name, aliases, attributes,
			first_seen, last_seen, mention_count, confidence)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
	`, e.ID, e.UserID, string(e.Type), e.Name, normalized, marshalJSON(e.Aliases), marshalJSON(e.Attributes),
		e.FirstSeen, e.LastSeen, e.MentionCount, e.Confidence)
	return err
}

func (s *PairStore) updateEntity(ctx context.Context, e *models.Entity) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE entities SET aliases=?, attributes=?, last_seen=?, mention_count=?, confidence=?
		WHERE id=?
	`, marshalJSON(e.Aliases), marshalJSON(e.Attributes), e.LastSeen, e.MentionCount, e.Confidence, e.ID)
	return err
}

// FindEntityByName looks up an entity by (type, normalized name) for this
// pair's user.
func (s *PairStore) FindEntityByName(ctx context.Context, entityType models.EntityType, name string) (*models.Entity, error) {
	row := s.db.QueryRowContext(ctx, entitySelectColumns+` FROM entities WHERE type=? AND normalized_name=?`,
		string(entityType), normalizeName(name))
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// GetEntity fetches an entity by id.
func (s *PairStore) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	row := s.db.QueryRowContext(ctx, entitySelectColumns+` FROM entities WHERE id=?`, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// TopEntities returns up to `limit` entities ranked by mention_count desc,
// then recency, for context-bundle assembly.
func (s *PairStore) TopEntities(ctx context.Context, limit int) ([]*models.Entity, error) {
	rows, err := s.db.QueryContext(ctx, entitySelectColumns+` FROM entities ORDER BY mention_count DESC, last_seen DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EntitiesByIDs fetches a set of entities by id, preserving no particular order.
func (s *PairStore) EntitiesByIDs(ctx context.Context, ids []string) ([]*models.Entity, error) {
	out := make([]*models.Entity, 0, len(ids))
	for _, id := range ids {
		e, err := s.GetEntity(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

const entitySelectColumns = `SELECT
	id, user_id, type, name, aliases, attributes, first_seen, last_seen, mention_count, confidence`

func scanEntity(row rowScanner) (*models.Entity, error) {
	var e models.Entity
	var entityType, aliases, attributes string
	if err := row.Scan(&e.ID, &e.UserID, &entityType, &e.Name, &aliases, &attributes,
		&e.FirstSeen, &e.LastSeen, &e.MentionCount, &e.Confidence); err != nil {
		return nil, err
	}
	e.Type = models.EntityType(entityType)
	e.Aliases = unmarshalJSONOr(aliases, []string{})
	e.Attributes = unmarshalJSONOr(attributes, map[string]string{})
	e.Edges = map[string][]string{}
	return &e, nil
}

// SaveContextWindow upserts the context window row for a conversation.
func (s *PairStore) SaveContextWindow(ctx context.Context, w *models.ContextWindow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO context_windows (conversation_id, entity_ids, current_topic, emotional_context, updated_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			entity_ids=excluded.entity_ids,
			current_topic=excluded.current_topic,
			emotional_context=excluded.emotional_context,
			updated_at=excluded.updated_at
	`, w.ConversationID, marshalJSON(w.EntityIDs), w.CurrentTopic, w.EmotionalContext, w.UpdatedAt)
	return err
}

// GetContextWindow fetches the context window for a conversation, or a
// fresh empty one if none exists yet.
func (s *PairStore) GetContextWindow(ctx context.Context, conversationID string) (*models.ContextWindow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT conversation_id, entity_ids, current_topic, emotional_context, updated_at
		FROM context_windows WHERE conversation_id=?`, conversationID)

	var w models.ContextWindow
	var entityIDs string
	err := row.Scan(&w.ConversationID, &entityIDs, &w.CurrentTopic, &w.EmotionalContext, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.ContextWindow{ConversationID: conversationID, UpdatedAt: time.Now()}, nil
	}
	if err != nil {
		return nil, err
	}
	w.EntityIDs = unmarshalJSONOr(entityIDs, [][]string{})
	return &w, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
