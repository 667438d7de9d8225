package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/waypoint/internal/model"
)

// MemoryFilter selects memories for a single owner.
type MemoryFilter struct {
	OwnerID string
	Type    model.MemoryType // empty = any type
	Tags    []string         // all-of; matches system or user tags
	Query   string           // case-insensitive substring of text; empty = no text filter
	Limit   int              // <= 0 means no limit
}

const memoryColumns = `m.id, m.owner_id, m.type, m.text, m.structured_extract, m.confidence,
	m.impact_score, m.usage_count, m.reminder_date, m.created_at, v.embedding`

// InsertMemory stores a new memory with its tags. ID and CreatedAt are
// assigned when empty.
func (db *DB) InsertMemory(ctx context.Context, m *model.MemoryRecord) error {
	if m.ID == "" {
		m.ID = db.NewID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	var extract sql.NullString
	if len(m.StructuredExtract) > 0 {
		b, err := json.Marshal(m.StructuredExtract)
		if err != nil {
			return fmt.Errorf("marshal extract: %w", err)
		}
		extract = sql.NullString{String: string(b), Valid: true}
	}

	_, err := db.q.ExecContext(ctx, `
		INSERT INTO memories (id, owner_id, type, text, structured_extract, confidence,
			impact_score, usage_count, reminder_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.OwnerID, string(m.Type), m.Text, extract, m.Confidence,
		m.ImpactScore, m.UsageCount, nullMillis(m.ReminderDate), toMillis(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}

	if err := db.writeTags(ctx, m.ID, m.SystemTags, m.UserTags); err != nil {
		return err
	}
	if len(m.Embedding) > 0 {
		if err := db.SaveEmbedding(ctx, m.ID, m.Embedding, "inline"); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) writeTags(ctx context.Context, id string, system []model.SystemTag, user []string) error {
	for _, t := range system {
		if _, err := db.q.ExecContext(ctx,
			"INSERT OR IGNORE INTO memory_tags (memory_id, tag, kind) VALUES (?, ?, 'system')", id, string(t),
		); err != nil {
			return fmt.Errorf("insert system tag: %w", err)
		}
	}
	for _, t := range user {
		if _, err := db.q.ExecContext(ctx,
			"INSERT OR IGNORE INTO memory_tags (memory_id, tag, kind) VALUES (?, ?, 'user')", id, t,
		); err != nil {
			return fmt.Errorf("insert user tag: %w", err)
		}
	}
	return nil
}

// GetMemory returns a memory by id, or nil if not found.
func (db *DB) GetMemory(ctx context.Context, id string) (*model.MemoryRecord, error) {
	mems, err := db.queryMemories(ctx, `
		SELECT `+memoryColumns+`
		FROM memories m LEFT JOIN memory_vectors v ON v.memory_id = m.id
		WHERE m.id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	if len(mems) == 0 {
		return nil, nil
	}
	return &mems[0], nil
}

// QueryMemories returns memories matching f, newest first.
func (db *DB) QueryMemories(ctx context.Context, f MemoryFilter) ([]model.MemoryRecord, error) {
	where, args := f.where(true)
	q := `SELECT ` + memoryColumns + `
		FROM memories m LEFT JOIN memory_vectors v ON v.memory_id = m.id
		WHERE ` + where + `
		ORDER BY m.created_at DESC, m.id DESC`
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	mems, err := db.queryMemories(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	return mems, nil
}

// where builds the WHERE clause. The text filter is optional so vector
// queries can reuse the owner/type/tag filters.
func (f MemoryFilter) where(withText bool) (string, []any) {
	clauses := []string{"m.owner_id = ?"}
	args := []any{f.OwnerID}

	if f.Type != "" {
		clauses = append(clauses, "m.type = ?")
		args = append(args, string(f.Type))
	}
	if withText && strings.TrimSpace(f.Query) != "" {
		clauses = append(clauses, `lower_unicode(m.text) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(strings.TrimSpace(f.Query)))+"%")
	}
	if tags := model.NormalizeTags(f.Tags); len(tags) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tags)), ",")
		clauses = append(clauses, `m.id IN (
			SELECT memory_id FROM memory_tags WHERE tag IN (`+placeholders+`)
			GROUP BY memory_id HAVING COUNT(DISTINCT tag) = ?)`)
		for _, t := range tags {
			args = append(args, t)
		}
		args = append(args, len(tags))
	}
	return strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// queryMemories scans rows fully before loading tags, so it is safe on a
// single-connection pool.
func (db *DB) queryMemories(ctx context.Context, query string, args ...any) ([]model.MemoryRecord, error) {
	rows, err := db.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var mems []model.MemoryRecord
	for rows.Next() {
		var m model.MemoryRecord
		var typ string
		var extract sql.NullString
		var reminder sql.NullInt64
		var created int64
		var blob []byte
		if err := rows.Scan(&m.ID, &m.OwnerID, &typ, &m.Text, &extract, &m.Confidence,
			&m.ImpactScore, &m.UsageCount, &reminder, &created, &blob); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.Type = model.MemoryType(typ)
		m.ReminderDate = fromNullMillis(reminder)
		m.CreatedAt = fromMillis(created)
		if len(blob) > 0 {
			m.Embedding = decodeEmbedding(blob)
		}
		if extract.Valid && extract.String != "" {
			if err := json.Unmarshal([]byte(extract.String), &m.StructuredExtract); err != nil {
				rows.Close()
				return nil, fmt.Errorf("decode extract for %s: %w", m.ID, err)
			}
		}
		mems = append(mems, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := db.attachTags(ctx, mems); err != nil {
		return nil, err
	}
	return mems, nil
}

func (db *DB) attachTags(ctx context.Context, mems []model.MemoryRecord) error {
	if len(mems) == 0 {
		return nil
	}
	index := make(map[string]int, len(mems))
	args := make([]any, len(mems))
	for i := range mems {
		index[mems[i].ID] = i
		args[i] = mems[i].ID
		mems[i].SystemTags = []model.SystemTag{}
		mems[i].UserTags = []string{}
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(mems)), ",")

	rows, err := db.q.QueryContext(ctx, `
		SELECT memory_id, tag, kind FROM memory_tags
		WHERE memory_id IN (`+placeholders+`)
		ORDER BY tag
	`, args...)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, tag, kind string
		if err := rows.Scan(&id, &tag, &kind); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		i := index[id]
		if kind == "system" {
			mems[i].SystemTags = append(mems[i].SystemTags, model.SystemTag(tag))
		} else {
			mems[i].UserTags = append(mems[i].UserTags, tag)
		}
	}
	return rows.Err()
}

// IncrementUsage bumps usage_count for each id. Unknown ids are ignored.
func (db *DB) IncrementUsage(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	_, err := db.q.ExecContext(ctx,
		"UPDATE memories SET usage_count = usage_count + 1 WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

// UpdateMemoryTags replaces the user tags of a memory. System tags are
// replaced only when system is non-nil. Returns false if the memory is absent.
func (db *DB) UpdateMemoryTags(ctx context.Context, id string, system []model.SystemTag, user []string) (bool, error) {
	var exists int
	if err := db.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories WHERE id = ?", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check memory: %w", err)
	}
	if exists == 0 {
		return false, nil
	}

	if _, err := db.q.ExecContext(ctx, "DELETE FROM memory_tags WHERE memory_id = ? AND kind = 'user'", id); err != nil {
		return false, fmt.Errorf("clear user tags: %w", err)
	}
	if system != nil {
		if _, err := db.q.ExecContext(ctx, "DELETE FROM memory_tags WHERE memory_id = ? AND kind = 'system'", id); err != nil {
			return false, fmt.Errorf("clear system tags: %w", err)
		}
	}
	if err := db.writeTags(ctx, id, system, user); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteMemory removes a memory; tags and vector cascade.
func (db *DB) DeleteMemory(ctx context.Context, id string) error {
	if _, err := db.q.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	return nil
}

// ListMemoriesMissingEmbedding returns memories without a stored vector,
// oldest first. When modelName is set, vectors from any other model count as
// missing too.
func (db *DB) ListMemoriesMissingEmbedding(ctx context.Context, modelName string, limit int) ([]model.MemoryRecord, error) {
	q := `SELECT ` + memoryColumns + `
		FROM memories m LEFT JOIN memory_vectors v ON v.memory_id = m.id
		WHERE v.memory_id IS NULL`
	var args []any
	if modelName != "" {
		q += ` OR v.model != ?`
		args = append(args, modelName)
	}
	q += ` ORDER BY m.created_at ASC`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	mems, err := db.queryMemories(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list missing embeddings: %w", err)
	}
	return mems, nil
}

// AllMemoryTexts returns every memory text, used to fit the TF-IDF vocabulary.
func (db *DB) AllMemoryTexts(ctx context.Context) ([]string, error) {
	rows, err := db.q.QueryContext(ctx, "SELECT text FROM memories")
	if err != nil {
		return nil, fmt.Errorf("memory texts: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan text: %w", err)
		}
		texts = append(texts, t)
	}
	return texts, rows.Err()
}
