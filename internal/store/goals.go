package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/waypoint/internal/model"
)

const goalColumns = `id, owner_id, title, specific, measurable, achievable, relevant, time_bound,
	dimension, status, progress, created_at, updated_at`

// InsertGoal stores a new goal. ID and timestamps are assigned when empty.
func (db *DB) InsertGoal(ctx context.Context, g *model.Goal) error {
	if g.ID == "" {
		g.ID = db.NewID()
	}
	now := time.Now()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now

	_, err := db.q.ExecContext(ctx, `
		INSERT INTO goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.OwnerID, g.Title, g.Specific, g.Measurable, g.Achievable, g.Relevant, g.TimeBound,
		string(g.Dimension), string(g.Status), g.Progress, toMillis(g.CreatedAt), toMillis(g.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

// GetGoal returns a goal by id, or nil if not found.
func (db *DB) GetGoal(ctx context.Context, id string) (*model.Goal, error) {
	row := db.q.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

// UpdateGoal writes title, SMART fields, dimension, status and progress.
func (db *DB) UpdateGoal(ctx context.Context, g *model.Goal) error {
	g.UpdatedAt = time.Now()
	_, err := db.q.ExecContext(ctx, `
		UPDATE goals SET title = ?, specific = ?, measurable = ?, achievable = ?, relevant = ?,
			time_bound = ?, dimension = ?, status = ?, progress = ?, updated_at = ?
		WHERE id = ?
	`, g.Title, g.Specific, g.Measurable, g.Achievable, g.Relevant, g.TimeBound,
		string(g.Dimension), string(g.Status), g.Progress, toMillis(g.UpdatedAt), g.ID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return nil
}

// ListGoals returns an owner's goals, oldest first, optionally restricted to statuses.
func (db *DB) ListGoals(ctx context.Context, ownerID string, statuses ...model.GoalStatus) ([]model.Goal, error) {
	q := `SELECT ` + goalColumns + ` FROM goals WHERE owner_id = ?`
	args := []any{ownerID}
	if len(statuses) > 0 {
		q += ` AND status IN (` + strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",") + `)`
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}
	q += ` ORDER BY created_at ASC, id ASC`

	rows, err := db.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// DeleteGoal hard-deletes a goal. Callers soft-cancel instead when tasks reference it.
func (db *DB) DeleteGoal(ctx context.Context, id string) error {
	if _, err := db.q.ExecContext(ctx, "DELETE FROM goals WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGoal(s scanner) (*model.Goal, error) {
	var g model.Goal
	var dim, status string
	var created, updated int64
	err := s.Scan(&g.ID, &g.OwnerID, &g.Title, &g.Specific, &g.Measurable, &g.Achievable,
		&g.Relevant, &g.TimeBound, &dim, &status, &g.Progress, &created, &updated)
	if err != nil {
		return nil, err
	}
	g.Dimension = model.Dimension(dim)
	g.Status = model.GoalStatus(status)
	g.CreatedAt = fromMillis(created)
	g.UpdatedAt = fromMillis(updated)
	return &g, nil
}
