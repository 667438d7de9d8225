package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lazypower/waypoint/internal/model"
)

const taskColumns = `id, owner_id, goal_id, title, estimated_duration, energy_level, priority,
	status, scheduled_date, milestone, created_at, updated_at`

// InsertTask stores a new task. ID and timestamps are assigned when empty.
func (db *DB) InsertTask(ctx context.Context, t *model.Task) error {
	if t.ID == "" {
		t.ID = db.NewID()
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := db.q.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.OwnerID, t.GoalID, t.Title, t.EstimatedDuration, string(t.EnergyLevel), t.Priority,
		string(t.Status), toMillis(t.ScheduledDate), t.Milestone, toMillis(t.CreatedAt), toMillis(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask returns a task by id, or nil if not found.
func (db *DB) GetTask(ctx context.Context, id string) (*model.Task, error) {
	row := db.q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTask writes the mutable task fields.
func (db *DB) UpdateTask(ctx context.Context, t *model.Task) error {
	t.UpdatedAt = time.Now()
	_, err := db.q.ExecContext(ctx, `
		UPDATE tasks SET title = ?, estimated_duration = ?, energy_level = ?, priority = ?,
			status = ?, scheduled_date = ?, updated_at = ?
		WHERE id = ?
	`, t.Title, t.EstimatedDuration, string(t.EnergyLevel), t.Priority,
		string(t.Status), toMillis(t.ScheduledDate), toMillis(t.UpdatedAt), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// ListTasksForGoal returns a goal's tasks in schedule order.
func (db *DB) ListTasksForGoal(ctx context.Context, goalID string) ([]model.Task, error) {
	return db.listTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE goal_id = ?
		ORDER BY scheduled_date ASC, created_at ASC, id ASC`, goalID)
}

// ListTasks returns an owner's tasks scheduled in [from, to), in schedule order.
// A zero bound is open.
func (db *DB) ListTasks(ctx context.Context, ownerID string, from, to time.Time) ([]model.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = ?`
	args := []any{ownerID}
	if !from.IsZero() {
		q += ` AND scheduled_date >= ?`
		args = append(args, toMillis(from))
	}
	if !to.IsZero() {
		q += ` AND scheduled_date < ?`
		args = append(args, toMillis(to))
	}
	q += ` ORDER BY scheduled_date ASC, created_at ASC, id ASC`
	return db.listTasks(ctx, q, args...)
}

// CountTasksForGoal returns how many tasks reference a goal.
func (db *DB) CountTasksForGoal(ctx context.Context, goalID string) (int, error) {
	var n int
	if err := db.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks WHERE goal_id = ?", goalID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

func (db *DB) listTasks(ctx context.Context, q string, args ...any) ([]model.Task, error) {
	rows, err := db.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func scanTask(s scanner) (*model.Task, error) {
	var t model.Task
	var goalID sql.NullString
	var energy, status string
	var scheduled, created, updated int64
	err := s.Scan(&t.ID, &t.OwnerID, &goalID, &t.Title, &t.EstimatedDuration, &energy, &t.Priority,
		&status, &scheduled, &t.Milestone, &created, &updated)
	if err != nil {
		return nil, err
	}
	t.GoalID = goalID.String
	t.EnergyLevel = model.EnergyLevel(energy)
	t.Status = model.TaskStatus(status)
	t.ScheduledDate = fromMillis(scheduled)
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return &t, nil
}
