package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lazypower/waypoint/internal/model"
)

// InsertCheckIn stores an immutable check-in.
func (db *DB) InsertCheckIn(ctx context.Context, c *model.CheckIn) error {
	if c.ID == "" {
		c.ID = db.NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := db.q.ExecContext(ctx, `
		INSERT INTO checkins (id, task_id, outcome, reason_code, reason_note, actual_duration, mood_rating, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.TaskID, string(c.Outcome), string(c.ReasonCode), c.ReasonNote,
		c.ActualDuration, c.MoodRating, toMillis(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert checkin: %w", err)
	}
	return nil
}

// ListCheckIns returns a task's check-ins, newest first.
func (db *DB) ListCheckIns(ctx context.Context, taskID string) ([]model.CheckIn, error) {
	rows, err := db.q.QueryContext(ctx, `
		SELECT id, task_id, outcome, reason_code, reason_note, actual_duration, mood_rating, created_at
		FROM checkins WHERE task_id = ? ORDER BY created_at DESC, id DESC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	defer rows.Close()

	var out []model.CheckIn
	for rows.Next() {
		var c model.CheckIn
		var outcome, reason string
		var created int64
		if err := rows.Scan(&c.ID, &c.TaskID, &outcome, &reason, &c.ReasonNote,
			&c.ActualDuration, &c.MoodRating, &created); err != nil {
			return nil, fmt.Errorf("scan checkin: %w", err)
		}
		c.Outcome = model.Outcome(outcome)
		c.ReasonCode = model.ReasonCode(reason)
		c.CreatedAt = fromMillis(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

const adjustmentColumns = `id, checkin_id, adjustment_type, target_task_id, rationale, options,
	accepted, chosen_option_id, source, created_at, resolved_at`

// InsertAdjustment stores a pending adjustment. The schema rejects a second
// pending adjustment for the same task.
func (db *DB) InsertAdjustment(ctx context.Context, a *model.Adjustment) error {
	if a.ID == "" {
		a.ID = db.NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.Accepted == "" {
		a.Accepted = model.AdjustmentPending
	}
	opts, err := json.Marshal(a.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	_, err = db.q.ExecContext(ctx, `
		INSERT INTO adjustments (`+adjustmentColumns+`)
		VALUES (?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.OriginatingCheckInID, string(a.AdjustmentType), a.TargetTaskID, a.Rationale, string(opts),
		string(a.Accepted), a.ChosenOptionID, a.Source, toMillis(a.CreatedAt), nullMillis(a.ResolvedAt))
	if err != nil {
		return fmt.Errorf("insert adjustment: %w", err)
	}
	return nil
}

// GetAdjustment returns an adjustment by id, or nil if not found.
func (db *DB) GetAdjustment(ctx context.Context, id string) (*model.Adjustment, error) {
	row := db.q.QueryRowContext(ctx, `SELECT `+adjustmentColumns+` FROM adjustments WHERE id = ?`, id)
	a, err := scanAdjustment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get adjustment: %w", err)
	}
	return a, nil
}

// PendingAdjustmentForTask returns the open adjustment targeting a task, or nil.
func (db *DB) PendingAdjustmentForTask(ctx context.Context, taskID string) (*model.Adjustment, error) {
	row := db.q.QueryRowContext(ctx, `SELECT `+adjustmentColumns+` FROM adjustments
		WHERE target_task_id = ? AND accepted = 'pending'`, taskID)
	a, err := scanAdjustment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pending adjustment: %w", err)
	}
	return a, nil
}

// ResolveAdjustment moves a pending adjustment to accepted or rejected. It
// returns false when the adjustment was no longer pending.
func (db *DB) ResolveAdjustment(ctx context.Context, id string, state model.AdjustmentState, optionID string) (bool, error) {
	now := time.Now().UnixMilli()
	res, err := db.q.ExecContext(ctx, `
		UPDATE adjustments SET accepted = ?, chosen_option_id = ?, resolved_at = ?
		WHERE id = ? AND accepted = 'pending'
	`, string(state), optionID, now, id)
	if err != nil {
		return false, fmt.Errorf("resolve adjustment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve adjustment: %w", err)
	}
	return n == 1, nil
}

// ListPendingAdjustments returns open adjustments for an owner's tasks, oldest first.
func (db *DB) ListPendingAdjustments(ctx context.Context, ownerID string) ([]model.Adjustment, error) {
	rows, err := db.q.QueryContext(ctx, `
		SELECT a.id, a.checkin_id, a.adjustment_type, a.target_task_id, a.rationale, a.options,
			a.accepted, a.chosen_option_id, a.source, a.created_at, a.resolved_at
		FROM adjustments a JOIN tasks t ON t.id = a.target_task_id
		WHERE t.owner_id = ? AND a.accepted = 'pending'
		ORDER BY a.created_at ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	var out []model.Adjustment
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAdjustment(s scanner) (*model.Adjustment, error) {
	var a model.Adjustment
	var checkin sql.NullString
	var typ, opts, accepted string
	var created int64
	var resolved sql.NullInt64
	err := s.Scan(&a.ID, &checkin, &typ, &a.TargetTaskID, &a.Rationale, &opts,
		&accepted, &a.ChosenOptionID, &a.Source, &created, &resolved)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(opts), &a.Options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	a.OriginatingCheckInID = checkin.String
	a.AdjustmentType = model.AdjustmentType(typ)
	a.Accepted = model.AdjustmentState(accepted)
	a.CreatedAt = fromMillis(created)
	a.ResolvedAt = fromNullMillis(resolved)
	return &a, nil
}
