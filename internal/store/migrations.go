package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "memories: captured memory records and tags",
		SQL: `
CREATE TABLE memories (
    id                 TEXT PRIMARY KEY,
    owner_id           TEXT NOT NULL,
    type               TEXT NOT NULL CHECK (type IN ('important_info', 'personal_trait', 'key_event', 'date_reminder')),
    text               TEXT NOT NULL,
    structured_extract TEXT,
    confidence         REAL NOT NULL DEFAULT 0.5 CHECK (confidence >= 0 AND confidence <= 1),
    impact_score       REAL NOT NULL DEFAULT 0 CHECK (impact_score >= 0),
    usage_count        INTEGER NOT NULL DEFAULT 0,
    reminder_date      INTEGER,
    created_at         INTEGER NOT NULL
);

CREATE INDEX idx_memories_owner   ON memories(owner_id, created_at DESC);
CREATE INDEX idx_memories_type    ON memories(owner_id, type);

CREATE TABLE memory_tags (
    memory_id TEXT NOT NULL,
    tag       TEXT NOT NULL,
    kind      TEXT NOT NULL CHECK (kind IN ('system', 'user')),
    PRIMARY KEY (memory_id, kind, tag),
    FOREIGN KEY (memory_id) REFERENCES memories(id) ON DELETE CASCADE
);

CREATE INDEX idx_memory_tags_tag ON memory_tags(tag);
`,
	},
	{
		Version:     2,
		Description: "memory_vectors: embedding vectors for semantic search",
		SQL: `
CREATE TABLE memory_vectors (
    memory_id  TEXT PRIMARY KEY,
    embedding  BLOB NOT NULL,
    model      TEXT NOT NULL,
    dimensions INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (memory_id) REFERENCES memories(id) ON DELETE CASCADE
);
`,
	},
	{
		Version:     3,
		Description: "goals and tasks",
		SQL: `
CREATE TABLE goals (
    id          TEXT PRIMARY KEY,
    owner_id    TEXT NOT NULL,
    title       TEXT NOT NULL,
    specific    TEXT NOT NULL DEFAULT '',
    measurable  TEXT NOT NULL DEFAULT '',
    achievable  TEXT NOT NULL DEFAULT '',
    relevant    TEXT NOT NULL DEFAULT '',
    time_bound  TEXT NOT NULL DEFAULT '',
    dimension   TEXT NOT NULL CHECK (dimension IN ('health', 'career', 'family', 'finance', 'growth', 'social', 'hobby', 'self_realization')),
    status      TEXT NOT NULL CHECK (status IN ('draft', 'active', 'paused', 'completed', 'cancelled')),
    progress    INTEGER NOT NULL DEFAULT 0 CHECK (progress >= 0 AND progress <= 100),
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL,
    CHECK (status != 'completed' OR progress = 100)
);

CREATE INDEX idx_goals_owner ON goals(owner_id, status);

CREATE TABLE tasks (
    id                 TEXT PRIMARY KEY,
    owner_id           TEXT NOT NULL,
    goal_id            TEXT,
    title              TEXT NOT NULL,
    estimated_duration INTEGER NOT NULL CHECK (estimated_duration > 0),
    energy_level       TEXT NOT NULL CHECK (energy_level IN ('low', 'medium', 'high')),
    priority           INTEGER NOT NULL CHECK (priority BETWEEN 1 AND 5),
    status             TEXT NOT NULL CHECK (status IN ('pending', 'in_progress', 'completed', 'skipped', 'postponed')),
    scheduled_date     INTEGER NOT NULL,
    milestone          TEXT NOT NULL DEFAULT '',
    created_at         INTEGER NOT NULL,
    updated_at         INTEGER NOT NULL,
    FOREIGN KEY (goal_id) REFERENCES goals(id)
);

CREATE INDEX idx_tasks_goal      ON tasks(goal_id);
CREATE INDEX idx_tasks_scheduled ON tasks(owner_id, scheduled_date);
`,
	},
	{
		Version:     4,
		Description: "checkins and adjustments",
		SQL: `
CREATE TABLE checkins (
    id              TEXT PRIMARY KEY,
    task_id         TEXT NOT NULL,
    outcome         TEXT NOT NULL CHECK (outcome IN ('completed', 'not_completed', 'partial')),
    reason_code     TEXT NOT NULL DEFAULT '',
    reason_note     TEXT NOT NULL DEFAULT '',
    actual_duration INTEGER NOT NULL DEFAULT 0 CHECK (actual_duration >= 0),
    mood_rating     INTEGER NOT NULL CHECK (mood_rating BETWEEN 1 AND 5),
    created_at      INTEGER NOT NULL,
    FOREIGN KEY (task_id) REFERENCES tasks(id)
);

CREATE INDEX idx_checkins_task ON checkins(task_id, created_at DESC);

CREATE TABLE adjustments (
    id               TEXT PRIMARY KEY,
    checkin_id       TEXT,
    adjustment_type  TEXT NOT NULL CHECK (adjustment_type IN ('split', 'reschedule', 'postpone', 'cancel')),
    target_task_id   TEXT NOT NULL,
    rationale        TEXT NOT NULL,
    options          TEXT NOT NULL,
    accepted         TEXT NOT NULL DEFAULT 'pending' CHECK (accepted IN ('pending', 'accepted', 'rejected')),
    chosen_option_id TEXT NOT NULL DEFAULT '',
    source           TEXT NOT NULL DEFAULT '',
    created_at       INTEGER NOT NULL,
    resolved_at      INTEGER,
    FOREIGN KEY (checkin_id) REFERENCES checkins(id),
    FOREIGN KEY (target_task_id) REFERENCES tasks(id)
);

-- At most one open adjustment per task.
CREATE UNIQUE INDEX idx_adjustments_one_pending ON adjustments(target_task_id) WHERE accepted = 'pending';
`,
	},
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
