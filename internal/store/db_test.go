package store

import (
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenMemory(t *testing.T) {
	db := testDB(t)
	if db.Path != ":memory:" {
		t.Errorf("Path = %q, want :memory:", db.Path)
	}
}

func TestOpenFile(t *testing.T) {
	path := t.TempDir() + "/nested/waypoint.db"
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestSchemaVersion(t *testing.T) {
	db := testDB(t)
	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("SchemaVersion = %d, want %d", v, len(migrations))
	}
}

func TestTablesExist(t *testing.T) {
	db := testDB(t)
	tables := []string{"schema_versions", "memories", "memory_tags", "memory_vectors",
		"goals", "tasks", "checkins", "adjustments"}
	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestMemoryConstraints(t *testing.T) {
	db := testDB(t)

	_, err := db.Exec(`INSERT INTO memories (id, owner_id, type, text, created_at)
		VALUES ('m1', 'u1', 'key_event', 'moved', 1000)`)
	if err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}

	_, err = db.Exec(`INSERT INTO memories (id, owner_id, type, text, created_at)
		VALUES ('m2', 'u1', 'gossip', 'x', 1000)`)
	if err == nil {
		t.Error("expected error for invalid type, got nil")
	}

	_, err = db.Exec(`INSERT INTO memories (id, owner_id, type, text, confidence, created_at)
		VALUES ('m3', 'u1', 'key_event', 'x', 1.5, 1000)`)
	if err == nil {
		t.Error("expected error for confidence > 1, got nil")
	}
}

func TestGoalCompletedRequiresFullProgress(t *testing.T) {
	db := testDB(t)
	_, err := db.Exec(`INSERT INTO goals (id, owner_id, title, dimension, status, progress, created_at, updated_at)
		VALUES ('g1', 'u1', 'x', 'health', 'completed', 40, 1, 1)`)
	if err == nil {
		t.Error("completed goal with progress 40 should violate the check constraint")
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db := testDB(t)
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("SchemaVersion after re-migrate = %d, want %d", v, len(migrations))
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	db := testDB(t)
	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestNewIDMonotonic(t *testing.T) {
	db := testDB(t)
	prev := db.NewID()
	for i := 0; i < 100; i++ {
		id := db.NewID()
		if id <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, id)
		}
		prev = id
	}
}
