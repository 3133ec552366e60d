package database

import (
	"context"
	"testing"
	"testing/fstest"
	"time"
)

func testSource() Source {
	return Source{
		Dir: "sql",
		FS: fstest.MapFS{
			"sql/20260101_000000_samples.up.sql": {Data: []byte(
				"CREATE TABLE samples (id INTEGER PRIMARY KEY, value REAL NOT NULL);")},
			"sql/20260101_000000_samples.down.sql": {Data: []byte("DROP TABLE samples;")},
			"sql/20260102_000000_sample_tags.up.sql": {Data: []byte(
				"CREATE TABLE sample_tags (sample_id INTEGER NOT NULL, tag TEXT NOT NULL);")},
			"sql/20260102_000000_sample_tags.down.sql": {Data: []byte("DROP TABLE sample_tags;")},
			"sql/README.md":                            {Data: []byte("ignored")},
		},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&n)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.Migrate(ctx, testSource()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	for _, table := range []string{"samples", "sample_tags"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s not created", table)
		}
	}

	applied, pending, err := db.MigrationStatus(ctx, testSource())
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("status = %d applied, %d pending; want 2, 0", len(applied), len(pending))
	}
	if applied[0].Version != "20260101_000000" || applied[0].AppliedAt.IsZero() {
		t.Errorf("first applied = %+v", applied[0])
	}

	if err := db.Migrate(ctx, testSource()); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testSource()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, testSource()); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	if tableExists(t, db, "sample_tags") {
		t.Error("latest migration was not rolled back")
	}
	if !tableExists(t, db, "samples") {
		t.Error("earlier migration should remain applied")
	}

	_, pending, err := db.MigrationStatus(ctx, testSource())
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "sample_tags" {
		t.Errorf("pending = %+v, want sample_tags", pending)
	}
}

func TestMigrate_FailureKeepsEarlierMigrations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	src := testSource()
	src.FS.(fstest.MapFS)["sql/20260103_000000_broken.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE (")}

	if err := db.Migrate(ctx, src); err == nil {
		t.Fatal("Migrate() should fail on invalid SQL")
	}
	if !tableExists(t, db, "sample_tags") {
		t.Error("migrations before the failing one should stay committed")
	}
}

func TestMigrate_NilSource(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(context.Background(), Source{}); err != nil {
		t.Errorf("Migrate() with no filesystem error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		wantVersion string
		wantUp      bool
		wantOK      bool
	}{
		{"20261016_120000_round_history.up.sql", "20261016_120000", true, true},
		{"20261016_120000_round_history.down.sql", "20261016_120000", false, true},
		{"20261016_120000_round_history.sql", "", false, false},
		{"notes.txt", "", false, false},
		{"single.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.name)
			if version != tt.wantVersion || isUp != tt.wantUp || ok != tt.wantOK {
				t.Errorf("parseMigrationFilename(%q) = %q, %v, %v; want %q, %v, %v",
					tt.name, version, isUp, ok, tt.wantVersion, tt.wantUp, tt.wantOK)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	if got := extractMigrationName("20261016_120000_round_history.up.sql"); got != "round_history" {
		t.Errorf("extractMigrationName() = %q, want %q", got, "round_history")
	}
}
