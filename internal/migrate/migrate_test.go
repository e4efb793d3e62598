package migrate_test

import (
	"testing"

	"garagedesk/internal/db"
	"garagedesk/internal/migrate"
)

func TestMigrateRecordsHistoryAndIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	var applied int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied == 0 {
		t.Fatalf("no migrations recorded")
	}

	// Running again must not reapply anything.
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var again int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&again); err != nil {
		t.Fatalf("recount migrations: %v", err)
	}
	if again != applied {
		t.Fatalf("migration count changed from %d to %d", applied, again)
	}

	var missing int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE applied_at = ''`).Scan(&missing); err != nil {
		t.Fatalf("check applied_at: %v", err)
	}
	if missing != 0 {
		t.Fatalf("%d migrations missing applied_at", missing)
	}
}
