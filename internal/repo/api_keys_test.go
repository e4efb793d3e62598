package repo_test

import (
	"context"
	"errors"
	"testing"

	"garagedesk/internal/db"
	"garagedesk/internal/domain"
	"garagedesk/internal/migrate"
	"garagedesk/internal/repo"
)

func newTestRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}
}

func TestAPIKeyRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	key := domain.APIKey{
		ID:        "KEY-1",
		ActorID:   "mech-1",
		Label:     "workshop tablet",
		CreatedBy: "boss",
		KeyHash:   repo.HashAPIKey("gd_secret"),
	}
	if err := r.InsertAPIKey(ctx, nil, key); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := r.GetAPIKeyByHash(ctx, repo.HashAPIKey("gd_secret"))
	if err != nil {
		t.Fatalf("get by hash: %v", err)
	}
	if got.Label != "workshop tablet" || got.CreatedBy != "boss" || got.ActorID != "mech-1" {
		t.Fatalf("key = %+v", got)
	}
	if got.CreatedAt == "" {
		t.Fatalf("created_at not stamped")
	}

	listed, err := r.ListAPIKeys(ctx, "mech-1")
	if err != nil || len(listed) != 1 {
		t.Fatalf("list = %v, %v", listed, err)
	}

	if err := r.DeleteAPIKey(ctx, "KEY-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = r.GetAPIKeyByHash(ctx, repo.HashAPIKey("gd_secret"))
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
