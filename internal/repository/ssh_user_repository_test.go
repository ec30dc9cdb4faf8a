package repository

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func TestSSHUserRunMigrationsExecutesSchema(t *testing.T) {
	pool := &stubPool{}
	repo := NewSSHUserRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	if err := repo.RunMigrations(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execSQL) == 0 {
		t.Fatal("expected Exec to be called")
	}
}

func TestAddUserReturnsID(t *testing.T) {
	pool := &stubPool{rowData: []any{int64(3)}}
	repo := NewSSHUserRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	id, err := repo.AddUser(context.Background(), "alice", "ssh-ed25519 AAAA... alice@host", "SHA256:abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 3 {
		t.Fatalf("expected id 3, got %d", id)
	}
}

func TestFindByFingerprintReturnsUser(t *testing.T) {
	now := time.Now().UTC()
	pool := &stubPool{rowData: []any{
		int64(1), "alice", "ssh-ed25519 AAAA... alice@host", "SHA256:abc", true, now, now,
	}}
	repo := NewSSHUserRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	u, err := repo.FindByFingerprint(context.Background(), "SHA256:abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil || u.Username != "alice" || u.Fingerprint != "SHA256:abc" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.LastLoginAt == nil || !u.LastLoginAt.Equal(now) {
		t.Fatalf("unexpected last login: %v", u.LastLoginAt)
	}
}

func TestFindByFingerprintNotFound(t *testing.T) {
	pool := &stubPool{}
	repo := NewSSHUserRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	u, err := repo.FindByFingerprint(context.Background(), "SHA256:unknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u != nil {
		t.Fatalf("expected nil user, got %+v", u)
	}
}

func TestUpdateLastLoginExecs(t *testing.T) {
	pool := &stubPool{}
	repo := NewSSHUserRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	if err := repo.UpdateLastLogin(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execSQL) != 1 {
		t.Fatalf("expected one Exec, got %d", len(pool.execSQL))
	}
}
