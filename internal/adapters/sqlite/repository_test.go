package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/csg33k/visits-dashboard/internal/ports"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	r, err := New(":memory:", time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	if _, err := r.Get(ctx, "s1"); !errors.Is(err, ports.ErrNoCredentials) {
		t.Fatalf("Get on empty store: %v", err)
	}
	if err := r.Put(ctx, "s1", "Bearer one"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := r.Put(ctx, "s1", "Bearer two"); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, err := r.Get(ctx, "s1")
	if err != nil || got != "Bearer two" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := r.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Get(ctx, "s1"); !errors.Is(err, ports.ErrNoCredentials) {
		t.Errorf("Get after delete: %v", err)
	}
}

func TestExpiredCredentialsAreIgnoredAndPurged(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	if err := r.Put(ctx, "old", "Basic x"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(30 * time.Minute)
	if err := r.Put(ctx, "new", "Basic y"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(45 * time.Minute)

	if _, err := r.Get(ctx, "old"); !errors.Is(err, ports.ErrNoCredentials) {
		t.Errorf("expired credential returned: %v", err)
	}
	if got, err := r.Get(ctx, "new"); err != nil || got != "Basic y" {
		t.Errorf("Get new = %q, %v", got, err)
	}
	n, err := r.PurgeExpired(ctx)
	if err != nil || n != 1 {
		t.Errorf("PurgeExpired = %d, %v", n, err)
	}
}
