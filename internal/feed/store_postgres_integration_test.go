package feed

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"ripple/internal/feed/migrations"
	"ripple/internal/ids"
)

// Integration tests run only when RIPPLE_TEST_DATABASE_URL is set, keeping
// plain "go test ./..." fast and Postgres-free.

func mustOpenTestStore(t *testing.T) (*PostgresStore, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("RIPPLE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("RIPPLE_TEST_DATABASE_URL not set; skipping Postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.UpContext(ctx, db, "."); err != nil {
		pool.Close()
		t.Fatalf("goose up: %v", err)
	}

	store, err := NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		t.Fatalf("NewPostgresStore: %v", err)
	}
	return store, pool
}

func TestPostgresStore_LikeSetUnderConcurrency(t *testing.T) {
	store, pool := mustOpenTestStore(t)
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	now := time.Now().UTC()
	postID := ids.MustULID(now)
	if err := store.CreatePost(ctx, Post{ID: postID, Content: "race me", CreatedAt: now}); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	userID := ids.MustULID(now)

	// Concurrent double-tap: the primary key on (post_id, user_id) must
	// collapse every insert to a single membership.
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.AddLike(ctx, postID, userID); err != nil {
				t.Errorf("AddLike: %v", err)
			}
		}()
	}
	wg.Wait()

	p, err := store.PostByID(ctx, postID)
	if err != nil {
		t.Fatalf("PostByID: %v", err)
	}
	if len(p.Likes) != 1 || p.Likes[0] != userID {
		t.Fatalf("likes: got %v want exactly one membership for %s", p.Likes, userID)
	}

	if _, err := store.RemoveLike(ctx, postID, userID); err != nil {
		t.Fatalf("RemoveLike: %v", err)
	}
	p, err = store.PostByID(ctx, postID)
	if err != nil {
		t.Fatalf("PostByID: %v", err)
	}
	if len(p.Likes) != 0 {
		t.Fatalf("likes after remove: got %v want empty", p.Likes)
	}
}

func TestPostgresStore_RefreshTokenEquality(t *testing.T) {
	store, pool := mustOpenTestStore(t)
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	now := time.Now().UTC()
	id := ids.MustULID(now)
	username := "it-" + id

	u, err := store.CreateUser(ctx, CreateUserInput{
		ID:           id,
		Username:     username,
		PasswordHash: "digest",
		ProfileImage: AvatarURL(id),
		Now:          now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := store.SetRefreshToken(ctx, u.ID, "tok-"+id); err != nil {
		t.Fatalf("SetRefreshToken: %v", err)
	}
	got, err := store.UserByRefreshToken(ctx, "tok-"+id)
	if err != nil {
		t.Fatalf("UserByRefreshToken: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("user: got %s want %s", got.ID, u.ID)
	}

	if err := store.SetRefreshToken(ctx, u.ID, ""); err != nil {
		t.Fatalf("clear refresh token: %v", err)
	}
	if _, err := store.UserByRefreshToken(ctx, "tok-"+id); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
	if _, err := store.UserByRefreshToken(ctx, ""); err != ErrNotFound {
		t.Fatalf("empty token must never match, got %v", err)
	}
}
