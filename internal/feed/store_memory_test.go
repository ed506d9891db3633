package feed

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreAddLikeSetSemantics(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.CreatePost(ctx, Post{ID: "p1", Content: "hi", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	for range 3 {
		if _, err := s.AddLike(ctx, "p1", "u1"); err != nil {
			t.Fatalf("AddLike: %v", err)
		}
	}

	p, err := s.PostByID(ctx, "p1")
	if err != nil {
		t.Fatalf("PostByID: %v", err)
	}
	if len(p.Likes) != 1 || p.Likes[0] != "u1" {
		t.Fatalf("likes: got %v want [u1]", p.Likes)
	}
}

func TestMemoryStoreLikeUnknownPost(t *testing.T) {
	s := NewMemoryStore()

	if _, err := s.AddLike(context.Background(), "missing", "u1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.RemoveLike(context.Background(), "missing", "u1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.CreatePost(ctx, Post{ID: "p1", Content: "hi", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	p, _ := s.PostByID(ctx, "p1")
	p.Likes = append(p.Likes, "intruder")

	again, _ := s.PostByID(ctx, "p1")
	if len(again.Likes) != 0 {
		t.Fatalf("store state leaked through returned copy: %v", again.Likes)
	}
}

func TestMemoryStorePostJSONShape(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.CreatePost(ctx, Post{ID: "p1", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	// Likes/comments must come back as empty slices, not nil, so the JSON
	// encoding stays [] rather than null.
	p, err := s.PostByID(ctx, "p1")
	if err != nil {
		t.Fatalf("PostByID: %v", err)
	}
	if p.Likes == nil || p.Comments == nil {
		t.Fatalf("expected non-nil empty slices, got likes=%v comments=%v", p.Likes, p.Comments)
	}
}

func TestMemoryStoreListOrderingTiesAreStable(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	ts := time.Now().UTC()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.CreatePost(ctx, Post{ID: id, CreatedAt: ts}); err != nil {
			t.Fatalf("CreatePost(%s): %v", id, err)
		}
	}

	posts, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("len: got %d want 3", len(posts))
	}
	// Equal timestamps keep insertion order (stable sort).
	if posts[0].ID != "a" || posts[1].ID != "b" || posts[2].ID != "c" {
		t.Fatalf("unstable ordering for equal timestamps: %v", []string{posts[0].ID, posts[1].ID, posts[2].ID})
	}
}
