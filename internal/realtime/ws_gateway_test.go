package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ripple/internal/auth"
	"ripple/internal/feed"
)

func newTestGateway(t *testing.T) (*WSGateway, *feed.Service, *auth.TokenService) {
	t.Helper()

	log := slog.New(slog.DiscardHandler)
	store := feed.NewMemoryStore()
	svc := feed.NewService(log, store)

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	return NewWSGateway(log, NewHub(log), svc, tokens), svc, tokens
}

func TestHandshakeRejectsMissingToken(t *testing.T) {
	g, _, _ := newTestGateway(t)

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	g.HandleWS(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d want 401", w.Code)
	}
	if g.Hub().Size() != 0 {
		t.Fatalf("rejected client joined the hub")
	}
}

func TestHandshakeRejectsInvalidToken(t *testing.T) {
	g, _, _ := newTestGateway(t)

	r := httptest.NewRequest(http.MethodGet, "/ws?token=not.a.jwt", nil)
	w := httptest.NewRecorder()
	g.HandleWS(w, r)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status: got %d want 403", w.Code)
	}
	if g.Hub().Size() != 0 {
		t.Fatalf("rejected client joined the hub")
	}
}

func mustRegister(t *testing.T, svc *feed.Service, username string) feed.User {
	t.Helper()
	u, err := svc.Register(context.Background(), username, "", "digest")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return u
}

func drainPost(t *testing.T, c *Client, wantType string) feed.Post {
	t.Helper()

	select {
	case env := <-c.Send:
		if env.Type != wantType {
			t.Fatalf("envelope type: got %s want %s", env.Type, wantType)
		}
		var p feed.Post
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			t.Fatalf("payload: %v", err)
		}
		return p
	case <-time.After(time.Second):
		t.Fatalf("no %s delivery", wantType)
		return feed.Post{}
	}
}

func TestLikeEventBroadcastsFullPostToAllConnections(t *testing.T) {
	g, svc, _ := newTestGateway(t)
	ctx := context.Background()

	alice := mustRegister(t, svc, "alice")
	bob := mustRegister(t, svc, "bob")

	post, err := svc.CreatePost(ctx, alice.ID, "hi", time.Now().UTC())
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	bobConn := NewClient(bob.ID, "s-bob", 8)
	aliceConn := NewClient(alice.ID, "s-alice", 8)
	g.Hub().Join(bobConn)
	g.Hub().Join(aliceConn)

	payload, _ := json.Marshal(LikePayload{PostID: post.ID})
	env := Envelope{Type: TypeLike, Payload: payload}

	// Duplicate like events: idempotent mutation, every event still fans out
	// identical post state to all live connections.
	g.onLike(ctx, bobConn, env, time.Now().UTC())
	g.onLike(ctx, bobConn, env, time.Now().UTC())

	for _, c := range []*Client{bobConn, aliceConn} {
		first := drainPost(t, c, TypeLikeAdd)
		second := drainPost(t, c, TypeLikeAdd)

		for _, p := range []feed.Post{first, second} {
			if len(p.Likes) != 1 || p.Likes[0] != bob.ID {
				t.Fatalf("likes: got %v want exactly [%s]", p.Likes, bob.ID)
			}
		}
	}
}

func TestNewPostEventBroadcastsStampedPost(t *testing.T) {
	g, svc, _ := newTestGateway(t)
	ctx := context.Background()

	alice := mustRegister(t, svc, "alice")
	conn := NewClient(alice.ID, "s-alice", 8)
	g.Hub().Join(conn)

	payload, _ := json.Marshal(NewPostPayload{Content: "hello feed"})
	g.onNewPost(ctx, conn, Envelope{Type: TypeNewPost, Payload: payload}, time.Now().UTC())

	p := drainPost(t, conn, TypeNewPostData)
	if p.Content != "hello feed" {
		t.Fatalf("content: got %q", p.Content)
	}
	if p.User.Username != "alice" || p.User.ID != alice.ID {
		t.Fatalf("author snapshot missing: %+v", p.User)
	}
}

func TestUnlikeEventRemovesLike(t *testing.T) {
	g, svc, _ := newTestGateway(t)
	ctx := context.Background()

	alice := mustRegister(t, svc, "alice")
	bob := mustRegister(t, svc, "bob")

	post, err := svc.CreatePost(ctx, alice.ID, "hi", time.Now().UTC())
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if _, err := svc.AddLike(ctx, post.ID, bob.ID); err != nil {
		t.Fatalf("AddLike: %v", err)
	}

	conn := NewClient(alice.ID, "s-alice", 8)
	g.Hub().Join(conn)

	payload, _ := json.Marshal(UnlikePayload{PostID: post.ID, UserID: bob.ID})
	g.onUnlike(ctx, conn, Envelope{Type: TypeUnlike, Payload: payload}, time.Now().UTC())

	p := drainPost(t, conn, TypeLikeRemove)
	if len(p.Likes) != 0 {
		t.Fatalf("likes after unlike: got %v want empty", p.Likes)
	}
}

func TestMutationFailureGoesOnlyToOriginator(t *testing.T) {
	g, svc, _ := newTestGateway(t)
	ctx := context.Background()

	alice := mustRegister(t, svc, "alice")
	origin := NewClient(alice.ID, "s-origin", 8)
	other := NewClient("u-other", "s-other", 8)
	g.Hub().Join(origin)
	g.Hub().Join(other)

	payload, _ := json.Marshal(LikePayload{PostID: "missing-post"})
	g.onLike(ctx, origin, Envelope{Type: TypeLike, Payload: payload}, time.Now().UTC())

	select {
	case env := <-origin.Send:
		if env.Type != TypeError {
			t.Fatalf("originator: got %s want %s", env.Type, TypeError)
		}
		var p ErrorPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if p.Code != "not_found" {
			t.Fatalf("code: got %q want not_found", p.Code)
		}
	default:
		t.Fatalf("originator received no error envelope")
	}

	select {
	case env := <-other.Send:
		t.Fatalf("error leaked to another connection: %+v", env)
	default:
	}
}
