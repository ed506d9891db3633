package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"ripple/internal/auth"
	"ripple/internal/feed"
)

const (
	wsDefaultSendQueueSize = 256
	wsMinSendQueueSize     = 32

	wsDefaultWriteTimeout = 5 * time.Second
	wsDefaultReadIdle     = 2 * time.Minute
	wsCloseGrace          = 1 * time.Second

	wsMaxPingFailures = 3
)

// WSGateway is the websocket entrypoint for the realtime feed.
//
// The handshake is the Auth Gate's second entry shape: the access token is
// verified before the connection is accepted, so an unauthenticated client
// never joins the hub (Connecting -> Rejected, terminal). After that the
// gateway routes inbound mutations to the feed service and fans the results
// out through the hub.
type WSGateway struct {
	log    *slog.Logger
	hub    *Hub
	feed   *feed.Service
	tokens *auth.TokenService

	originPatterns []string

	writeTimeout    time.Duration
	readIdleTimeout time.Duration
	sendQueueSize   int

	heartbeatEvery   time.Duration
	heartbeatTimeout time.Duration

	rateEvents int
	rateWindow time.Duration
}

// NewWSGateway constructs a gateway with env-tunable transport knobs.
func NewWSGateway(log *slog.Logger, hub *Hub, feedSvc *feed.Service, tokens *auth.TokenService) *WSGateway {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if hub == nil {
		hub = NewHub(log)
	}

	g := &WSGateway{log: log, hub: hub, feed: feedSvc, tokens: tokens}

	// websocket.Accept authorizes same-host origins by default; cross-origin
	// browser clients need their hosts listed here.
	g.originPatterns = envCSVWS("RIPPLE_WS_ALLOWED_ORIGINS", "localhost,127.0.0.1")

	g.writeTimeout = envDurationWS("RIPPLE_WS_WRITE_TIMEOUT", wsDefaultWriteTimeout)
	g.readIdleTimeout = envDurationWS("RIPPLE_WS_READ_IDLE_TIMEOUT", wsDefaultReadIdle)

	g.sendQueueSize = envIntWS("RIPPLE_WS_SEND_QUEUE", wsDefaultSendQueueSize)
	if g.sendQueueSize < wsMinSendQueueSize {
		g.sendQueueSize = wsMinSendQueueSize
	}

	g.heartbeatEvery = envDurationWS("RIPPLE_WS_HEARTBEAT_INTERVAL", heartbeatInterval)
	g.heartbeatTimeout = envDurationWS("RIPPLE_WS_HEARTBEAT_TIMEOUT", heartbeatTimeout)

	g.rateEvents = envIntWS("RIPPLE_WS_RATE_EVENTS", rateLimitEvents)
	g.rateWindow = envDurationWS("RIPPLE_WS_RATE_WINDOW", rateLimitWindow)

	return g
}

// Hub exposes the gateway's hub for route wiring and tests.
func (g *WSGateway) Hub() *Hub { return g.hub }

// ServeHTTP adapter so the gateway mounts as an http.Handler.
func (g *WSGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

// HandleWS authenticates the handshake, upgrades the connection, and runs
// the realtime loop until disconnect.
func (g *WSGateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	token, err := auth.BearerFromRequest(r)
	if err != nil {
		g.log.Info("ws.reject.auth", "reason", "missing", "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := g.tokens.VerifyAccess(token)
	if err != nil {
		g.log.Info("ws.reject.auth", "reason", "invalid", "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.log.Error("ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	conn.SetReadLimit(maxFrameBytes)

	sessionID := NewRandomHex(10)
	client := NewClient(userID, sessionID, g.sendQueueSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// shutdown is idempotent. Membership removal happens before client.Close
	// so broadcasters never race a half-torn-down client.
	var closeOnce sync.Once
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			g.hub.Leave(sessionID)
			_ = conn.Close(code, reason)
			cancel()
		})
	}

	g.hub.Join(client)

	rl := NewRateLimiter(g.rateEvents, g.rateWindow)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)

		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case env := <-client.Send:
				if err := writeEnvelope(ctx, conn, env, g.writeTimeout); err != nil {
					g.log.Info("ws.write.fail", "session_id", sessionID, "close_status", websocket.CloseStatus(err), "err", err)
					shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
			}
		}
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)

		t := time.NewTicker(g.heartbeatEvery)
		defer t.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case <-t.C:
				hbCtx, hbCancel := context.WithTimeout(ctx, g.heartbeatTimeout)
				err := conn.Ping(hbCtx)
				hbCancel()

				if err != nil {
					failures++
					g.log.Info("ws.ping.fail", "session_id", sessionID, "failures", failures, "err", err)
					if failures >= wsMaxPingFailures {
						shutdown(websocket.StatusGoingAway, "heartbeat failed")
						return
					}
					continue
				}
				failures = 0
			}
		}
	}()

readLoop:
	for {
		readCtx, readCancel := context.WithTimeout(ctx, g.readIdleTimeout)
		env, err := readEnvelope(readCtx, conn)
		readCancel()

		if err != nil {
			switch classifyReadErr(err) {
			case readErrClose:
				shutdown(websocket.StatusNormalClosure, "peer closed")
				break readLoop
			case readErrCtxDone:
				shutdown(websocket.StatusNormalClosure, "context done")
				break readLoop
			case readErrConnClosed:
				shutdown(websocket.StatusAbnormalClosure, "conn closed")
				break readLoop
			case readErrBadJSON:
				g.trySendError(ctx, client, "bad_json", "invalid JSON")
				continue readLoop
			default:
				g.log.Info("ws.read.fail", "session_id", sessionID, "err", err)
				shutdown(websocket.StatusAbnormalClosure, "read failed")
				break readLoop
			}
		}

		now := time.Now().UTC()
		if !rl.Allow(now) {
			g.trySendError(ctx, client, "rate_limited", "too many events")
			shutdown(websocket.StatusPolicyViolation, "rate limited")
			break readLoop
		}

		if err := env.Validate(); err != nil {
			g.trySendError(ctx, client, "bad_envelope", err.Error())
			continue readLoop
		}

		switch env.Type {
		case TypeNewPost:
			g.onNewPost(ctx, client, env, now)
		case TypeLike:
			g.onLike(ctx, client, env, now)
		case TypeUnlike:
			g.onUnlike(ctx, client, env, now)
		default:
			g.trySendError(ctx, client, "unsupported", "unsupported type: "+env.Type)
		}
	}

	shutdown(websocket.StatusNormalClosure, "bye")
	<-writerDone

	select {
	case <-heartbeatDone:
	case <-time.After(wsCloseGrace):
	}
}

// ---- mutation handlers ----

// Mutation failures on the realtime path are reported back to the
// originating connection as an error envelope; they are never broadcast and
// never silently swallowed.

func (g *WSGateway) onNewPost(ctx context.Context, client *Client, env Envelope, now time.Time) {
	var p NewPostPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		g.trySendError(ctx, client, "invalid_payload", "invalid payload")
		return
	}
	if len([]rune(p.Content)) > maxContentChars {
		g.trySendError(ctx, client, "content_too_long", "post content too long")
		return
	}

	post, err := g.feed.CreatePost(ctx, client.UserID, p.Content, p.CreatedAt)
	if err != nil {
		g.sendMutationError(ctx, client, "post_failed", err)
		return
	}

	g.hub.Broadcast(PostEnvelope(TypeNewPostData, post, now))
}

func (g *WSGateway) onLike(ctx context.Context, client *Client, env Envelope, now time.Time) {
	var p LikePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		g.trySendError(ctx, client, "invalid_payload", "invalid payload")
		return
	}

	post, err := g.feed.AddLike(ctx, p.PostID, client.UserID)
	if err != nil {
		g.sendMutationError(ctx, client, "like_failed", err)
		return
	}

	g.hub.Broadcast(PostEnvelope(TypeLikeAdd, post, now))
}

func (g *WSGateway) onUnlike(ctx context.Context, client *Client, env Envelope, now time.Time) {
	var p UnlikePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		g.trySendError(ctx, client, "invalid_payload", "invalid payload")
		return
	}

	userID := p.UserID
	if userID == "" {
		userID = client.UserID
	}

	post, err := g.feed.RemoveLike(ctx, p.PostID, userID)
	if err != nil {
		g.sendMutationError(ctx, client, "unlike_failed", err)
		return
	}

	g.hub.Broadcast(PostEnvelope(TypeLikeRemove, post, now))
}

func (g *WSGateway) sendMutationError(ctx context.Context, client *Client, code string, err error) {
	switch {
	case errors.Is(err, feed.ErrNotFound):
		g.trySendError(ctx, client, "not_found", "referenced entity not found")
	case errors.Is(err, feed.ErrInvalidInput):
		g.trySendError(ctx, client, "invalid_payload", "invalid payload")
	case errors.Is(err, feed.ErrStorageInconsistency):
		g.log.Error("ws.mutation.inconsistent", "user_id", client.UserID, "err", err)
		g.trySendError(ctx, client, code, "partial write; entity may be incomplete")
	default:
		g.log.Error("ws.mutation.fail", "user_id", client.UserID, "err", err)
		g.trySendError(ctx, client, code, "mutation failed")
	}
}

// ---- send helpers ----

func (g *WSGateway) trySendError(ctx context.Context, client *Client, code, msg string) {
	p, _ := json.Marshal(ErrorPayload{Code: code, Message: msg})
	env := Envelope{Type: TypeError, TS: time.Now().UTC(), Payload: p}
	_ = g.enqueue(ctx, client, env)
}

func (g *WSGateway) enqueue(ctx context.Context, client *Client, env Envelope) bool {
	select {
	case <-ctx.Done():
		return false
	case <-client.Done():
		return false
	case client.Send <- env:
		return true
	default:
		return false
	}
}

// ---- envelope IO ----

func readEnvelope(ctx context.Context, conn *websocket.Conn) (Envelope, error) {
	mt, data, err := conn.Read(ctx)
	if err != nil {
		return Envelope{}, err
	}
	if mt != websocket.MessageText && mt != websocket.MessageBinary {
		return Envelope{}, errors.New("unsupported message type")
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, errBadJSON{err}
	}
	return env, nil
}

func writeEnvelope(parent context.Context, conn *websocket.Conn, env Envelope, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

// ---- read error classification ----

type errBadJSON struct{ err error }

func (e errBadJSON) Error() string { return e.err.Error() }
func (e errBadJSON) Unwrap() error { return e.err }

type readErrKind uint8

const (
	readErrUnknown readErrKind = iota
	readErrClose
	readErrCtxDone
	readErrConnClosed
	readErrBadJSON
)

func classifyReadErr(err error) readErrKind {
	var bad errBadJSON
	if errors.As(err, &bad) {
		return readErrBadJSON
	}
	if websocket.CloseStatus(err) != -1 {
		return readErrClose
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return readErrCtxDone
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return readErrConnClosed
	}
	return readErrUnknown
}

// ---- env helpers ----

func envIntWS(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDurationWS(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envCSVWS(key, def string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		raw = def
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
