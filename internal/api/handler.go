// Package api implements the JSON HTTP surface of the feed service.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ripple/internal/auth"
	"ripple/internal/feed"
	"ripple/internal/realtime"
	"ripple/internal/security/password"
)

const defaultMaxBodyBytes = 1 << 20 // 1 MiB

// Broadcaster fans a realtime envelope out to all live connections.
// Satisfied by *realtime.Hub; nil disables broadcasting.
type Broadcaster interface {
	Broadcast(env realtime.Envelope)
}

// Handler wires the HTTP endpoints to the feed service and token service.
type Handler struct {
	log    *slog.Logger
	feed   *feed.Service
	tokens *auth.TokenService
	hub    Broadcaster

	maxBodyBytes int64

	// dummyHash absorbs password verification time for unknown usernames so
	// login timing does not reveal account existence.
	dummyHash string
}

// NewHandler constructs the API handler. hub may be nil (no broadcasting).
func NewHandler(log *slog.Logger, feedSvc *feed.Service, tokens *auth.TokenService, hub Broadcaster) *Handler {
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:          log,
		feed:         feedSvc,
		tokens:       tokens,
		hub:          hub,
		maxBodyBytes: defaultMaxBodyBytes,
	}

	if digest, err := password.Hash("dummy-password-for-timing-only"); err == nil {
		h.dummyHash = digest
	}

	return h
}

// Register wires the feed routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}

	mux.HandleFunc("GET /posts/all", h.handleListPosts)
	mux.Handle("POST /posts", auth.RequireAccess(h.tokens, http.HandlerFunc(h.handleCreatePost)))
	mux.HandleFunc("GET /user/{id}", h.handleGetUser)
	mux.HandleFunc("GET /user/{id}/posts", h.handleUserPosts)
	mux.HandleFunc("POST /register", h.handleRegister)
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.HandleFunc("POST /token", h.handleToken)
	mux.HandleFunc("DELETE /logout", h.handleLogout)
}

// ---- feed reads ----

func (h *Handler) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.feed.ListPosts(r.Context())
	if err != nil {
		h.log.Error("api.posts.list.fail", "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Code: 500, Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.feed.ListPostsByAuthor(r.Context(), r.PathValue("id"))
	if err != nil {
		h.log.Error("api.user.posts.fail", "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Code: 500, Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.feed.LookupUser(r.Context(), r.PathValue("id"))
	if errors.Is(err, feed.ErrNotFound) {
		// Domain code in the body; the HTTP layer still answers 200.
		writeJSON(w, http.StatusOK, messageResponse{Code: 404, Message: "User not found"})
		return
	}
	if err != nil {
		h.log.Error("api.user.get.fail", "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Code: 500, Message: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		Code:         200,
		Message:      "User found",
		Username:     u.Username,
		ProfileImage: u.ProfileImage,
		Verified:     u.Verified,
		Posts:        u.Posts,
	})
}

// ---- mutations ----

func (h *Handler) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageResponse{Code: 401, Message: "unauthorized"})
		return
	}

	var req createPostRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Code: 400, Message: "invalid request body"})
		return
	}

	post, err := h.feed.CreatePost(r.Context(), userID, req.Content, req.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, feed.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, messageResponse{Code: 400, Message: "content is required"})
		case errors.Is(err, feed.ErrStorageInconsistency):
			// The post row exists without author metadata: visible, not hidden.
			h.log.Error("api.posts.create.inconsistent", "user_id", userID, "err", err)
			writeJSON(w, http.StatusInternalServerError, messageResponse{Code: 500, Message: "post partially created"})
		default:
			h.log.Error("api.posts.create.fail", "user_id", userID, "err", err)
			writeJSON(w, http.StatusInternalServerError, messageResponse{Code: 500, Message: "internal error"})
		}
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(realtime.PostEnvelope(realtime.TypeNewPostData, post, time.Now().UTC()))
	}

	writeJSON(w, http.StatusOK, messageResponse{Code: 200, Message: "Post created successfully"})
}

// ---- auth ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Code: 400, Message: "invalid request body"})
		return
	}

	digest, err := password.Hash(req.Password)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Code: 400, Message: "invalid password"})
		return
	}

	u, err := h.feed.Register(r.Context(), req.Username, req.Email, digest)
	if errors.Is(err, feed.ErrConflict) {
		writeJSON(w, http.StatusBadRequest, messageResponse{Code: 400, Message: "User already exists"})
		return
	}
	if errors.Is(err, feed.ErrInvalidInput) {
		writeJSON(w, http.StatusBadRequest, messageResponse{Code: 400, Message: "username is required"})
		return
	}
	if err != nil {
		h.log.Error("api.register.fail", "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Code: 500, Message: "internal error"})
		return
	}

	h.issueSession(w, r, u, "User created successfully")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Code: 400, Message: "invalid request body"})
		return
	}

	u, err := h.feed.UserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		// Timing resistance: burn a verify even when the user is unknown.
		if h.dummyHash != "" {
			password.Verify(req.Password, h.dummyHash)
		}
		writeJSON(w, http.StatusBadRequest, messageResponse{Code: 400, Message: "Invalid credentials"})
		return
	}

	if !password.Verify(req.Password, u.PasswordHash) {
		writeJSON(w, http.StatusBadRequest, messageResponse{Code: 400, Message: "Invalid credentials"})
		return
	}

	h.issueSession(w, r, u, "User logged in successfully")
}

// issueSession mints both tokens for u, persists the refresh token as the
// user's single live value (superseding any prior session), and writes the
// shared register/login success shape.
func (h *Handler) issueSession(w http.ResponseWriter, r *http.Request, u feed.User, message string) {
	refresh, err := h.tokens.IssueRefresh(u.ID)
	if err != nil {
		h.log.Error("api.session.refresh.fail", "user_id", u.ID, "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Code: 500, Message: "internal error"})
		return
	}
	if err := h.feed.SetRefreshToken(r.Context(), u.ID, refresh); err != nil {
		h.log.Error("api.session.persist.fail", "user_id", u.ID, "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Code: 500, Message: "internal error"})
		return
	}

	access, err := h.tokens.IssueAccess(u.ID)
	if err != nil {
		h.log.Error("api.session.access.fail", "user_id", u.ID, "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Code: 500, Message: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Code:         200,
		Message:      message,
		AccessToken:  access,
		RefreshToken: refresh,
		Username:     u.Username,
		UserID:       u.ID,
		ProfileImage: u.ProfileImage,
	})
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil || strings.TrimSpace(req.Token) == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	// Cryptographic validity alone is never enough for a refresh token: it
	// must also equal the value currently stored on the user, which is what
	// makes logout and re-login revoke without a blocklist.
	userID, err := h.tokens.VerifyRefresh(req.Token)
	if err != nil {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	u, err := h.feed.UserByRefreshToken(r.Context(), req.Token)
	if err != nil || u.ID != userID {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	access, err := h.tokens.IssueAccess(u.ID)
	if err != nil {
		h.log.Error("api.token.issue.fail", "user_id", u.ID, "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Code: 500, Message: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: access})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil || strings.TrimSpace(req.Token) == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if err := h.feed.ClearRefreshToken(r.Context(), req.Token); err != nil {
		h.log.Error("api.logout.fail", "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Code: 500, Message: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, logoutResponse{Message: "Logged out successfully"})
}
