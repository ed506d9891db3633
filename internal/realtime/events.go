package realtime

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ripple/internal/feed"
)

// Wire event types. Inbound events are mutations requested by a connected
// client; outbound events are broadcast to every live connection and always
// carry the full resulting post so clients can replace their cached copy
// wholesale instead of merging deltas.
const (
	// Inbound.
	TypeNewPost = "newPost"
	TypeLike    = "like"
	TypeUnlike  = "unlike"

	// Outbound (broadcast).
	TypeNewPostData = "newPostData"
	TypeLikeAdd     = "likeAdd"
	TypeLikeRemove  = "likeRemove"

	// Outbound (originator only).
	TypeError = "error"
)

// Envelope is the framing for every websocket message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs structural checks before dispatch.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing type")
	}
	return nil
}

// NewPostPayload is the inbound newPost mutation.
type NewPostPayload struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// LikePayload is the inbound like mutation. The liking user is the
// connection's authenticated identity, never payload data.
type LikePayload struct {
	PostID string `json:"postID"`
}

// UnlikePayload is the inbound unlike mutation. UserID names whose like to
// remove; when empty it defaults to the connection's identity.
type UnlikePayload struct {
	PostID string `json:"postID"`
	UserID string `json:"userID,omitempty"`
}

// PostEnvelope builds an outbound envelope whose payload is the full post
// entity, author snapshot and complete like set included.
func PostEnvelope(typ string, post feed.Post, now time.Time) Envelope {
	payload, _ := json.Marshal(post)
	return Envelope{Type: typ, TS: now, Payload: payload}
}

// ErrorPayload is sent back to the originating connection when its mutation
// fails; it is never broadcast.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
