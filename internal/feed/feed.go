// Package feed owns the social-feed data model and its mutation semantics:
// users, posts, and the idempotent like/unlike operations.
package feed

import "time"

// AuthorSnapshot is a copy of the author's public fields embedded into a
// post at creation time. It is intentionally stale: later changes to the
// user record do not propagate into existing posts.
type AuthorSnapshot struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"`
	Verified     bool   `json:"verified"`
}

// Post is a single feed entry.
//
// Likes has set semantics: a user ID appears at most once. The store, not
// the caller's read-then-write, is the final arbiter of that uniqueness.
type Post struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"createdAt"`
	User      AuthorSnapshot `json:"user"`
	Likes     []string       `json:"likes"`
	Comments  []string       `json:"comments"`
}

// HasLike reports whether userID is a member of the post's like set.
func (p *Post) HasLike(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// User is the canonical account record.
//
// RefreshToken holds the single live refresh token for the account (empty =
// none). Overwriting or clearing it revokes all previously issued refresh
// tokens without a blocklist: a new login supersedes, logout nulls it.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ProfileImage string    `json:"profileImage"`
	Verified     bool      `json:"verified"`
	RefreshToken string    `json:"-"`
	Posts        []string  `json:"posts"`
	CreatedAt    time.Time `json:"createdAt"`
}
