package feed

import (
	"context"
	"time"
)

// CreateUserInput describes a registration request as seen by the store.
// The password has already been hashed by the caller.
type CreateUserInput struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	ProfileImage string
	Now          time.Time
}

// Store is the persistence boundary for users and posts.
//
// Implementations provide atomic single-document reads and writes but no
// cross-document transactions; the two-phase post creation in Service can
// therefore partially fail.
//
// Contract for AddLike/RemoveLike: set semantics enforced at the storage
// layer. Two concurrent AddLike calls for the same (post, user) pair must
// still leave the user ID in the like set exactly once.
type Store interface {
	// CreateUser inserts a new user. Returns ErrConflict if the username is
	// already taken.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// UserByID loads a user by ID. Returns ErrNotFound if absent.
	UserByID(ctx context.Context, id string) (User, error)

	// UserByUsername loads a user by username. Returns ErrNotFound if absent.
	UserByUsername(ctx context.Context, username string) (User, error)

	// UserByRefreshToken loads the user whose stored refresh token equals
	// token. Returns ErrNotFound if no user holds that value.
	UserByRefreshToken(ctx context.Context, token string) (User, error)

	// SetRefreshToken overwrites the stored refresh token for userID.
	// An empty token clears it (logout).
	SetRefreshToken(ctx context.Context, userID, token string) error

	// AppendUserPost appends postID to the user's owned-post list.
	AppendUserPost(ctx context.Context, userID, postID string) error

	// CreatePost inserts a new post with empty likes and comments.
	CreatePost(ctx context.Context, post Post) error

	// StampPostAuthor persists the denormalized author snapshot onto postID.
	StampPostAuthor(ctx context.Context, postID string, author AuthorSnapshot) error

	// PostByID loads a post by ID. Returns ErrNotFound if absent.
	PostByID(ctx context.Context, id string) (Post, error)

	// ListPosts returns all posts ordered newest-created-first.
	ListPosts(ctx context.Context) ([]Post, error)

	// ListPostsByAuthor returns posts whose author snapshot ID equals
	// userID, newest-created-first.
	ListPostsByAuthor(ctx context.Context, userID string) ([]Post, error)

	// AddLike adds userID to the post's like set. A no-op if already
	// present. Returns the resulting post.
	AddLike(ctx context.Context, postID, userID string) (Post, error)

	// RemoveLike removes userID from the post's like set. A no-op if
	// absent. Returns the resulting post.
	RemoveLike(ctx context.Context, postID, userID string) (Post, error)

	// Close releases store resources.
	Close() error
}
