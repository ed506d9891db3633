package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ripple/internal/ids"
)

// Service is the feed mutator: it applies validated mutations to the Store
// and enforces the idempotence invariants around them.
type Service struct {
	log   *slog.Logger
	store Store
}

// NewService constructs a Service.
func NewService(log *slog.Logger, store Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{log: log, store: store}
}

// Store exposes the underlying store for the API layer's read paths.
func (s *Service) Store() Store { return s.store }

// Register creates a new user with a fresh ULID and a seeded avatar URL.
// The password must already be hashed by the caller.
func (s *Service) Register(ctx context.Context, username, email, passwordHash string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || passwordHash == "" {
		return User{}, ErrInvalidInput
	}

	now := time.Now().UTC()
	id, err := ids.NewULID(now)
	if err != nil {
		return User{}, err
	}

	u, err := s.store.CreateUser(ctx, CreateUserInput{
		ID:           id,
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: passwordHash,
		ProfileImage: AvatarURL(id),
		Now:          now,
	})
	if err != nil {
		return User{}, err
	}

	s.log.Info("feed.user.register", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// AvatarURL returns the placeholder avatar for a user ID. The generator is
// an external collaborator; only the URL shape lives here.
func AvatarURL(userID string) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s/200", userID)
}

// CreatePost persists a new post for authorID.
//
// The operation is two-phase: the post row and the author's post-list append
// happen first, then the author snapshot (which depends on the just-created
// ID and the freshly loaded author record) is stamped onto the post. If the
// stamp write fails the post exists without author metadata; that condition
// is surfaced as *InconsistencyError rather than silently hidden.
func (s *Service) CreatePost(ctx context.Context, authorID, content string, createdAt time.Time) (Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Post{}, ErrInvalidInput
	}
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	id, err := ids.NewULID(createdAt)
	if err != nil {
		return Post{}, err
	}

	post := Post{
		ID:        id,
		Content:   content,
		CreatedAt: createdAt,
		Likes:     []string{},
		Comments:  []string{},
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return Post{}, err
	}

	if err := s.store.AppendUserPost(ctx, authorID, id); err != nil {
		s.log.Error("feed.post.append_owner.fail", "post_id", id, "user_id", authorID, "err", err)
		return Post{}, &InconsistencyError{PostID: id, Err: err}
	}

	author, err := s.store.UserByID(ctx, authorID)
	if err != nil {
		s.log.Error("feed.post.load_author.fail", "post_id", id, "user_id", authorID, "err", err)
		return Post{}, &InconsistencyError{PostID: id, Err: err}
	}

	snapshot := AuthorSnapshot{
		ID:           author.ID,
		Username:     author.Username,
		ProfileImage: author.ProfileImage,
		Verified:     author.Verified,
	}
	if err := s.store.StampPostAuthor(ctx, id, snapshot); err != nil {
		s.log.Error("feed.post.stamp.fail", "post_id", id, "err", err)
		return Post{}, &InconsistencyError{PostID: id, Err: err}
	}
	post.User = snapshot

	s.log.Info("feed.post.create", "post_id", id, "user_id", authorID)
	return post, nil
}

// AddLike adds userID to the post's like set. Idempotent: liking an already
// liked post returns the post unchanged.
func (s *Service) AddLike(ctx context.Context, postID, userID string) (Post, error) {
	if postID == "" || userID == "" {
		return Post{}, ErrInvalidInput
	}

	post, err := s.store.AddLike(ctx, postID, userID)
	if err != nil {
		return Post{}, err
	}

	s.log.Info("feed.like.add", "post_id", postID, "user_id", userID, "likes", len(post.Likes))
	return post, nil
}

// RemoveLike removes userID from the post's like set. Idempotent: unliking
// a non-member is a no-op.
func (s *Service) RemoveLike(ctx context.Context, postID, userID string) (Post, error) {
	if postID == "" || userID == "" {
		return Post{}, ErrInvalidInput
	}

	post, err := s.store.RemoveLike(ctx, postID, userID)
	if err != nil {
		return Post{}, err
	}

	s.log.Info("feed.like.remove", "post_id", postID, "user_id", userID, "likes", len(post.Likes))
	return post, nil
}

// ListPosts returns all posts newest-created-first.
func (s *Service) ListPosts(ctx context.Context) ([]Post, error) {
	return s.store.ListPosts(ctx)
}

// ListPostsByAuthor returns posts whose author snapshot matches userID.
func (s *Service) ListPostsByAuthor(ctx context.Context, userID string) ([]Post, error) {
	return s.store.ListPostsByAuthor(ctx, userID)
}

// LookupUser loads a user by ID.
func (s *Service) LookupUser(ctx context.Context, userID string) (User, error) {
	return s.store.UserByID(ctx, userID)
}

// UserByUsername loads a user by username.
func (s *Service) UserByUsername(ctx context.Context, username string) (User, error) {
	return s.store.UserByUsername(ctx, username)
}

// UserByRefreshToken resolves the user currently holding token.
func (s *Service) UserByRefreshToken(ctx context.Context, token string) (User, error) {
	return s.store.UserByRefreshToken(ctx, token)
}

// SetRefreshToken persists token as the user's single live refresh token,
// superseding any prior value.
func (s *Service) SetRefreshToken(ctx context.Context, userID, token string) error {
	return s.store.SetRefreshToken(ctx, userID, token)
}

// ClearRefreshToken revokes the refresh token currently equal to token.
// Clearing a token no user holds is a no-op: logout is idempotent.
func (s *Service) ClearRefreshToken(ctx context.Context, token string) error {
	u, err := s.store.UserByRefreshToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.store.SetRefreshToken(ctx, u.ID, ""); err != nil {
		return err
	}
	s.log.Info("feed.user.logout", "user_id", u.ID)
	return nil
}
