package feed

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is the in-memory Store used when no database is configured
// (dev, CI, tests). All mutations happen under a single mutex, which is what
// makes the like set a guarded set operation rather than a racy
// read-then-write.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
	posts map[string]*Post

	// order keeps post IDs in insertion order for stable listing.
	order []string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*User),
		posts: make(map[string]*Post),
	}
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// CreateUser inserts a new user, rejecting duplicate usernames.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if in.ID == "" || in.Username == "" {
		return User{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == in.Username {
			return User{}, ErrConflict
		}
	}

	u := &User{
		ID:           in.ID,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		ProfileImage: in.ProfileImage,
		Posts:        []string{},
		CreatedAt:    in.Now,
	}
	s.users[u.ID] = u
	return cloneUser(u), nil
}

// UserByID loads a user by ID.
func (s *MemoryStore) UserByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return cloneUser(u), nil
}

// UserByUsername loads a user by username.
func (s *MemoryStore) UserByUsername(ctx context.Context, username string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return User{}, ErrNotFound
}

// UserByRefreshToken loads the user holding the given refresh token.
func (s *MemoryStore) UserByRefreshToken(ctx context.Context, token string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if token == "" {
		return User{}, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.RefreshToken == token {
			return cloneUser(u), nil
		}
	}
	return User{}, ErrNotFound
}

// SetRefreshToken overwrites the stored refresh token (empty clears it).
func (s *MemoryStore) SetRefreshToken(ctx context.Context, userID, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.RefreshToken = token
	return nil
}

// AppendUserPost appends postID to the user's owned-post list.
func (s *MemoryStore) AppendUserPost(ctx context.Context, userID, postID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Posts = append(u.Posts, postID)
	return nil
}

// CreatePost inserts a new post.
func (s *MemoryStore) CreatePost(ctx context.Context, post Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if post.ID == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[post.ID]; exists {
		return ErrConflict
	}

	p := clonePost(&post)
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Comments == nil {
		p.Comments = []string{}
	}
	s.posts[post.ID] = &p
	s.order = append(s.order, post.ID)
	return nil
}

// StampPostAuthor persists the author snapshot onto an existing post.
func (s *MemoryStore) StampPostAuthor(ctx context.Context, postID string, author AuthorSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return ErrNotFound
	}
	p.User = author
	return nil
}

// PostByID loads a post by ID.
func (s *MemoryStore) PostByID(ctx context.Context, id string) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	return clonePost(p), nil
}

// ListPosts returns all posts newest-created-first.
func (s *MemoryStore) ListPosts(ctx context.Context) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Post, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, clonePost(s.posts[id]))
	}
	sortPostsNewestFirst(out)
	return out, nil
}

// ListPostsByAuthor filters on the denormalized author snapshot ID, not the
// user's post list. The two can drift independently after a partial
// two-phase failure; the snapshot is the source of truth for listing.
func (s *MemoryStore) ListPostsByAuthor(ctx context.Context, userID string) ([]Post, error) {
	all, err := s.ListPosts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Post, 0, len(all))
	for _, p := range all {
		if p.User.ID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

// AddLike adds userID to the like set under the store mutex, so duplicate
// concurrent likes collapse to a single membership.
func (s *MemoryStore) AddLike(ctx context.Context, postID, userID string) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return Post{}, ErrNotFound
	}

	if !p.HasLike(userID) {
		p.Likes = append(p.Likes, userID)
	}
	return clonePost(p), nil
}

// RemoveLike removes userID from the like set; a no-op if absent.
func (s *MemoryStore) RemoveLike(ctx context.Context, postID, userID string) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return Post{}, ErrNotFound
	}

	for i, id := range p.Likes {
		if id == userID {
			p.Likes = append(p.Likes[:i], p.Likes[i+1:]...)
			break
		}
	}
	return clonePost(p), nil
}

func sortPostsNewestFirst(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

func cloneUser(u *User) User {
	out := *u
	out.Posts = append([]string(nil), u.Posts...)
	return out
}

func clonePost(p *Post) Post {
	out := *p
	out.Likes = append([]string{}, p.Likes...)
	out.Comments = append([]string{}, p.Comments...)
	return out
}
