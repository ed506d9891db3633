package feed

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error codes we translate into domain errors.
const (
	pgUniqueViolation = "23505"
	pgFKViolation     = "23503"
)

// PostgresStore implements Store on PostgreSQL.
//
// Likes live in their own table keyed by (post_id, user_id); the primary key
// plus ON CONFLICT DO NOTHING makes AddLike a true set operation, so
// concurrent duplicate likes never produce a duplicate membership.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed store. The pool's lifecycle is
// owned by the caller; Close here is a no-op.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("feed: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// Close is a no-op; the pool is owned by the app.
func (s *PostgresStore) Close() error { return nil }

// CreateUser inserts a new user row.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	if in.ID == "" || in.Username == "" {
		return User{}, ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, profile_image, verified, refresh_token, posts, created_at)
		VALUES ($1, $2, $3, $4, $5, false, '', '{}', $6)
	`, in.ID, in.Username, in.Email, in.PasswordHash, in.ProfileImage, in.Now)
	if isPgErr(err, pgUniqueViolation) {
		return User{}, ErrConflict
	}
	if err != nil {
		return User{}, err
	}

	return s.UserByID(ctx, in.ID)
}

const userColumns = `id, username, email, password_hash, profile_image, verified, refresh_token, posts, created_at`

func (s *PostgresStore) scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ProfileImage, &u.Verified, &u.RefreshToken, &u.Posts, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	if u.Posts == nil {
		u.Posts = []string{}
	}
	return u, nil
}

// UserByID loads a user by ID.
func (s *PostgresStore) UserByID(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// UserByUsername loads a user by username.
func (s *PostgresStore) UserByUsername(ctx context.Context, username string) (User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// UserByRefreshToken loads the user whose stored refresh token equals token.
func (s *PostgresStore) UserByRefreshToken(ctx context.Context, token string) (User, error) {
	// An empty token means "no live session"; it must never match cleared rows.
	if token == "" {
		return User{}, ErrNotFound
	}
	return s.scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE refresh_token = $1`, token))
}

// SetRefreshToken overwrites the stored refresh token (empty clears it).
func (s *PostgresStore) SetRefreshToken(ctx context.Context, userID, token string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET refresh_token = $2 WHERE id = $1`, userID, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendUserPost appends postID to the user's owned-post list.
func (s *PostgresStore) AppendUserPost(ctx context.Context, userID, postID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET posts = array_append(posts, $2) WHERE id = $1`, userID, postID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreatePost inserts a new post row with empty likes and comments.
func (s *PostgresStore) CreatePost(ctx context.Context, post Post) error {
	if post.ID == "" {
		return ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO posts (id, content, created_at, author_id, author_username, author_profile_image, author_verified, comments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '{}')
	`, post.ID, post.Content, post.CreatedAt, post.User.ID, post.User.Username, post.User.ProfileImage, post.User.Verified)
	if isPgErr(err, pgUniqueViolation) {
		return ErrConflict
	}
	return err
}

// StampPostAuthor persists the denormalized author snapshot onto postID.
func (s *PostgresStore) StampPostAuthor(ctx context.Context, postID string, author AuthorSnapshot) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE posts
		SET author_id = $2, author_username = $3, author_profile_image = $4, author_verified = $5
		WHERE id = $1
	`, postID, author.ID, author.Username, author.ProfileImage, author.Verified)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const postQuery = `
	SELECT
		p.id, p.content, p.created_at,
		p.author_id, p.author_username, p.author_profile_image, p.author_verified,
		p.comments,
		COALESCE(
			(SELECT array_agg(l.user_id ORDER BY l.created_at) FROM post_likes l WHERE l.post_id = p.id),
			'{}'
		) AS likes
	FROM posts p
`

func scanPost(row pgx.Row) (Post, error) {
	var p Post
	err := row.Scan(
		&p.ID, &p.Content, &p.CreatedAt,
		&p.User.ID, &p.User.Username, &p.User.ProfileImage, &p.User.Verified,
		&p.Comments, &p.Likes,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, err
	}
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Comments == nil {
		p.Comments = []string{}
	}
	return p, nil
}

// PostByID loads a post by ID.
func (s *PostgresStore) PostByID(ctx context.Context, id string) (Post, error) {
	return scanPost(s.pool.QueryRow(ctx, postQuery+` WHERE p.id = $1`, id))
}

// ListPosts returns all posts newest-created-first.
func (s *PostgresStore) ListPosts(ctx context.Context) ([]Post, error) {
	return s.listPosts(ctx, postQuery+` ORDER BY p.created_at DESC, p.id DESC`)
}

// ListPostsByAuthor filters on the denormalized author snapshot ID. The
// author_id column is indexed, which keeps the observable results of the
// snapshot-based filter while avoiding a full scan.
func (s *PostgresStore) ListPostsByAuthor(ctx context.Context, userID string) ([]Post, error) {
	return s.listPosts(ctx, postQuery+` WHERE p.author_id = $1 ORDER BY p.created_at DESC, p.id DESC`, userID)
}

func (s *PostgresStore) listPosts(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddLike inserts into the like set; the primary key makes duplicates a
// no-op regardless of what the caller observed beforehand.
func (s *PostgresStore) AddLike(ctx context.Context, postID, userID string) (Post, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, postID, userID)
	if isPgErr(err, pgFKViolation) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, err
	}

	return s.PostByID(ctx, postID)
}

// RemoveLike deletes from the like set; absent membership is a no-op.
func (s *PostgresStore) RemoveLike(ctx context.Context, postID, userID string) (Post, error) {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2
	`, postID, userID)
	if err != nil {
		return Post{}, err
	}

	return s.PostByID(ctx, postID)
}

func isPgErr(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
