package auth

import (
	"bytes"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTTL matches the original deployment's 600-second access window.
const DefaultAccessTTL = 600 * time.Second

// Claims carries the subject's user ID alongside the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userID"`
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	// AccessSecret signs access tokens. Required.
	AccessSecret []byte

	// RefreshSecret signs refresh tokens. Required, must differ from
	// AccessSecret so one leaked key never validates both kinds.
	RefreshSecret []byte

	// AccessTTL is the access token validity window.
	AccessTTL time.Duration

	// RefreshTTL bounds refresh token validity. Zero means no expiry:
	// revocation then relies entirely, and deliberately, on the stored-value
	// check performed by callers.
	RefreshTTL time.Duration
}

// TokenService mints and verifies access and refresh tokens.
//
// It is stateless: refresh revocation is enforced by callers comparing the
// presented token against the value persisted on the user record.
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenService validates cfg and returns a TokenService.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, ErrConfig
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, ErrConfig
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL < 0 {
		return nil, ErrConfig
	}
	return &TokenService{cfg: cfg, now: func() time.Time { return time.Now().UTC() }}, nil
}

// IssueAccess signs a short-lived access token for userID.
func (s *TokenService) IssueAccess(userID string) (string, error) {
	now := s.now()
	return s.sign(userID, s.cfg.AccessSecret, now, now.Add(s.cfg.AccessTTL))
}

// IssueRefresh signs a refresh token for userID.
//
// The caller is responsible for persisting the returned value onto the user
// record, superseding any prior refresh token for that user.
func (s *TokenService) IssueRefresh(userID string) (string, error) {
	now := s.now()
	var exp time.Time
	if s.cfg.RefreshTTL > 0 {
		exp = now.Add(s.cfg.RefreshTTL)
	}
	return s.sign(userID, s.cfg.RefreshSecret, now, exp)
}

// VerifyAccess verifies an access token and returns the subject user ID.
func (s *TokenService) VerifyAccess(token string) (string, error) {
	return s.verify(token, s.cfg.AccessSecret)
}

// VerifyRefresh verifies a refresh token signature and returns the subject
// user ID. Callers must additionally compare the token against the value
// stored on the user before trusting it.
func (s *TokenService) VerifyRefresh(token string) (string, error) {
	return s.verify(token, s.cfg.RefreshSecret)
}

func (s *TokenService) sign(userID string, secret []byte, now, exp time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
		UserID: userID,
	}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *TokenService) verify(token string, secret []byte) (string, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.UserID == "" {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}
