package api

import "time"

// Request/response bodies. The wire shapes, domain codes included, follow
// the service's original client contract.

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createPostRequest struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// tokenRequest is shared by /token and /logout: both carry the refresh token.
type tokenRequest struct {
	Token string `json:"token"`
}

type messageResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// sessionResponse is the success shape shared by register and login.
type sessionResponse struct {
	Code         int    `json:"code"`
	Message      string `json:"message"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Username     string `json:"username"`
	UserID       string `json:"userID"`
	ProfileImage string `json:"profileImage"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type logoutResponse struct {
	Message string `json:"message"`
}

// userResponse carries the public user profile for a successful lookup.
// Absence is reported as messageResponse with domain code 404 in the body,
// not as an HTTP status.
type userResponse struct {
	Code         int      `json:"code"`
	Message      string   `json:"message"`
	Username     string   `json:"username"`
	ProfileImage string   `json:"profileImage"`
	Verified     bool     `json:"verified"`
	Posts        []string `json:"posts"`
}
