package models

import "time"

type User struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	PasswordHash string `json:"-"`
	Picture   *string   `json:"picture,omitempty"`
	UPIID     *string   `json:"upi_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserSession is an opaque token session, delivered as an httpOnly cookie
// and also accepted as a bearer token.
type UserSession struct {
	UserID       string    `json:"user_id"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

type Admin struct {
	AdminID      string    `json:"admin_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
