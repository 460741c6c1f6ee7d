package models

import "time"

// Session is a server-side record binding an opaque id to an authenticated
// user. The id travels inside the JWT as the jti claim; deleting the row
// invalidates every token that references it.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry time.
func (s Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}
