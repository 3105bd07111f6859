package domain

import "time"

// User is an entry in the credential registry. Only the bcrypt hash of the
// password is ever stored.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
