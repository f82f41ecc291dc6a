package domain

import "time"

// User is a registered author. PasswordHash is the argon2 encoded
// credential and never crosses the service boundary.
type User struct {
	ID           string
	Username     string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
