package store

import (
	"crypto/subtle"
	"log/slog"
	"time"
)

const redacted = "[REDACTED]"

// Password is a plaintext credential. It never renders in logs or formatted output.
type Password string

func (p Password) Equal(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(p), []byte(candidate)) == 1
}

func (p Password) IsSet() bool {
	return p != ""
}

func (Password) String() string {
	return redacted
}

func (Password) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

func (Password) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

type User struct {
	ID         int64
	Email      string
	Password   Password
	Name       string
	Photo      string
	Bio        string
	Phone      string
	IsPublic   bool
	IsAdmin    bool
	Provider   string
	ExternalID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsExternal reports whether the user was created from a third party identity.
func (u User) IsExternal() bool {
	return u.Provider != ""
}
