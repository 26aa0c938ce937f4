package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. Password holds the argon2id hash and never
// leaves the service.
type User struct {
	ID        uuid.UUID `json:"id"`
	Login     string    `json:"login"`
	Password  string    `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
