package domain

import (
	"context"
	"time"
)

// User is a registered account.
type User struct {
	ID             string    `bson:"_id" json:"id"`
	Username       string    `bson:"username" json:"username"`
	Email          string    `bson:"email" json:"email"`
	HashedPassword string    `bson:"hashed_password" json:"-"`
	IsActive       bool      `bson:"is_active" json:"isActive"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
}

// UserStore persists user accounts.
type UserStore interface {
	// Get retrieves a user by ID. Returns ErrNotFound when absent.
	Get(ctx context.Context, id string) (*User, error)
	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)
	// Insert stores a new user. Returns ErrAlreadyExists on a username
	// collision.
	Insert(ctx context.Context, user *User) error
}
