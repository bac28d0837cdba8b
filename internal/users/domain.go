package users

import (
	"errors"
	"time"
)

// User mirrors the provider identity plus application profile fields.
type User struct {
	ID           int64     `json:"id"`
	Subject      string    `json:"subject"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Role         string    `json:"role"`
	SiteID       int64     `json:"site_id,omitempty"`
	ImageKey     string    `json:"image_key,omitempty"`
	SignatureKey string    `json:"signature_key,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ErrNotFound indicates a missing user record.
var ErrNotFound = errors.New("users: not found")
