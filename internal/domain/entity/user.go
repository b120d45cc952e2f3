package entity

import (
	"time"

	"shirtdrop/internal/domain/value"
)

type User struct {
	Address   value.Address `json:"address"`
	Provider  string        `json:"provider"`
	Subject   string        `json:"subject"`
	Email     string        `json:"email,omitempty"`
	Name      string        `json:"name,omitempty"`
	AvatarURL string        `json:"avatar_url,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type Session struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Identity is the verified content of a social login id token.
type Identity struct {
	Provider string
	Issuer   string
	Subject  string
	Email    string
	Name     string
	Picture  string
}
