package dto

import (
	"time"

	"github.com/spec-kit/task-slot-service/internal/domain"
)

// RegisterRequest payload for requester registration.
type RegisterRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Region   int    `json:"region"`
	Location string `json:"location"`
}

// LoginRequest payload.
type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// UserResponse returned on register/login.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role,omitempty"`
	Region    *int        `json:"region,omitempty"`
	Location  string      `json:"location,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// AuthResponse wraps a user with an access token.
type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}
