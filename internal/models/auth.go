package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// SignupRequest holds the payload for student self-registration.
type SignupRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	StudentID  string `json:"student_id" validate:"required"`
	Department string `json:"department"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse returns the issued token and basic identity info.
type AuthResponse struct {
	Token     string   `json:"token"`
	Role      UserRole `json:"role"`
	Name      string   `json:"name"`
	StudentID *string  `json:"student_id,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	Name      string   `json:"name"`
	StudentID *string  `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}
