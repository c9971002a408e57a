package response

import (
	"time"

	"clinic-auth/internal/data/entity"
)

type UserResponse struct {
	ID         string            `json:"id"`
	FullName   string            `json:"full_name"`
	Email      string            `json:"email"`
	Phone      *string           `json:"phone,omitempty"`
	Role       entity.UserRole   `json:"role"`
	Status     entity.UserStatus `json:"status"`
	IsVerified bool              `json:"is_verified"`
	CreatedAt  time.Time         `json:"created_at"`
}

type RegisterResponse struct {
	User         UserResponse `json:"user"`
	OTPExpiresAt time.Time    `json:"otp_expires_at"`
}

// SessionResponse is returned whenever a session is created or rotated.
type SessionResponse struct {
	User                  UserResponse `json:"user"`
	AccessToken           string       `json:"accessToken"`
	RefreshToken          string       `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time    `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time    `json:"refreshTokenExpiresAt"`
	Destination           string       `json:"destination"`
}

// UnverifiedResponse tells the client to route to OTP entry.
type UnverifiedResponse struct {
	Status       string     `json:"status"`
	UserID       string     `json:"user_id"`
	OTPExpiresAt *time.Time `json:"otp_expires_at,omitempty"`
}

type ResendOTPResponse struct {
	OTPExpiresAt      time.Time `json:"otp_expires_at"`
	RetryAfterSeconds int       `json:"retry_after_seconds"`
}

type MeResponse struct {
	User        UserResponse `json:"user"`
	Destination string       `json:"destination"`
}

func UserToResponse(user *entity.User) UserResponse {
	return UserResponse{
		ID:         user.ID.String(),
		FullName:   user.FullName,
		Email:      user.Email,
		Phone:      user.Phone,
		Role:       user.Role,
		Status:     user.Status,
		IsVerified: user.IsVerified(),
		CreatedAt:  user.CreatedAt,
	}
}
