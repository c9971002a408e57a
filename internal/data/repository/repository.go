package repository

import (
	"errors"

	"clinic-auth/pkg/database"

	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned by conditional updates that matched no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when the unique email index rejects an insert.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrAlreadyRedeemed is returned when a refresh session was revoked or
	// rotated before the caller's conditional update ran.
	ErrAlreadyRedeemed = errors.New("session already redeemed")
)

type Repository struct {
	User    UserRepository
	Session SessionRepository
	OTP     OTPRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:    NewUserRepository(db, log),
		Session: NewSessionRepository(db, log),
		OTP:     NewOTPRepository(db, log),
	}
}
