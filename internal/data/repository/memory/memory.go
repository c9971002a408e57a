// Package memory holds map-backed repositories for development and tests.
// Every method copies records in and out so callers never share state with
// the store, and each conditional update runs under one lock.
package memory

import (
	"clinic-auth/internal/data/repository"
)

func NewRepository() *repository.Repository {
	return &repository.Repository{
		User:    NewUserRepository(),
		Session: NewSessionRepository(),
		OTP:     NewOTPRepository(),
	}
}
