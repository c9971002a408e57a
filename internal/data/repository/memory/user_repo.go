package memory

import (
	"context"
	"sync"
	"time"

	"clinic-auth/internal/data/entity"
	"clinic-auth/internal/data/repository"

	"github.com/google/uuid"
)

type userRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*entity.User
	byEmail map[string]uuid.UUID
}

func NewUserRepository() repository.UserRepository {
	return &userRepository{
		byID:    make(map[uuid.UUID]*entity.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *userRepository) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return repository.ErrDuplicateEmail
	}

	r.byID[user.ID] = copyUser(user)
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *userRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok || user.DeletedAt != nil {
		return nil, nil
	}
	return copyUser(user), nil
}

func (r *userRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	user := r.byID[id]
	if user.DeletedAt != nil {
		return nil, nil
	}
	return copyUser(user), nil
}

func (r *userRepository) UpdateStatus(_ context.Context, id uuid.UUID, status entity.UserStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok || user.DeletedAt != nil {
		return repository.ErrNotFound
	}
	user.Status = status
	user.UpdatedAt = at
	return nil
}

func copyUser(u *entity.User) *entity.User {
	c := *u
	if u.Phone != nil {
		phone := *u.Phone
		c.Phone = &phone
	}
	if u.DeletedAt != nil {
		at := *u.DeletedAt
		c.DeletedAt = &at
	}
	return &c
}
