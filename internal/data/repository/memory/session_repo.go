package memory

import (
	"context"
	"sync"
	"time"

	"clinic-auth/internal/data/entity"
	"clinic-auth/internal/data/repository"

	"github.com/google/uuid"
)

type sessionRepository struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*entity.Session
	byHash map[string]uuid.UUID
}

func NewSessionRepository() repository.SessionRepository {
	return &sessionRepository{
		byID:   make(map[uuid.UUID]*entity.Session),
		byHash: make(map[string]uuid.UUID),
	}
}

func (r *sessionRepository) Create(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.insert(session)
	return nil
}

func (r *sessionRepository) insert(session *entity.Session) {
	r.byID[session.ID] = copySession(session)
	r.byHash[session.TokenHash] = session.ID
}

func (r *sessionRepository) FindByTokenHash(_ context.Context, tokenHash string) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byHash[tokenHash]
	if !ok {
		return nil, nil
	}
	return copySession(r.byID[id]), nil
}

func (r *sessionRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return copySession(session), nil
}

func (r *sessionRepository) MarkRotated(_ context.Context, oldID uuid.UUID, successor *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[oldID]
	if !ok || old.Redeemed() {
		return repository.ErrAlreadyRedeemed
	}

	r.insert(successor)
	next := successor.ID
	old.RotatedTo = &next
	return nil
}

func (r *sessionRepository) Revoke(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.byID[id]; ok && session.RevokedAt == nil {
		revoked := at
		session.RevokedAt = &revoked
	}
	return nil
}

func (r *sessionRepository) RevokeFamily(_ context.Context, familyID uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, session := range r.byID {
		if session.FamilyID == familyID && session.RevokedAt == nil {
			revoked := at
			session.RevokedAt = &revoked
			n++
		}
	}
	return n, nil
}

func (r *sessionRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, session := range r.byID {
		if session.ExpiresAt.Before(before) {
			delete(r.byHash, session.TokenHash)
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func copySession(s *entity.Session) *entity.Session {
	c := *s
	if s.DeviceID != nil {
		v := *s.DeviceID
		c.DeviceID = &v
	}
	if s.UserAgent != nil {
		v := *s.UserAgent
		c.UserAgent = &v
	}
	if s.IPAddress != nil {
		v := *s.IPAddress
		c.IPAddress = &v
	}
	if s.RevokedAt != nil {
		v := *s.RevokedAt
		c.RevokedAt = &v
	}
	if s.RotatedTo != nil {
		v := *s.RotatedTo
		c.RotatedTo = &v
	}
	return &c
}
