package memory

import (
	"context"
	"sync"
	"time"

	"clinic-auth/internal/data/entity"
	"clinic-auth/internal/data/repository"

	"github.com/google/uuid"
)

type otpRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*entity.OTP
	// insertion order per user+purpose, newest last
	chains map[otpKey][]uuid.UUID
}

type otpKey struct {
	userID  uuid.UUID
	purpose entity.OTPPurpose
}

func NewOTPRepository() repository.OTPRepository {
	return &otpRepository{
		byID:   make(map[uuid.UUID]*entity.OTP),
		chains: make(map[otpKey][]uuid.UUID),
	}
}

func (r *otpRepository) Create(_ context.Context, otp *entity.OTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := otpKey{otp.UserID, otp.Purpose}
	for _, id := range r.chains[key] {
		prev := r.byID[id]
		if prev != nil && prev.ConsumedAt == nil && prev.InvalidatedAt == nil {
			at := otp.CreatedAt
			prev.InvalidatedAt = &at
		}
	}

	r.byID[otp.ID] = copyOTP(otp)
	r.chains[key] = append(r.chains[key], otp.ID)
	return nil
}

func (r *otpRepository) FindLatest(_ context.Context, userID uuid.UUID, purpose entity.OTPPurpose) (*entity.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chain := r.chains[otpKey{userID, purpose}]
	for i := len(chain) - 1; i >= 0; i-- {
		if otp, ok := r.byID[chain[i]]; ok {
			return copyOTP(otp), nil
		}
	}
	return nil, nil
}

func (r *otpRepository) IncrementAttempts(_ context.Context, id uuid.UUID, maxAttempts int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	otp, ok := r.byID[id]
	if !ok || otp.ConsumedAt != nil || otp.InvalidatedAt != nil || otp.Attempts >= maxAttempts {
		return 0, repository.ErrNotFound
	}
	otp.Attempts++
	return otp.Attempts, nil
}

func (r *otpRepository) Consume(_ context.Context, id uuid.UUID, maxAttempts int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	otp, ok := r.byID[id]
	if !ok || otp.State(at, maxAttempts) != entity.OTPStateActive {
		return repository.ErrNotFound
	}
	consumed := at
	otp.ConsumedAt = &consumed
	return nil
}

func (r *otpRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for key, chain := range r.chains {
		kept := chain[:0]
		for _, id := range chain {
			if otp := r.byID[id]; otp.ExpiresAt.Before(before) {
				delete(r.byID, id)
				n++
				continue
			}
			kept = append(kept, id)
		}
		if len(kept) == 0 {
			delete(r.chains, key)
		} else {
			r.chains[key] = kept
		}
	}
	return n, nil
}

func copyOTP(o *entity.OTP) *entity.OTP {
	c := *o
	if o.ConsumedAt != nil {
		at := *o.ConsumedAt
		c.ConsumedAt = &at
	}
	if o.InvalidatedAt != nil {
		at := *o.InvalidatedAt
		c.InvalidatedAt = &at
	}
	return &c
}
