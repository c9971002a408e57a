package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic-auth/internal/data/entity"
	"clinic-auth/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type OTPRepository interface {
	// Create invalidates any live challenge for the same user and purpose and
	// stores otp in its place, atomically.
	Create(ctx context.Context, otp *entity.OTP) error
	// FindLatest returns the newest challenge for user and purpose, or (nil, nil).
	FindLatest(ctx context.Context, userID uuid.UUID, purpose entity.OTPPurpose) (*entity.OTP, error)
	// IncrementAttempts records a failed guess and returns the new count.
	// ErrNotFound means the challenge is no longer live or already at the cap.
	IncrementAttempts(ctx context.Context, id uuid.UUID, maxAttempts int) (int, error)
	// Consume marks a live, unexpired challenge as used. ErrNotFound means
	// another request consumed, replaced or exhausted it first.
	Consume(ctx context.Context, id uuid.UUID, maxAttempts int, at time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type otpRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewOTPRepository(db database.PgxIface, log *zap.Logger) OTPRepository {
	return &otpRepository{
		db:  db,
		log: log.With(zap.String("repository", "otp")),
	}
}

func (r *otpRepository) Create(ctx context.Context, otp *entity.OTP) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin OTP tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `
		UPDATE otps
		SET invalidated_at = $3
		WHERE user_id = $1
		  AND purpose = $2
		  AND consumed_at IS NULL
		  AND invalidated_at IS NULL
	`, otp.UserID, otp.Purpose, otp.CreatedAt)
	if err != nil {
		r.log.Error("Failed to invalidate previous OTP",
			zap.Error(err),
			zap.String("user_id", otp.UserID.String()),
			zap.String("purpose", string(otp.Purpose)),
		)
		return fmt.Errorf("invalidate OTPs for %s: %w", otp.UserID, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO otps (id, user_id, purpose, code, attempts, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		otp.ID,
		otp.UserID,
		otp.Purpose,
		otp.Code,
		otp.Attempts,
		otp.ExpiresAt,
		otp.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create OTP",
			zap.Error(err),
			zap.String("user_id", otp.UserID.String()),
			zap.String("purpose", string(otp.Purpose)),
		)
		return fmt.Errorf("create OTP for %s: %w", otp.UserID, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit OTP tx: %w", err)
	}
	return nil
}

func (r *otpRepository) FindLatest(ctx context.Context, userID uuid.UUID, purpose entity.OTPPurpose) (*entity.OTP, error) {
	query := `
		SELECT id, user_id, purpose, code, attempts, expires_at,
		       consumed_at, invalidated_at, created_at
		FROM otps
		WHERE user_id = $1 AND purpose = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var otp entity.OTP
	err := r.db.QueryRow(ctx, query, userID, purpose).Scan(
		&otp.ID,
		&otp.UserID,
		&otp.Purpose,
		&otp.Code,
		&otp.Attempts,
		&otp.ExpiresAt,
		&otp.ConsumedAt,
		&otp.InvalidatedAt,
		&otp.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find latest OTP",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("purpose", string(purpose)),
		)
		return nil, fmt.Errorf("find OTP for %s purpose %s: %w", userID, purpose, err)
	}

	return &otp, nil
}

func (r *otpRepository) IncrementAttempts(ctx context.Context, id uuid.UUID, maxAttempts int) (int, error) {
	query := `
		UPDATE otps
		SET attempts = attempts + 1
		WHERE id = $1
		  AND consumed_at IS NULL
		  AND invalidated_at IS NULL
		  AND attempts < $2
		RETURNING attempts
	`

	var attempts int
	err := r.db.QueryRow(ctx, query, id, maxAttempts).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		r.log.Error("Failed to increment OTP attempts",
			zap.Error(err),
			zap.String("otp_id", id.String()),
		)
		return 0, fmt.Errorf("increment attempts of OTP %s: %w", id, err)
	}

	return attempts, nil
}

func (r *otpRepository) Consume(ctx context.Context, id uuid.UUID, maxAttempts int, at time.Time) error {
	query := `
		UPDATE otps
		SET consumed_at = $3
		WHERE id = $1
		  AND consumed_at IS NULL
		  AND invalidated_at IS NULL
		  AND attempts < $2
		  AND expires_at > $3
	`

	result, err := r.db.Exec(ctx, query, id, maxAttempts, at)
	if err != nil {
		r.log.Error("Failed to consume OTP",
			zap.Error(err),
			zap.String("otp_id", id.String()),
		)
		return fmt.Errorf("consume OTP %s: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *otpRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM otps WHERE expires_at < $1`, before)
	if err != nil {
		r.log.Error("Failed to delete expired OTPs", zap.Error(err))
		return 0, fmt.Errorf("delete expired OTPs: %w", err)
	}
	return result.RowsAffected(), nil
}
