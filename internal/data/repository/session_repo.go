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

// SessionRepository finders return (nil, nil) when no session matches.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	// MarkRotated links oldID to successor and stores successor in one step.
	// ErrAlreadyRedeemed means oldID was revoked or rotated first.
	MarkRotated(ctx context.Context, oldID uuid.UUID, successor *entity.Session) error
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
	RevokeFamily(ctx context.Context, familyID uuid.UUID, at time.Time) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type sessionRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSessionRepository(db database.PgxIface, log *zap.Logger) SessionRepository {
	return &sessionRepository{
		db:  db,
		log: log.With(zap.String("repository", "session")),
	}
}

const sessionColumns = `id, user_id, family_id, token_hash, device_id, user_agent,
		       ip_address, expires_at, revoked_at, rotated_to, created_at`

const insertSession = `
		INSERT INTO sessions (id, user_id, family_id, token_hash, device_id,
		                      user_agent, ip_address, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

func sessionArgs(s *entity.Session) []any {
	return []any{
		s.ID,
		s.UserID,
		s.FamilyID,
		s.TokenHash,
		s.DeviceID,
		s.UserAgent,
		s.IPAddress,
		s.ExpiresAt,
		s.CreatedAt,
	}
}

func scanSession(row pgx.Row) (*entity.Session, error) {
	var s entity.Session
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.FamilyID,
		&s.TokenHash,
		&s.DeviceID,
		&s.UserAgent,
		&s.IPAddress,
		&s.ExpiresAt,
		&s.RevokedAt,
		&s.RotatedTo,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	_, err := r.db.Exec(ctx, insertSession, sessionArgs(session)...)
	if err != nil {
		r.log.Error("Failed to create session",
			zap.Error(err),
			zap.String("user_id", session.UserID.String()),
		)
		return fmt.Errorf("create session for %s: %w", session.UserID, err)
	}
	return nil
}

func (r *sessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE token_hash = $1
	`

	session, err := scanSession(r.db.QueryRow(ctx, query, tokenHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find session by token", zap.Error(err))
		return nil, fmt.Errorf("find session by token: %w", err)
	}

	return session, nil
}

func (r *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1
	`

	session, err := scanSession(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find session by ID",
			zap.Error(err),
			zap.String("session_id", id.String()),
		)
		return nil, fmt.Errorf("find session %s: %w", id, err)
	}

	return session, nil
}

func (r *sessionRepository) MarkRotated(ctx context.Context, oldID uuid.UUID, successor *entity.Session) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin rotation tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, insertSession, sessionArgs(successor)...); err != nil {
		r.log.Error("Failed to insert successor session",
			zap.Error(err),
			zap.String("session_id", oldID.String()),
		)
		return fmt.Errorf("insert successor of session %s: %w", oldID, err)
	}

	result, err := tx.Exec(ctx, `
		UPDATE sessions
		SET rotated_to = $2
		WHERE id = $1
		  AND revoked_at IS NULL
		  AND rotated_to IS NULL
	`, oldID, successor.ID)
	if err != nil {
		r.log.Error("Failed to rotate session",
			zap.Error(err),
			zap.String("session_id", oldID.String()),
		)
		return fmt.Errorf("rotate session %s: %w", oldID, err)
	}

	if result.RowsAffected() == 0 {
		err = ErrAlreadyRedeemed
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit rotation tx: %w", err)
	}
	return nil
}

func (r *sessionRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE sessions
		SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`

	if _, err := r.db.Exec(ctx, query, id, at); err != nil {
		r.log.Error("Failed to revoke session",
			zap.Error(err),
			zap.String("session_id", id.String()),
		)
		return fmt.Errorf("revoke session %s: %w", id, err)
	}
	return nil
}

func (r *sessionRepository) RevokeFamily(ctx context.Context, familyID uuid.UUID, at time.Time) (int64, error) {
	query := `
		UPDATE sessions
		SET revoked_at = $2
		WHERE family_id = $1 AND revoked_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, familyID, at)
	if err != nil {
		r.log.Error("Failed to revoke session family",
			zap.Error(err),
			zap.String("family_id", familyID.String()),
		)
		return 0, fmt.Errorf("revoke session family %s: %w", familyID, err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired drops sessions past their expiry. Revoked but unexpired rows are
// kept so a replay of their token is still recognized as reuse.
func (r *sessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		r.log.Error("Failed to delete expired sessions", zap.Error(err))
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected(), nil
}
