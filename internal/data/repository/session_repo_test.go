package repository

import (
	"context"
	"testing"
	"time"

	"clinic-auth/internal/data/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSession(familyID uuid.UUID) *entity.Session {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	agent := "test-agent"
	return &entity.Session{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		UserID:     uuid.New(),
		FamilyID:   familyID,
		TokenHash:  "abc123",
		UserAgent:  &agent,
		ExpiresAt:  now.Add(7 * 24 * time.Hour),
	}
}

func sessionArgMatchers(s *entity.Session) []any {
	return []any{
		s.ID, s.UserID, s.FamilyID, s.TokenHash, s.DeviceID,
		s.UserAgent, s.IPAddress, s.ExpiresAt, s.CreatedAt,
	}
}

func TestSessionRepository_FindByTokenHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	want := newTestSession(uuid.New())
	rotated := uuid.New()
	want.RotatedTo = &rotated

	mock.ExpectQuery(`(?s)SELECT .+FROM sessions\s+WHERE token_hash = \$1`).
		WithArgs(want.TokenHash).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "family_id", "token_hash", "device_id", "user_agent",
			"ip_address", "expires_at", "revoked_at", "rotated_to", "created_at",
		}).AddRow(
			want.ID, want.UserID, want.FamilyID, want.TokenHash, (*string)(nil), want.UserAgent,
			(*string)(nil), want.ExpiresAt, (*time.Time)(nil), want.RotatedTo, want.CreatedAt,
		))
	mock.ExpectQuery(`(?s)SELECT .+FROM sessions\s+WHERE token_hash = \$1`).
		WithArgs("unknown").
		WillReturnError(pgx.ErrNoRows)

	repo := NewSessionRepository(mock, zap.NewNop())

	got, err := repo.FindByTokenHash(context.Background(), want.TokenHash)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.FamilyID, got.FamilyID)
	assert.True(t, got.Redeemed())

	got, err = repo.FindByTokenHash(context.Background(), "unknown")
	assert.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_MarkRotated(t *testing.T) {
	tests := []struct {
		name      string
		affected  int64
		wantErr   error
		expectEnd func(mock pgxmock.PgxPoolIface)
	}{
		{
			name:      "rotates live session",
			affected:  1,
			expectEnd: func(mock pgxmock.PgxPoolIface) { mock.ExpectCommit() },
		},
		{
			name:      "already redeemed rolls back",
			affected:  0,
			wantErr:   ErrAlreadyRedeemed,
			expectEnd: func(mock pgxmock.PgxPoolIface) { mock.ExpectRollback() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			oldID := uuid.New()
			successor := newTestSession(uuid.New())

			mock.ExpectBegin()
			mock.ExpectExec(`INSERT INTO sessions`).
				WithArgs(sessionArgMatchers(successor)...).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			mock.ExpectExec(`UPDATE sessions\s+SET rotated_to = \$2`).
				WithArgs(oldID, successor.ID).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))
			tt.expectEnd(mock)

			err = NewSessionRepository(mock, zap.NewNop()).MarkRotated(context.Background(), oldID, successor)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSessionRepository_RevokeFamily(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	familyID := uuid.New()
	at := time.Now().UTC()
	mock.ExpectExec(`UPDATE sessions\s+SET revoked_at = \$2\s+WHERE family_id = \$1`).
		WithArgs(familyID, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := NewSessionRepository(mock, zap.NewNop()).RevokeFamily(context.Background(), familyID, at)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Revoke(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	at := time.Now().UTC()
	// already revoked rows match nothing and that is still success
	mock.ExpectExec(`UPDATE sessions\s+SET revoked_at = \$2\s+WHERE id = \$1`).
		WithArgs(id, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, NewSessionRepository(mock, zap.NewNop()).Revoke(context.Background(), id, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
