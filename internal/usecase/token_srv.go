package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic-auth/internal/data/entity"
	"clinic-auth/internal/data/repository"
	"clinic-auth/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccessClaims is the payload of an access token. SessionID is the rotation
// family the token was minted from.
type AccessClaims struct {
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// ClientMeta describes the device a session was created from.
type ClientMeta struct {
	DeviceID  string
	UserAgent string
	IPAddress string
}

type TokenPair struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
}

type TokenService interface {
	IssueSession(ctx context.Context, user *entity.User, meta ClientMeta) (*TokenPair, error)
	// Refresh redeems refreshToken once and returns its owner with a new pair.
	Refresh(ctx context.Context, refreshToken string, meta ClientMeta) (*entity.User, *TokenPair, error)
	// Revoke is a no-op for unknown tokens.
	Revoke(ctx context.Context, refreshToken string) error
	ParseAccessToken(token string) (*AccessClaims, error)
}

type tokenService struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	config   utils.JWTConfig
	clock    utils.Clock
	metrics  *Metrics
	log      *zap.Logger
}

func NewTokenService(
	sessions repository.SessionRepository,
	users repository.UserRepository,
	config utils.JWTConfig,
	clock utils.Clock,
	metrics *Metrics,
	log *zap.Logger,
) TokenService {
	return &tokenService{
		sessions: sessions,
		users:    users,
		config:   config,
		clock:    clock,
		metrics:  metrics,
		log:      log.With(zap.String("service", "token")),
	}
}

func (s *tokenService) IssueSession(ctx context.Context, user *entity.User, meta ClientMeta) (*TokenPair, error) {
	session, refreshToken, err := s.newSession(user.ID, uuid.New(), meta)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, storageError(err)
	}

	return s.pair(user, session, refreshToken)
}

func (s *tokenService) Refresh(ctx context.Context, refreshToken string, meta ClientMeta) (*entity.User, *TokenPair, error) {
	user, pair, err := s.refresh(ctx, refreshToken, meta)
	s.metrics.Refreshes.WithLabelValues(outcomeOf(err)).Inc()
	return user, pair, err
}

func (s *tokenService) refresh(ctx context.Context, refreshToken string, meta ClientMeta) (*entity.User, *TokenPair, error) {
	if refreshToken == "" {
		return nil, nil, ErrInvalidToken
	}

	// 1. Look up the presented link
	current, err := s.sessions.FindByTokenHash(ctx, utils.HashToken(refreshToken))
	if err != nil {
		return nil, nil, storageError(err)
	}
	if current == nil {
		return nil, nil, ErrInvalidToken
	}

	// 2. Expired links are simply rejected
	now := s.clock.Now()
	if current.IsExpiredAt(now) {
		return nil, nil, ErrTokenExpired
	}

	// 3. A redeemed link being presented again means the token leaked
	if current.Redeemed() {
		return nil, nil, s.reuseDetected(ctx, current)
	}

	// 4. Reload the owner so the new access token carries the current role
	user, err := s.users.FindByID(ctx, current.UserID)
	if err != nil {
		return nil, nil, storageError(err)
	}
	if user == nil {
		_ = s.revokeFamily(ctx, current.FamilyID)
		return nil, nil, ErrInvalidToken
	}

	// 5. Rotate; losing a concurrent rotation counts as reuse
	successor, nextToken, err := s.newSession(user.ID, current.FamilyID, meta)
	if err != nil {
		return nil, nil, err
	}
	if err := s.sessions.MarkRotated(ctx, current.ID, successor); err != nil {
		if errors.Is(err, repository.ErrAlreadyRedeemed) {
			return nil, nil, s.reuseDetected(ctx, current)
		}
		return nil, nil, storageError(err)
	}

	pair, err := s.pair(user, successor, nextToken)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *tokenService) reuseDetected(ctx context.Context, session *entity.Session) error {
	s.log.Warn("Refresh token reuse detected, revoking session family",
		zap.String("user_id", session.UserID.String()),
		zap.String("family_id", session.FamilyID.String()),
		zap.String("session_id", session.ID.String()),
	)
	if err := s.revokeFamily(ctx, session.FamilyID); err != nil {
		return storageError(err)
	}
	return ErrTokenReused
}

func (s *tokenService) revokeFamily(ctx context.Context, familyID uuid.UUID) error {
	n, err := s.sessions.RevokeFamily(ctx, familyID, s.clock.Now())
	if err != nil {
		s.log.Error("Failed to revoke session family",
			zap.Error(err),
			zap.String("family_id", familyID.String()),
		)
		return err
	}
	s.log.Info("Session family revoked",
		zap.String("family_id", familyID.String()),
		zap.Int64("sessions", n),
	)
	return nil
}

func (s *tokenService) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	session, err := s.sessions.FindByTokenHash(ctx, utils.HashToken(refreshToken))
	if err != nil {
		return storageError(err)
	}
	if session == nil {
		return nil
	}

	if err := s.sessions.Revoke(ctx, session.ID, s.clock.Now()); err != nil {
		return storageError(err)
	}
	return nil
}

func (s *tokenService) ParseAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			return []byte(s.config.Secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ==================== HELPER METHODS ====================

func (s *tokenService) newSession(userID, familyID uuid.UUID, meta ClientMeta) (*entity.Session, string, error) {
	token, hash, err := utils.GenerateRefreshToken()
	if err != nil {
		return nil, "", err
	}

	now := s.clock.Now()
	return &entity.Session{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		UserID:    userID,
		FamilyID:  familyID,
		TokenHash: hash,
		DeviceID:  optional(meta.DeviceID),
		UserAgent: optional(meta.UserAgent),
		IPAddress: optional(meta.IPAddress),
		ExpiresAt: now.Add(s.config.RefreshTTL),
	}, token, nil
}

func (s *tokenService) pair(user *entity.User, session *entity.Session, refreshToken string) (*TokenPair, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.config.AccessTTL)

	claims := AccessClaims{
		Role:      string(user.Role),
		SessionID: session.FamilyID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  expiresAt,
		RefreshTokenExpiresAt: session.ExpiresAt,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
