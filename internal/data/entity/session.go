package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is one link in a refresh-token rotation chain. FamilyID is shared by
// every link that descends from the same login.
type Session struct {
	BaseSimple
	UserID    uuid.UUID  `db:"user_id"`
	FamilyID  uuid.UUID  `db:"family_id"`
	TokenHash string     `db:"token_hash"`
	DeviceID  *string    `db:"device_id"`
	UserAgent *string    `db:"user_agent"`
	IPAddress *string    `db:"ip_address"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	RotatedTo *uuid.UUID `db:"rotated_to"`
}

func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// Redeemed reports whether the link was already revoked or exchanged.
func (s *Session) Redeemed() bool {
	return s.RevokedAt != nil || s.RotatedTo != nil
}
