package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

// ==================== OTP ====================

// GenerateOTP returns a numeric code of the given length drawn from crypto/rand.
// Leading zeros are kept.
func GenerateOTP(length int) (string, error) {
	if length <= 0 {
		length = 6
	}

	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate OTP digit: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}

	return string(digits), nil
}

// ==================== REFRESH TOKEN ====================

const RefreshTokenBytes = 32

// GenerateRefreshToken returns an opaque URL-safe token and the sha256 hex
// digest that is persisted in its place.
func GenerateRefreshToken() (token, hash string, err error) {
	buf := make([]byte, RefreshTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate refresh token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(buf)
	return token, HashToken(token), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
