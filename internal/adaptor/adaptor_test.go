package adaptor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"clinic-auth/internal/data/repository/memory"
	"clinic-auth/internal/usecase"
	"clinic-auth/pkg/notify"
	"clinic-auth/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Status  bool            `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

type codeBox struct {
	mu   sync.Mutex
	last string
	fail bool
}

func (b *codeBox) send(_ context.Context, _, code, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("smtp down")
	}
	b.last = code
	return nil
}

func (b *codeBox) code() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

func newTestRouter(t *testing.T) (http.Handler, *codeBox) {
	t.Helper()

	config := &utils.Config{
		JWT: utils.JWTConfig{
			Secret:     "0123456789abcdef0123456789abcdef",
			Issuer:     "clinic-auth-test",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
		},
		OTP: utils.OTPConfig{
			Length:         6,
			Expiry:         10 * time.Minute,
			MaxAttempts:    3,
			ResendCooldown: time.Minute,
			Channel:        "email",
		},
		Security: utils.SecurityConfig{BcryptCost: bcrypt.MinCost},
	}

	box := &codeBox{}
	service := usecase.NewService(memory.NewRepository(), config, usecase.Infra{
		Sender: notify.SenderFunc(box.send),
	}, zap.NewNop())
	handler := NewHandler(service, zap.NewNop())

	r := chi.NewRouter()
	r.Post("/register", handler.Auth.Register)
	r.Post("/login", handler.Auth.Login)
	r.Post("/verify-otp", handler.Auth.VerifyOTP)
	r.Post("/resend-otp", handler.Auth.ResendOTP)
	r.Post("/refresh", handler.Auth.Refresh)
	r.Post("/logout", handler.Auth.Logout)
	return r, box
}

func post(t *testing.T, h http.Handler, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-ID", "test-device")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestAuthHandler_Flow(t *testing.T) {
	h, box := newTestRouter(t)

	// register
	rec, env := post(t, h, "/register", map[string]string{
		"full_name": "Jane Doe",
		"email":     "Jane@Clinic.Example",
		"password":  "Secur3Pass",
		"role":      "doctor",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var registered struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &registered))
	assert.Equal(t, "jane@clinic.example", registered.User.Email)

	// duplicate email
	rec, env = post(t, h, "/register", map[string]string{
		"full_name": "Jane Again",
		"email":     "jane@clinic.example",
		"password":  "Secur3Pass",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EMAIL_TAKEN", env.Code)

	// pending login is routed to OTP entry
	rec, env = post(t, h, "/login", map[string]string{"email": "jane@clinic.example", "password": "Secur3Pass"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, string(env.Data), registered.User.ID)

	// wrong code
	rec, env = post(t, h, "/verify-otp", map[string]string{"user_id": registered.User.ID, "code": "000000x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", env.Code)

	wrong := "000000"
	if box.code() == wrong {
		wrong = "111111"
	}
	rec, env = post(t, h, "/verify-otp", map[string]string{"user_id": registered.User.ID, "code": wrong})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "OTP_MISMATCH", env.Code)

	// right code
	rec, env = post(t, h, "/verify-otp", map[string]string{"user_id": registered.User.ID, "code": box.code()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var session struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		Destination  string `json:"destination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, "/dashboard", session.Destination)

	// rotate
	rec, env = post(t, h, "/refresh", map[string]string{"refreshToken": session.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)

	var rotated struct {
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rotated))
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)

	// replaying the old token revokes the chain
	rec, env = post(t, h, "/refresh", map[string]string{"refreshToken": session.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_REUSED", env.Code)

	rec, env = post(t, h, "/refresh", map[string]string{"refreshToken": rotated.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_REUSED", env.Code)

	rec, env = post(t, h, "/refresh", map[string]string{"refreshToken": "never-issued"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", env.Code)

	// verified login
	rec, _ = post(t, h, "/login", map[string]string{"email": "jane@clinic.example", "password": "Secur3Pass"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = post(t, h, "/login", map[string]string{"email": "jane@clinic.example", "password": "Wrong1Pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Code)
}

func TestAuthHandler_BadBody(t *testing.T) {
	h, _ := newTestRouter(t)

	for _, path := range []string{"/register", "/login", "/verify-otp", "/resend-otp", "/refresh"} {
		t.Run(path, func(t *testing.T) {
			rec, env := post(t, h, path, "{not json")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "BAD_REQUEST", env.Code)
		})
	}
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	h, _ := newTestRouter(t)

	rec, env := post(t, h, "/register", map[string]string{
		"full_name": "J4ne",
		"email":     "not-an-email",
		"password":  "short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", env.Code)

	var fields []utils.FieldError
	require.NoError(t, json.Unmarshal(env.Errors, &fields))
	assert.GreaterOrEqual(t, len(fields), 3)
}

func TestAuthHandler_ResendCooldown(t *testing.T) {
	h, _ := newTestRouter(t)

	rec, env := post(t, h, "/register", map[string]string{
		"full_name": "Sam Lee",
		"email":     "sam@clinic.example",
		"password":  "Secur3Pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var registered struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &registered))

	rec, _ = post(t, h, "/resend-otp", map[string]string{"user_id": registered.User.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = post(t, h, "/resend-otp", map[string]string{"user_id": registered.User.ID})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "OTP_COOLDOWN", env.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec, env = post(t, h, "/resend-otp", map[string]string{"user_id": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "USER_NOT_FOUND", env.Code)
}

func TestAuthHandler_RegisterDeliveryFailure(t *testing.T) {
	h, box := newTestRouter(t)
	box.fail = true

	rec, env := post(t, h, "/register", map[string]string{
		"full_name": "Kim Park",
		"email":     "kim@clinic.example",
		"password":  "Secur3Pass",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "DELIVERY_FAILED", env.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, string(env.Data), "user_id")
}

func TestAuthHandler_ResendAfterDeliveryFailure(t *testing.T) {
	h, box := newTestRouter(t)

	rec, env := post(t, h, "/register", map[string]string{
		"full_name": "Kim Park",
		"email":     "kim@clinic.example",
		"password":  "Secur3Pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var registered struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &registered))

	box.fail = true
	rec, env = post(t, h, "/resend-otp", map[string]string{"user_id": registered.User.ID})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "DELIVERY_FAILED", env.Code)

	// honouring Retry-After must not land in the resend cooldown
	box.fail = false
	rec, _ = post(t, h, "/resend-otp", map[string]string{"user_id": registered.User.ID})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthHandler_LogoutAlwaysSucceeds(t *testing.T) {
	h, _ := newTestRouter(t)

	for _, body := range []any{
		map[string]string{"refreshToken": "never-issued"},
		map[string]string{},
		"garbage",
	} {
		rec, env := post(t, h, "/logout", body)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, env.Status)
	}
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		retryAfter string
	}{
		{"validation", &usecase.ValidationError{Fields: []utils.FieldError{{Field: "email", Message: "Required"}}}, http.StatusBadRequest, "VALIDATION_FAILED", ""},
		{"email taken", usecase.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN", ""},
		{"already verified", usecase.ErrAlreadyVerified, http.StatusConflict, "ALREADY_VERIFIED", ""},
		{"invalid credentials", usecase.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", ""},
		{"otp expired", usecase.ErrOTPExpired, http.StatusBadRequest, "OTP_EXPIRED", ""},
		{"otp mismatch", usecase.ErrOTPMismatch, http.StatusBadRequest, "OTP_MISMATCH", ""},
		{"otp not found", usecase.ErrOTPNotFound, http.StatusNotFound, "OTP_NOT_FOUND", ""},
		{"attempts exceeded", usecase.ErrOTPAttemptsExceeded, http.StatusTooManyRequests, "OTP_ATTEMPTS_EXCEEDED", ""},
		{"cooldown", &usecase.CooldownError{RetryAfter: 1500 * time.Millisecond}, http.StatusTooManyRequests, "OTP_COOLDOWN", "2"},
		{"token expired", usecase.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED", ""},
		{"token reused", usecase.ErrTokenReused, http.StatusUnauthorized, "TOKEN_REUSED", ""},
		{"invalid token", usecase.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN", ""},
		{"user not found", usecase.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", ""},
		{"delivery", &usecase.DeliveryError{UserID: uuid.New(), Err: errors.New("timeout")}, http.StatusServiceUnavailable, "DELIVERY_FAILED", "30"},
		{"storage", fmt.Errorf("%w: %w", usecase.ErrStorageUnavailable, errors.New("conn refused")), http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "5"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondServiceError(rec, zap.NewNop(), tt.err, "test")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After"))

			var env envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.False(t, env.Status)
			assert.Equal(t, tt.wantCode, env.Code)
		})
	}
}
