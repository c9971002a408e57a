package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic-auth/internal/data/repository/memory"
	"clinic-auth/internal/usecase"
	"clinic-auth/pkg/notify"
	"clinic-auth/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	t     *testing.T
	app   *App
	codes map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	config := &utils.Config{
		App: utils.AppConfig{AllowedOrigin: "*"},
		JWT: utils.JWTConfig{
			Secret:     "0123456789abcdef0123456789abcdef",
			Issuer:     "clinic-auth-test",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
		},
		OTP: utils.OTPConfig{
			Length:         6,
			Expiry:         10 * time.Minute,
			MaxAttempts:    5,
			ResendCooldown: time.Minute,
			Channel:        "email",
		},
		Security: utils.SecurityConfig{BcryptCost: bcrypt.MinCost},
	}

	ts := &testServer{t: t, codes: map[string]string{}}
	sender := notify.SenderFunc(func(_ context.Context, destination, code, _ string) error {
		ts.codes[destination] = code
		return nil
	})

	ts.app = Wiring(memory.NewRepository(), config, usecase.Infra{Sender: sender}, prometheus.NewRegistry(), zap.NewNop())
	return ts
}

func (ts *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, json.RawMessage) {
	ts.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.app.Router.ServeHTTP(rec, req)

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env.Data
}

// signUp registers and verifies an account and returns its access token.
func (ts *testServer) signUp(email, role string) string {
	ts.t.Helper()

	rec, data := ts.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"full_name": "Test User",
		"email":     email,
		"password":  "Secur3Pass",
		"role":      role,
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())

	var registered struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(ts.t, json.Unmarshal(data, &registered))

	rec, data = ts.do(http.MethodPost, "/api/auth/verify-otp", "", map[string]string{
		"user_id": registered.User.ID,
		"code":    ts.codes[email],
	})
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())

	var session struct {
		AccessToken string `json:"accessToken"`
		Destination string `json:"destination"`
	}
	require.NoError(ts.t, json.Unmarshal(data, &session))
	return session.AccessToken
}

func TestRouter_Health(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRouter_MeRequiresAccessToken(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = ts.do(http.MethodGet, "/api/auth/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := ts.signUp("pat@clinic.example", "patient")
	rec, data := ts.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me struct {
		User struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
		Destination string `json:"destination"`
	}
	require.NoError(t, json.Unmarshal(data, &me))
	assert.Equal(t, "pat@clinic.example", me.User.Email)
	assert.Equal(t, "patient", me.User.Role)
	assert.Equal(t, "/dashboard", me.Destination)
}

func TestRouter_AdminRouteChecksRole(t *testing.T) {
	ts := newTestServer(t)

	patient := ts.signUp("pat@clinic.example", "patient")
	rec, _ := ts.do(http.MethodGet, "/api/admin/me", patient, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := ts.signUp("root@clinic.example", "admin")
	rec, data := ts.do(http.MethodGet, "/api/admin/me", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(data), `"destination":"/admin"`)
}

func TestRouter_MetricsExposed(t *testing.T) {
	ts := newTestServer(t)

	ts.signUp("doc@clinic.example", "doctor")

	rec, _ := ts.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, `path="/api/auth/register"`)
	assert.Contains(t, body, "auth_attempts_total")
}
