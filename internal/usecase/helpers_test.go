package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"clinic-auth/internal/data/entity"
	"clinic-auth/internal/data/repository"
	"clinic-auth/internal/data/repository/memory"
	"clinic-auth/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// captureSender remembers the last code sent to each destination.
type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
	sent  int
	err   error
}

func newCaptureSender() *captureSender {
	return &captureSender{codes: map[string]string{}}
}

func (s *captureSender) SendOTP(_ context.Context, destination, code, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.codes[destination] = code
	s.sent++
	return nil
}

func (s *captureSender) lastCode(destination string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[destination]
}

func testConfig() *utils.Config {
	return &utils.Config{
		App: utils.AppConfig{Name: "clinic-auth-test"},
		JWT: utils.JWTConfig{
			Secret:     strings.Repeat("k", 32),
			Issuer:     "clinic-auth",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		OTP: utils.OTPConfig{
			Length:         6,
			Expiry:         10 * time.Minute,
			MaxAttempts:    3,
			ResendCooldown: 60 * time.Second,
			Channel:        "email",
		},
		Security: utils.SecurityConfig{BcryptCost: bcrypt.MinCost},
	}
}

type testEnv struct {
	svc    *Service
	repo   *repository.Repository
	clock  *fakeClock
	sender *captureSender
	config *utils.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithRepo(t, memory.NewRepository())
}

func newTestEnvWithRepo(t *testing.T, repo *repository.Repository) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:   repo,
		clock:  newFakeClock(),
		sender: newCaptureSender(),
		config: testConfig(),
	}
	env.svc = NewService(repo, env.config, Infra{
		Sender: env.sender,
		Clock:  env.clock,
	}, zap.NewNop())
	return env
}

// wrongCode returns a code of the same length that differs from code.
func wrongCode(code string) string {
	last := code[len(code)-1]
	next := byte('0' + (last-'0'+1)%10)
	return code[:len(code)-1] + string(next)
}

var errBrokenStore = errors.New("connection reset by peer")

// brokenUsers fails every call.
type brokenUsers struct {
	repository.UserRepository
}

func (brokenUsers) FindByEmail(context.Context, string) (*entity.User, error) {
	return nil, errBrokenStore
}
