package auth

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/elskow/assessgate/internal/config"
)

var (
	testKeyOnce sync.Once
	testKey     *TransportKey
	testKeyErr  error
)

// sharedTransportKey avoids generating an RSA key per test.
func sharedTransportKey(t *testing.T) *TransportKey {
	t.Helper()
	testKeyOnce.Do(func() {
		testKey, testKeyErr = NewTransportKey(2048)
	})
	require.NoError(t, testKeyErr)
	return testKey
}

func newTestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

func newTestConfig() *config.AppConfig {
	return &config.AppConfig{
		Auth: config.AuthConfig{
			JWTSecret:           "test-secret-key",
			TokenExpiration:     30 * time.Minute,
			BcryptCost:          bcrypt.MinCost,
			RSAKeyBits:          2048,
			RegistrationEnabled: true,
		},
		Lockout: config.LockoutConfig{
			Threshold: 5,
			Cooldown:  15 * time.Minute,
		},
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
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

// stubCaptcha hands out one-time codes without rendering images.
type stubCaptcha struct {
	mu    sync.Mutex
	codes map[string]string
	seq   int
}

func newStubCaptcha() *stubCaptcha {
	return &stubCaptcha{codes: make(map[string]string)}
}

func (c *stubCaptcha) Issue(code string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	id := "captcha-" + strconv.Itoa(c.seq)
	c.codes[id] = code
	return id
}

func (c *stubCaptcha) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.codes)
}

func (c *stubCaptcha) ValidateAndConsume(id, code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	want, ok := c.codes[id]
	if !ok {
		return false
	}
	delete(c.codes, id)
	return want == code
}

type testEnv struct {
	cfg      *config.AppConfig
	svc      *Service
	accounts *mockAccountRepository
	locks    *mockLockoutRepository
	captcha  *stubCaptcha
	clock    *fakeClock
	key      *TransportKey
	tokens   *TokenIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, newTestConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg *config.AppConfig) *testEnv {
	t.Helper()

	log := newTestLogger(t)
	clock := newFakeClock()
	key := sharedTransportKey(t)

	tokens, err := NewTokenIssuer(&cfg.Auth, log)
	require.NoError(t, err)
	tokens.now = clock.Now

	locks := newMockLockoutRepository()
	tracker := NewTracker(&cfg.Lockout, locks, log)
	tracker.now = clock.Now

	accounts := newMockAccountRepository()
	captcha := newStubCaptcha()

	return &testEnv{
		cfg:      cfg,
		svc:      NewService(&cfg.Auth, log, accounts, tracker, captcha, key, tokens),
		accounts: accounts,
		locks:    locks,
		captcha:  captcha,
		clock:    clock,
		key:      key,
		tokens:   tokens,
	}
}

func (e *testEnv) encrypt(t *testing.T, plain string) string {
	t.Helper()
	ct, err := e.key.Encrypt(plain)
	require.NoError(t, err)
	return ct
}

func (e *testEnv) createAccount(t *testing.T, username, password string) *Account {
	t.Helper()
	hash, err := e.svc.hasher.Hash(password)
	require.NoError(t, err)
	return e.createAccountWithHash(t, username, hash)
}

func (e *testEnv) createAccountWithHash(t *testing.T, username, hash string) *Account {
	t.Helper()
	account := &Account{
		Username: username,
		School:   "Riverside High",
		Grade:    "10",
		Password: hash,
		IsActive: true,
	}
	require.NoError(t, e.accounts.Create(context.Background(), account))
	return account
}

func (e *testEnv) login(t *testing.T, username, password, code string) (*Session, error) {
	t.Helper()
	id := e.captcha.Issue("good")
	return e.svc.Login(context.Background(), LoginInput{
		Username:    username,
		Password:    e.encrypt(t, password),
		CaptchaID:   id,
		CaptchaCode: code,
	})
}

func (e *testEnv) failedCount(t *testing.T, username string) int {
	t.Helper()
	record, err := e.locks.Get(context.Background(), username)
	require.NoError(t, err)
	return record.FailedCount
}
