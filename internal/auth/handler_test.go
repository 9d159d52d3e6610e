package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, *testEnv) {
	env := newTestEnv(t)
	return NewHandler(env.svc, newTestLogger(t)), env
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHandler_PublicKey(t *testing.T) {
	h, env := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.PublicKey(rec, httptest.NewRequest(http.MethodGet, "/api/auth/public-key", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, env.key.PublicKeyPEM(), body["public_key"])
}

func TestHandler_Login(t *testing.T) {
	tests := []struct {
		name     string
		body     func(t *testing.T, env *testEnv) any
		wantCode int
		wantErr  string
	}{
		{
			name: "valid credentials",
			body: func(t *testing.T, env *testEnv) any {
				return loginRequest{
					Username:    "alice",
					Password:    env.encrypt(t, strongPassword),
					CaptchaID:   env.captcha.Issue("good"),
					CaptchaCode: "good",
				}
			},
			wantCode: http.StatusOK,
		},
		{
			name: "bad captcha",
			body: func(t *testing.T, env *testEnv) any {
				return loginRequest{
					Username:    "alice",
					Password:    env.encrypt(t, strongPassword),
					CaptchaID:   env.captcha.Issue("good"),
					CaptchaCode: "nope",
				}
			},
			wantCode: http.StatusBadRequest,
			wantErr:  ErrCaptchaInvalid.Error(),
		},
		{
			name: "bad password",
			body: func(t *testing.T, env *testEnv) any {
				return loginRequest{
					Username:    "alice",
					Password:    env.encrypt(t, "Wrong123!"),
					CaptchaID:   env.captcha.Issue("good"),
					CaptchaCode: "good",
				}
			},
			wantCode: http.StatusUnauthorized,
			wantErr:  ErrCredentialsInvalid.Error(),
		},
		{
			name: "unknown user looks like bad password",
			body: func(t *testing.T, env *testEnv) any {
				return loginRequest{
					Username:    "ghost",
					Password:    env.encrypt(t, strongPassword),
					CaptchaID:   env.captcha.Issue("good"),
					CaptchaCode: "good",
				}
			},
			wantCode: http.StatusUnauthorized,
			wantErr:  ErrCredentialsInvalid.Error(),
		},
		{
			name: "missing captcha id",
			body: func(t *testing.T, env *testEnv) any {
				return map[string]string{
					"username":     "alice",
					"password":     env.encrypt(t, strongPassword),
					"captcha_code": "good",
				}
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "captcha_id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, env := newTestHandler(t)
			env.createAccount(t, "alice", strongPassword)

			rec := httptest.NewRecorder()
			h.Login(rec, jsonRequest(t, http.MethodPost, "/api/auth/login", tt.body(t, env)))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, decodeError(t, rec))
				return
			}

			var body loginResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.AccessToken)
			assert.Equal(t, "bearer", body.TokenType)
		})
	}
}

func TestHandler_LoginLocked(t *testing.T) {
	h, env := newTestHandler(t)
	env.createAccount(t, "alice", strongPassword)

	for i := 0; i < 5; i++ {
		_, _ = env.login(t, "alice", strongPassword, "bad")
	}

	rec := httptest.NewRecorder()
	h.Login(rec, jsonRequest(t, http.MethodPost, "/api/auth/login", loginRequest{
		Username:    "alice",
		Password:    env.encrypt(t, strongPassword),
		CaptchaID:   env.captcha.Issue("good"),
		CaptchaCode: "good",
	}))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, strconv.Itoa(15*60), rec.Header().Get("Retry-After"))
	assert.Contains(t, decodeError(t, rec), "16 minutes")
}

func TestHandler_ChangePassword(t *testing.T) {
	h, env := newTestHandler(t)
	env.createAccount(t, "alice", strongPassword)
	mw := NewAuthMiddleware(env.tokens, newTestLogger(t))
	protected := mw.Authenticate(http.HandlerFunc(h.ChangePassword))

	token, _, err := env.tokens.Issue("alice")
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		old      string
		new      string
		wantCode int
		wantMsg  string
	}{
		{name: "no token", old: strongPassword, new: "NewPass9#", wantCode: http.StatusUnauthorized, wantMsg: ErrTokenInvalid.Error()},
		{name: "bad token", token: "junk", old: strongPassword, new: "NewPass9#", wantCode: http.StatusUnauthorized, wantMsg: ErrTokenInvalid.Error()},
		{name: "wrong old password", token: token, old: "Wrong123!", new: "NewPass9#", wantCode: http.StatusBadRequest, wantMsg: "Incorrect old password"},
		{name: "weak new password", token: token, old: strongPassword, new: "abc12345", wantCode: http.StatusBadRequest, wantMsg: "password must contain at least one uppercase letter"},
		{name: "success", token: token, old: strongPassword, new: "NewPass9#", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(t, http.MethodPost, "/api/auth/change-password", changePasswordRequest{
				OldPassword: env.encrypt(t, tt.old),
				NewPassword: env.encrypt(t, tt.new),
			})
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, decodeError(t, rec))
			}
		})
	}
}

func TestHandler_Register(t *testing.T) {
	h, env := newTestHandler(t)
	env.createAccount(t, "alice", strongPassword)

	tests := []struct {
		name     string
		username string
		password string
		wantCode int
	}{
		{name: "created", username: "erin", password: strongPassword, wantCode: http.StatusCreated},
		{name: "taken", username: "alice", password: strongPassword, wantCode: http.StatusConflict},
		{name: "weak", username: "frank", password: "abc12345", wantCode: http.StatusBadRequest},
		{name: "short username", username: "ab", password: strongPassword, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Register(rec, jsonRequest(t, http.MethodPost, "/api/auth/register", registerRequest{
				Username: tt.username,
				Password: env.encrypt(t, tt.password),
				School:   "Lakeside",
				Grade:    "9",
			}))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestHandler_RegisterDisabled(t *testing.T) {
	cfg := newTestConfig()
	cfg.Auth.RegistrationEnabled = false
	env := newTestEnvWithConfig(t, cfg)
	h := NewHandler(env.svc, newTestLogger(t))

	rec := httptest.NewRecorder()
	h.Register(rec, jsonRequest(t, http.MethodPost, "/api/auth/register", registerRequest{
		Username: "erin",
		Password: env.encrypt(t, strongPassword),
	}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_Me(t *testing.T) {
	h, env := newTestHandler(t)
	env.createAccount(t, "alice", strongPassword)
	mw := NewAuthMiddleware(env.tokens, newTestLogger(t))

	token, _, err := env.tokens.Issue("alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mw.Authenticate(http.HandlerFunc(h.Me)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body profileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alice", body.Username)
	assert.Equal(t, "Riverside High", body.School)
}
