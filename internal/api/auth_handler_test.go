package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tfgRecruit/internal/api/middleware"
	"tfgRecruit/internal/auth"
	"tfgRecruit/internal/config"
	"tfgRecruit/internal/database"
	"tfgRecruit/internal/store"
)

// memoryGuard is an in-memory stand-in for the Redis commands used by login throttling.
type memoryGuard struct {
	mu       sync.Mutex
	counters map[string]int64
	locks    map[string]time.Duration
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{counters: map[string]int64{}, locks: map[string]time.Duration{}}
}

func (m *memoryGuard) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(m.counters[key])
	return cmd
}

func (m *memoryGuard) Expire(ctx context.Context, _ string, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func (m *memoryGuard) TTL(ctx context.Context, key string) *redis.DurationCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewDurationCmd(ctx, time.Second)
	ttl, ok := m.locks[key]
	if !ok {
		ttl = -2 * time.Second
	}
	cmd.SetVal(ttl)
	return cmd
}

func (m *memoryGuard) Set(ctx context.Context, key string, _ interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[key] = expiration
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *memoryGuard) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.counters, k)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(keys)))
	return cmd
}

type authEnv struct {
	router *gin.Engine
	users  *store.Store
	svc    *auth.AuthService
	guard  *memoryGuard
}

func newAuthEnv(t *testing.T, cfg config.AuthConfig) *authEnv {
	t.Helper()
	env := newTestEnv(t)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	svc := auth.NewAuthServiceFromKey(key, time.Hour)
	guard := newMemoryGuard()

	h := NewAuthHandler(env.store, svc, guard, cfg)
	r := gin.New()
	r.POST("/login", h.Login)
	r.POST("/change-password", middleware.AuthMiddleware(svc), h.ChangePassword)
	return &authEnv{router: r, users: env.store, svc: svc, guard: guard}
}

func (e *authEnv) post(t *testing.T, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *authEnv) createUser(t *testing.T, username, password string, mustChange bool) *database.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user := &database.User{Username: username, Role: "recruiter", PasswordHash: hash, MustChangePassword: mustChange}
	require.NoError(t, e.users.CreateUser(context.Background(), user))
	return user
}

func TestLoginIssuesToken(t *testing.T) {
	env := newAuthEnv(t, config.AuthConfig{LoginRateLimitPerHour: 10, LoginLockThreshold: 5, LoginLockTTL: time.Minute})
	user := env.createUser(t, "alice", "correct horse", true)

	w := env.post(t, "/login", "", map[string]string{"username": "Alice", "password": "correct horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[tokenResponse](t, w)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.True(t, resp.MustChangePassword)

	claims, err := env.svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	w = env.post(t, "/login", "", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.post(t, "/login", "", map[string]string{"username": "ghost", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.post(t, "/login", "", map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRateLimitAndLock(t *testing.T) {
	env := newAuthEnv(t, config.AuthConfig{LoginRateLimitPerHour: 3, LoginLockThreshold: 100, LoginLockTTL: time.Minute})
	env.createUser(t, "bob", "correct horse", false)

	for i := 0; i < 3; i++ {
		w := env.post(t, "/login", "", map[string]string{"username": "bob", "password": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := env.post(t, "/login", "", map[string]string{"username": "bob", "password": "correct horse"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	locked := newAuthEnv(t, config.AuthConfig{LoginRateLimitPerHour: 100, LoginLockThreshold: 2, LoginLockTTL: time.Minute})
	locked.createUser(t, "carol", "correct horse", false)
	for i := 0; i < 2; i++ {
		locked.post(t, "/login", "", map[string]string{"username": "carol", "password": "wrong"})
	}
	w = locked.post(t, "/login", "", map[string]string{"username": "carol", "password": "correct horse"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "account temporarily locked", errorMessage(t, w))
}

func TestChangePassword(t *testing.T) {
	env := newAuthEnv(t, config.AuthConfig{LoginRateLimitPerHour: 10, LoginLockThreshold: 5, LoginLockTTL: time.Minute})
	user := env.createUser(t, "dave", "one-time-pass", true)
	token, err := env.svc.GenerateAccessToken(auth.Subject{UserID: user.ID, Username: "dave", MustChangePassword: true})
	require.NoError(t, err)

	w := env.post(t, "/change-password", token, map[string]string{
		"current_password": "one-time-pass", "new_password": "brand new pass", "confirm_password": "different",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.post(t, "/change-password", token, map[string]string{
		"current_password": "wrong-pass", "new_password": "brand new pass", "confirm_password": "brand new pass",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.post(t, "/change-password", token, map[string]string{
		"current_password": "one-time-pass", "new_password": "brand new pass", "confirm_password": "brand new pass",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, decode[tokenResponse](t, w).MustChangePassword)

	stored, err := env.users.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, stored.MustChangePassword)
	assert.True(t, auth.CheckPasswordHash("brand new pass", stored.PasswordHash))

	ghost, err := env.svc.GenerateAccessToken(auth.Subject{UserID: uuid.NewString()})
	require.NoError(t, err)
	w = env.post(t, "/change-password", ghost, map[string]string{
		"current_password": "x", "new_password": "brand new pass", "confirm_password": "brand new pass",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
