package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tfgRecruit/internal/api/middleware"
	"tfgRecruit/internal/auth"
	"tfgRecruit/internal/config"
	"tfgRecruit/internal/database"
	"tfgRecruit/internal/store"
)

// UserStore is the account surface AuthHandler needs.
type UserStore interface {
	UserByUsername(ctx context.Context, username string) (*database.User, error)
	GetUser(ctx context.Context, id string) (*database.User, error)
	SetPassword(ctx context.Context, id, hash string) error
}

// AuthHandler issues access tokens for reviewer accounts.
type AuthHandler struct {
	users       UserStore
	authService *auth.AuthService
	redis       loginGuardStore
	cfg         config.AuthConfig
	now         func() time.Time
}

func NewAuthHandler(users UserStore, authService *auth.AuthService, redisClient loginGuardStore, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{users: users, authService: authService, redis: redisClient, cfg: cfg, now: time.Now}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken        string `json:"access_token"`
	TokenType          string `json:"token_type"`
	ExpiresIn          int    `json:"expires_in"`
	MustChangePassword bool   `json:"must_change_password"`
}

// Login checks the password and returns an access token. Attempts are rate limited per
// client ip and username, and repeated failures lock the account for a while.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "username and password are required")
		return
	}

	ctx := c.Request.Context()
	username := strings.ToLower(strings.TrimSpace(req.Username))
	logger := middleware.LoggerFromContext(c).With(slog.String("username", username))

	rateKey := "rate:login:" + c.ClientIP() + ":" + username + ":" + h.now().UTC().Format("2006010215")
	count, err := incrWithTTL(ctx, h.redis, rateKey, time.Hour)
	if err != nil {
		logger.Warn("login rate counter unavailable", slog.Any("error", err))
		count = 0
	}
	if count > int64(h.cfg.LoginRateLimitPerHour) {
		TooManyRequests(c, "rate limit exceeded")
		return
	}

	if ttl, _ := h.redis.TTL(ctx, lockKey(username)).Result(); ttl > 0 {
		TooManyRequests(c, "account temporarily locked")
		return
	}

	user, err := h.users.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Info("login failed: user not found")
			h.recordFailure(ctx, username)
			Unauthorized(c)
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Info("login failed: password mismatch", slog.String("user_id", user.ID))
		h.recordFailure(ctx, username)
		Unauthorized(c)
		return
	}

	_ = h.redis.Del(ctx, failKey(username)).Err()
	h.replyWithToken(c, *user, user.MustChangePassword)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required,max=72"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required,max=72"`
}

// ChangePassword rotates the caller's password and returns a fresh token without the
// must_change_password flag.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "current, new and confirmation passwords are required")
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		BadRequest(c, "password confirmation does not match")
		return
	}
	if req.NewPassword == req.CurrentPassword {
		BadRequest(c, "new password must be different from current password")
		return
	}
	if err := auth.ValidatePasswordStrength(req.NewPassword); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID := middleware.CurrentUserID(c)
	if userID == "" {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.String("user_id", userID))

	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Unauthorized(c)
			return
		}
		logger.Error("change password: load user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if !auth.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		logger.Info("change password: current password mismatch")
		Unauthorized(c)
		return
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("change password: hash failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if err := h.users.SetPassword(ctx, user.ID, hashed); err != nil {
		logger.Error("change password: update failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("password changed")
	h.replyWithToken(c, *user, false)
}

func (h *AuthHandler) replyWithToken(c *gin.Context, user database.User, mustChangePassword bool) {
	token, err := h.authService.GenerateAccessToken(auth.Subject{
		UserID:             user.ID,
		Username:           user.Username,
		Role:               user.Role,
		MustChangePassword: mustChangePassword,
	})
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate access token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:        token,
		TokenType:          "Bearer",
		ExpiresIn:          int(h.authService.AccessTokenTTL().Seconds()),
		MustChangePassword: mustChangePassword,
	})
}

func lockKey(username string) string { return "lock:login:" + username }
func failKey(username string) string { return "lock:login:fail:" + username }

func (h *AuthHandler) recordFailure(ctx context.Context, username string) {
	count, err := incrWithTTL(ctx, h.redis, failKey(username), h.cfg.LoginLockTTL)
	if err != nil {
		return
	}
	if count >= int64(h.cfg.LoginLockThreshold) {
		_ = h.redis.Set(ctx, lockKey(username), "1", h.cfg.LoginLockTTL).Err()
	}
}
