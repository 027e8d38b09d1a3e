package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"tfgRecruit/internal/auth"
	"tfgRecruit/internal/events"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

// subscribeFunc opens a feed of event messages and returns the func that releases it.
type subscribeFunc func(ctx context.Context) (<-chan *redis.Message, func())

// WsHandler streams candidate events to authenticated reviewers.
type WsHandler struct {
	redisClient    redis.UniversalClient
	authService    *auth.AuthService
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
	subscribe      subscribeFunc
	pingInterval   time.Duration
}

func NewWsHandler(redisClient redis.UniversalClient, authService *auth.AuthService, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	h := &WsHandler{
		redisClient:    redisClient,
		authService:    authService,
		logger:         logger,
		allowedOrigins: allowedOrigins,
		pingInterval:   wsPingInterval,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	h.subscribe = h.redisSubscribe
	return h
}

func (h *WsHandler) redisSubscribe(ctx context.Context) (<-chan *redis.Message, func()) {
	pubsub := h.redisClient.Subscribe(ctx, events.Channel)
	return pubsub.Channel(), func() { _ = pubsub.Close() }
}

// checkOrigin allows same-host pages, or only the configured origins when any are set.
func (h *WsHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.allowedOrigins) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleConnection upgrades the request, waits for the auth message and then forwards
// every event published on events.Channel until either side goes away.
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	baseLog := h.logger.With(slog.String("client_ip", c.ClientIP()))

	userIDCh := make(chan string, 1)
	errCh := make(chan error, 2)

	go h.readLoop(ctx, conn, userIDCh, errCh, cancel, baseLog)

	var userID string
	select {
	case <-ctx.Done():
		return
	case err := <-errCh:
		baseLog.Warn("websocket authentication failed", slog.Any("error", err))
		return
	case userID = <-userIDCh:
	}

	userLog := baseLog.With(slog.String("user_id", userID))
	go h.subscribeLoop(ctx, conn, errCh, cancel, userLog)

	select {
	case <-ctx.Done():
		userLog.Info("websocket connection closed")
	case err := <-errCh:
		userLog.Info("websocket connection closed", slog.Any("error", err))
	}
}

func (h *WsHandler) authenticate(message []byte) (*auth.TokenClaims, int, error) {
	var authMsg wsAuthMessage
	if err := json.Unmarshal(message, &authMsg); err != nil {
		return nil, websocket.ClosePolicyViolation, fmt.Errorf("decode auth payload: %w", err)
	}
	if authMsg.Type != "auth" || authMsg.Token == "" {
		return nil, websocket.ClosePolicyViolation, errors.New("auth required")
	}
	claims, err := h.authService.ValidateToken(authMsg.Token)
	if err != nil {
		return nil, websocket.ClosePolicyViolation, fmt.Errorf("validate token: %w", err)
	}
	if claims.MustChangePassword {
		return nil, websocket.ClosePolicyViolation, errors.New("password change required")
	}
	return claims, 0, nil
}

func (h *WsHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	userIDCh chan<- string,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	authenticated := false
	for {
		if ctx.Err() != nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			errCh <- fmt.Errorf("read message: %w", err)
			cancel()
			return
		}
		if authenticated {
			// Clients have nothing to say after auth; reading only detects disconnects.
			continue
		}

		claims, code, err := h.authenticate(message)
		if err != nil {
			writeClose(conn, code, "unauthorized")
			errCh <- err
			cancel()
			return
		}
		authenticated = true
		userIDCh <- claims.UserID
		log.Info("websocket authenticated", slog.String("user_id", claims.UserID))
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteTimeout))
}

func (h *WsHandler) subscribeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	ch, release := h.subscribe(ctx)
	defer release()

	log.Info("subscribed to event channel", slog.String("channel", events.Channel))

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				errCh <- errors.New("pubsub channel closed")
				cancel()
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				errCh <- fmt.Errorf("write message: %w", err)
				cancel()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(wsWriteTimeout)); err != nil {
				errCh <- fmt.Errorf("write ping: %w", err)
				cancel()
				return
			}
		}
	}
}
