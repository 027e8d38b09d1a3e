package api

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tfgRecruit/internal/auth"
	"tfgRecruit/internal/events"
)

func TestWsCheckOrigin(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	sameHost := NewWsHandler(nil, nil, log, nil)
	req := httptest.NewRequest("GET", "http://crm.example.com/api/ws", nil)
	assert.True(t, sameHost.checkOrigin(req))
	req.Header.Set("Origin", "http://crm.example.com")
	assert.True(t, sameHost.checkOrigin(req))
	req.Header.Set("Origin", "http://evil.example.com")
	assert.False(t, sameHost.checkOrigin(req))

	listed := NewWsHandler(nil, nil, log, []string{"https://app.example.com"})
	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, listed.checkOrigin(req))
	req.Header.Set("Origin", "http://crm.example.com")
	assert.False(t, listed.checkOrigin(req))
}

func TestWsAuthenticate(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	svc := auth.NewAuthServiceFromKey(key, time.Hour)
	h := NewWsHandler(nil, svc, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	token, err := svc.GenerateAccessToken(auth.Subject{UserID: "u1"})
	require.NoError(t, err)
	claims, _, err := h.authenticate([]byte(`{"type":"auth","token":"` + token + `"}`))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)

	_, _, err = h.authenticate([]byte(`{"type":"hello"}`))
	assert.Error(t, err)
	_, _, err = h.authenticate([]byte(`not json`))
	assert.Error(t, err)

	gated, err := svc.GenerateAccessToken(auth.Subject{UserID: "u2", MustChangePassword: true})
	require.NoError(t, err)
	_, _, err = h.authenticate([]byte(`{"type":"auth","token":"` + gated + `"}`))
	assert.Error(t, err)
}

type wsFixture struct {
	svc      *auth.AuthService
	url      string
	msgs     chan *redis.Message
	released chan struct{}
}

func newWsFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	f := &wsFixture{
		svc:      auth.NewAuthServiceFromKey(key, time.Hour),
		msgs:     make(chan *redis.Message),
		released: make(chan struct{}),
	}

	h := NewWsHandler(nil, f.svc, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	h.pingInterval = 20 * time.Millisecond
	h.subscribe = func(context.Context) (<-chan *redis.Message, func()) {
		return f.msgs, func() { close(f.released) }
	}

	r := gin.New()
	r.GET("/api/ws", h.HandleConnection)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	f.url = "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	return f
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (f *wsFixture) login(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	token, err := f.svc.GenerateAccessToken(auth.Subject{UserID: "reviewer-1"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": token}))
}

func (f *wsFixture) publish(t *testing.T, payload string) {
	t.Helper()
	select {
	case f.msgs <- &redis.Message{Channel: events.Channel, Payload: payload}:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not picked up by the connection")
	}
}

func TestWsForwardsEventsAfterAuth(t *testing.T) {
	f := newWsFixture(t)
	conn := f.dial(t)
	f.login(t, conn)

	f.publish(t, `{"type":"candidate.created","candidate_id":"c1"}`)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.JSONEq(t, `{"type":"candidate.created","candidate_id":"c1"}`, string(data))

	f.publish(t, `{"type":"candidate.updated","candidate_id":"c1"}`)
	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), "candidate.updated")
}

func TestWsSendsPings(t *testing.T) {
	f := newWsFixture(t)
	conn := f.dial(t)

	pings := make(chan string, 8)
	conn.SetPingHandler(func(appData string) error {
		select {
		case pings <- appData:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})
	f.login(t, conn)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case data := <-pings:
		assert.Equal(t, "ping", data)
	case <-time.After(2 * time.Second):
		t.Fatal("no ping received")
	}
}

func TestWsClosesWhenFeedEnds(t *testing.T) {
	f := newWsFixture(t)
	conn := f.dial(t)
	f.login(t, conn)

	f.publish(t, `{"type":"candidate.created"}`)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	close(f.msgs)
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	assert.False(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
	select {
	case <-f.released:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription was not released")
	}
}

func TestWsRejectsBadAuth(t *testing.T) {
	f := newWsFixture(t)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": "garbage"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), err.Error())
}
