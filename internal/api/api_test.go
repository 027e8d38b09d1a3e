package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tfgRecruit/internal/auth"
	"tfgRecruit/internal/config"
	"tfgRecruit/internal/database"
	"tfgRecruit/internal/events"
	"tfgRecruit/internal/form"
	"tfgRecruit/internal/storage"
	"tfgRecruit/internal/store"
)

const testUploadLimit = 1024

type fakeQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-" + uuid.NewString(), Type: task.Type()}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

// recordingBlob keeps the keys it stored and answers with mock URLs.
type recordingBlob struct {
	storage.Unconfigured
	mu   sync.Mutex
	keys []string
}

func (b *recordingBlob) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	b.mu.Lock()
	b.keys = append(b.keys, key)
	b.mu.Unlock()
	return b.Unconfigured.Put(ctx, key, r, size, contentType)
}

func (b *recordingBlob) stored() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.keys...)
}

type testEnv struct {
	router    *gin.Engine
	store     *store.Store
	blob      *recordingBlob
	queue     *fakeQueue
	publisher *recordingPublisher
	token     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	authService := auth.NewAuthServiceFromKey(key, time.Hour)

	env := &testEnv{
		store:     store.New(db),
		blob:      &recordingBlob{Unconfigured: storage.Unconfigured{BaseURL: "https://files.test/"}},
		queue:     &fakeQueue{},
		publisher: &recordingPublisher{},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.router = NewRouter(log)
	RegisterRoutes(env.router, Deps{
		Config:      &config.Config{API: config.APIConfig{MaxUploadBytes: testUploadLimit}},
		Store:       env.store,
		Blob:        env.blob,
		Queue:       env.queue,
		Publisher:   env.publisher,
		AuthService: authService,
		Logger:      log,
	})

	env.token, err = authService.GenerateAccessToken(auth.Subject{UserID: uuid.NewString(), Username: "reviewer"})
	require.NoError(t, err)
	return env
}

// do sends a JSON request; authenticated requests carry the reviewer token.
func (e *testEnv) do(t *testing.T, method, path string, body any, authenticated bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) multipart(t *testing.T, path string, values map[string][]string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, vs := range values {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	for key, content := range files {
		part, err := mw.CreateFormFile(key, key+" resume.pdf")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) urlencoded(t *testing.T, path string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

func applicationFields() []form.Field {
	return []form.Field{
		{ID: "name", Type: form.TypeText, Label: "Full Name", Required: true},
		{ID: "email", Type: form.TypeEmail, Label: "Email Address", Required: true},
		{ID: "skills", Type: form.TypeCheckbox, Label: "Skills", Options: []string{"Go", "SQL"}},
		{ID: "cv", Type: form.TypeFile, Label: "Resume", FileTypes: []string{".pdf"}},
	}
}

// seedCampaign creates a published form and a campaign in the given status.
func (e *testEnv) seedCampaign(t *testing.T, status string) (*database.Form, *database.Campaign) {
	t.Helper()
	ctx := context.Background()
	f, err := e.store.CreateForm(ctx, store.FormInput{Title: "Engineer", Fields: applicationFields(), IsPublished: true})
	require.NoError(t, err)
	c, err := e.store.CreateCampaign(ctx, store.CampaignInput{Title: "Spring hiring", Status: status, FormID: &f.ID})
	require.NoError(t, err)
	return f, c
}
