package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/tsamuels456/unboundedfigures/internal/cache"
	"github.com/tsamuels456/unboundedfigures/internal/config"
	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
	"github.com/tsamuels456/unboundedfigures/internal/storage"
	"github.com/tsamuels456/unboundedfigures/internal/testutil"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

// testEnv is a fully wired server over sqlite, miniredis and a temp-dir avatar store.
type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
	rdb *redis.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.OpenSQLite(t)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		Env:               "test",
		Port:              "0",
		AuthJWTSecret:     testSecret,
		FeatureFlags:      "personalized_recs=on",
		AvatarFormat:      "jpeg",
		AvatarMaxUploadMB: 1,
	}
	srv, err := NewServerWithDeps(cfg, db, rdb, store)
	require.NoError(t, err)

	return &testEnv{srv: srv, app: srv.NewApp(), db: db, mr: mr, rdb: rdb}
}

func tokenFor(t *testing.T, subject, email string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if email != "" {
		claims["email"] = email
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

// do sends a request with an optional JSON body and bearer token.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// ensure provisions the local user for subject and returns its token.
func (e *testEnv) ensure(t *testing.T, subject string) string {
	t.Helper()
	token := tokenFor(t, subject, "")
	resp := e.do(t, http.MethodPost, "/api/me/ensure", token, nil)
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, resp.StatusCode)
	return token
}

func decode(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func readAll(resp *http.Response) (string, error) {
	b, err := io.ReadAll(resp.Body)
	return string(b), err
}

func errorBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	decode(t, resp, &body)
	return body
}

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := errorBody(t, resp)
	assert.Equal(t, "healthy", body["status"])

	env.mr.Close()
	resp = env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body = errorBody(t, resp)
	checks, _ := body["checks"].(map[string]interface{})
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "unhealthy", checks["redis"])
}

func TestReadinessWithoutRedis(t *testing.T) {
	env := newTestEnv(t)
	srv, err := NewServerWithDeps(env.srv.config, env.db, nil, env.srv.avatarStore)
	require.NoError(t, err)
	app := srv.NewApp()

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := errorBody(t, resp)
	checks, _ := body["checks"].(map[string]interface{})
	assert.Equal(t, "unavailable", checks["redis"])
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		method string
		path   string
		allow  string
	}{
		{http.MethodDelete, "/api/submissions", "GET, POST"},
		{http.MethodPut, "/api/me", "GET, PATCH"},
		{http.MethodGet, "/api/follow", "POST"},
		{http.MethodDelete, "/api/submissions/3", "GET"},
		{http.MethodPost, "/api/recs", "GET"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := env.do(t, tt.method, tt.path, "", nil)
			assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
			assert.Equal(t, tt.allow, resp.Header.Get(fiber.HeaderAllow))
			assert.Equal(t, "Method Not Allowed", errorBody(t, resp)["error"])
		})
	}
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInvalidTokenMessage(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer not.a.token")
	resp := env.send(t, req)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := errorBody(t, resp)
	assert.Equal(t, "Invalid or expired token", body["error"])
	assert.Equal(t, "UNAUTHORIZED", body["code"])
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "cross-origin", resp.Header.Get("Cross-Origin-Resource-Policy"))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestSetupMiddleware_RateLimitedResponseIncludesCORSHeaders(t *testing.T) {
	srv := &Server{
		config: &config.Config{
			AllowedOrigins: "http://localhost:5173",
		},
	}

	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Get("/limited", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 300; i++ {
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Too many requests, please try again later.", body["error"])
}

func TestRouteLimitsHoldWithoutRedis(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	srv, err := NewServerWithDeps(&config.Config{
		Env:           "production",
		AuthJWTSecret: testSecret,
		AvatarFormat:  "jpeg",
	}, testutil.OpenSQLite(t), nil, store)
	require.NoError(t, err)
	env := &testEnv{srv: srv, app: srv.NewApp()}

	// POST /api/views allows 120 per minute per client.
	for i := 0; i < 120; i++ {
		resp := env.do(t, http.MethodPost, "/api/views", "", RecordViewRequest{SubmissionID: 1})
		require.NotEqual(t, http.StatusTooManyRequests, resp.StatusCode, "request %d", i+1)
	}
	// The local bucket refills slowly, so allow a few extra requests before the first 429.
	limited := false
	for i := 0; i < 30 && !limited; i++ {
		resp := env.do(t, http.MethodPost, "/api/views", "", RecordViewRequest{SubmissionID: 1})
		limited = resp.StatusCode == http.StatusTooManyRequests
	}
	assert.True(t, limited, "views limiter never engaged without redis")
}

func TestSetupMiddleware_PreflightAllowsPrivacyHeaders(t *testing.T) {
	srv := &Server{config: &config.Config{}}

	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Get("/recs", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodOptions, "/recs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "DNT, Sec-GPC")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Sec-GPC")
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return io.ErrUnexpectedEOF
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/teapot", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "short and stout", errorBody(t, resp)["error"])
	_ = resp.Body.Close()

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body := errorBody(t, resp)
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.NotContains(t, body["error"], "unexpected EOF")
}

func TestRespondErrorLogsInternalCauses(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := observability.L()
	observability.SetLogger(zap.New(core))
	defer observability.SetLogger(prev)

	app := fiber.New()
	app.Get("/broken", func(c *fiber.Ctx) error {
		return respondError(c, models.NewInternalError(errors.New("relation \"submissions\" does not exist")))
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return respondError(c, models.NewNotFoundMessage("Not found"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/broken", nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body, err := readAll(resp)
	require.NoError(t, err)
	assert.NotContains(t, body, "does not exist")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	entries := logs.FilterMessage("request failed").All()
	require.Len(t, entries, 1, "only the 500 is logged")
	assert.Equal(t, "/broken", entries[0].ContextMap()["path"])
	assert.Contains(t, entries[0].ContextMap()["error"], "does not exist")
}

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"submissionId", "submission ID"},
		{"userId", "user ID"},
		{"parentCommentId", "parent comment ID"},
		{"username", "username"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}
