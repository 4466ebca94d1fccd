package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/taskhub/internal/api"
	"github.com/charlesng35/taskhub/internal/app"
	iauth "github.com/charlesng35/taskhub/internal/auth"
	"github.com/charlesng35/taskhub/internal/catalog"
	sharedtestutil "github.com/charlesng35/taskhub/internal/database/testutil"
	"github.com/charlesng35/taskhub/internal/middleware"
	"github.com/charlesng35/taskhub/internal/notifications"
	"github.com/charlesng35/taskhub/internal/realtime"
	"github.com/charlesng35/taskhub/pkg/response"
)

const testSecret = "test-suite-super-secret-key-32-bytes!!"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T             *testing.T
	DB            *gorm.DB
	Router        *gin.Engine
	Tokens        *iauth.TokenVerifier
	Catalog       *catalog.Provider
	Hub           *realtime.Hub
	Notifications *notifications.Service
	Config        *app.Config
}

// Categories is the catalog every Env is built with.
var Categories = []catalog.CategoryDefinition{
	{Code: "TASK", Name: "Tasks", SubCategories: []catalog.SubCategoryDefinition{
		{Code: "TASK_DUE", Name: "Task due"},
		{Code: "TASK_ASSIGNED", Name: "Task assigned"},
	}},
	{Code: "PROJECT", Name: "Projects", SubCategories: []catalog.SubCategoryDefinition{
		{Code: "PROJECT_ARCHIVED", Name: "Project archived"},
	}},
}

// EnvOption customises NewEnv.
type EnvOption func(*app.Config)

// WithRateLimit enables the rate limiter with the given budget.
func WithRateLimit(requests int, window time.Duration) EnvOption {
	return func(cfg *app.Config) {
		cfg.Server.RateLimit = app.RateLimitConfig{Requests: requests, Window: window}
	}
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{Secret: testSecret, Issuer: "test-suite", TTL: time.Hour},
		},
		Notifications: app.NotificationsConfig{DefaultPageSize: 20},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	tokens, err := iauth.NewTokenVerifier(cfg.Auth.TokenConfig())
	require.NoError(t, err)

	built, err := catalog.Build(Categories)
	require.NoError(t, err)
	provider := catalog.NewProvider(built)

	hub := realtime.NewHub()
	service, err := notifications.NewService(context.Background(), db, provider, notifications.WithPublisher(hub))
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		Config:        cfg,
		DB:            db,
		Tokens:        tokens,
		Catalog:       provider,
		Notifications: service,
		Hub:           hub,
		RateStore:     middleware.NewMemoryRateStore(nil),
	})
	require.NoError(t, err)

	return &Env{
		T:             t,
		DB:            db,
		Router:        router,
		Tokens:        tokens,
		Catalog:       provider,
		Hub:           hub,
		Notifications: service,
		Config:        cfg,
	}
}

// Token issues a bearer token for userID with the given group codes.
func (e *Env) Token(userID string, groups ...string) string {
	e.T.Helper()
	token, err := e.Tokens.Issue(iauth.TokenInput{UserID: userID, Groups: groups})
	require.NoError(e.T, err)
	return token
}

// ServiceToken issues a producer token allowed on the create and status endpoints.
func (e *Env) ServiceToken(name string) string {
	e.T.Helper()
	token, err := e.Tokens.Issue(iauth.TokenInput{UserID: name, Roles: []string{iauth.RoleService}})
	require.NoError(e.T, err)
	return token
}

// CreateNotification stores a notification through the API and returns the decoded DTO.
func (e *Env) CreateNotification(token string, body map[string]any) notifications.NotificationDTO {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/notifications", body, token)
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var dto notifications.NotificationDTO
	DecodeInto(e.T, resp.Data, &dto)
	require.NotEmpty(e.T, dto.ID)
	return dto
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// PageResponse mirrors the flat cursor page envelope.
type PageResponse struct {
	Data                []notifications.NotificationDTO `json:"data"`
	NextCursor          *string                         `json:"nextCursor"`
	NextCursorSortOrder *int64                          `json:"nextCursorSortOrder"`
	HasNextPage         bool                            `json:"hasNextPage"`
	Total               *int64                          `json:"total"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodePage parses a cursor page from a recorder.
func DecodePage(t *testing.T, w *httptest.ResponseRecorder) PageResponse {
	t.Helper()
	var page PageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page), w.Body.String())
	return page
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
