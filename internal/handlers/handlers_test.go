package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/taskhub/internal/catalog"
	"github.com/charlesng35/taskhub/internal/database/testutil"
	"github.com/charlesng35/taskhub/internal/middleware"
	"github.com/charlesng35/taskhub/internal/monitoring"
	"github.com/charlesng35/taskhub/internal/monitoring/checks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func queryContext(rawQuery string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	return c
}

func TestQueryParsers(t *testing.T) {
	c := queryContext("pageSize=15&bad=x&sort=1712345678901234&unread=TRUE&cursor=%20abc%20&from=2026-03-01T10:00:00Z")

	require.Equal(t, 15, parseIntQuery(c, "pageSize", 20))
	require.Equal(t, 20, parseIntQuery(c, "bad", 20))
	require.Equal(t, 20, parseIntQuery(c, "missing", 20))

	sort := parseInt64Query(c, "sort")
	require.NotNil(t, sort)
	require.EqualValues(t, 1712345678901234, *sort)
	require.Nil(t, parseInt64Query(c, "bad"))

	require.True(t, parseBoolQuery(c, "unread"))
	require.False(t, parseBoolQuery(c, "bad"))

	cursor := optionalString(c, "cursor")
	require.NotNil(t, cursor)
	require.Equal(t, "abc", *cursor)
	require.Nil(t, optionalString(c, "missing"))

	from, err := parseTimeQuery(c, "from")
	require.NoError(t, err)
	require.Equal(t, 10, from.Hour())

	none, err := parseTimeQuery(c, "missing")
	require.NoError(t, err)
	require.Nil(t, none)

	_, err = parseTimeQuery(c, "bad")
	require.Error(t, err)
}

func TestRecipientRequiresAuthenticatedUser(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := recipient(c)
	require.False(t, ok)

	c.Set(middleware.CtxUserIDKey, "alice")
	c.Set(middleware.CtxGroupsKey, []string{"engineering"})
	who, ok := recipient(c)
	require.True(t, ok)
	require.Equal(t, "alice", who.UserID)
	require.Equal(t, []string{"engineering"}, who.Groups)
}

func TestHealthReadyReportsChecks(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	provider := catalog.Load("testdata/does-not-exist.json")

	manager := monitoring.NewHealthManager(0)
	manager.RegisterReadiness(checks.Database(db))
	manager.RegisterReadiness(checks.Catalog(provider))
	handler := NewHealthHandler(manager)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	handler.Ready(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	var report monitoring.HealthReport
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &report))
	require.True(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "catalog", report.Checks[1].Component)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	recorder = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)
	handler.Summary(c)
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	require.Contains(t, recorder.Body.String(), `"status":"down"`)
}

func TestHealthLiveWithoutChecks(t *testing.T) {
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	NewHealthHandler(monitoring.NewHealthManager(0)).Live(c)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), `"status":"up"`)
}

func TestBindAndValidateFormatsFailures(t *testing.T) {
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodPost, "/", jsonBody(`{"main_category":"9bad"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	var payload struct {
		Summary      string `json:"summary" validate:"required"`
		MainCategory string `json:"main_category" validate:"omitempty,catalog_code"`
	}
	require.False(t, bindAndValidate(c, &payload))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Contains(t, recorder.Body.String(), "summary is required")
	require.Contains(t, recorder.Body.String(), "must be a category code")
}

func jsonBody(s string) *strings.Reader {
	return strings.NewReader(s)
}
