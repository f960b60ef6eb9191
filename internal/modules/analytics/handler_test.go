package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OkeahDavid/Metrics-hub/internal/models"
	"github.com/OkeahDavid/Metrics-hub/internal/modules/project"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newAnalyticsRouter(t *testing.T) (*gin.Engine, *gorm.DB, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	p := models.ProjectModel{Name: "test site", APIKey: "k"}
	require.NoError(t, db.Create(&p).Error)

	h := NewHandler(NewService(db, nil), project.NewDirectory(db), zap.NewNop())
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r, db, p.ID
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestAnalyticsUnknownProject(t *testing.T) {
	r, _, _ := newAnalyticsRouter(t)

	for _, path := range []string{
		"/api/projects/nope/analytics",
		"/api/projects/nope/device-types",
		"/api/projects/nope/referrers",
		"/api/projects/nope/top-pages",
		"/api/projects/nope/countries",
		"/api/projects/nope/live-visitors",
	} {
		w := get(r, path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Contains(t, w.Body.String(), "NOT_FOUND", path)
	}
}

func TestAnalyticsBadRange(t *testing.T) {
	r, _, projectID := newAnalyticsRouter(t)

	w := get(r, "/api/projects/"+projectID+"/analytics?from=not-a-date")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestAnalyticsDailySeries(t *testing.T) {
	r, db, projectID := newAnalyticsRouter(t)

	seedViews(t, db, projectID, []seedView{
		{page: "/", session: "s1", createdAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.Local)},
		{page: "/", session: "s2", createdAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.Local)},
		{page: "/", session: "s3", createdAt: time.Date(2026, 8, 2, 9, 0, 0, 0, time.Local)},
	})

	w := get(r, "/api/projects/"+projectID+"/analytics?from=2026-08-01&to=2026-08-02")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		PageViews []DailyCount `json:"page_views"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []DailyCount{
		{Date: "2026-08-01", Count: 2},
		{Date: "2026-08-02", Count: 1},
	}, resp.PageViews)
}

func TestAnalyticsCombined(t *testing.T) {
	r, db, projectID := newAnalyticsRouter(t)

	seedViews(t, db, projectID, []seedView{
		{page: "/", session: "s1", createdAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.Local)},
	})

	w := get(r, "/api/projects/"+projectID+"/analytics?from=2026-08-01&to=2026-08-01&combined=true")
	require.Equal(t, http.StatusOK, w.Code)

	var summary Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Len(t, summary.PageViews, 1)
	assert.Len(t, summary.TopPages, 1)
}

func TestBreakdownEndpointsWrapSlices(t *testing.T) {
	r, db, projectID := newAnalyticsRouter(t)

	seedViews(t, db, projectID, []seedView{
		{page: "/a", session: "s1", country: "DE", createdAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.Local)},
	})

	w := get(r, "/api/projects/"+projectID+"/top-pages?from=2026-08-01&to=2026-08-01")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []PageCount `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "/a", resp.Data[0].Path)
	assert.InDelta(t, 100.0, resp.Data[0].Percentage, 0.001)
}

func TestLiveVisitorsEndpoint(t *testing.T) {
	r, db, projectID := newAnalyticsRouter(t)

	seedViews(t, db, projectID, []seedView{
		{page: "/", session: "live", createdAt: time.Now().Add(-time.Minute)},
		{page: "/", session: "stale", createdAt: time.Now().Add(-time.Hour)},
	})

	w := get(r, "/api/projects/"+projectID+"/live-visitors")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int64 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Count)
}

func TestParseLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		raw  string
		want int
	}{
		{"", 5},
		{"3", 3},
		{"0", 5},
		{"-1", 5},
		{"junk", 5},
		{"500", maxTop},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?limit="+tc.raw, nil)
		assert.Equal(t, tc.want, parseLimit(c, 5), "limit=%q", tc.raw)
	}
}
