package tracking

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/OkeahDavid/Metrics-hub/internal/models"
	"github.com/OkeahDavid/Metrics-hub/internal/modules/project"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testAPIKey = "test-api-key"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.ProjectModel{}, &models.PageViewModel{}))
	return db
}

func seedProject(t *testing.T, db *gorm.DB, apiKey string) string {
	t.Helper()
	p := models.ProjectModel{Name: "test site", APIKey: apiKey}
	require.NoError(t, db.Create(&p).Error)
	return p.ID
}

func newTrackingRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	seedProject(t, db, testAPIKey)

	h := NewHandler(NewService(db, project.NewDirectory(db)), zap.NewNop())
	r := gin.New()
	api := r.Group("/api")
	passthrough := func(c *gin.Context) { c.Next() }
	h.RegisterRoutes(api, passthrough, passthrough)
	return r, db
}

func postTrack(r *gin.Engine, body map[string]any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/track", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func countPageViews(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.PageViewModel{}).Count(&n).Error)
	return n
}

func TestPostTrackPersistsEvent(t *testing.T) {
	r, db := newTrackingRouter(t)

	w := postTrack(r, map[string]any{
		"page":          "/pricing",
		"projectApiKey": testAPIKey,
		"sessionId":     "sess-1",
		"referrer":      "https://news.ycombinator.com/",
		"userAgent":     uaIPhone,
		"country":       "DE",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK      int    `json:"ok"`
		EventID string `json:"event_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.OK)
	require.NotEmpty(t, resp.EventID)

	var pv models.PageViewModel
	require.NoError(t, db.First(&pv, "id = ?", resp.EventID).Error)
	assert.Equal(t, "/pricing", pv.Page)
	assert.Equal(t, "sess-1", pv.SessionID)
	assert.Equal(t, models.DeviceMobile, pv.DeviceType)
	assert.Equal(t, "DE", pv.Country)
}

func TestPostTrackValidation(t *testing.T) {
	r, db := newTrackingRouter(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing page", map[string]any{"projectApiKey": testAPIKey, "sessionId": "s"}},
		{"missing api key", map[string]any{"page": "/", "sessionId": "s"}},
		{"missing session", map[string]any{"page": "/", "projectApiKey": testAPIKey}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postTrack(r, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
		})
	}

	assert.Equal(t, int64(0), countPageViews(t, db), "rejected requests must persist nothing")
}

func TestPostTrackUnknownAPIKey(t *testing.T) {
	r, db := newTrackingRouter(t)

	w := postTrack(r, map[string]any{
		"page":          "/",
		"projectApiKey": "no-such-key",
		"sessionId":     "sess-1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	assert.Equal(t, int64(0), countPageViews(t, db))
}

func TestPostTrackEchoesOrigin(t *testing.T) {
	r, _ := newTrackingRouter(t)

	raw, _ := json.Marshal(map[string]any{
		"page": "/", "projectApiKey": testAPIKey, "sessionId": "s",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/track", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://customer.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://customer.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	r, _ := newTrackingRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/track", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}

func getPixel(r *gin.Engine, rawQuery string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/track?"+rawQuery, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPixelTrack(t *testing.T) {
	r, db := newTrackingRouter(t)

	w := getPixel(r, "key="+testAPIKey+"&p=/blog&sid=sess-9&r=https://google.com&dt=tablet")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/gif", w.Header().Get("Content-Type"))
	assert.Equal(t, pixelGIF, w.Body.Bytes())
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")

	var pv models.PageViewModel
	require.NoError(t, db.First(&pv).Error)
	assert.Equal(t, "/blog", pv.Page)
	assert.Equal(t, "sess-9", pv.SessionID)
	assert.Equal(t, "https://google.com", pv.Referrer)
	assert.Equal(t, models.DeviceTablet, pv.DeviceType)
}

func TestPixelGeneratesSessionAndDefaults(t *testing.T) {
	r, db := newTrackingRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/track?key="+testAPIKey, nil)
	req.Header.Set("Referer", "https://blog.example/post")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var pv models.PageViewModel
	require.NoError(t, db.First(&pv).Error)
	assert.Equal(t, "/", pv.Page, "missing page defaults to root")
	assert.Equal(t, "https://blog.example/post", pv.Referrer, "Referer header is the fallback")
	_, err := uuid.Parse(pv.SessionID)
	assert.NoError(t, err, "missing sid gets a generated uuid")
}

func TestPixelAlwaysReturnsImage(t *testing.T) {
	r, db := newTrackingRouter(t)

	cases := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"missing key", "p=/x&sid=s", http.StatusBadRequest},
		{"unknown key", "key=bogus&sid=s", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := getPixel(r, tc.query)
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, "image/gif", w.Header().Get("Content-Type"))
			assert.Equal(t, pixelGIF, w.Body.Bytes())
		})
	}

	assert.Equal(t, int64(0), countPageViews(t, db))
}

func TestRejectPixel(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	h := NewHandler(NewService(db, project.NewDirectory(db)), zap.NewNop())

	r := gin.New()
	r.GET("/track", func(c *gin.Context) {
		h.RejectPixel(c, 30)
	})

	req := httptest.NewRequest(http.MethodGet, "/track", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "image/gif", w.Header().Get("Content-Type"))
	assert.Equal(t, pixelGIF, w.Body.Bytes())
}

func TestTrackingScript(t *testing.T) {
	r, _ := newTrackingRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tracking-script?apiKey="+testAPIKey, nil)
	req.Host = "collector.example"
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "javascript")
	assert.Contains(t, w.Body.String(), testAPIKey)
	assert.Contains(t, w.Body.String(), "http://collector.example/api/track")
}

func TestTrackingScriptRejectsBadKey(t *testing.T) {
	r, _ := newTrackingRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tracking-script", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tracking-script?apiKey=bogus", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
