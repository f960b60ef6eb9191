package analytics

import (
	"strconv"
	"strings"
	"time"

	"github.com/OkeahDavid/Metrics-hub/internal/modules/project"
	"github.com/OkeahDavid/Metrics-hub/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultRangeDays    = 7
	defaultBreakdownTop = 5
	defaultPagesTop     = 10
	maxTop              = 100
)

// Handler exposes the aggregation engine to the dashboard API. Authorization
// for these routes is an outer concern; the handler only verifies that the
// project exists.
type Handler struct {
	svc       *Service
	directory project.Directory
	log       *zap.Logger
}

func NewHandler(svc *Service, directory project.Directory, log *zap.Logger) *Handler {
	return &Handler{svc: svc, directory: directory, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/projects/:id")
	g.GET("/analytics", h.analytics)
	g.GET("/device-types", h.deviceTypes)
	g.GET("/referrers", h.referrers)
	g.GET("/top-pages", h.topPages)
	g.GET("/countries", h.countries)
	g.GET("/live-visitors", h.liveVisitors)
}

// requireProject resolves the :id path param and 404s unknown projects.
func (h *Handler) requireProject(c *gin.Context) (string, bool) {
	projectID := c.Param("id")
	ok, err := h.directory.Exists(c.Request.Context(), projectID)
	if err != nil {
		h.log.Error("project lookup failed", zap.Error(err), zap.String("project_id", projectID))
		response.InternalError(c)
		return "", false
	}
	if !ok {
		response.NotFound(c, "project not found")
		return "", false
	}
	return projectID, true
}

// parseRange reads from/to query params. Values parse as 2006-01-02 (whole
// days, server timezone) or RFC3339; the default window is the trailing
// seven days. Both endpoints are inclusive.
func parseRange(c *gin.Context) (from, to time.Time, err error) {
	now := time.Now()
	from = beginningOfDay(now.AddDate(0, 0, -(defaultRangeDays - 1)))
	to = now

	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		from, err = parseTimeParam(raw, false)
		if err != nil {
			return from, to, err
		}
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		to, err = parseTimeParam(raw, true)
		if err != nil {
			return from, to, err
		}
	}
	return from, to, nil
}

func parseTimeParam(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", raw, time.Local); err == nil {
		if endOfDay {
			return t.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func beginningOfDay(t time.Time) time.Time {
	y, m, d := t.In(time.Local).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func parseLimit(c *gin.Context, fallback int) int {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return fallback
	}
	if limit > maxTop {
		return maxTop
	}
	return limit
}

// analytics returns the daily page-view series, or the combined five-way
// summary when combined=true, saving the dashboard four round trips.
func (h *Handler) analytics(c *gin.Context) {
	projectID, ok := h.requireProject(c)
	if !ok {
		return
	}
	from, to, err := parseRange(c)
	if err != nil {
		response.BadRequest(c, "invalid from/to: "+err.Error())
		return
	}

	if c.Query("combined") == "true" {
		summary, err := h.svc.Summarize(c.Request.Context(), projectID, from, to, parseLimit(c, defaultBreakdownTop))
		if err != nil {
			h.log.Error("combined analytics failed", zap.Error(err), zap.String("project_id", projectID))
			response.InternalError(c)
			return
		}
		response.OK(c, summary)
		return
	}

	pageViews, err := h.svc.DailyPageViews(c.Request.Context(), projectID, from, to)
	if err != nil {
		h.log.Error("daily page views failed", zap.Error(err), zap.String("project_id", projectID))
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"page_views": pageViews})
}

func (h *Handler) deviceTypes(c *gin.Context) {
	h.breakdown(c, "device type breakdown", func(c *gin.Context, projectID string, from, to time.Time) (interface{}, error) {
		return h.svc.DeviceTypeBreakdown(c.Request.Context(), projectID, from, to)
	})
}

func (h *Handler) referrers(c *gin.Context) {
	h.breakdown(c, "top referrers", func(c *gin.Context, projectID string, from, to time.Time) (interface{}, error) {
		return h.svc.TopReferrers(c.Request.Context(), projectID, from, to, parseLimit(c, defaultBreakdownTop))
	})
}

func (h *Handler) topPages(c *gin.Context) {
	h.breakdown(c, "top pages", func(c *gin.Context, projectID string, from, to time.Time) (interface{}, error) {
		return h.svc.TopPages(c.Request.Context(), projectID, from, to, parseLimit(c, defaultPagesTop))
	})
}

func (h *Handler) countries(c *gin.Context) {
	h.breakdown(c, "top countries", func(c *gin.Context, projectID string, from, to time.Time) (interface{}, error) {
		return h.svc.TopCountries(c.Request.Context(), projectID, from, to, parseLimit(c, defaultBreakdownTop))
	})
}

func (h *Handler) breakdown(c *gin.Context, what string, query func(c *gin.Context, projectID string, from, to time.Time) (interface{}, error)) {
	projectID, ok := h.requireProject(c)
	if !ok {
		return
	}
	from, to, err := parseRange(c)
	if err != nil {
		response.BadRequest(c, "invalid from/to: "+err.Error())
		return
	}

	rows, err := query(c, projectID, from, to)
	if err != nil {
		h.log.Error(what+" failed", zap.Error(err), zap.String("project_id", projectID))
		response.InternalError(c)
		return
	}
	response.OK(c, rows)
}

func (h *Handler) liveVisitors(c *gin.Context) {
	projectID, ok := h.requireProject(c)
	if !ok {
		return
	}

	count, err := h.svc.LiveVisitorCount(c.Request.Context(), projectID)
	if err != nil {
		h.log.Error("live visitors failed", zap.Error(err), zap.String("project_id", projectID))
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"count": count})
}
