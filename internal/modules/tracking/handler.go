package tracking

import (
	"errors"
	"net/http"

	"github.com/OkeahDavid/Metrics-hub/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler exposes the ingestion gateway: JSON POST, GET pixel, preflight,
// and the embeddable tracking script.
type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes mounts the tracking endpoints. The two limiter variants
// share one counter but differ in rejection shape: JSON envelope for the
// POST form, pixel body for the GET form.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, limit, limitPixel gin.HandlerFunc) {
	rg.POST("/track", corsEcho, limit, h.post)
	rg.GET("/track", limitPixel, h.pixel)
	rg.OPTIONS("/track", corsEcho, h.preflight)
	rg.GET("/tracking-script", h.script)
}

// RejectPixel is the limiter rejection callback for the pixel route: even a
// throttled request gets a valid image back, never an error body.
func (h *Handler) RejectPixel(c *gin.Context, retryAfterSeconds int) {
	writePixel(c, http.StatusTooManyRequests)
	c.Abort()
}

// corsEcho allows calls from arbitrary third-party origins. The allowed
// origin echoes the caller's Origin header and falls back to wildcard, on
// every response including failures.
func corsEcho(c *gin.Context) {
	origin := c.GetHeader("Origin")
	if origin == "" {
		origin = "*"
	}
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
	c.Next()
}

func (h *Handler) preflight(c *gin.Context) {
	c.Header("Access-Control-Max-Age", "86400")
	response.NoContent(c)
}

func (h *Handler) post(c *gin.Context) {
	var dto TrackDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	eventID, err := h.svc.Record(c.Request.Context(), RecordInput{
		Page:       dto.Page,
		APIKey:     dto.ProjectAPIKey,
		SessionID:  dto.SessionID,
		Referrer:   dto.Referrer,
		UserAgent:  dto.UserAgent,
		DeviceHint: dto.DeviceType,
		Country:    dto.Country,
		Region:     dto.Region,
		City:       dto.City,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrUnauthorized):
			response.Unauthorized(c, "invalid api key")
		default:
			h.log.Error("track event failed", zap.Error(err), zap.String("ip", c.ClientIP()))
			response.InternalError(c)
		}
		return
	}

	response.OK(c, gin.H{"ok": 1, "event_id": eventID})
}

// pixel ingests via an image request so no JavaScript or CORS preflight is
// needed. The body is always a 1x1 transparent GIF; only the status code
// communicates the outcome, so an embedded <img> never breaks.
func (h *Handler) pixel(c *gin.Context) {
	sessionID := firstQuery(c, "sid", "sessionId")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	page := firstQuery(c, "p", "page")
	if page == "" {
		page = "/"
	}
	referrer := firstQuery(c, "r", "ref", "referrer")
	if referrer == "" {
		referrer = c.GetHeader("Referer")
	}

	_, err := h.svc.Record(c.Request.Context(), RecordInput{
		Page:       page,
		APIKey:     c.Query("key"),
		SessionID:  sessionID,
		Referrer:   referrer,
		UserAgent:  c.GetHeader("User-Agent"),
		DeviceHint: firstQuery(c, "dt", "deviceType"),
		Country:    firstQuery(c, "c", "country"),
		Region:     c.Query("region"),
		City:       c.Query("city"),
	})
	switch {
	case err == nil:
		writePixel(c, http.StatusOK)
	case errors.Is(err, ErrValidation):
		writePixel(c, http.StatusBadRequest)
	case errors.Is(err, ErrUnauthorized):
		writePixel(c, http.StatusUnauthorized)
	default:
		h.log.Error("pixel track failed", zap.Error(err), zap.String("ip", c.ClientIP()))
		writePixel(c, http.StatusInternalServerError)
	}
}

func firstQuery(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if v := c.Query(key); v != "" {
			return v
		}
	}
	return ""
}
