package tracking

import (
	"errors"
	"net/http"
	"strings"
	"text/template"

	"github.com/OkeahDavid/Metrics-hub/internal/modules/project"
	"github.com/OkeahDavid/Metrics-hub/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var scriptTpl = template.Must(template.New("tracker").Parse(`(function() {
  var sessionId = localStorage.getItem('metrics_hub_session_id');
  if (!sessionId) {
    sessionId = Math.random().toString(36).substring(2, 15);
    localStorage.setItem('metrics_hub_session_id', sessionId);
  }

  function getDeviceType() {
    var ua = navigator.userAgent;
    if (/(tablet|ipad|playbook|silk)|(android(?!.*mobi))/i.test(ua)) {
      return 'tablet';
    }
    if (/Mobile|Android|iP(hone|od)|IEMobile|BlackBerry|Kindle|Silk-Accelerated|(hpw|web)OS|Opera M(obi|ini)/.test(ua)) {
      return 'mobile';
    }
    return 'desktop';
  }

  function trackPageView() {
    fetch('{{.Endpoint}}', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({
        page: window.location.pathname,
        referrer: document.referrer,
        userAgent: navigator.userAgent,
        deviceType: getDeviceType(),
        projectApiKey: '{{.APIKey}}',
        sessionId: sessionId
      }),
      keepalive: true
    }).catch(function() {});
  }

  trackPageView();

  var lastPage = window.location.pathname;
  function onNavigate() {
    if (lastPage !== window.location.pathname) {
      lastPage = window.location.pathname;
      trackPageView();
    }
  }

  var originalPushState = history.pushState;
  history.pushState = function() {
    originalPushState.apply(this, arguments);
    onNavigate();
  };
  var originalReplaceState = history.replaceState;
  history.replaceState = function() {
    originalReplaceState.apply(this, arguments);
    onNavigate();
  };
  window.addEventListener('popstate', onNavigate);
})();
`))

type scriptData struct {
	Endpoint string
	APIKey   string
}

// script serves the embeddable JS snippet for a valid API key. The snippet
// posts to /api/track with keepalive so page navigation is never blocked,
// and hooks SPA history mutations to report client-side route changes.
func (h *Handler) script(c *gin.Context) {
	apiKey := strings.TrimSpace(c.Query("apiKey"))
	if apiKey == "" {
		response.BadRequest(c, "apiKey is required")
		return
	}

	if _, err := h.svc.directory.ResolveAPIKey(c.Request.Context(), apiKey); err != nil {
		if errors.Is(err, project.ErrNotFound) {
			response.Unauthorized(c, "invalid api key")
			return
		}
		h.log.Error("tracking script lookup failed", zap.Error(err))
		response.InternalError(c)
		return
	}

	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}

	var buf strings.Builder
	if err := scriptTpl.Execute(&buf, scriptData{
		Endpoint: scheme + "://" + c.Request.Host + "/api/track",
		APIKey:   apiKey,
	}); err != nil {
		h.log.Error("tracking script render failed", zap.Error(err))
		response.InternalError(c)
		return
	}

	c.Data(http.StatusOK, "application/javascript", []byte(buf.String()))
}
