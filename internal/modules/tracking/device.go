package tracking

import (
	"strings"

	"github.com/OkeahDavid/Metrics-hub/internal/models"
)

var tabletKeywords = []string{"tablet", "ipad", "playbook", "silk"}

var mobileKeywords = []string{
	"mobile", "iphone", "ipod", "blackberry", "iemobile",
	"opera mini", "windows phone", "webos",
}

// ClassifyDevice normalizes a client-reported device hint or a user-agent
// string into one of the three device types. A well-formed explicit hint is
// trusted as-is; otherwise the user agent is inspected, and desktop is the
// default when there is no usable signal.
func ClassifyDevice(hint, userAgent string) models.DeviceType {
	if dt := models.DeviceType(strings.ToLower(strings.TrimSpace(hint))); dt.Valid() {
		return dt
	}

	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return models.DeviceDesktop
	case isTabletUA(ua):
		return models.DeviceTablet
	case isMobileUA(ua):
		return models.DeviceMobile
	}
	return models.DeviceDesktop
}

func isTabletUA(ua string) bool {
	for _, kw := range tabletKeywords {
		if strings.Contains(ua, kw) {
			return true
		}
	}
	// Android tablets report "Android" without the "Mobile" token.
	return strings.Contains(ua, "android") && !strings.Contains(ua, "mobile")
}

func isMobileUA(ua string) bool {
	for _, kw := range mobileKeywords {
		if strings.Contains(ua, kw) {
			return true
		}
	}
	return strings.Contains(ua, "android")
}
