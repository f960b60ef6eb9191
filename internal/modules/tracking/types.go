package tracking

// TrackDTO is the JSON body of POST /api/track. Field names match the wire
// format emitted by the embeddable tracking script.
type TrackDTO struct {
	Page          string `json:"page"          binding:"required"`
	ProjectAPIKey string `json:"projectApiKey" binding:"required"`
	SessionID     string `json:"sessionId"     binding:"required"`
	Referrer      string `json:"referrer"`
	UserAgent     string `json:"userAgent"`
	DeviceType    string `json:"deviceType"`
	Country       string `json:"country"`
	Region        string `json:"region"`
	City          string `json:"city"`
}

// RecordInput is the gateway-internal shape fed into the ingestion pipeline
// by both transport forms.
type RecordInput struct {
	Page       string
	APIKey     string
	SessionID  string
	Referrer   string
	UserAgent  string
	DeviceHint string
	Country    string
	Region     string
	City       string
}
