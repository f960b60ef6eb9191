package analytics

// DailyCount is one calendar day's page-view total.
type DailyCount struct {
	Date  string `json:"date"` // 2006-01-02, server timezone
	Count int64  `json:"count"`
}

// DeviceCount is a single device-type aggregation row.
type DeviceCount struct {
	DeviceType string `json:"device_type"`
	Count      int64  `json:"count"`
}

// ReferrerCount is a single referrer aggregation row. Empty referrers are
// reported as "Direct".
type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
}

// PageCount is a single page aggregation row with its share of all views in
// the queried range.
type PageCount struct {
	Path       string  `json:"path"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// CountryCount is a single country aggregation row. Empty countries are
// reported as "Unknown".
type CountryCount struct {
	Country string `json:"country"`
	Count   int64  `json:"count"`
}

// Summary bundles the five breakdowns for one dashboard refresh. The reads
// are not snapshot-isolated; minor skew between them is acceptable.
type Summary struct {
	PageViews   []DailyCount    `json:"page_views"`
	DeviceTypes []DeviceCount   `json:"device_types"`
	Referrers   []ReferrerCount `json:"referrers"`
	TopPages    []PageCount     `json:"top_pages"`
	Countries   []CountryCount  `json:"countries"`
}
