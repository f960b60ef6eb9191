package models

// DeviceType is the normalized device classification of a page view.
// It is always one of the three enumerated values, never a raw client string.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceDesktop DeviceType = "desktop"
)

// Valid reports whether d is one of the three enumerated values.
func (d DeviceType) Valid() bool {
	switch d {
	case DeviceMobile, DeviceTablet, DeviceDesktop:
		return true
	}
	return false
}

// MaxPageLength caps the stored page path.
const MaxPageLength = 2048

// PageViewModel records one page view. Rows are immutable once persisted.
type PageViewModel struct {
	Base
	ProjectID  string     `json:"project_id"  gorm:"type:char(36);index;index:idx_pv_project_session,composite:1;not null"`
	Page       string     `json:"page"        gorm:"size:2048;not null"`
	Referrer   string     `json:"referrer"`
	SessionID  string     `json:"session_id"  gorm:"index;index:idx_pv_project_session,composite:2;not null"`
	UserAgent  string     `json:"user_agent"  gorm:"type:text"`
	DeviceType DeviceType `json:"device_type" gorm:"size:16;index;not null"`
	Country    string     `json:"country"`
	Region     string     `json:"region"`
	City       string     `json:"city"`
}

func (PageViewModel) TableName() string { return "page_views" }
