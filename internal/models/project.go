package models

// ProjectModel is a tracked website identified by its API key.
// Projects are created and owned outside this service; the collector
// only ever reads them to resolve API keys.
type ProjectModel struct {
	Base
	Name   string `json:"name"    gorm:"not null"`
	APIKey string `json:"api_key" gorm:"uniqueIndex;not null"`
}

func (ProjectModel) TableName() string { return "projects" }
