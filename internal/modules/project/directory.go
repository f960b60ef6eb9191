package project

import (
	"context"
	"errors"

	"github.com/OkeahDavid/Metrics-hub/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when an API key or project id resolves to nothing.
var ErrNotFound = errors.New("project not found")

// Directory resolves opaque API keys to project ids. Project creation and
// ownership live outside this service; the collector only reads.
type Directory interface {
	ResolveAPIKey(ctx context.Context, apiKey string) (projectID string, err error)
	Exists(ctx context.Context, projectID string) (bool, error)
}

// GormDirectory reads the projects table.
type GormDirectory struct{ db *gorm.DB }

func NewDirectory(db *gorm.DB) *GormDirectory { return &GormDirectory{db: db} }

func (d *GormDirectory) ResolveAPIKey(ctx context.Context, apiKey string) (string, error) {
	var p models.ProjectModel
	err := d.db.WithContext(ctx).
		Select("id").
		Where("api_key = ?", apiKey).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func (d *GormDirectory) Exists(ctx context.Context, projectID string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&models.ProjectModel{}).
		Where("id = ?", projectID).
		Count(&count).Error
	return count > 0, err
}
