package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OkeahDavid/Metrics-hub/internal/models"
	"github.com/OkeahDavid/Metrics-hub/internal/modules/project"
	"gorm.io/gorm"
)

var (
	// ErrValidation marks a missing or malformed required field.
	ErrValidation = errors.New("invalid tracking input")
	// ErrUnauthorized marks an API key that resolves to no project.
	ErrUnauthorized = errors.New("unknown api key")
)

// defaultWriteTimeout bounds the persist path. Callers are live page loads;
// on deadline the call fails closed with no event persisted.
const defaultWriteTimeout = 500 * time.Millisecond

// Service is the ingestion pipeline shared by the JSON and pixel transports.
type Service struct {
	db           *gorm.DB
	directory    project.Directory
	writeTimeout time.Duration
}

func NewService(db *gorm.DB, directory project.Directory) *Service {
	return &Service{db: db, directory: directory, writeTimeout: defaultWriteTimeout}
}

// Record validates, classifies and persists one page view. Exactly one event
// is persisted per successful call, zero on any rejection path.
func (s *Service) Record(ctx context.Context, in RecordInput) (string, error) {
	page := strings.TrimSpace(in.Page)
	switch {
	case page == "":
		return "", fmt.Errorf("%w: page is required", ErrValidation)
	case len(page) > models.MaxPageLength:
		return "", fmt.Errorf("%w: page exceeds %d bytes", ErrValidation, models.MaxPageLength)
	case strings.TrimSpace(in.APIKey) == "":
		return "", fmt.Errorf("%w: projectApiKey is required", ErrValidation)
	case strings.TrimSpace(in.SessionID) == "":
		return "", fmt.Errorf("%w: sessionId is required", ErrValidation)
	}

	projectID, err := s.directory.ResolveAPIKey(ctx, in.APIKey)
	if errors.Is(err, project.ErrNotFound) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("resolve api key: %w", err)
	}

	pv := models.PageViewModel{
		ProjectID:  projectID,
		Page:       page,
		Referrer:   strings.TrimSpace(in.Referrer),
		SessionID:  strings.TrimSpace(in.SessionID),
		UserAgent:  in.UserAgent,
		DeviceType: ClassifyDevice(in.DeviceHint, in.UserAgent),
		Country:    strings.TrimSpace(in.Country),
		Region:     strings.TrimSpace(in.Region),
		City:       strings.TrimSpace(in.City),
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := s.db.WithContext(writeCtx).Create(&pv).Error; err != nil {
		return "", fmt.Errorf("persist page view: %w", err)
	}
	return pv.ID, nil
}
