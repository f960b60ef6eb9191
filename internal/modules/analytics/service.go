package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/OkeahDavid/Metrics-hub/internal/models"
	pkgredis "github.com/OkeahDavid/Metrics-hub/internal/pkg/redis"
	"gorm.io/gorm"
)

const (
	// liveWindow is the trailing window that defines a "live" session.
	liveWindow = 5 * time.Minute
	// liveCacheTTL bounds how stale a cached live-visitor count may be;
	// dashboards poll every 10-30s, so most polls hit the cache.
	liveCacheTTL = 10 * time.Second
)

// Service answers aggregate queries over a project's persisted page views.
// All range queries are inclusive of both endpoints and scoped to one
// project; "no data in range" yields empty collections, never errors.
type Service struct {
	db    *gorm.DB
	cache *pkgredis.Client // optional, nil disables live-count caching
	now   func() time.Time
}

func NewService(db *gorm.DB, cache *pkgredis.Client) *Service {
	return &Service{db: db, cache: cache, now: time.Now}
}

func (s *Service) rangeQuery(ctx context.Context, projectID string, from, to time.Time) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.PageViewModel{}).
		Where("project_id = ? AND created_at >= ? AND created_at <= ?", projectID, from, to)
}

// DailyPageViews buckets a project's events by calendar day in the server
// timezone, ascending. Days without events are omitted; zero-filling is the
// caller's presentation concern.
func (s *Service) DailyPageViews(ctx context.Context, projectID string, from, to time.Time) ([]DailyCount, error) {
	var rows []struct {
		CreatedAt time.Time `gorm:"column:created_at"`
	}
	if err := s.rangeQuery(ctx, projectID, from, to).
		Select("created_at").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("daily page views: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.CreatedAt.In(time.Local).Format("2006-01-02")]++
	}

	out := make([]DailyCount, 0, len(counts))
	for date, count := range counts {
		out = append(out, DailyCount{Date: date, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// DeviceTypeBreakdown returns one row per device type present in range;
// the counts sum to the total events in range.
func (s *Service) DeviceTypeBreakdown(ctx context.Context, projectID string, from, to time.Time) ([]DeviceCount, error) {
	rows := []DeviceCount{}
	err := s.rangeQuery(ctx, projectID, from, to).
		Select("device_type, COUNT(*) as count").
		Group("device_type").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("device type breakdown: %w", err)
	}
	return rows, nil
}

// TopReferrers returns the most frequent referrers in range, descending by
// count, truncated to limit. Events without a referrer count as "Direct".
func (s *Service) TopReferrers(ctx context.Context, projectID string, from, to time.Time, limit int) ([]ReferrerCount, error) {
	rows := []ReferrerCount{}
	err := s.rangeQuery(ctx, projectID, from, to).
		Select("referrer, COUNT(*) as count").
		Group("referrer").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("top referrers: %w", err)
	}
	for i := range rows {
		if rows[i].Referrer == "" {
			rows[i].Referrer = "Direct"
		}
	}
	return rows, nil
}

// TopPages returns the most viewed pages in range with each page's share of
// all events in range. With zero events in range all percentages are zero.
func (s *Service) TopPages(ctx context.Context, projectID string, from, to time.Time, limit int) ([]PageCount, error) {
	var total int64
	if err := s.rangeQuery(ctx, projectID, from, to).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("top pages total: %w", err)
	}

	rows := []PageCount{}
	err := s.rangeQuery(ctx, projectID, from, to).
		Select("page as path, COUNT(*) as count").
		Group("page").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("top pages: %w", err)
	}

	if total > 0 {
		for i := range rows {
			pct := 100 * float64(rows[i].Count) / float64(total)
			rows[i].Percentage = math.Round(pct*100) / 100
		}
	}
	return rows, nil
}

// TopCountries returns the most frequent countries in range, descending by
// count, truncated to limit. Events without a country count as "Unknown".
func (s *Service) TopCountries(ctx context.Context, projectID string, from, to time.Time, limit int) ([]CountryCount, error) {
	rows := []CountryCount{}
	err := s.rangeQuery(ctx, projectID, from, to).
		Select("country, COUNT(*) as count").
		Group("country").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("top countries: %w", err)
	}
	for i := range rows {
		if rows[i].Country == "" {
			rows[i].Country = "Unknown"
		}
	}
	return rows, nil
}

// Summarize runs the five breakdowns for one dashboard refresh.
func (s *Service) Summarize(ctx context.Context, projectID string, from, to time.Time, limit int) (*Summary, error) {
	pageViews, err := s.DailyPageViews(ctx, projectID, from, to)
	if err != nil {
		return nil, err
	}
	deviceTypes, err := s.DeviceTypeBreakdown(ctx, projectID, from, to)
	if err != nil {
		return nil, err
	}
	referrers, err := s.TopReferrers(ctx, projectID, from, to, limit)
	if err != nil {
		return nil, err
	}
	topPages, err := s.TopPages(ctx, projectID, from, to, limit)
	if err != nil {
		return nil, err
	}
	countries, err := s.TopCountries(ctx, projectID, from, to, limit)
	if err != nil {
		return nil, err
	}
	return &Summary{
		PageViews:   pageViews,
		DeviceTypes: deviceTypes,
		Referrers:   referrers,
		TopPages:    topPages,
		Countries:   countries,
	}, nil
}

// LiveVisitorCount counts distinct sessions with at least one event in the
// trailing five minutes. With Redis configured the result is cached briefly
// so frequent polling never touches the store on every call.
func (s *Service) LiveVisitorCount(ctx context.Context, projectID string) (int64, error) {
	cacheKey := "mh:live_visitors:" + projectID
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			if count, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return count, nil
			}
		}
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.PageViewModel{}).
		Where("project_id = ? AND created_at >= ?", projectID, s.now().Add(-liveWindow)).
		Distinct("session_id").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("live visitor count: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, strconv.FormatInt(count, 10), liveCacheTTL)
	}
	return count, nil
}
