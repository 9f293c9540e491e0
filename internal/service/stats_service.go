package service

import (
	"context"
	"time"

	"atomvideo/internal/models"
	"atomvideo/internal/repository"
)

const (
	defaultUploadDays = 30
	maxUploadDays     = 365
	defaultStatsLimit = 10
	maxStatsLimit     = 100
)

// StatsService backs the analytics dashboard.
type StatsService struct {
	statsRepo repository.StatsRepository
	now       func() time.Time
}

func NewStatsService(statsRepo repository.StatsRepository) *StatsService {
	return &StatsService{statsRepo: statsRepo, now: time.Now}
}

func (s *StatsService) Overview(ctx context.Context) (*models.StatsOverview, error) {
	return s.statsRepo.Overview(ctx)
}

func (s *StatsService) TopVideos(ctx context.Context, limit int) ([]models.Video, error) {
	return s.statsRepo.TopVideos(ctx, statsLimit(limit))
}

func (s *StatsService) TagUsage(ctx context.Context, limit int) ([]models.TagCount, error) {
	return s.statsRepo.TagUsage(ctx, statsLimit(limit))
}

// Uploads returns per-day upload counts for the last days days, oldest first.
func (s *StatsService) Uploads(ctx context.Context, days int) ([]models.DailyCount, error) {
	if days == 0 {
		days = defaultUploadDays
	}
	if days < 1 || days > maxUploadDays {
		return nil, models.NewValidationError("days must be between 1 and 365")
	}
	return s.statsRepo.UploadsPerDay(ctx, days, s.now())
}

func statsLimit(limit int) int {
	if limit <= 0 {
		return defaultStatsLimit
	}
	return min(limit, maxStatsLimit)
}
