package repository

import (
	"context"
	"time"

	"atomvideo/internal/cache"
	"atomvideo/internal/models"

	"gorm.io/gorm"
)

// StatsRepository answers the aggregate queries behind the stats dashboard.
type StatsRepository interface {
	Overview(ctx context.Context) (*models.StatsOverview, error)
	TopVideos(ctx context.Context, limit int) ([]models.Video, error)
	TagUsage(ctx context.Context, limit int) ([]models.TagCount, error)
	UploadsPerDay(ctx context.Context, days int, now time.Time) ([]models.DailyCount, error)
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository returns a new StatsRepository implementation.
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) Overview(ctx context.Context) (*models.StatsOverview, error) {
	var out models.StatsOverview
	err := cache.Aside(ctx, cache.StatsOverview, &out, cache.StatsOverviewTTL, func() error {
		db := r.db.WithContext(ctx)
		if err := db.Model(&models.User{}).Count(&out.Users).Error; err != nil {
			return err
		}
		if err := db.Model(&models.Video{}).Count(&out.Videos).Error; err != nil {
			return err
		}
		var sums struct {
			Views int64
			Likes int64
		}
		if err := db.Model(&models.Video{}).
			Select("COALESCE(SUM(views), 0) AS views, COALESCE(SUM(likes), 0) AS likes").
			Scan(&sums).Error; err != nil {
			return err
		}
		out.Views, out.Likes = sums.Views, sums.Likes
		if err := db.Model(&models.Comment{}).Count(&out.Comments).Error; err != nil {
			return err
		}
		return db.Model(&models.Subscription{}).Count(&out.Subscriptions).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &out, nil
}

func (r *statsRepository) TopVideos(ctx context.Context, limit int) ([]models.Video, error) {
	var videos []models.Video
	err := r.db.WithContext(ctx).Preload("User").
		Where("visibility = ?", models.VisibilityPublic).
		Order("views DESC").Order("id ASC").
		Limit(clampLimit(limit)).
		Find(&videos).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return videos, nil
}

func (r *statsRepository) TagUsage(ctx context.Context, limit int) ([]models.TagCount, error) {
	var out []models.TagCount
	err := tagCounts(r.db.WithContext(ctx)).
		Order("COUNT(videos.id) DESC").Order("tags.name ASC").
		Limit(clampLimit(limit)).
		Scan(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

// UploadsPerDay returns one entry per UTC day in the window ending today, zero-filled.
func (r *statsRepository) UploadsPerDay(ctx context.Context, days int, now time.Time) ([]models.DailyCount, error) {
	today := now.UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))

	var created []time.Time
	err := r.db.WithContext(ctx).Model(&models.Video{}).
		Where("created_at >= ?", since).
		Pluck("created_at", &created).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	counts := make(map[string]int64, days)
	for _, t := range created {
		counts[t.UTC().Format(time.DateOnly)]++
	}
	out := make([]models.DailyCount, 0, days)
	for d := since; !d.After(today); d = d.AddDate(0, 0, 1) {
		day := d.Format(time.DateOnly)
		out = append(out, models.DailyCount{Day: day, Count: counts[day]})
	}
	return out, nil
}
