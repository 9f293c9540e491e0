package repository

import (
	"context"
	"strings"

	"atomvideo/internal/cache"
	"atomvideo/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Video list orderings.
const (
	SortRecent  = "recent"
	SortPopular = "popular"
)

// VideoFilter narrows a video listing.
type VideoFilter struct {
	Query  string
	Tag    string
	UserID uint
	Sort   string
	// IncludeHidden also returns unlisted and private videos.
	IncludeHidden bool
	Limit         int
	Offset        int
}

// VideoRepository defines persistence operations for videos, likes and tags on videos.
type VideoRepository interface {
	Create(ctx context.Context, video *models.Video) error
	GetByID(ctx context.Context, id uint) (*models.Video, error)
	List(ctx context.Context, f VideoFilter) ([]models.Video, error)
	Update(ctx context.Context, video *models.Video) error
	Delete(ctx context.Context, id uint) error
	IncrementViews(ctx context.Context, id uint) error
	Like(ctx context.Context, userID, videoID uint) (bool, error)
	Unlike(ctx context.Context, userID, videoID uint) (bool, error)
	IsLiked(ctx context.Context, userID, videoID uint) (bool, error)
	ReplaceTags(ctx context.Context, videoID uint, tags []models.Tag) error
	SetThumbnail(ctx context.Context, id uint, url string) error
}

type videoRepository struct {
	db *gorm.DB
}

// NewVideoRepository returns a new VideoRepository implementation.
func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &videoRepository{db: db}
}

func (r *videoRepository) Create(ctx context.Context, video *models.Video) error {
	if err := r.db.WithContext(ctx).Create(video).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.StatsOverview)
	return nil
}

func (r *videoRepository) GetByID(ctx context.Context, id uint) (*models.Video, error) {
	var video models.Video
	err := cache.Aside(ctx, cache.VideoKey(id), &video, cache.VideoTTL, func() error {
		err := r.db.WithContext(ctx).
			Preload("User").
			Preload("Tags").
			First(&video, id).Error
		if err != nil {
			return lookupError(err, "Video")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *videoRepository) List(ctx context.Context, f VideoFilter) ([]models.Video, error) {
	q := r.db.WithContext(ctx).Model(&models.Video{})

	if !f.IncludeHidden {
		q = q.Where("videos.visibility = ?", models.VisibilityPublic)
	}
	if f.UserID != 0 {
		q = q.Where("videos.user_id = ?", f.UserID)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(videos.title) LIKE ? OR LOWER(videos.description) LIKE ?", pattern, pattern)
	}
	if f.Tag != "" {
		q = q.Joins("JOIN video_tags ON video_tags.video_id = videos.id").
			Joins("JOIN tags ON tags.id = video_tags.tag_id").
			Where("tags.name = ?", strings.ToLower(f.Tag))
	}

	switch f.Sort {
	case SortPopular:
		q = q.Order("videos.views DESC").Order("videos.likes DESC").Order("videos.id DESC")
	default:
		q = q.Order("videos.created_at DESC").Order("videos.id DESC")
	}

	var videos []models.Video
	err := q.Preload("User").Preload("Tags").
		Limit(clampLimit(f.Limit)).
		Offset(f.Offset).
		Find(&videos).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return videos, nil
}

// Update writes the editable metadata columns.
func (r *videoRepository) Update(ctx context.Context, video *models.Video) error {
	err := r.db.WithContext(ctx).Model(video).
		Select("title", "description", "url", "thumbnail_url", "duration", "visibility").
		Updates(video).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateVideo(ctx, video.ID)
	return nil
}

func (r *videoRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Video{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Video")
	}
	cache.InvalidateVideo(ctx, id)
	return nil
}

func (r *videoRepository) IncrementViews(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Video{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Video")
	}
	cache.InvalidateVideo(ctx, id)
	return nil
}

// Like records the like and bumps the counter. It reports false when the
// user had already liked the video.
func (r *videoRepository) Like(ctx context.Context, userID, videoID uint) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.VideoLike{UserID: userID, VideoID: videoID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return tx.Model(&models.Video{}).Where("id = ?", videoID).
			UpdateColumn("likes", gorm.Expr("likes + 1")).Error
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if created {
		cache.InvalidateVideo(ctx, videoID)
	}
	return created, nil
}

// Unlike removes the like if present. It reports false when there was none.
func (r *videoRepository) Unlike(ctx context.Context, userID, videoID uint) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND video_id = ?", userID, videoID).Delete(&models.VideoLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Model(&models.Video{}).Where("id = ? AND likes > 0", videoID).
			UpdateColumn("likes", gorm.Expr("likes - 1")).Error
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if removed {
		cache.InvalidateVideo(ctx, videoID)
	}
	return removed, nil
}

func (r *videoRepository) IsLiked(ctx context.Context, userID, videoID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.VideoLike{}).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *videoRepository) ReplaceTags(ctx context.Context, videoID uint, tags []models.Tag) error {
	video := models.Video{ID: videoID}
	if err := r.db.WithContext(ctx).Model(&video).Association("Tags").Replace(tags); err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateVideo(ctx, videoID)
	cache.InvalidateTags(ctx)
	return nil
}

func (r *videoRepository) SetThumbnail(ctx context.Context, id uint, url string) error {
	res := r.db.WithContext(ctx).Model(&models.Video{}).Where("id = ?", id).Update("thumbnail_url", url)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Video")
	}
	cache.InvalidateVideo(ctx, id)
	return nil
}
