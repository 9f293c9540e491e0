package repository

import (
	"context"

	"atomvideo/internal/cache"
	"atomvideo/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepository defines persistence operations for tags.
type TagRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Tag, error)
	FindOrCreate(ctx context.Context, names []string) ([]models.Tag, error)
	Create(ctx context.Context, tag *models.Tag) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]models.TagCount, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository returns a new TagRepository implementation.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) GetByID(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, lookupError(err, "Tag")
	}
	return &tag, nil
}

// FindOrCreate returns tags for the already-normalized names, inserting missing
// ones. The result follows the order of names.
func (r *tagRepository) FindOrCreate(ctx context.Context, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return []models.Tag{}, nil
	}

	rows := make([]models.Tag, len(names))
	for i, n := range names {
		rows[i] = models.Tag{Name: n}
	}

	var found []models.Tag
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&rows).Error; err != nil {
			return err
		}
		return tx.Where("name IN ?", names).Find(&found).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	byName := make(map[string]models.Tag, len(found))
	for _, t := range found {
		byName[t.Name] = t
	}
	out := make([]models.Tag, 0, len(names))
	for _, n := range names {
		if t, ok := byName[n]; ok {
			out = append(out, t)
		}
	}
	cache.InvalidateTags(ctx)
	return out, nil
}

func (r *tagRepository) Create(ctx context.Context, tag *models.Tag) error {
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Tag already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateTags(ctx)
	return nil
}

func (r *tagRepository) Delete(ctx context.Context, id uint) error {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM video_tags WHERE tag_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Tag{}, id)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	if affected == 0 {
		return models.NewNotFoundError("Tag")
	}
	cache.InvalidateTags(ctx)
	return nil
}

// List returns every tag with the number of public videos carrying it, by name.
func (r *tagRepository) List(ctx context.Context) ([]models.TagCount, error) {
	var out []models.TagCount
	err := cache.Aside(ctx, cache.TagListKey, &out, cache.TagListTTL, func() error {
		return tagCounts(r.db.WithContext(ctx)).Order("tags.name ASC").Scan(&out).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func tagCounts(db *gorm.DB) *gorm.DB {
	return db.Table("tags").
		Select("tags.id AS tag_id, tags.name AS name, COUNT(videos.id) AS videos").
		Joins("LEFT JOIN video_tags ON video_tags.tag_id = tags.id").
		Joins("LEFT JOIN videos ON videos.id = video_tags.video_id AND videos.deleted_at IS NULL AND videos.visibility = ?", models.VisibilityPublic).
		Group("tags.id, tags.name")
}
