package database

import "atomvideo/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Tag{},
		&models.Video{},
		&models.VideoLike{},
		&models.Comment{},
		&models.Subscription{},
		&models.Notification{},
	}
}
