package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"atomvideo/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var seq atomic.Uint64

func next() uint64 { return seq.Add(1) }

// NewUser builds an unsaved user with unique email and username.
func NewUser(overrides ...func(*models.User)) *models.User {
	n := next()
	u := &models.User{
		Email:    fmt.Sprintf("%d.%s", n, strings.ToLower(gofakeit.Email())),
		Username: fmt.Sprintf("%s_%d", strings.ToLower(gofakeit.Username()), n),
		Bio:      gofakeit.Sentence(8),
		Avatar:   gofakeit.URL(),
		Role:     models.RoleUser,
	}
	for _, o := range overrides {
		o(u)
	}
	return u
}

// CreateUser persists a user built by NewUser.
func CreateUser(t *testing.T, db *gorm.DB, overrides ...func(*models.User)) *models.User {
	t.Helper()
	u := NewUser(overrides...)
	require.NoError(t, db.Create(u).Error)
	return u
}

// NewVideo builds an unsaved public video owned by ownerID.
func NewVideo(ownerID uint, overrides ...func(*models.Video)) *models.Video {
	v := &models.Video{
		Title:       gofakeit.Sentence(4),
		Description: gofakeit.Paragraph(1, 2, 8, " "),
		URL:         fmt.Sprintf("https://cdn.atom.example/videos/%s.mp4", gofakeit.UUID()),
		Duration:    gofakeit.Number(10, 3600),
		UserID:      ownerID,
		Visibility:  models.VisibilityPublic,
	}
	for _, o := range overrides {
		o(v)
	}
	return v
}

// CreateVideo persists a video built by NewVideo.
func CreateVideo(t *testing.T, db *gorm.DB, ownerID uint, overrides ...func(*models.Video)) *models.Video {
	t.Helper()
	v := NewVideo(ownerID, overrides...)
	require.NoError(t, db.Create(v).Error)
	return v
}

// CreateTag persists a tag with the given name.
func CreateTag(t *testing.T, db *gorm.DB, name string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string { return &s }
