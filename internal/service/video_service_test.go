package service

import (
	"context"
	"testing"

	"atomvideo/internal/models"
	"atomvideo/internal/repository"
	"atomvideo/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoService_CreateVideo(t *testing.T) {
	f := newFixture(t)
	events := &recordingEvents{}
	svc := f.videoService(events)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db)

	v, err := svc.CreateVideo(ctx, CreateVideoInput{
		UserID:   owner.ID,
		Title:    "  Intro to Go ",
		URL:      "https://cdn.example/v.mp4",
		Duration: 90,
		Tags:     []string{"Go", "#golang", "go"},
	})
	require.NoError(t, err)
	assert.NotZero(t, v.ID)
	assert.Equal(t, "Intro to Go", v.Title)
	assert.Equal(t, models.VisibilityPublic, v.Visibility)
	require.Len(t, v.Tags, 2)
	assert.Equal(t, []uint{v.ID}, events.published)

	private, err := svc.CreateVideo(ctx, CreateVideoInput{
		UserID: owner.ID, Title: "draft", URL: "u", Duration: 1, Visibility: models.VisibilityPrivate,
	})
	require.NoError(t, err)
	assert.Len(t, events.published, 1, "private uploads are not announced")

	_, err = svc.GetVideo(ctx, 0, private.ID)
	assertNotFoundError(t, err)
	got, err := svc.GetVideo(ctx, owner.ID, private.ID)
	require.NoError(t, err)
	assert.Equal(t, private.ID, got.ID)
}

func TestVideoService_CreateVideo_Validation(t *testing.T) {
	f := newFixture(t)
	svc := f.videoService(nil)
	owner := testutil.CreateUser(t, f.db)

	valid := CreateVideoInput{UserID: owner.ID, Title: "t", URL: "u", Duration: 10}
	tests := []struct {
		name   string
		mutate func(*CreateVideoInput)
		code   string
	}{
		{"missing title", func(in *CreateVideoInput) { in.Title = " " }, models.CodeValidation},
		{"missing url", func(in *CreateVideoInput) { in.URL = "" }, models.CodeValidation},
		{"zero duration", func(in *CreateVideoInput) { in.Duration = 0 }, models.CodeValidation},
		{"bad visibility", func(in *CreateVideoInput) { in.Visibility = "friends" }, models.CodeValidation},
		{"bad tag", func(in *CreateVideoInput) { in.Tags = []string{"no spaces!"} }, models.CodeValidation},
		{"no owner", func(in *CreateVideoInput) { in.UserID = 0 }, models.CodeValidation},
		{"unknown owner", func(in *CreateVideoInput) { in.UserID = 9999 }, models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := svc.CreateVideo(context.Background(), in)
			assertCode(t, err, tt.code)
		})
	}
}

func TestVideoService_UpdateAndDeletePermissions(t *testing.T) {
	f := newFixture(t)
	events := &recordingEvents{}
	svc := f.videoService(events)
	ctx := context.Background()

	owner := testutil.CreateUser(t, f.db)
	stranger := testutil.CreateUser(t, f.db)
	admin := testutil.CreateUser(t, f.db, func(u *models.User) { u.Role = models.RoleAdmin })
	v := testutil.CreateVideo(t, f.db, owner.ID, func(v *models.Video) { v.Visibility = models.VisibilityUnlisted })

	title := "Renamed"
	_, err := svc.UpdateVideo(ctx, UpdateVideoInput{UserID: stranger.ID, VideoID: v.ID, Title: &title})
	assertForbiddenError(t, err)

	public := models.VisibilityPublic
	updated, err := svc.UpdateVideo(ctx, UpdateVideoInput{UserID: owner.ID, VideoID: v.ID, Title: &title, Visibility: &public})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, []uint{v.ID}, events.published, "becoming public announces the video")

	zero := 0
	_, err = svc.UpdateVideo(ctx, UpdateVideoInput{UserID: owner.ID, VideoID: v.ID, Duration: &zero})
	assertValidationError(t, err)

	assertForbiddenError(t, svc.DeleteVideo(ctx, stranger.ID, v.ID))
	require.NoError(t, svc.DeleteVideo(ctx, admin.ID, v.ID))
	assertNotFoundError(t, svc.DeleteVideo(ctx, admin.ID, v.ID))
}

func TestVideoService_LikesAreIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := f.videoService(nil)
	ctx := context.Background()

	owner := testutil.CreateUser(t, f.db)
	fan := testutil.CreateUser(t, f.db)
	v := testutil.CreateVideo(t, f.db, owner.ID)

	state, err := svc.Like(ctx, fan.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeState{Liked: true, Likes: 1}, *state)

	state, err = svc.Like(ctx, fan.ID, v.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, state.Likes)

	state, err = svc.Unlike(ctx, fan.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeState{Liked: false, Likes: 0}, *state)

	state, err = svc.Unlike(ctx, fan.ID, v.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, state.Likes)

	_, err = svc.Like(ctx, fan.ID, 9999)
	assertNotFoundError(t, err)
}

func TestVideoService_TagsViewsAndListing(t *testing.T) {
	f := newFixture(t)
	svc := f.videoService(nil)
	ctx := context.Background()

	owner := testutil.CreateUser(t, f.db)
	v := testutil.CreateVideo(t, f.db, owner.ID)

	tagged, err := svc.SetTags(ctx, owner.ID, v.ID, []string{"music", "Live Set"})
	require.NoError(t, err)
	require.Len(t, tagged.Tags, 2)

	require.NoError(t, svc.RecordView(ctx, v.ID))
	assertNotFoundError(t, svc.RecordView(ctx, 9999))

	list, err := svc.ListVideos(ctx, repository.VideoFilter{Tag: "LIVE-SET"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, list[0].Views)

	_, err = svc.ListVideos(ctx, repository.VideoFilter{Sort: "oldest"})
	assertValidationError(t, err)

	withThumb, err := svc.SetThumbnail(ctx, owner.ID, v.ID, "https://cdn.example/t.webp")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/t.webp", withThumb.ThumbnailURL)
}
