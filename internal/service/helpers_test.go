package service

import (
	"context"
	"sync"
	"testing"

	"atomvideo/internal/mail"
	"atomvideo/internal/models"
	"atomvideo/internal/repository"
	"atomvideo/internal/testutil"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, models.IsCode(err, code), "expected %s, got %v", code, err)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeUnauthorized)
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeForbidden)
}

func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeNotFound)
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, msg *mail.Message) error {
	return m.Called(ctx, msg).Error(0)
}

// recordingEvents captures domain events instead of notifying anyone.
type recordingEvents struct {
	mu        sync.Mutex
	published []uint
	comments  []uint
	subs      []uint
}

func (e *recordingEvents) VideoPublished(_ context.Context, v *models.Video) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.published = append(e.published, v.ID)
}

func (e *recordingEvents) CommentAdded(_ context.Context, _ *models.Video, c *models.Comment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.comments = append(e.comments, c.ID)
}

func (e *recordingEvents) Subscribed(_ context.Context, s *models.Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, s.CreatorID)
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []*models.Notification
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, n *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return p.err
}

type staticFlags map[string]bool

func (f staticFlags) Enabled(name string, _ uint) bool { return f[name] }

// fixture bundles real repositories over an in-memory database.
type fixture struct {
	db       *gorm.DB
	users    repository.UserRepository
	videos   repository.VideoRepository
	tags     repository.TagRepository
	comments repository.CommentRepository
	subs     repository.SubscriptionRepository
	notifs   repository.NotificationRepository
	stats    repository.StatsRepository
	isAdmin  AdminCheck
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	users := repository.NewUserRepository(db)
	return &fixture{
		db:       db,
		users:    users,
		videos:   repository.NewVideoRepository(db),
		tags:     repository.NewTagRepository(db),
		comments: repository.NewCommentRepository(db),
		subs:     repository.NewSubscriptionRepository(db),
		notifs:   repository.NewNotificationRepository(db),
		stats:    repository.NewStatsRepository(db),
		isAdmin:  AdminCheckFromUsers(users),
	}
}

func (f *fixture) videoService(events Events) *VideoService {
	return NewVideoService(f.videos, f.tags, f.users, events, f.isAdmin)
}
