package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"atomvideo/internal/auth"
	"atomvideo/internal/mail"
	"atomvideo/internal/models"
	"atomvideo/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	findForOAuthFn  func(context.Context, string, string, string) ([]models.User, error)
	createFn        func(context.Context, *models.User) error
	linkProviderFn  func(context.Context, uint, string, string, string) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetAccount(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) FindForOAuth(ctx context.Context, provider, providerID, email string) ([]models.User, error) {
	return s.findForOAuthFn(ctx, provider, providerID, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(context.Context, *models.User) error { return nil }
func (s *userRepoStub) LinkProvider(ctx context.Context, id uint, provider, providerID, avatar string) error {
	return s.linkProviderFn(ctx, id, provider, providerID, avatar)
}
func (s *userRepoStub) MarkVerified(context.Context, uint) error              { return nil }
func (s *userRepoStub) UpdatePassword(context.Context, uint, string) error    { return nil }
func (s *userRepoStub) UpdateRole(context.Context, uint, models.Role) error   { return nil }
func (s *userRepoStub) Delete(context.Context, uint) error                    { return nil }
func (s *userRepoStub) List(context.Context, int, int) ([]models.User, error) { return nil, nil }
func (s *userRepoStub) ListByRole(context.Context, models.Role) ([]models.User, error) {
	return nil, nil
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:       func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByEmailFn:    func(context.Context, string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(context.Context, string) (*models.User, error) { return nil, nil },
		findForOAuthFn:  func(context.Context, string, string, string) ([]models.User, error) { return nil, nil },
		createFn:        func(context.Context, *models.User) error { return nil },
		linkProviderFn:  func(context.Context, uint, string, string, string) error { return nil },
	}
}

func newTestAuthService(users *userRepoStub) *AuthService {
	svc := NewAuthService(users, auth.NewTokenManager("test-secret-test-secret-test-secret", time.Hour), auth.NewRevocations(nil), nil, "http://localhost:5173")
	svc.bcryptCost = bcrypt.MinCost
	return svc
}

func TestResolveOAuthUser_ExistingProviderIDIsIdempotent(t *testing.T) {
	t.Parallel()

	googleID := "g-123"
	existing := models.User{ID: 7, Email: "ana@example.com", Username: "ana", GoogleID: &googleID}

	repo := noopUserRepo()
	repo.findForOAuthFn = func(_ context.Context, provider, providerID, email string) ([]models.User, error) {
		assert.Equal(t, "google", provider)
		assert.Equal(t, "g-123", providerID)
		assert.Equal(t, "ana@example.com", email)
		return []models.User{existing}, nil
	}
	repo.createFn = func(context.Context, *models.User) error {
		t.Fatal("no user may be created for a known provider id")
		return nil
	}
	repo.linkProviderFn = func(context.Context, uint, string, string, string) error {
		t.Fatal("a linked account must not be mutated")
		return nil
	}

	svc := newTestAuthService(repo)
	profile := &auth.Profile{Provider: "google", ID: "g-123", Email: "Ana@Example.com"}

	for i := 0; i < 3; i++ {
		user, created, err := svc.ResolveOAuthUser(context.Background(), profile)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, uint(7), user.ID)
	}
}

func TestResolveOAuthUser_CreatesVerifiedUser(t *testing.T) {
	t.Parallel()

	var createdUsers []*models.User
	repo := noopUserRepo()
	repo.getByUsernameFn = func(_ context.Context, name string) (*models.User, error) {
		if name == "octocat" {
			return &models.User{ID: 1, Username: "octocat"}, nil
		}
		return nil, nil
	}
	repo.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 42
		createdUsers = append(createdUsers, u)
		return nil
	}

	svc := newTestAuthService(repo)
	user, created, err := svc.ResolveOAuthUser(context.Background(), &auth.Profile{
		Provider:  "github",
		ID:        "gh-9",
		Email:     "octo@example.com",
		Login:     "octocat",
		AvatarURL: "https://avatars.example/9",
	})
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, createdUsers, 1)

	assert.True(t, user.IsVerified)
	assert.Equal(t, "octocat1", user.Username)
	assert.Equal(t, "octo@example.com", user.Email)
	assert.Equal(t, "https://avatars.example/9", user.Avatar)
	assert.Equal(t, models.RoleUser, user.Role)
	require.NotNil(t, user.GitHubID)
	assert.Equal(t, "gh-9", *user.GitHubID)
	assert.Nil(t, user.GoogleID)
}

func TestResolveOAuthUser_LinksEmailMatch(t *testing.T) {
	t.Parallel()

	var linked []string
	repo := noopUserRepo()
	repo.findForOAuthFn = func(context.Context, string, string, string) ([]models.User, error) {
		return []models.User{{ID: 3, Email: "bo@example.com", Username: "bo"}}, nil
	}
	repo.linkProviderFn = func(_ context.Context, id uint, provider, providerID, avatar string) error {
		assert.Equal(t, uint(3), id)
		linked = append(linked, provider+":"+providerID+":"+avatar)
		return nil
	}
	repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		gid := "g-1"
		return &models.User{ID: id, Email: "bo@example.com", GoogleID: &gid, IsVerified: true}, nil
	}

	svc := newTestAuthService(repo)
	user, created, err := svc.ResolveOAuthUser(context.Background(), &auth.Profile{
		Provider: "google", ID: "g-1", Email: "bo@example.com", AvatarURL: "pic",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, []string{"google:g-1:pic"}, linked)
	assert.True(t, user.IsVerified)
}

func TestResolveOAuthUser_ProviderMatchBeatsEmailMatch(t *testing.T) {
	t.Parallel()

	gid := "g-2"
	repo := noopUserRepo()
	repo.findForOAuthFn = func(context.Context, string, string, string) ([]models.User, error) {
		return []models.User{
			{ID: 1, Email: "shared@example.com"},
			{ID: 2, Email: "other@example.com", GoogleID: &gid},
		}, nil
	}
	repo.linkProviderFn = func(context.Context, uint, string, string, string) error {
		t.Fatal("unexpected link")
		return nil
	}

	user, _, err := newTestAuthService(repo).ResolveOAuthUser(context.Background(), &auth.Profile{
		Provider: "google", ID: "g-2", Email: "shared@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(2), user.ID)
}

func TestResolveOAuthUser_Rejections(t *testing.T) {
	t.Parallel()

	t.Run("email owned by another identity", func(t *testing.T) {
		t.Parallel()
		other := "g-other"
		repo := noopUserRepo()
		repo.findForOAuthFn = func(context.Context, string, string, string) ([]models.User, error) {
			return []models.User{{ID: 1, Email: "ana@example.com", GoogleID: &other}}, nil
		}
		_, _, err := newTestAuthService(repo).ResolveOAuthUser(context.Background(), &auth.Profile{
			Provider: "google", ID: "g-new", Email: "ana@example.com",
		})
		assert.ErrorIs(t, err, auth.ErrAccountConflict)
	})

	t.Run("unknown profile without email", func(t *testing.T) {
		t.Parallel()
		_, _, err := newTestAuthService(noopUserRepo()).ResolveOAuthUser(context.Background(), &auth.Profile{
			Provider: "github", ID: "gh-1",
		})
		assert.ErrorIs(t, err, auth.ErrMissingEmail)
	})

	t.Run("missing provider id", func(t *testing.T) {
		t.Parallel()
		_, _, err := newTestAuthService(noopUserRepo()).ResolveOAuthUser(context.Background(), &auth.Profile{Provider: "github"})
		assert.Error(t, err)
	})
}

func TestResolveOAuthUser_AgainstDatabase(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.users, auth.NewTokenManager("s", time.Hour), auth.NewRevocations(nil), nil, "")
	ctx := context.Background()
	profile := &auth.Profile{Provider: "github", ID: "555", Email: "new@example.com", Name: "New Person"}

	first, created, err := svc.ResolveOAuthUser(ctx, profile)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "new_person", first.Username)

	again, created, err := svc.ResolveOAuthUser(ctx, profile)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	var count int64
	require.NoError(t, f.db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestResolveOAuthUser_AfterAccountDeletion(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.users, auth.NewTokenManager("s", time.Hour), auth.NewRevocations(nil), nil, "")
	ctx := context.Background()
	profile := &auth.Profile{Provider: "google", ID: "g-1", Email: "back@example.com", Name: "Back Again"}

	first, created, err := svc.ResolveOAuthUser(ctx, profile)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, f.users.Delete(ctx, first.ID))

	again, created, err := svc.ResolveOAuthUser(ctx, profile)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, again.ID)
	assert.True(t, again.IsVerified)
	require.NotNil(t, again.GoogleID)
	assert.Equal(t, "g-1", *again.GoogleID)
}

func TestAuthService_SignupAndLogin(t *testing.T) {
	f := newFixture(t)
	emails := new(mockDispatcher)
	emails.On("Dispatch", mock.Anything, mock.MatchedBy(func(m *mail.Message) bool {
		return m.Kind == mail.KindVerification && m.To == "ana@example.com" &&
			strings.Contains(m.HTML, "http://localhost:5173/auth/verify?token=")
	})).Return(nil).Once()

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	svc := NewAuthService(f.users, tokens, auth.NewRevocations(nil), emails, "http://localhost:5173/")
	svc.bcryptCost = bcrypt.MinCost
	ctx := context.Background()

	res, err := svc.Signup(ctx, SignupInput{Username: "ana", Email: " Ana@Example.com ", Password: "Secret123"})
	require.NoError(t, err)
	emails.AssertExpectations(t)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "ana@example.com", res.User.Email)
	assert.False(t, res.User.IsVerified)
	assert.NotEqual(t, "Secret123", res.User.Password)

	claims, err := tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	_, err = svc.Signup(ctx, SignupInput{Username: "ana2", Email: "ana@example.com", Password: "Secret123"})
	assertCode(t, err, models.CodeConflict)
	_, err = svc.Signup(ctx, SignupInput{Username: "ana", Email: "ana2@example.com", Password: "Secret123"})
	assertCode(t, err, models.CodeConflict)

	logged, err := svc.Login(ctx, LoginInput{Email: "ANA@example.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, logged.User.ID)

	_, err = svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "wrong"})
	assertUnauthorizedError(t, err)
	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "Secret123"})
	assertUnauthorizedError(t, err)
}

func TestAuthService_SignupValidation(t *testing.T) {
	t.Parallel()
	svc := newTestAuthService(noopUserRepo())

	tests := []struct {
		name string
		in   SignupInput
	}{
		{"bad email", SignupInput{Username: "ana", Email: "nope", Password: "Secret123"}},
		{"short username", SignupInput{Username: "a", Email: "a@b.co", Password: "Secret123"}},
		{"weak password", SignupInput{Username: "ana", Email: "a@b.co", Password: "secret"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Signup(context.Background(), tt.in)
			assertValidationError(t, err)
		})
	}
}

func TestAuthService_LoginRejectsOAuthOnlyAccount(t *testing.T) {
	f := newFixture(t)
	u := testutil.CreateUser(t, f.db, func(u *models.User) { u.Password = "" })

	_, err := NewAuthService(f.users, auth.NewTokenManager("s", time.Hour), nil, nil, "").
		Login(context.Background(), LoginInput{Email: u.Email, Password: "anything1A"})
	assertUnauthorizedError(t, err)
}

func TestAuthService_VerifyAndResetFlows(t *testing.T) {
	f := newFixture(t)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	emails := new(mockDispatcher)
	var reset *mail.Message
	emails.On("Dispatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		if m := args.Get(1).(*mail.Message); m.Kind == mail.KindPasswordReset {
			reset = m
		}
	}).Return(nil)

	svc := NewAuthService(f.users, tokens, nil, emails, "https://atom.example")
	svc.bcryptCost = bcrypt.MinCost
	ctx := context.Background()
	u := testutil.CreateUser(t, f.db)

	verify, err := tokens.IssuePurpose(u.ID, auth.PurposeVerifyEmail, time.Hour)
	require.NoError(t, err)
	require.NoError(t, svc.VerifyEmail(ctx, verify))
	stored, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)

	assertValidationError(t, svc.ResendVerification(ctx, u.ID))
	assertValidationError(t, svc.VerifyEmail(ctx, "garbage"))

	require.NoError(t, svc.ForgotPassword(ctx, "unknown@example.com"))
	assert.Nil(t, reset)

	require.NoError(t, svc.ForgotPassword(ctx, u.Email))
	require.NotNil(t, reset)
	assert.Equal(t, u.Email, reset.To)

	resetToken, err := tokens.IssuePurpose(u.ID, auth.PurposeResetPassword, time.Hour)
	require.NoError(t, err)
	assertValidationError(t, svc.ResetPassword(ctx, resetToken, "weak"))
	assertValidationError(t, svc.ResetPassword(ctx, verify, "NewSecret1"))
	require.NoError(t, svc.ResetPassword(ctx, resetToken, "NewSecret1"))

	_, err = svc.Login(ctx, LoginInput{Email: u.Email, Password: "NewSecret1"})
	require.NoError(t, err)
}

func TestAuthService_Logout(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	revocations := auth.NewRevocations(rdb)
	svc := NewAuthService(noopUserRepo(), tokens, revocations, nil, "")

	_, claims, err := tokens.Issue(&models.User{ID: 1, Username: "ana", Role: models.RoleUser})
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background(), claims))

	revoked, err := revocations.IsRevoked(context.Background(), claims.JTI)
	require.NoError(t, err)
	assert.True(t, revoked)

	assertUnauthorizedError(t, svc.Logout(context.Background(), nil))
}
