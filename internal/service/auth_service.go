package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"atomvideo/internal/auth"
	"atomvideo/internal/mail"
	"atomvideo/internal/middleware"
	"atomvideo/internal/models"
	"atomvideo/internal/observability"
	"atomvideo/internal/repository"
	"atomvideo/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

const (
	verifyTokenTTL = 24 * time.Hour
	resetTokenTTL  = time.Hour

	maxUsernameAttempts = 20
)

// AuthService owns signup, login, OAuth account resolution and the emailed token flows.
type AuthService struct {
	users       repository.UserRepository
	tokens      *auth.TokenManager
	revocations *auth.Revocations
	emails      EmailDispatcher
	frontendURL string
	bcryptCost  int
}

// AuthResult is a freshly minted session.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expires_in"`
	User      *models.User `json:"user"`
}

type SignupInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// NewAuthService wires the auth flows. emails may be nil, in which case
// verification and reset messages are skipped.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenManager,
	revocations *auth.Revocations,
	emails EmailDispatcher,
	frontendURL string,
) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		revocations: revocations,
		emails:      emails,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		bcryptCost:  bcrypt.DefaultCost,
	}
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	email := validation.NormalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Email already registered")
	}
	existing, err = s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:    email,
		Username: username,
		Password: string(hash),
		Role:     models.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.sendVerification(ctx, user)
	return s.session(user)
}

// Login checks email and password. OAuth-only accounts cannot log in this way.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, validation.NormalizeEmail(in.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if !user.HasPassword() {
		return nil, models.NewUnauthorizedError("This account signs in with Google or GitHub")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return s.session(user)
}

// OAuthLogin resolves a provider profile to a local user and mints a session.
func (s *AuthService) OAuthLogin(ctx context.Context, profile *auth.Profile) (result *AuthResult, err error) {
	provider := ""
	if profile != nil {
		provider = profile.Provider
	}
	ctx, span := observability.StartSpan(ctx, "auth", "oauth_login", attribute.String("oauth.provider", provider))
	defer func() { observability.EndSpan(span, err) }()

	user, created, err := s.ResolveOAuthUser(ctx, profile)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("oauth.created", created))
	return s.session(user)
}

// ResolveOAuthUser maps a provider profile onto exactly one user. A row already
// carrying the provider id wins; otherwise an email match is linked, and with no
// match a verified account is created. created reports the last case.
func (s *AuthService) ResolveOAuthUser(ctx context.Context, p *auth.Profile) (user *models.User, created bool, err error) {
	if p == nil || p.ID == "" {
		return nil, false, errors.New("oauth profile has no provider id")
	}
	email := ""
	if p.Email != "" {
		email = validation.NormalizeEmail(p.Email)
	}

	matches, err := s.users.FindForOAuth(ctx, p.Provider, p.ID, email)
	if err != nil {
		return nil, false, err
	}

	var byEmail *models.User
	for i := range matches {
		u := &matches[i]
		if id := providerID(u, p.Provider); id != nil && *id == p.ID {
			return u, false, nil
		}
		if byEmail == nil && email != "" && strings.EqualFold(u.Email, email) {
			byEmail = u
		}
	}

	if byEmail != nil {
		if providerID(byEmail, p.Provider) != nil {
			return nil, false, auth.ErrAccountConflict
		}
		if err := s.users.LinkProvider(ctx, byEmail.ID, p.Provider, p.ID, p.AvatarURL); err != nil {
			return nil, false, err
		}
		linked, err := s.users.GetAccount(ctx, byEmail.ID)
		return linked, false, err
	}

	if email == "" {
		return nil, false, auth.ErrMissingEmail
	}

	username, err := s.uniqueUsername(ctx, p, email)
	if err != nil {
		return nil, false, err
	}
	user = &models.User{
		Email:      email,
		Username:   username,
		Avatar:     p.AvatarURL,
		Role:       models.RoleUser,
		IsVerified: true,
	}
	setProviderID(user, p.Provider, p.ID)
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// VerifyEmail marks the account named by an emailed verification token as verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.tokens.ParsePurpose(token, auth.PurposeVerifyEmail)
	if err != nil {
		return models.NewValidationError("Invalid or expired verification link")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	return s.users.MarkVerified(ctx, userID)
}

func (s *AuthService) ResendVerification(ctx context.Context, userID uint) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return models.NewValidationError("Email is already verified")
	}
	if s.emails == nil {
		return models.NewUnavailableError("Email delivery is not configured")
	}
	return s.dispatchVerification(ctx, user)
}

// ForgotPassword emails a reset link when the address is known. It never
// reveals whether an account exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil || user == nil {
		return err
	}

	token, err := s.tokens.IssuePurpose(user.ID, auth.PurposeResetPassword, resetTokenTTL)
	if err != nil {
		return models.NewInternalError(err)
	}
	msg, err := mail.PasswordResetMessage(user.Email, user.Username, s.link("/auth/reset-password", token))
	if err != nil {
		return models.NewInternalError(err)
	}
	s.dispatch(ctx, msg)
	return nil
}

// ResetPassword sets a new password from an emailed reset token.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	userID, err := s.tokens.ParsePurpose(token, auth.PurposeResetPassword)
	if err != nil {
		return models.NewValidationError("Invalid or expired reset link")
	}
	if err := validation.ValidatePassword(password); err != nil {
		return models.NewValidationError(err.Error())
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.users.UpdatePassword(ctx, userID, string(hash))
}

// Logout revokes the session until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return models.NewUnauthorizedError("Not authenticated")
	}
	if err := s.revocations.Revoke(ctx, claims.JTI, claims.ExpiresAt); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *AuthService) session(user *models.User) (*AuthResult, error) {
	token, _, err := s.tokens.Issue(user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{
		Token:     token,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
		User:      user,
	}, nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *models.User) {
	if s.emails == nil {
		middleware.Logger.WarnContext(ctx, "email queue not configured, skipping verification email", "user_id", user.ID)
		return
	}
	if err := s.dispatchVerification(ctx, user); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to queue verification email", "user_id", user.ID, "error", err)
	}
}

func (s *AuthService) dispatchVerification(ctx context.Context, user *models.User) error {
	token, err := s.tokens.IssuePurpose(user.ID, auth.PurposeVerifyEmail, verifyTokenTTL)
	if err != nil {
		return models.NewInternalError(err)
	}
	msg, err := mail.VerificationMessage(user.Email, user.Username, s.link("/auth/verify", token))
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.emails.Dispatch(ctx, msg); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *AuthService) dispatch(ctx context.Context, msg *mail.Message) {
	if s.emails == nil {
		middleware.Logger.WarnContext(ctx, "email queue not configured, skipping email", "kind", msg.Kind)
		return
	}
	if err := s.emails.Dispatch(ctx, msg); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to queue email", "kind", msg.Kind, "error", err)
	}
}

func (s *AuthService) link(path, token string) string {
	return s.frontendURL + path + "?token=" + url.QueryEscape(token)
}

// uniqueUsername derives a free username from the profile's login, display
// name or email local part, appending a number on collision.
func (s *AuthService) uniqueUsername(ctx context.Context, p *auth.Profile, email string) (string, error) {
	base := ""
	local, _, _ := strings.Cut(email, "@")
	for _, candidate := range []string{p.Login, p.Name, local} {
		if base = validation.SanitizeUsername(candidate); base != "" {
			break
		}
	}
	if base == "" {
		base = "user"
	}

	name := base
	for i := 1; i <= maxUsernameAttempts; i++ {
		existing, err := s.users.GetByUsername(ctx, name)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return name, nil
		}
		name = fmt.Sprintf("%s%d", base, i)
	}
	return "", models.NewConflictError("Could not allocate a unique username")
}

func providerID(u *models.User, provider string) *string {
	switch provider {
	case auth.ProviderGoogle:
		return u.GoogleID
	case auth.ProviderGitHub:
		return u.GitHubID
	}
	return nil
}

func setProviderID(u *models.User, provider, id string) {
	switch provider {
	case auth.ProviderGoogle:
		u.GoogleID = &id
	case auth.ProviderGitHub:
		u.GitHubID = &id
	}
}
