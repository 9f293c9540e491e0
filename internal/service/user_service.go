package service

import (
	"context"
	"strings"

	"atomvideo/internal/models"
	"atomvideo/internal/repository"
	"atomvideo/internal/validation"
)

const maxBioLen = 500

type UserService struct {
	userRepo  repository.UserRepository
	videoRepo repository.VideoRepository
	subRepo   repository.SubscriptionRepository
	isAdmin   AdminCheck
}

// UpdateProfileInput carries optional profile changes; nil fields are left as is.
type UpdateProfileInput struct {
	UserID   uint
	Username *string
	Bio      *string
	Avatar   *string
}

// UserProfile is a public user page.
type UserProfile struct {
	*models.User
	Subscribers int64 `json:"subscribers"`
}

func NewUserService(
	userRepo repository.UserRepository,
	videoRepo repository.VideoRepository,
	subRepo repository.SubscriptionRepository,
	isAdmin AdminCheck,
) *UserService {
	return &UserService{
		userRepo:  userRepo,
		videoRepo: videoRepo,
		subRepo:   subRepo,
		isAdmin:   isAdmin,
	}
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetAccount returns id's account with provider links and password state.
func (s *UserService) GetAccount(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetAccount(ctx, id)
}

func (s *UserService) GetProfile(ctx context.Context, id uint) (*UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.subRepo.CountByCreator(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UserProfile{User: user, Subscribers: count}, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if username != user.Username {
			taken, err := s.userRepo.GetByUsername(ctx, username)
			if err != nil {
				return nil, err
			}
			if taken != nil {
				return nil, models.NewConflictError("Username already taken")
			}
		}
		user.Username = username
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if len(bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = bio
	}
	if in.Avatar != nil {
		user.Avatar = strings.TrimSpace(*in.Avatar)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUserVideos lists ownerID's videos. Unlisted and private ones are included
// only for the owner and admins.
func (s *UserService) ListUserVideos(ctx context.Context, viewerID, ownerID uint, limit, offset int) ([]models.Video, error) {
	if _, err := s.userRepo.GetByID(ctx, ownerID); err != nil {
		return nil, err
	}
	includeHidden, err := s.isAdmin.allowed(ctx, viewerID, ownerID)
	if err != nil {
		return nil, err
	}
	return s.videoRepo.List(ctx, repository.VideoFilter{
		UserID:        ownerID,
		IncludeHidden: includeHidden,
		Limit:         limit,
		Offset:        offset,
	})
}

// DeleteUser removes an account. Users may delete themselves; admins anyone.
func (s *UserService) DeleteUser(ctx context.Context, actorID, targetID uint) error {
	ok, err := s.isAdmin.allowed(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewForbiddenError("You can only delete your own account")
	}
	return s.userRepo.Delete(ctx, targetID)
}

// SetRole changes a user's role. Admins cannot demote themselves.
func (s *UserService) SetRole(ctx context.Context, actorID, targetID uint, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, models.NewValidationError("role must be one of: user, admin")
	}
	if actorID == targetID && role != models.RoleAdmin {
		return nil, models.NewValidationError("Admins cannot demote themselves")
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateRole(ctx, targetID, role); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, targetID)
}

// ListByRole is used by the admin CLI.
func (s *UserService) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	if !role.Valid() {
		return nil, models.NewValidationError("role must be one of: user, admin")
	}
	return s.userRepo.ListByRole(ctx, role)
}
