package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat_platform/internal/directory/domain"
	"chat_platform/internal/directory/repository"
	errprocess "chat_platform/pkg/err"
	"chat_platform/pkg/identity"
	"chat_platform/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	msgUserNotFound      = "User not found"
	msgUsernameTaken     = "Username is already taken"
	msgUsernameExhausted = "Unable to generate a unique username"
	msgNotAuthenticated  = "Not authenticated"
)

// create 遇到 unique violation 時的重試次數
const createRetries = 3

// URLResolver turns a storage reference into a durable url
type URLResolver interface {
	GetURL(ctx context.Context, storageID string) (string, error)
}

// DirectoryUseCase user directory application service
type DirectoryUseCase interface {
	// lifecycle, driven by the identity bridge
	CreateUser(ctx context.Context, in domain.NewUser) (*domain.User, bool, error)
	UpdateUserImage(ctx context.Context, tokenIdentifier, image string) error
	SetOnline(ctx context.Context, tokenIdentifier string, online bool) error

	// caller facing
	UpdateProfile(ctx context.Context, callerIdentity string, in domain.ProfileInput) (*domain.User, error)
	CheckUsernameAvailability(ctx context.Context, username string) (bool, error)
	GetMe(ctx context.Context, callerIdentity string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetOnlineUsers(ctx context.Context) ([]domain.User, error)
	GetUsers(ctx context.Context, callerIdentity string) ([]domain.User, error)
	GetAllGenders(ctx context.Context) ([]string, error)

	// used by the chat modules
	ResolveCaller(ctx context.Context, callerIdentity string) (*domain.User, error)
	UsersByIDs(ctx context.Context, ids []string) (map[string]domain.User, error)
}

type directoryUseCase struct {
	userRepo   repository.UserRepository
	tagRepo    repository.TagRepository
	genderRepo repository.GenderRepository
	urls       URLResolver
	validate   *validator.Validate
	maxSuffix  int
	now        func() time.Time
}

// NewDirectoryUseCase maxSuffix <= 0 uses domain.DefaultMaxUsernameSuffix
func NewDirectoryUseCase(userRepo repository.UserRepository,
	tagRepo repository.TagRepository,
	genderRepo repository.GenderRepository,
	urls URLResolver,
	maxSuffix int,
) DirectoryUseCase {
	if maxSuffix <= 0 {
		maxSuffix = domain.DefaultMaxUsernameSuffix
	}
	return &directoryUseCase{
		userRepo:   userRepo,
		tagRepo:    tagRepo,
		genderRepo: genderRepo,
		urls:       urls,
		validate:   validator.New(),
		maxSuffix:  maxSuffix,
		now:        time.Now,
	}
}

// CreateUser idempotent on token identity, the bool reports whether a row was inserted
func (d *directoryUseCase) CreateUser(ctx context.Context, in domain.NewUser) (*domain.User, bool, error) {
	tokenID := identity.Normalize(in.TokenIdentifier)
	if tokenID == "" {
		return nil, false, errprocess.New(errprocess.Validation, "token identifier is required")
	}

	for attempt := 1; attempt <= createRetries; attempt++ {
		existing, err := d.userRepo.FindByToken(ctx, tokenID)
		if err != nil {
			return nil, false, fmt.Errorf("find by token: %w", err)
		}
		if existing != nil {
			logger.Log.Info("user already exists", zap.String("token_identifier", tokenID))
			return existing, false, nil
		}

		base := domain.BaseUsername(in.Email)
		username, err := d.uniqueUsername(ctx, base)
		if err != nil {
			return nil, false, err
		}

		name := in.Name
		if name == "" {
			name = base
		}
		user := &domain.User{
			ID:              uuid.New().String(),
			TokenIdentifier: tokenID,
			Name:            name,
			Email:           in.Email,
			Image:           in.Image,
			IsOnline:        true,
			Username:        username,
			Tags:            []string{},
			Gender:          domain.DefaultGender,
			PreferredGender: domain.DefaultPreferredGender,
			CreatedAt:       d.now().UnixMilli(),
		}

		err = d.userRepo.Create(ctx, user)
		if err == nil {
			logger.Log.Info("user created", zap.String("user_id", user.ID), zap.String("username", username))
			return user, true, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, false, fmt.Errorf("create user: %w", err)
		}
		// 同時有人建立同一個 token 或搶走同一個 username，重新來過
		logger.Log.Warn("create user raced", zap.Int("attempt", attempt), zap.Error(err))
	}
	return nil, false, errprocess.New(errprocess.Exhausted, msgUsernameExhausted)
}

// uniqueUsername base first, then "user"+base+n for n = 1..maxSuffix
func (d *directoryUseCase) uniqueUsername(ctx context.Context, base string) (string, error) {
	username := base
	for suffix := 1; ; suffix++ {
		taken, err := d.userRepo.UsernameExists(ctx, username)
		if err != nil {
			return "", fmt.Errorf("username exists: %w", err)
		}
		if !taken {
			return username, nil
		}
		if suffix > d.maxSuffix {
			return "", errprocess.New(errprocess.Exhausted, msgUsernameExhausted)
		}
		username = domain.CandidateUsername(base, suffix)
	}
}

func (d *directoryUseCase) UpdateUserImage(ctx context.Context, tokenIdentifier, image string) error {
	err := d.userRepo.UpdateImage(ctx, identity.Normalize(tokenIdentifier), image)
	if errors.Is(err, repository.ErrUserNotFound) {
		return errprocess.New(errprocess.NotFound, msgUserNotFound)
	}
	return err
}

func (d *directoryUseCase) SetOnline(ctx context.Context, tokenIdentifier string, online bool) error {
	err := d.userRepo.SetOnline(ctx, identity.Normalize(tokenIdentifier), online)
	if errors.Is(err, repository.ErrUserNotFound) {
		return errprocess.New(errprocess.NotFound, msgUserNotFound)
	}
	return err
}

// UpdateProfile validate, register genders, patch the row, then reconcile the tag index
func (d *directoryUseCase) UpdateProfile(ctx context.Context, callerIdentity string, in domain.ProfileInput) (*domain.User, error) {
	caller, err := d.ResolveCaller(ctx, callerIdentity)
	if err != nil {
		return nil, err
	}

	p := in.Normalize()
	if err := d.validate.Struct(p); err != nil {
		return nil, errprocess.New(errprocess.Validation, validationMessage(err))
	}

	owner, err := d.userRepo.FindByUsername(ctx, p.Username)
	if err != nil {
		return nil, fmt.Errorf("find by username: %w", err)
	}
	if owner != nil && owner.ID != caller.ID {
		return nil, errprocess.New(errprocess.Validation, msgUsernameTaken)
	}

	for _, g := range []string{p.Gender, p.PreferredGender} {
		if domain.IsStandardGender(g) {
			continue
		}
		if err := d.genderRepo.Ensure(ctx, g); err != nil {
			return nil, fmt.Errorf("register gender %s: %w", g, err)
		}
	}

	switch err := d.userRepo.UpdateProfile(ctx, caller.ID, p); {
	case errors.Is(err, repository.ErrDuplicate):
		return nil, errprocess.New(errprocess.Validation, msgUsernameTaken)
	case errors.Is(err, repository.ErrUserNotFound):
		return nil, errprocess.New(errprocess.NotFound, msgUserNotFound)
	case err != nil:
		return nil, fmt.Errorf("update profile: %w", err)
	}

	added, removed := domain.DiffTags(caller.Tags, p.Tags)
	if err := d.reconcileTags(ctx, caller.ID, added, removed); err != nil {
		// 索引失敗時還原 user row, users.tags 與 tag index 保持一致
		if rbErr := d.userRepo.UpdateProfile(ctx, caller.ID, previousProfile(caller)); rbErr != nil {
			logger.Log.Error("restore profile failed", zap.String("user_id", caller.ID), zap.Error(rbErr))
		}
		return nil, err
	}

	logger.Log.Info("profile updated", zap.String("user_id", caller.ID),
		zap.Strings("tags_added", added), zap.Strings("tags_removed", removed))
	return d.GetUserByID(ctx, caller.ID)
}

// reconcileTags apply the diff, a failure undoes the steps already applied
func (d *directoryUseCase) reconcileTags(ctx context.Context, userID string, added, removed []string) error {
	var undo []func() error
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			if err := undo[i](); err != nil {
				logger.Log.Error("undo tag change failed", zap.String("user_id", userID), zap.Error(err))
			}
		}
	}

	for _, t := range added {
		t := t
		if err := d.tagRepo.AddUser(ctx, t, userID); err != nil {
			rollback()
			return fmt.Errorf("add tag %s: %w", t, err)
		}
		undo = append(undo, func() error { return d.tagRepo.RemoveUser(ctx, t, userID) })
	}
	for _, t := range removed {
		t := t
		if err := d.tagRepo.RemoveUser(ctx, t, userID); err != nil {
			rollback()
			return fmt.Errorf("remove tag %s: %w", t, err)
		}
		undo = append(undo, func() error { return d.tagRepo.AddUser(ctx, t, userID) })
	}
	return nil
}

func previousProfile(u *domain.User) domain.ProfileInput {
	return domain.ProfileInput{
		Name:            u.Name,
		Username:        u.Username,
		InstagramHandle: u.InstagramHandle,
		TiktokHandle:    u.TiktokHandle,
		YoutubeHandle:   u.YoutubeHandle,
		Tags:            u.Tags,
		Gender:          u.Gender,
		PreferredGender: u.PreferredGender,
		ImageStorageID:  u.ImageStorageID,
	}
}

func (d *directoryUseCase) CheckUsernameAvailability(ctx context.Context, username string) (bool, error) {
	taken, err := d.userRepo.UsernameExists(ctx, domain.ProfileInput{Username: username}.Normalize().Username)
	if err != nil {
		return false, fmt.Errorf("username exists: %w", err)
	}
	return !taken, nil
}

func (d *directoryUseCase) GetMe(ctx context.Context, callerIdentity string) (*domain.User, error) {
	return d.ResolveCaller(ctx, callerIdentity)
}

func (d *directoryUseCase) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := d.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find by id: %w", err)
	}
	if u == nil {
		return nil, errprocess.New(errprocess.NotFound, msgUserNotFound)
	}
	d.resolveAvatar(ctx, u)
	return u, nil
}

// GetUserByUsername nil when no user owns username
func (d *directoryUseCase) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := d.userRepo.FindByUsername(ctx, domain.ProfileInput{Username: username}.Normalize().Username)
	if err != nil || u == nil {
		return nil, err
	}
	d.resolveAvatar(ctx, u)
	return u, nil
}

func (d *directoryUseCase) GetOnlineUsers(ctx context.Context) ([]domain.User, error) {
	users, err := d.userRepo.FindOnline(ctx)
	if err != nil {
		return nil, fmt.Errorf("find online: %w", err)
	}
	d.resolveAvatars(ctx, users)
	return users, nil
}

func (d *directoryUseCase) GetUsers(ctx context.Context, callerIdentity string) ([]domain.User, error) {
	caller, err := d.ResolveCaller(ctx, callerIdentity)
	if err != nil {
		return nil, err
	}
	users, err := d.userRepo.FindAllExcept(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	d.resolveAvatars(ctx, users)
	return users, nil
}

func (d *directoryUseCase) GetAllGenders(ctx context.Context) ([]string, error) {
	return d.genderRepo.FindAll(ctx)
}

// ResolveCaller directory user behind an authenticated identity
func (d *directoryUseCase) ResolveCaller(ctx context.Context, callerIdentity string) (*domain.User, error) {
	tokenID := identity.Normalize(callerIdentity)
	if tokenID == "" {
		return nil, errprocess.New(errprocess.Unauthenticated, msgNotAuthenticated)
	}
	u, err := d.userRepo.FindByToken(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("find by token: %w", err)
	}
	if u == nil {
		return nil, errprocess.New(errprocess.NotFound, msgUserNotFound)
	}
	d.resolveAvatar(ctx, u)
	return u, nil
}

// UsersByIDs avatar-resolved users keyed by id, unknown ids are absent from the map
func (d *directoryUseCase) UsersByIDs(ctx context.Context, ids []string) (map[string]domain.User, error) {
	users, err := d.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find by ids: %w", err)
	}
	d.resolveAvatars(ctx, users)
	out := make(map[string]domain.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (d *directoryUseCase) resolveAvatars(ctx context.Context, users []domain.User) {
	for i := range users {
		d.resolveAvatar(ctx, &users[i])
	}
}

// resolveAvatar storage url when set, otherwise image, otherwise the placeholder
func (d *directoryUseCase) resolveAvatar(ctx context.Context, u *domain.User) {
	u.Image = ResolveAvatar(ctx, d.urls, *u)
}

// ResolveAvatar avatar url of u
func ResolveAvatar(ctx context.Context, urls URLResolver, u domain.User) string {
	if u.ImageStorageID != nil && *u.ImageStorageID != "" && urls != nil {
		resolved, err := urls.GetURL(ctx, *u.ImageStorageID)
		if err != nil {
			logger.Log.Warn("avatar resolve", zap.String("user_id", u.ID), zap.Error(err))
		}
		if resolved != "" {
			return resolved
		}
	}
	if u.Image != "" {
		return u.Image
	}
	return domain.PlaceholderImage
}
