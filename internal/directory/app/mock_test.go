package app

import (
	"context"

	"chat_platform/internal/directory/domain"

	"github.com/stretchr/testify/mock"
)

// MockUserRepo Mock UserRepository
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepo) userOrNil(args mock.Arguments) (*domain.User, error) {
	if args.Get(0) != nil {
		return args.Get(0).(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepo) users(args mock.Arguments) ([]domain.User, error) {
	if args.Get(0) != nil {
		return args.Get(0).([]domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return m.userOrNil(m.Called(ctx, id))
}

func (m *MockUserRepo) FindByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	return m.users(m.Called(ctx, ids))
}

func (m *MockUserRepo) FindByToken(ctx context.Context, tokenIdentifier string) (*domain.User, error) {
	return m.userOrNil(m.Called(ctx, tokenIdentifier))
}

func (m *MockUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return m.userOrNil(m.Called(ctx, username))
}

func (m *MockUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepo) FindOnline(ctx context.Context) ([]domain.User, error) {
	return m.users(m.Called(ctx))
}

func (m *MockUserRepo) FindAllExcept(ctx context.Context, id string) ([]domain.User, error) {
	return m.users(m.Called(ctx, id))
}

func (m *MockUserRepo) UpdateProfile(ctx context.Context, id string, p domain.ProfileInput) error {
	return m.Called(ctx, id, p).Error(0)
}

func (m *MockUserRepo) UpdateImage(ctx context.Context, tokenIdentifier, image string) error {
	return m.Called(ctx, tokenIdentifier, image).Error(0)
}

func (m *MockUserRepo) SetOnline(ctx context.Context, tokenIdentifier string, online bool) error {
	return m.Called(ctx, tokenIdentifier, online).Error(0)
}

func (m *MockUserRepo) SearchByName(ctx context.Context, term string, limit int) ([]domain.User, error) {
	return m.users(m.Called(ctx, term, limit))
}

func (m *MockUserRepo) SearchByUsername(ctx context.Context, term string, limit int) ([]domain.User, error) {
	return m.users(m.Called(ctx, term, limit))
}

// MockTagRepo Mock TagRepository
type MockTagRepo struct {
	mock.Mock
}

func (m *MockTagRepo) AutoMigrate() error {
	return m.Called().Error(0)
}

func (m *MockTagRepo) AddUser(ctx context.Context, tag, userID string) error {
	return m.Called(ctx, tag, userID).Error(0)
}

func (m *MockTagRepo) RemoveUser(ctx context.Context, tag, userID string) error {
	return m.Called(ctx, tag, userID).Error(0)
}

func (m *MockTagRepo) FindByName(ctx context.Context, tag string) (*domain.Tag, error) {
	args := m.Called(ctx, tag)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Tag), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTagRepo) SearchByPrefix(ctx context.Context, term string, limit int) ([]domain.Tag, error) {
	args := m.Called(ctx, term, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Tag), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockGenderRepo Mock GenderRepository
type MockGenderRepo struct {
	mock.Mock
}

func (m *MockGenderRepo) AutoMigrate() error {
	return m.Called().Error(0)
}

func (m *MockGenderRepo) Ensure(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockGenderRepo) FindAll(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockURLResolver Mock URLResolver
type MockURLResolver struct {
	mock.Mock
}

func (m *MockURLResolver) GetURL(ctx context.Context, storageID string) (string, error) {
	args := m.Called(ctx, storageID)
	return args.String(0), args.Error(1)
}
