package app

import (
	"context"
	"testing"

	"chat_platform/internal/directory/domain"
	"chat_platform/internal/directory/repository"
	"chat_platform/pkg/logger"
	"chat_platform/pkg/proto/lifecycle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLifecycleGRPCServer(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()

	t.Run("create reports created flag", func(t *testing.T) {
		f := newFixture(0)
		f.users.On("FindByToken", ctx, "user_1").Return(&domain.User{ID: "u-1", Username: "bob"}, nil).Once()
		srv := &LifecycleGRPCServer{Usecase: f.uc}

		out, err := srv.CreateUser(ctx, lifecycle.CreateUserRequest{TokenIdentifier: "user_1", Email: "bob@x.com"}.ToStruct())

		require.NoError(t, err)
		res := lifecycle.CreateUserResponseFromStruct(out)
		assert.Equal(t, "u-1", res.UserID)
		assert.False(t, res.Created)
	})

	t.Run("exhausted maps to resource exhausted", func(t *testing.T) {
		f := newFixture(1)
		f.users.On("FindByToken", ctx, "user_2").Return(nil, nil).Once()
		f.users.On("UsernameExists", ctx, mock.Anything).Return(true, nil)
		srv := &LifecycleGRPCServer{Usecase: f.uc}

		_, err := srv.CreateUser(ctx, lifecycle.CreateUserRequest{TokenIdentifier: "user_2", Email: "bob@x.com"}.ToStruct())
		assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	})

	t.Run("image of unknown user", func(t *testing.T) {
		f := newFixture(0)
		f.users.On("UpdateImage", ctx, "ghost", "http://img").Return(repository.ErrUserNotFound).Once()
		srv := &LifecycleGRPCServer{Usecase: f.uc}

		_, err := srv.UpdateUserImage(ctx, lifecycle.ImageRequest("ghost", "http://img"))
		st, _ := status.FromError(err)
		assert.Equal(t, codes.NotFound, st.Code())
		assert.Equal(t, "User not found", st.Message())
	})

	t.Run("presence toggles", func(t *testing.T) {
		f := newFixture(0)
		f.users.On("SetOnline", ctx, "user_1", true).Return(nil).Once()
		f.users.On("SetOnline", ctx, "user_1", false).Return(nil).Once()
		srv := &LifecycleGRPCServer{Usecase: f.uc}

		_, err := srv.SetUserOnline(ctx, lifecycle.SubjectRequest("user_1"))
		require.NoError(t, err)
		_, err = srv.SetUserOffline(ctx, lifecycle.SubjectRequest("user_1"))
		require.NoError(t, err)
		f.users.AssertExpectations(t)
	})
}
