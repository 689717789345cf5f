package app

import (
	"context"

	"chat_platform/internal/directory/domain"
	errprocess "chat_platform/pkg/err"
	"chat_platform/pkg/logger"
	"chat_platform/pkg/proto/lifecycle"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// LifecycleGRPCServer 用來實作 lifecycle.UserLifecycleServer
type LifecycleGRPCServer struct {
	Usecase DirectoryUseCase
}

var _ lifecycle.UserLifecycleServer = (*LifecycleGRPCServer)(nil)

// CreateUser 實作 CreateUser
func (s *LifecycleGRPCServer) CreateUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := lifecycle.CreateUserRequestFromStruct(in)
	logger.Log.Debug("CreateUser Req", zap.String("token_identifier", req.TokenIdentifier), zap.String("email", req.Email))

	user, created, err := s.Usecase.CreateUser(ctx, domain.NewUser{
		TokenIdentifier: req.TokenIdentifier,
		Email:           req.Email,
		Name:            req.Name,
		Image:           req.Image,
	})
	if err != nil {
		logger.Log.Error("CreateUser Err", zap.String("token_identifier", req.TokenIdentifier), zap.Error(err))
		return nil, errprocess.GRPCStatus(err)
	}
	return lifecycle.CreateUserResponse{UserID: user.ID, Username: user.Username, Created: created}.ToStruct(), nil
}

// UpdateUserImage 實作 UpdateUserImage
func (s *LifecycleGRPCServer) UpdateUserImage(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	tokenID := lifecycle.String(in, lifecycle.FieldTokenIdentifier)
	if err := s.Usecase.UpdateUserImage(ctx, tokenID, lifecycle.String(in, lifecycle.FieldImage)); err != nil {
		logger.Log.Error("UpdateUserImage Err", zap.String("token_identifier", tokenID), zap.Error(err))
		return nil, errprocess.GRPCStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// SetUserOnline 實作 SetUserOnline
func (s *LifecycleGRPCServer) SetUserOnline(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	return s.setOnline(ctx, in, true)
}

// SetUserOffline 實作 SetUserOffline
func (s *LifecycleGRPCServer) SetUserOffline(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	return s.setOnline(ctx, in, false)
}

func (s *LifecycleGRPCServer) setOnline(ctx context.Context, in *structpb.Struct, online bool) (*emptypb.Empty, error) {
	tokenID := lifecycle.String(in, lifecycle.FieldTokenIdentifier)
	if err := s.Usecase.SetOnline(ctx, tokenID, online); err != nil {
		logger.Log.Error("SetOnline Err", zap.String("token_identifier", tokenID), zap.Bool("online", online), zap.Error(err))
		return nil, errprocess.GRPCStatus(err)
	}
	return &emptypb.Empty{}, nil
}
