package app

import (
	"context"

	errprocess "chat_platform/pkg/err"
	"chat_platform/pkg/proto/lifecycle"
)

type grpcLifecycle struct {
	client lifecycle.UserLifecycleClient
}

// NewGRPCLifecycle Lifecycle over the chat_service UserLifecycle rpc
func NewGRPCLifecycle(client lifecycle.UserLifecycleClient) Lifecycle {
	return &grpcLifecycle{client: client}
}

func (g *grpcLifecycle) CreateUser(ctx context.Context, req lifecycle.CreateUserRequest) (lifecycle.CreateUserResponse, error) {
	out, err := g.client.CreateUser(ctx, req.ToStruct())
	if err != nil {
		return lifecycle.CreateUserResponse{}, errprocess.FromGRPC(err)
	}
	return lifecycle.CreateUserResponseFromStruct(out), nil
}

func (g *grpcLifecycle) UpdateUserImage(ctx context.Context, tokenIdentifier, image string) error {
	_, err := g.client.UpdateUserImage(ctx, lifecycle.ImageRequest(tokenIdentifier, image))
	return errprocess.FromGRPC(err)
}

func (g *grpcLifecycle) SetUserOnline(ctx context.Context, tokenIdentifier string) error {
	_, err := g.client.SetUserOnline(ctx, lifecycle.SubjectRequest(tokenIdentifier))
	return errprocess.FromGRPC(err)
}

func (g *grpcLifecycle) SetUserOffline(ctx context.Context, tokenIdentifier string) error {
	_, err := g.client.SetUserOffline(ctx, lifecycle.SubjectRequest(tokenIdentifier))
	return errprocess.FromGRPC(err)
}
