package app

import (
	"context"

	"chat_platform/internal/identity/domain"
	"chat_platform/pkg/proto/lifecycle"

	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/mock"
)

type MockLifecycle struct {
	mock.Mock
}

func (m *MockLifecycle) CreateUser(ctx context.Context, req lifecycle.CreateUserRequest) (lifecycle.CreateUserResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(lifecycle.CreateUserResponse), args.Error(1)
}

func (m *MockLifecycle) UpdateUserImage(ctx context.Context, tokenIdentifier, image string) error {
	return m.Called(ctx, tokenIdentifier, image).Error(0)
}

func (m *MockLifecycle) SetUserOnline(ctx context.Context, tokenIdentifier string) error {
	return m.Called(ctx, tokenIdentifier).Error(0)
}

func (m *MockLifecycle) SetUserOffline(ctx context.Context, tokenIdentifier string) error {
	return m.Called(ctx, tokenIdentifier).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n domain.SignupNotification) error {
	return m.Called(ctx, n).Error(0)
}

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) Record(ctx context.Context, ev domain.IdentityEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type MockRabbitRepo struct {
	mock.Mock
}

func (m *MockRabbitRepo) GetRabbit() *amqp.Channel { return nil }

func (m *MockRabbitRepo) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, mandatory, immediate, msg).Error(0)
}

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}
