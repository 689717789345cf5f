package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"chat_platform/internal/identity/domain"
	errprocess "chat_platform/pkg/err"
	"chat_platform/pkg/logger"
	"chat_platform/pkg/proto/lifecycle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func event(t *testing.T, typ string, data interface{}) domain.WebhookEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return domain.WebhookEvent{Type: typ, Data: raw}
}

func newTestUseCase(lc Lifecycle, n Notifier, a Auditor) *webhookUseCase {
	uc := NewWebhookUseCase(lc, n, a, time.Second).(*webhookUseCase)
	uc.intn = func(int) int { return 0 }
	uc.now = func() time.Time { return time.UnixMilli(42_000) }
	return uc
}

func TestHandle_UserCreated(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	data := domain.UserData{
		ID:             "user_1",
		ImageURL:       "https://img/1.png",
		EmailAddresses: []domain.EmailAddress{{EmailAddress: "bob@example.com"}},
	}
	want := lifecycle.CreateUserRequest{TokenIdentifier: "user_1", Email: "bob@example.com", Name: "bob", Image: "https://img/1.png"}

	t.Run("first creation notifies and audits", func(t *testing.T) {
		lc, n, a := new(MockLifecycle), new(MockNotifier), new(MockAuditor)
		lc.On("CreateUser", ctx, want).Return(lifecycle.CreateUserResponse{UserID: "u1", Created: true}, nil)
		n.On("Notify", mock.Anything, domain.SignupNotification{
			Name: "bob", Email: "bob@example.com", TokenIdentifier: "user_1", SignedUpAt: 42_000,
		}).Return(nil)
		a.On("Record", mock.Anything, domain.IdentityEvent{Type: domain.UserCreated, Subject: "user_1", ReceivedAt: 42_000}).Return(nil)

		uc := newTestUseCase(lc, n, a)
		require.NoError(t, uc.Handle(ctx, event(t, domain.UserCreated, data)))
		uc.Wait()

		lc.AssertExpectations(t)
		n.AssertExpectations(t)
		a.AssertExpectations(t)
	})

	t.Run("existing user is not re-announced", func(t *testing.T) {
		lc, n := new(MockLifecycle), new(MockNotifier)
		lc.On("CreateUser", ctx, want).Return(lifecycle.CreateUserResponse{UserID: "u1", Created: false}, nil)

		uc := newTestUseCase(lc, n, nil)
		require.NoError(t, uc.Handle(ctx, event(t, domain.UserCreated, data)))
		uc.Wait()
		n.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	})

	t.Run("notification failure does not fail the webhook", func(t *testing.T) {
		lc, n := new(MockLifecycle), new(MockNotifier)
		lc.On("CreateUser", ctx, want).Return(lifecycle.CreateUserResponse{UserID: "u1", Created: true}, nil)
		n.On("Notify", mock.Anything, mock.Anything).Return(errors.New("broker down"))

		uc := newTestUseCase(lc, n, nil)
		assert.NoError(t, uc.Handle(ctx, event(t, domain.UserCreated, data)))
		uc.Wait()
		n.AssertNumberOfCalls(t, "Notify", 1)
	})

	t.Run("lifecycle error surfaces", func(t *testing.T) {
		lc, a := new(MockLifecycle), new(MockAuditor)
		lc.On("CreateUser", ctx, want).Return(lifecycle.CreateUserResponse{},
			errprocess.New(errprocess.Exhausted, "Unable to generate a unique username"))

		uc := newTestUseCase(lc, nil, a)
		err := uc.Handle(ctx, event(t, domain.UserCreated, data))
		assert.True(t, errprocess.Is(err, errprocess.Exhausted))
		a.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("full name wins over email", func(t *testing.T) {
		lc := new(MockLifecycle)
		named := data
		named.FirstName, named.LastName = "Bob", "Smith"
		req := want
		req.Name = "Bob Smith"
		lc.On("CreateUser", ctx, req).Return(lifecycle.CreateUserResponse{UserID: "u1"}, nil)

		uc := newTestUseCase(lc, nil, nil)
		require.NoError(t, uc.Handle(ctx, event(t, domain.UserCreated, named)))
		lc.AssertExpectations(t)
	})
}

func TestHandle_OtherEvents(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()

	t.Run("user updated", func(t *testing.T) {
		lc := new(MockLifecycle)
		lc.On("UpdateUserImage", ctx, "user_1", "https://img/2.png").Return(nil)
		uc := newTestUseCase(lc, nil, nil)
		require.NoError(t, uc.Handle(ctx, event(t, domain.UserUpdated, domain.UserData{ID: "user_1", ImageURL: "https://img/2.png"})))
		lc.AssertExpectations(t)
	})

	t.Run("session created uses user_id", func(t *testing.T) {
		lc := new(MockLifecycle)
		lc.On("SetUserOnline", ctx, "user_1").Return(nil)
		uc := newTestUseCase(lc, nil, nil)
		require.NoError(t, uc.Handle(ctx, event(t, domain.SessionCreated, domain.SessionData{ID: "sess_1", UserID: "user_1"})))
		lc.AssertExpectations(t)
	})

	t.Run("session ended falls back to id", func(t *testing.T) {
		lc := new(MockLifecycle)
		lc.On("SetUserOffline", ctx, "user_9").Return(nil)
		uc := newTestUseCase(lc, nil, nil)
		require.NoError(t, uc.Handle(ctx, event(t, domain.SessionEnded, domain.SessionData{ID: "user_9"})))
		lc.AssertExpectations(t)
	})

	t.Run("unknown type acknowledged", func(t *testing.T) {
		lc, a := new(MockLifecycle), new(MockAuditor)
		a.On("Record", mock.Anything, mock.Anything).Return(errors.New("kafka down"))
		uc := newTestUseCase(lc, nil, a)
		assert.NoError(t, uc.Handle(ctx, domain.WebhookEvent{Type: "email.created", Data: json.RawMessage(`{}`)}))
		uc.Wait()
		lc.AssertNotCalled(t, "SetUserOnline", mock.Anything, mock.Anything)
		a.AssertNumberOfCalls(t, "Record", 1)
	})

	t.Run("slow audit does not hold the response", func(t *testing.T) {
		lc := new(MockLifecycle)
		lc.On("SetUserOnline", ctx, "user_1").Return(nil)
		a := &blockingAuditor{release: make(chan struct{})}
		uc := newTestUseCase(lc, nil, a)

		done := make(chan error, 1)
		go func() {
			done <- uc.Handle(ctx, event(t, domain.SessionCreated, domain.SessionData{UserID: "user_1"}))
		}()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(500 * time.Millisecond):
			t.Fatal("Handle waited on the auditor")
		}

		close(a.release)
		uc.Wait()
		assert.Equal(t, int32(1), a.calls.Load())
	})

	t.Run("malformed data", func(t *testing.T) {
		uc := newTestUseCase(new(MockLifecycle), nil, nil)
		err := uc.Handle(ctx, domain.WebhookEvent{Type: domain.UserUpdated, Data: json.RawMessage(`"oops"`)})
		assert.True(t, errprocess.Is(err, errprocess.Validation))
	})
}

// blockingAuditor holds every Record until release is closed
type blockingAuditor struct {
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingAuditor) Record(ctx context.Context, ev domain.IdentityEvent) error {
	b.calls.Add(1)
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
