package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"chat_platform/internal/identity/domain"
	errprocess "chat_platform/pkg/err"
	"chat_platform/pkg/logger"
	"chat_platform/pkg/proto/lifecycle"

	"go.uber.org/zap"
)

// DefaultNotifyTimeout budget of one detached signup notification
const DefaultNotifyTimeout = 10 * time.Second

// Lifecycle user directory mutations the bridge drives
type Lifecycle interface {
	CreateUser(ctx context.Context, req lifecycle.CreateUserRequest) (lifecycle.CreateUserResponse, error)
	UpdateUserImage(ctx context.Context, tokenIdentifier, image string) error
	SetUserOnline(ctx context.Context, tokenIdentifier string) error
	SetUserOffline(ctx context.Context, tokenIdentifier string) error
}

// Notifier enqueue a signup notification
type Notifier interface {
	Notify(ctx context.Context, n domain.SignupNotification) error
}

// Auditor record a processed event
type Auditor interface {
	Record(ctx context.Context, ev domain.IdentityEvent) error
}

// WebhookUseCase map verified provider events onto the user directory
type WebhookUseCase interface {
	Handle(ctx context.Context, ev domain.WebhookEvent) error
	// Wait block until detached notifications and audit records finish
	Wait()
}

type webhookUseCase struct {
	lifecycle     Lifecycle
	notifier      Notifier
	auditor       Auditor
	notifyTimeout time.Duration

	intn    func(n int) int
	now     func() time.Time
	pending sync.WaitGroup
}

// NewWebhookUseCase notifier and auditor may be nil
func NewWebhookUseCase(lc Lifecycle, notifier Notifier, auditor Auditor, notifyTimeout time.Duration) WebhookUseCase {
	if notifyTimeout <= 0 {
		notifyTimeout = DefaultNotifyTimeout
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	var mu sync.Mutex
	return &webhookUseCase{
		lifecycle:     lc,
		notifier:      notifier,
		auditor:       auditor,
		notifyTimeout: notifyTimeout,
		intn: func(n int) int {
			mu.Lock()
			defer mu.Unlock()
			return rnd.Intn(n)
		},
		now: time.Now,
	}
}

func (w *webhookUseCase) Handle(ctx context.Context, ev domain.WebhookEvent) error {
	var (
		subject string
		err     error
	)
	switch ev.Type {
	case domain.UserCreated:
		subject, err = w.userCreated(ctx, ev.Data)
	case domain.UserUpdated:
		var data domain.UserData
		if err = decode(ev.Data, &data); err == nil {
			subject = data.ID
			err = w.lifecycle.UpdateUserImage(ctx, data.ID, data.ImageURL)
		}
	case domain.SessionCreated, domain.SessionEnded:
		var data domain.SessionData
		if err = decode(ev.Data, &data); err == nil {
			subject = data.Subject()
			if ev.Type == domain.SessionCreated {
				err = w.lifecycle.SetUserOnline(ctx, subject)
			} else {
				err = w.lifecycle.SetUserOffline(ctx, subject)
			}
		}
	default:
		logger.Log.Debug("webhook event ignored", zap.String("type", ev.Type))
	}
	if err != nil {
		return err
	}

	w.audit(domain.IdentityEvent{Type: ev.Type, Subject: subject, ReceivedAt: w.now().UnixMilli()})
	return nil
}

func (w *webhookUseCase) userCreated(ctx context.Context, raw json.RawMessage) (string, error) {
	var data domain.UserData
	if err := decode(raw, &data); err != nil {
		return "", err
	}
	req := lifecycle.CreateUserRequest{
		TokenIdentifier: data.ID,
		Email:           data.PrimaryEmail(),
		Name:            domain.DisplayName(data, w.intn),
		Image:           data.ImageURL,
	}
	resp, err := w.lifecycle.CreateUser(ctx, req)
	if err != nil {
		return data.ID, err
	}
	logger.Log.Info("user synced", zap.String("user_id", resp.UserID), zap.Bool("created", resp.Created))

	if resp.Created {
		w.notify(domain.SignupNotification{
			Name:            req.Name,
			Email:           req.Email,
			TokenIdentifier: req.TokenIdentifier,
			SignedUpAt:      w.now().UnixMilli(),
		})
	}
	return data.ID, nil
}

// notify 不影響 webhook 回應，失敗只記錄
func (w *webhookUseCase) notify(n domain.SignupNotification) {
	if w.notifier == nil {
		return
	}
	w.pending.Add(1)
	go func() {
		defer w.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), w.notifyTimeout)
		defer cancel()
		if err := w.notifier.Notify(ctx, n); err != nil {
			logger.Log.Error("signup notification", zap.String("token_identifier", n.TokenIdentifier), zap.Error(err))
		}
	}()
}

// audit 與 notify 相同，背景寫入不拖慢 webhook 回應
func (w *webhookUseCase) audit(ev domain.IdentityEvent) {
	if w.auditor == nil {
		return
	}
	w.pending.Add(1)
	go func() {
		defer w.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), w.notifyTimeout)
		defer cancel()
		if err := w.auditor.Record(ctx, ev); err != nil {
			logger.Log.Warn("identity audit", zap.String("type", ev.Type), zap.Error(err))
		}
	}()
}

func (w *webhookUseCase) Wait() {
	w.pending.Wait()
}

func decode(raw json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return errprocess.New(errprocess.Validation, fmt.Sprintf("malformed event data: %v", err))
	}
	return nil
}
