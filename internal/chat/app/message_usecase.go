package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chat_platform/internal/chat/domain"
	"chat_platform/internal/chat/repository"
	dirdomain "chat_platform/internal/directory/domain"
	"chat_platform/pkg"
	errprocess "chat_platform/pkg/err"
	"chat_platform/pkg/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chat",
	Name:      "messages_sent_total",
	Help:      "Messages stored, by message type.",
}, []string{"type"})

// MessageUseCase 負責處理聊天訊息
type MessageUseCase interface {
	SendTextMessage(ctx context.Context, callerIdentity, conversationID, content, sender string) (*domain.Message, error)
	SendImage(ctx context.Context, callerIdentity, conversationID, storageID, sender string) (*domain.Message, error)
	SendVideo(ctx context.Context, callerIdentity, conversationID, storageID, sender string) (*domain.Message, error)
	GetMessages(ctx context.Context, callerIdentity, conversationID string) ([]domain.MessageView, error)
}

type messageUseCase struct {
	memberRepo repository.MembershipRepository
	msgRepo    repository.MessageRepository
	pubsub     repository.PubSub
	users      UserDirectory
	urls       URLResolver
	now        func() time.Time
}

// NewMessageUseCase init message use case
func NewMessageUseCase(
	memberRepo repository.MembershipRepository,
	msgRepo repository.MessageRepository,
	pubsub repository.PubSub,
	users UserDirectory,
	urls URLResolver,
) MessageUseCase {
	return &messageUseCase{
		memberRepo: memberRepo,
		msgRepo:    msgRepo,
		pubsub:     pubsub,
		users:      users,
		urls:       urls,
		now:        time.Now,
	}
}

func (m *messageUseCase) SendTextMessage(ctx context.Context, callerIdentity, conversationID, content, sender string) (*domain.Message, error) {
	caller, err := m.authorize(ctx, callerIdentity, conversationID, sender)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, errprocess.New(errprocess.Validation, "Message content cannot be empty")
	}
	return m.store(ctx, caller, conversationID, content, domain.MessageText)
}

func (m *messageUseCase) SendImage(ctx context.Context, callerIdentity, conversationID, storageID, sender string) (*domain.Message, error) {
	return m.sendMedia(ctx, callerIdentity, conversationID, storageID, sender, domain.MessageImage, "Failed to get image URL")
}

func (m *messageUseCase) SendVideo(ctx context.Context, callerIdentity, conversationID, storageID, sender string) (*domain.Message, error) {
	return m.sendMedia(ctx, callerIdentity, conversationID, storageID, sender, domain.MessageVideo, "Failed to get video URL")
}

func (m *messageUseCase) sendMedia(ctx context.Context, callerIdentity, conversationID, storageID, sender string, kind domain.MessageType, missing string) (*domain.Message, error) {
	caller, err := m.authorize(ctx, callerIdentity, conversationID, sender)
	if err != nil {
		return nil, err
	}
	u, err := m.urls.GetURL(ctx, storageID)
	if err != nil {
		logger.Log.Error("media url", zap.String("storage_id", storageID), zap.Error(err))
		return nil, errprocess.New(errprocess.NotFound, missing)
	}
	if u == "" {
		return nil, errprocess.New(errprocess.NotFound, missing)
	}
	return m.store(ctx, caller, conversationID, u, kind)
}

// authorize caller must resolve, match the optional sender and hold a membership
func (m *messageUseCase) authorize(ctx context.Context, callerIdentity, conversationID, sender string) (*dirdomain.User, error) {
	caller, err := m.users.ResolveCaller(ctx, callerIdentity)
	if err != nil {
		return nil, err
	}
	if sender != "" && sender != caller.ID {
		return nil, errprocess.New(errprocess.Forbidden, "Sender does not match the authenticated user")
	}
	if err := m.requireMember(ctx, caller.ID, conversationID); err != nil {
		return nil, err
	}
	return caller, nil
}

func (m *messageUseCase) requireMember(ctx context.Context, userID, conversationID string) error {
	ok, err := m.memberRepo.Exists(ctx, userID, conversationID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return errprocess.New(errprocess.Forbidden, msgNotParticipant)
	}
	return nil
}

func (m *messageUseCase) store(ctx context.Context, caller *dirdomain.User, conversationID, content string, kind domain.MessageType) (*domain.Message, error) {
	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Sender:         caller.ID,
		Content:        content,
		MessageType:    kind,
		CreatedAt:      m.now().UnixMilli(),
	}
	if err := m.msgRepo.Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	messagesSent.WithLabelValues(string(kind)).Inc()
	logger.Log.Debug("message stored", zap.String("message_id", msg.ID), zap.String("conversation_id", conversationID))

	rows, err := m.memberRepo.FindByConversation(ctx, conversationID)
	if err != nil {
		// 訊息已寫入，推播失敗只記錄
		logger.Log.Warn("fan-out members", zap.String("conversation_id", conversationID), zap.Error(err))
		return msg, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	publish(ctx, m.pubsub, ids, domain.NewMessage, conversationID, domain.NewMessageView(*msg, *caller))
	return msg, nil
}

// GetMessages ascending, every sender resolved
func (m *messageUseCase) GetMessages(ctx context.Context, callerIdentity, conversationID string) ([]domain.MessageView, error) {
	caller, err := m.users.ResolveCaller(ctx, callerIdentity)
	if err != nil {
		return nil, err
	}
	if err := m.requireMember(ctx, caller.ID, conversationID); err != nil {
		return nil, err
	}

	msgs, err := m.msgRepo.FindByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	senderIDs := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		senderIDs = append(senderIDs, msg.Sender)
	}
	senders, err := m.users.UsersByIDs(ctx, pkg.Unique(senderIDs))
	if err != nil {
		return nil, err
	}

	views := make([]domain.MessageView, 0, len(msgs))
	for _, msg := range msgs {
		sender, ok := senders[msg.Sender]
		if !ok {
			return nil, errprocess.New(errprocess.Integrity, "Sender not found for message "+msg.ID)
		}
		views = append(views, domain.NewMessageView(msg, sender))
	}
	return views, nil
}
