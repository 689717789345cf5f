package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat_platform/internal/chat/domain"
	"chat_platform/internal/chat/repository"
	dirdomain "chat_platform/internal/directory/domain"
	"chat_platform/pkg"
	errprocess "chat_platform/pkg/err"
	"chat_platform/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultFanOutLimit concurrent per-conversation work in list building
const DefaultFanOutLimit = 16

const (
	msgUserNotFound         = "User not found"
	msgConversationNotFound = "Conversation not found"
	msgNotParticipant       = "You are not part of this conversation"
	msgNotAdmin             = "Only the group admin can remove members"
)

// UserDirectory the slice of the user directory the chat modules need
type UserDirectory interface {
	ResolveCaller(ctx context.Context, callerIdentity string) (*dirdomain.User, error)
	UsersByIDs(ctx context.Context, ids []string) (map[string]dirdomain.User, error)
}

// URLResolver turns a storage reference into a durable url
type URLResolver interface {
	GetURL(ctx context.Context, storageID string) (string, error)
}

// ConversationUseCase conversation store and aggregator
type ConversationUseCase interface {
	CreateConversation(ctx context.Context, callerIdentity string, in domain.CreateConversationInput) (*domain.ConversationView, error)
	GetMyConversations(ctx context.Context, callerIdentity string) ([]domain.ConversationView, error)
	GetConversationByID(ctx context.Context, callerIdentity, conversationID string) (*domain.ConversationView, error)
	GetGroupMembers(ctx context.Context, conversationID string) ([]dirdomain.User, error)
	SetConversationLastRead(ctx context.Context, callerIdentity, conversationID string) error
	KickUser(ctx context.Context, callerIdentity, conversationID, userID string) error

	// ListForUser / MarkRead are the websocket entry points, the user is already resolved
	ListForUser(ctx context.Context, userID string) ([]domain.ConversationView, error)
	MarkRead(ctx context.Context, userID, conversationID string) error
}

type conversationUseCase struct {
	convRepo    repository.ConversationRepository
	memberRepo  repository.MembershipRepository
	msgRepo     repository.MessageRepository
	readRepo    repository.ReadMarkRepository
	pubsub      repository.PubSub
	users       UserDirectory
	urls        URLResolver
	fanOutLimit int
	now         func() time.Time
}

// NewConversationUseCase fanOutLimit <= 0 uses DefaultFanOutLimit
func NewConversationUseCase(
	convRepo repository.ConversationRepository,
	memberRepo repository.MembershipRepository,
	msgRepo repository.MessageRepository,
	readRepo repository.ReadMarkRepository,
	pubsub repository.PubSub,
	users UserDirectory,
	urls URLResolver,
	fanOutLimit int,
) ConversationUseCase {
	if fanOutLimit <= 0 {
		fanOutLimit = DefaultFanOutLimit
	}
	return &conversationUseCase{
		convRepo:    convRepo,
		memberRepo:  memberRepo,
		msgRepo:     msgRepo,
		readRepo:    readRepo,
		pubsub:      pubsub,
		users:       users,
		urls:        urls,
		fanOutLimit: fanOutLimit,
		now:         time.Now,
	}
}

func (c *conversationUseCase) CreateConversation(ctx context.Context, callerIdentity string, in domain.CreateConversationInput) (*domain.ConversationView, error) {
	caller, err := c.users.ResolveCaller(ctx, callerIdentity)
	if err != nil {
		return nil, err
	}

	participants := pkg.Unique(in.Participants)
	if in.IsGroup {
		admin := in.Admin
		if admin == "" {
			admin = caller.ID
		}
		if !pkg.Contains(participants, admin) {
			participants = append(participants, admin)
		}
		if len(participants) < 2 {
			return nil, errprocess.New(errprocess.Validation, "A group needs at least two participants")
		}
		in.Admin = admin
	} else {
		if len(participants) != 2 {
			return nil, errprocess.New(errprocess.Validation, "A one-to-one conversation needs exactly two participants")
		}
		if !pkg.Contains(participants, caller.ID) {
			return nil, errprocess.New(errprocess.Forbidden, msgNotParticipant)
		}
	}

	users, err := c.users.UsersByIDs(ctx, participants)
	if err != nil {
		return nil, err
	}
	for _, id := range participants {
		if _, ok := users[id]; !ok {
			return nil, errprocess.New(errprocess.NotFound, msgUserNotFound)
		}
	}

	if !in.IsGroup {
		existing, err := c.findOneToOne(ctx, caller.ID, participants)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			logger.Log.Info("one-to-one conversation exists", zap.String("conversation_id", existing.ID))
			return c.buildView(ctx, caller.ID, *existing, participants)
		}
	}

	conv := domain.Conversation{
		ID:        uuid.New().String(),
		IsGroup:   in.IsGroup,
		CreatedAt: c.now().UnixMilli(),
	}
	if in.IsGroup {
		conv.GroupName = in.GroupName
		conv.Admin = in.Admin
		if in.GroupImage != "" {
			image, err := c.urls.GetURL(ctx, in.GroupImage)
			if err != nil {
				return nil, fmt.Errorf("resolve group image: %w", err)
			}
			conv.GroupImage = image
		}
	} else {
		conv.Initiator = caller.ID
		conv.PairKey = domain.PairKey(participants[0], participants[1])
	}

	switch err := c.convRepo.Create(ctx, &conv); {
	case errors.Is(err, repository.ErrDuplicatePair):
		// 另一端同時建立了同一組 1:1
		winner, err := c.convRepo.FindByPairKey(ctx, conv.PairKey)
		if err != nil {
			return nil, fmt.Errorf("find by pair key: %w", err)
		}
		if winner == nil {
			return nil, errprocess.New(errprocess.Internal, "one-to-one conversation vanished")
		}
		// 補齊 winner 可能缺少的 membership, CreateMany 略過已存在的
		if err := c.memberRepo.CreateMany(ctx, c.membershipRows(winner.ID, participants)); err != nil {
			return nil, fmt.Errorf("repair memberships: %w", err)
		}
		return c.buildView(ctx, caller.ID, *winner, participants)
	case err != nil:
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	if err := c.memberRepo.CreateMany(ctx, c.membershipRows(conv.ID, participants)); err != nil {
		// 沒有 membership 的 conversation 會卡住 pair_key, 撤回
		if delErr := c.convRepo.Delete(ctx, conv.ID); delErr != nil {
			logger.Log.Error("rollback conversation failed", zap.String("conversation_id", conv.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("create memberships: %w", err)
	}
	logger.Log.Info("conversation created", zap.String("conversation_id", conv.ID),
		zap.Bool("is_group", conv.IsGroup), zap.Int("participants", len(participants)))

	view, err := c.buildViewWithUsers(ctx, caller.ID, conv, participants, users)
	if err != nil {
		return nil, err
	}
	c.notify(ctx, participants, domain.ConversationCreated, conv.ID, conv)
	return view, nil
}

func (c *conversationUseCase) membershipRows(conversationID string, participants []string) []domain.Membership {
	now := c.now().UnixMilli()
	rows := make([]domain.Membership, 0, len(participants))
	for _, id := range participants {
		rows = append(rows, domain.Membership{ID: uuid.New().String(), UserID: id, ConversationID: conversationID, CreatedAt: now})
	}
	return rows
}

// findOneToOne scan the caller's memberships for a 1:1 holding exactly the pair
func (c *conversationUseCase) findOneToOne(ctx context.Context, callerID string, pair []string) (*domain.Conversation, error) {
	mine, err := c.memberRepo.FindByUser(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("find memberships: %w", err)
	}
	ids := make([]string, 0, len(mine))
	for _, m := range mine {
		ids = append(ids, m.ConversationID)
	}
	convs, err := c.convRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find conversations: %w", err)
	}
	for i := range convs {
		if convs[i].IsGroup {
			continue
		}
		members, err := c.memberIDs(ctx, convs[i].ID)
		if err != nil {
			return nil, err
		}
		if len(members) == 2 && pkg.Contains(members, pair[0]) && pkg.Contains(members, pair[1]) {
			return &convs[i], nil
		}
	}
	return nil, nil
}

func (c *conversationUseCase) GetMyConversations(ctx context.Context, callerIdentity string) ([]domain.ConversationView, error) {
	caller, err := c.users.ResolveCaller(ctx, callerIdentity)
	if err != nil {
		return nil, err
	}
	return c.ListForUser(ctx, caller.ID)
}

func (c *conversationUseCase) ListForUser(ctx context.Context, userID string) ([]domain.ConversationView, error) {
	mine, err := c.memberRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find memberships: %w", err)
	}
	ids := make([]string, 0, len(mine))
	for _, m := range mine {
		ids = append(ids, m.ConversationID)
	}
	convs, err := c.convRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find conversations: %w", err)
	}
	byID := make(map[string]domain.Conversation, len(convs))
	for _, conv := range convs {
		byID[conv.ID] = conv
	}

	// 依 membership 順序輸出，缺少的 conversation 直接略過
	ordered := make([]domain.Conversation, 0, len(convs))
	for _, id := range ids {
		if conv, ok := byID[id]; ok {
			ordered = append(ordered, conv)
		}
	}

	views := make([]domain.ConversationView, len(ordered))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fanOutLimit)
	for i := range ordered {
		i := i
		g.Go(func() error {
			members, err := c.memberIDs(gctx, ordered[i].ID)
			if err != nil {
				return err
			}
			view, err := c.buildView(gctx, userID, ordered[i], members)
			if err != nil {
				return err
			}
			views[i] = *view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func (c *conversationUseCase) GetConversationByID(ctx context.Context, callerIdentity, conversationID string) (*domain.ConversationView, error) {
	caller, err := c.users.ResolveCaller(ctx, callerIdentity)
	if err != nil {
		return nil, err
	}
	conv, err := c.mustConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	members, err := c.memberIDs(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	if !pkg.Contains(members, caller.ID) {
		return nil, errprocess.New(errprocess.Forbidden, msgNotParticipant)
	}
	return c.buildView(ctx, caller.ID, *conv, members)
}

// GetGroupMembers resolved members only, removed users are skipped
func (c *conversationUseCase) GetGroupMembers(ctx context.Context, conversationID string) ([]dirdomain.User, error) {
	conv, err := c.mustConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	members, err := c.memberIDs(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	users, err := c.users.UsersByIDs(ctx, members)
	if err != nil {
		return nil, err
	}
	out := make([]dirdomain.User, 0, len(members))
	for _, id := range members {
		if u, ok := users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (c *conversationUseCase) SetConversationLastRead(ctx context.Context, callerIdentity, conversationID string) error {
	caller, err := c.users.ResolveCaller(ctx, callerIdentity)
	if err != nil {
		return err
	}
	return c.MarkRead(ctx, caller.ID, conversationID)
}

func (c *conversationUseCase) MarkRead(ctx context.Context, userID, conversationID string) error {
	if err := c.readRepo.Upsert(ctx, userID, conversationID, c.now().UnixMilli()); err != nil {
		return fmt.Errorf("upsert read mark: %w", err)
	}
	return nil
}

func (c *conversationUseCase) KickUser(ctx context.Context, callerIdentity, conversationID, userID string) error {
	caller, err := c.users.ResolveCaller(ctx, callerIdentity)
	if err != nil {
		return err
	}
	conv, err := c.mustConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.IsGroup || conv.Admin != caller.ID {
		return errprocess.New(errprocess.Forbidden, msgNotAdmin)
	}

	removed, err := c.memberRepo.Delete(ctx, userID, conversationID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	if removed {
		logger.Log.Info("member removed", zap.String("conversation_id", conversationID), zap.String("user_id", userID))
		c.notify(ctx, []string{userID}, domain.MemberRemoved, conversationID, nil)
	}
	return nil
}

func (c *conversationUseCase) mustConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	conv, err := c.convRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	if conv == nil {
		return nil, errprocess.New(errprocess.NotFound, msgConversationNotFound)
	}
	return conv, nil
}

func (c *conversationUseCase) memberIDs(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := c.memberRepo.FindByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("find members of %s: %w", conversationID, err)
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	return ids, nil
}

func (c *conversationUseCase) buildView(ctx context.Context, viewerID string, conv domain.Conversation, memberIDs []string) (*domain.ConversationView, error) {
	users, err := c.users.UsersByIDs(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	return c.buildViewWithUsers(ctx, viewerID, conv, memberIDs, users)
}

func (c *conversationUseCase) buildViewWithUsers(ctx context.Context, viewerID string, conv domain.Conversation, memberIDs []string, users map[string]dirdomain.User) (*domain.ConversationView, error) {
	participants := make([]domain.Participant, 0, len(memberIDs))
	for _, id := range memberIDs {
		if u, ok := users[id]; ok {
			participants = append(participants, domain.Found(u))
		} else {
			participants = append(participants, domain.Removed(id))
		}
	}

	last, err := c.msgRepo.FindLast(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("find last message: %w", err)
	}
	marks, err := c.readRepo.FindByConversation(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("find read marks: %w", err)
	}
	markByUser := make(map[string]int64, len(marks))
	for _, m := range marks {
		markByUser[m.UserID] = m.LastReadTime
	}

	var unread int64
	if last != nil {
		unread, err = c.msgRepo.CountUnread(ctx, conv.ID, markByUser[viewerID], viewerID)
		if err != nil {
			return nil, fmt.Errorf("count unread: %w", err)
		}
	}

	name, image := domain.DisplayFields(conv, viewerID, participants)
	return &domain.ConversationView{
		Conversation:           conv,
		Name:                   name,
		Image:                  image,
		Participants:           participants,
		IsAnyParticipantOnline: domain.AnyOtherOnline(viewerID, participants),
		LastMessage:            last,
		UnreadMessageCount:     unread,
		IsLastMessageSeen:      domain.IsLastMessageSeen(last, viewerID, memberIDs, markByUser),
	}, nil
}

// notify publish to every user channel, failures are logged only
func (c *conversationUseCase) notify(ctx context.Context, userIDs []string, action domain.Action, conversationID string, data interface{}) {
	publish(ctx, c.pubsub, userIDs, action, conversationID, data)
}

func publish(ctx context.Context, ps repository.PubSub, userIDs []string, action domain.Action, conversationID string, data interface{}) {
	if ps == nil {
		return
	}
	ev, err := domain.NewEvent(action, conversationID, data)
	if err != nil {
		logger.Log.Error("encode event", zap.String("action", string(action)), zap.Error(err))
		return
	}
	for _, id := range userIDs {
		if err := ps.Publish(ctx, domain.UserChannel(id), ev); err != nil {
			logger.Log.Warn("publish event", zap.String("action", string(action)), zap.String("user_id", id), zap.Error(err))
		}
	}
}
