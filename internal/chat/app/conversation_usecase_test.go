package app

import (
	"context"
	"encoding/json"
	"testing"

	"chat_platform/internal/chat/domain"
	dirdomain "chat_platform/internal/directory/domain"
	errprocess "chat_platform/pkg/err"
	"chat_platform/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetNewNop()
}

func oneToOne(t *testing.T, f *fixture, caller, other string) *domain.ConversationView {
	t.Helper()
	view, err := f.conv.CreateConversation(context.Background(), "tok-"+caller, domain.CreateConversationInput{
		Participants: []string{caller, other},
	})
	require.NoError(t, err)
	return view
}

func TestCreateConversation_OneToOneIsIdempotent(t *testing.T) {
	f := newFixture(testUser("alice", "Alice"), testUser("bob", "Bob"))

	first := oneToOne(t, f, "alice", "bob")
	second := oneToOne(t, f, "bob", "alice")

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.convs.count())
	assert.Equal(t, "Bob", first.Name)
	assert.Equal(t, "Alice", second.Name)
	assert.Equal(t, "alice", first.Initiator)

	// 只有第一次建立會推播
	assert.Len(t, f.pubsub.received("alice"), 1)
	assert.Equal(t, domain.ConversationCreated, f.pubsub.received("bob")[0].Action)
}

func TestCreateConversation_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testUser("alice", "Alice"), testUser("bob", "Bob"), testUser("carol", "Carol"))

	t.Run("caller outside the pair", func(t *testing.T) {
		_, err := f.conv.CreateConversation(ctx, "tok-carol", domain.CreateConversationInput{Participants: []string{"alice", "bob"}})
		assert.True(t, errprocess.Is(err, errprocess.Forbidden))
	})
	t.Run("one to one needs two", func(t *testing.T) {
		_, err := f.conv.CreateConversation(ctx, "tok-alice", domain.CreateConversationInput{Participants: []string{"alice"}})
		assert.True(t, errprocess.Is(err, errprocess.Validation))
	})
	t.Run("unknown participant", func(t *testing.T) {
		_, err := f.conv.CreateConversation(ctx, "tok-alice", domain.CreateConversationInput{Participants: []string{"alice", "ghost"}})
		assert.True(t, errprocess.Is(err, errprocess.NotFound))
		assert.Equal(t, "User not found", errprocess.Message(err))
	})
	t.Run("unauthenticated", func(t *testing.T) {
		_, err := f.conv.CreateConversation(ctx, "", domain.CreateConversationInput{Participants: []string{"alice", "bob"}})
		assert.True(t, errprocess.Is(err, errprocess.Unauthenticated))
	})
	t.Run("group of one", func(t *testing.T) {
		_, err := f.conv.CreateConversation(ctx, "tok-alice", domain.CreateConversationInput{IsGroup: true, Participants: []string{"alice"}})
		assert.True(t, errprocess.Is(err, errprocess.Validation))
	})
	assert.Equal(t, 0, f.convs.count())
}

func TestCreateConversation_Group(t *testing.T) {
	f := newFixture(testUser("alice", "Alice"), testUser("bob", "Bob"), testUser("carol", "Carol"))
	f.urls.urls["img-1"] = "https://cdn.example.com/img-1"
	f.rebuild()

	view, err := f.conv.CreateConversation(context.Background(), "tok-alice", domain.CreateConversationInput{
		IsGroup:      true,
		GroupName:    "Weekend",
		GroupImage:   "img-1",
		Participants: []string{"bob", "carol"},
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", view.Admin)
	assert.Equal(t, "Weekend", view.Name)
	assert.Equal(t, "https://cdn.example.com/img-1", view.Image)
	assert.Len(t, view.Participants, 3)
	assert.Empty(t, view.PairKey)
	for _, id := range []string{"alice", "bob", "carol"} {
		assert.Len(t, f.pubsub.received(id), 1, id)
	}
}

func TestCreateConversation_PairKeyRace(t *testing.T) {
	f := newFixture(testUser("alice", "Alice"), testUser("bob", "Bob"))
	f.convs.racePair = &domain.Conversation{ID: "winner", PairKey: domain.PairKey("alice", "bob"), Initiator: "bob"}

	view := oneToOne(t, f, "alice", "bob")
	assert.Equal(t, "winner", view.ID)
	assert.Equal(t, 1, f.convs.count())
	assert.Empty(t, f.pubsub.received("alice"))

	// winner 尚未寫入 membership 時由輸家補齊
	for _, id := range []string{"alice", "bob"} {
		ok, err := f.members.Exists(context.Background(), id, "winner")
		require.NoError(t, err)
		assert.True(t, ok, id)
	}
}

func TestCreateConversation_MembershipFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testUser("alice", "Alice"), testUser("bob", "Bob"))
	f.members.failCreates = 1

	_, err := f.conv.CreateConversation(ctx, "tok-alice", domain.CreateConversationInput{Participants: []string{"alice", "bob"}})
	require.ErrorIs(t, err, errStoreBlip)
	assert.Zero(t, f.convs.count(), "conversation without members is removed")

	view := oneToOne(t, f, "alice", "bob")
	assert.Equal(t, 1, f.convs.count())

	_, err = f.msg.SendTextMessage(ctx, "tok-alice", view.ID, "hi", "")
	require.NoError(t, err)
	_, err = f.msg.SendTextMessage(ctx, "tok-bob", view.ID, "hey", "")
	require.NoError(t, err)
}

func TestCreateConversation_RepairsOrphanedPair(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testUser("alice", "Alice"), testUser("bob", "Bob"))
	orphan := domain.Conversation{ID: "orphan", PairKey: domain.PairKey("alice", "bob"), Initiator: "alice"}
	require.NoError(t, f.convs.Create(ctx, &orphan))

	view := oneToOne(t, f, "bob", "alice")
	assert.Equal(t, "orphan", view.ID)

	_, err := f.msg.SendTextMessage(ctx, "tok-alice", view.ID, "finally", "")
	require.NoError(t, err)
	mine, err := f.conv.GetMyConversations(ctx, "tok-alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "orphan", mine[0].ID)
}

func TestConversationView_UnreadAndSeen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testUser("alice", "Alice"), testUser("bob", "Bob"))
	conv := oneToOne(t, f, "alice", "bob")

	view, err := f.conv.GetConversationByID(ctx, "tok-alice", conv.ID)
	require.NoError(t, err)
	assert.Nil(t, view.LastMessage)
	assert.Zero(t, view.UnreadMessageCount)
	assert.False(t, view.IsLastMessageSeen)

	for _, text := range []string{"hi", "you there?"} {
		_, err := f.msg.SendTextMessage(ctx, "tok-bob", conv.ID, text, "")
		require.NoError(t, err)
	}

	view, err = f.conv.GetConversationByID(ctx, "tok-alice", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), view.UnreadMessageCount)
	assert.Equal(t, "you there?", view.LastMessage.Content)

	require.NoError(t, f.conv.SetConversationLastRead(ctx, "tok-alice", conv.ID))
	view, err = f.conv.GetConversationByID(ctx, "tok-alice", conv.ID)
	require.NoError(t, err)
	assert.Zero(t, view.UnreadMessageCount)

	// 自己的訊息不算未讀
	_, err = f.msg.SendTextMessage(ctx, "tok-alice", conv.ID, "yes", "alice")
	require.NoError(t, err)
	view, err = f.conv.GetConversationByID(ctx, "tok-alice", conv.ID)
	require.NoError(t, err)
	assert.Zero(t, view.UnreadMessageCount)
	assert.False(t, view.IsLastMessageSeen)

	require.NoError(t, f.conv.MarkRead(ctx, "bob", conv.ID))
	view, err = f.conv.GetConversationByID(ctx, "tok-alice", conv.ID)
	require.NoError(t, err)
	assert.True(t, view.IsLastMessageSeen)

	// bob 看到的是別人的訊息，seen 永遠是 false
	bobView, err := f.conv.GetConversationByID(ctx, "tok-bob", conv.ID)
	require.NoError(t, err)
	assert.False(t, bobView.IsLastMessageSeen)
}

func TestGetConversationByID_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testUser("alice", "Alice"), testUser("bob", "Bob"), testUser("carol", "Carol"))
	conv := oneToOne(t, f, "alice", "bob")

	_, err := f.conv.GetConversationByID(ctx, "tok-carol", conv.ID)
	assert.True(t, errprocess.Is(err, errprocess.Forbidden))

	_, err = f.conv.GetConversationByID(ctx, "tok-alice", "missing")
	assert.True(t, errprocess.Is(err, errprocess.NotFound))
	assert.Equal(t, "Conversation not found", errprocess.Message(err))
}

func TestGetMyConversations_OrderAndRemovedUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testUser("alice", "Alice"), testUser("bob", "Bob"), testUser("carol", "Carol"))
	withBob := oneToOne(t, f, "alice", "bob")
	withCarol := oneToOne(t, f, "alice", "carol")

	f.users.remove("carol")

	views, err := f.conv.GetMyConversations(ctx, "tok-alice")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, withBob.ID, views[0].ID)
	assert.Equal(t, withCarol.ID, views[1].ID)

	rows, err := f.members.FindByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Positive(t, rows[0].CreatedAt)
	assert.Less(t, rows[0].CreatedAt, rows[1].CreatedAt, "list order follows membership creation time")

	assert.Equal(t, domain.UnknownUser, views[1].Name)
	assert.Equal(t, dirdomain.PlaceholderImage, views[1].Image)

	b, err := json.Marshal(views[1])
	require.NoError(t, err)
	var decoded struct {
		Participants []json.RawMessage `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Len(t, decoded.Participants, 2)
	assert.Contains(t, []string{string(decoded.Participants[0]), string(decoded.Participants[1])}, "null")
	assert.NotContains(t, string(b), "pair_key")
}

func TestGetGroupMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testUser("alice", "Alice"), testUser("bob", "Bob"), testUser("carol", "Carol"))
	group, err := f.conv.CreateConversation(ctx, "tok-alice", domain.CreateConversationInput{
		IsGroup: true, Participants: []string{"alice", "bob", "carol"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.UnnamedGroup, group.Name)
	assert.Equal(t, domain.DefaultGroupImage, group.Image)

	f.users.remove("bob")
	members, err := f.conv.GetGroupMembers(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = f.conv.GetGroupMembers(ctx, "missing")
	assert.True(t, errprocess.Is(err, errprocess.NotFound))
}

func TestKickUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(testUser("alice", "Alice"), testUser("bob", "Bob"), testUser("carol", "Carol"))
	group, err := f.conv.CreateConversation(ctx, "tok-alice", domain.CreateConversationInput{
		IsGroup: true, Participants: []string{"bob", "carol"},
	})
	require.NoError(t, err)

	t.Run("non admin cannot kick", func(t *testing.T) {
		err := f.conv.KickUser(ctx, "tok-bob", group.ID, "carol")
		assert.True(t, errprocess.Is(err, errprocess.Forbidden))
		assert.Equal(t, "Only the group admin can remove members", errprocess.Message(err))
		ok, _ := f.members.Exists(ctx, "carol", group.ID)
		assert.True(t, ok)
	})

	t.Run("admin kicks", func(t *testing.T) {
		require.NoError(t, f.conv.KickUser(ctx, "tok-alice", group.ID, "carol"))
		ok, _ := f.members.Exists(ctx, "carol", group.ID)
		assert.False(t, ok)

		events := f.pubsub.received("carol")
		require.Len(t, events, 2)
		assert.Equal(t, domain.MemberRemoved, events[1].Action)
		assert.Equal(t, group.ID, events[1].ConversationID)
	})

	t.Run("kicking a non member is silent", func(t *testing.T) {
		require.NoError(t, f.conv.KickUser(ctx, "tok-alice", group.ID, "carol"))
		assert.Len(t, f.pubsub.received("carol"), 2)
	})

	t.Run("not a group", func(t *testing.T) {
		conv := oneToOne(t, f, "alice", "bob")
		err := f.conv.KickUser(ctx, "tok-alice", conv.ID, "bob")
		assert.True(t, errprocess.Is(err, errprocess.Forbidden))
	})
}
