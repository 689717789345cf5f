package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"chat_platform/internal/chat/domain"
	"chat_platform/internal/chat/repository"
	dirdomain "chat_platform/internal/directory/domain"
	errprocess "chat_platform/pkg/err"
)

// in memory stores, safe under the errgroup fan-out

type memConversations struct {
	mu    sync.Mutex
	items map[string]domain.Conversation
	// racePair simulate a concurrent writer winning the pair key
	racePair *domain.Conversation
}

func newMemConversations() *memConversations {
	return &memConversations{items: map[string]domain.Conversation{}}
}

func (m *memConversations) EnsureIndexes(ctx context.Context) error { return nil }

func (m *memConversations) Create(ctx context.Context, conv *domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.racePair != nil && conv.PairKey == m.racePair.PairKey {
		m.items[m.racePair.ID] = *m.racePair
		return repository.ErrDuplicatePair
	}
	if conv.PairKey != "" {
		for _, c := range m.items {
			if c.PairKey == conv.PairKey {
				return repository.ErrDuplicatePair
			}
		}
	}
	m.items[conv.ID] = *conv
	return nil
}

func (m *memConversations) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memConversations) FindByIDs(ctx context.Context, ids []string) ([]domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Conversation{}
	for _, id := range ids {
		if c, ok := m.items[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memConversations) FindByPairKey(ctx context.Context, pairKey string) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.items {
		if c.PairKey == pairKey {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memConversations) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *memConversations) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type memMemberships struct {
	mu   sync.Mutex
	rows []domain.Membership
	// failCreates number of upcoming CreateMany calls that fail
	failCreates int
}

var errStoreBlip = errors.New("mongo blip")

func (m *memMemberships) EnsureIndexes(ctx context.Context) error { return nil }

func (m *memMemberships) CreateMany(ctx context.Context, rows []domain.Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreates > 0 {
		m.failCreates--
		return errStoreBlip
	}
	for _, r := range rows {
		dup := false
		for _, e := range m.rows {
			if e.UserID == r.UserID && e.ConversationID == r.ConversationID {
				dup = true
				break
			}
		}
		if !dup {
			m.rows = append(m.rows, r)
		}
	}
	return nil
}

func (m *memMemberships) filter(keep func(domain.Membership) bool) []domain.Membership {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Membership{}
	for _, r := range m.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (m *memMemberships) FindByUser(ctx context.Context, userID string) ([]domain.Membership, error) {
	return m.filter(func(r domain.Membership) bool { return r.UserID == userID }), nil
}

func (m *memMemberships) FindByConversation(ctx context.Context, conversationID string) ([]domain.Membership, error) {
	return m.filter(func(r domain.Membership) bool { return r.ConversationID == conversationID }), nil
}

func (m *memMemberships) Exists(ctx context.Context, userID, conversationID string) (bool, error) {
	return len(m.filter(func(r domain.Membership) bool {
		return r.UserID == userID && r.ConversationID == conversationID
	})) > 0, nil
}

func (m *memMemberships) Delete(ctx context.Context, userID, conversationID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.UserID == userID && r.ConversationID == conversationID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type memMessages struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (m *memMessages) EnsureIndexes(ctx context.Context) error { return nil }

func (m *memMessages) Insert(ctx context.Context, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, *msg)
	return nil
}

func (m *memMessages) FindByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Message{}
	for _, msg := range m.msgs {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (m *memMessages) FindLast(ctx context.Context, conversationID string) (*domain.Message, error) {
	msgs, _ := m.FindByConversation(ctx, conversationID)
	if len(msgs) == 0 {
		return nil, nil
	}
	last := msgs[len(msgs)-1]
	return &last, nil
}

func (m *memMessages) CountUnread(ctx context.Context, conversationID string, after int64, excludeSender string) (int64, error) {
	msgs, _ := m.FindByConversation(ctx, conversationID)
	var n int64
	for _, msg := range msgs {
		if msg.CreatedAt > after && msg.Sender != excludeSender {
			n++
		}
	}
	return n, nil
}

type memReadMarks struct {
	mu    sync.Mutex
	marks map[string]domain.ReadMark
}

func newMemReadMarks() *memReadMarks {
	return &memReadMarks{marks: map[string]domain.ReadMark{}}
}

func (m *memReadMarks) EnsureIndexes(ctx context.Context) error { return nil }

func (m *memReadMarks) Upsert(ctx context.Context, userID, conversationID string, lastReadTime int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks[userID+"|"+conversationID] = domain.ReadMark{UserID: userID, ConversationID: conversationID, LastReadTime: lastReadTime}
	return nil
}

func (m *memReadMarks) Find(ctx context.Context, userID, conversationID string) (*domain.ReadMark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mark, ok := m.marks[userID+"|"+conversationID]
	if !ok {
		return nil, nil
	}
	return &mark, nil
}

func (m *memReadMarks) FindByConversation(ctx context.Context, conversationID string) ([]domain.ReadMark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ReadMark{}
	for _, mark := range m.marks {
		if mark.ConversationID == conversationID {
			out = append(out, mark)
		}
	}
	return out, nil
}

// fakeDirectory users keyed by id, the token identifier is "tok-"+id
type fakeDirectory struct {
	mu    sync.Mutex
	users map[string]dirdomain.User
}

func newFakeDirectory(users ...dirdomain.User) *fakeDirectory {
	d := &fakeDirectory{users: map[string]dirdomain.User{}}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeDirectory) remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, id)
}

func (d *fakeDirectory) ResolveCaller(ctx context.Context, callerIdentity string) (*dirdomain.User, error) {
	if callerIdentity == "" {
		return nil, errprocess.New(errprocess.Unauthenticated, "Unauthorized")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.TokenIdentifier == callerIdentity {
			u := u
			return &u, nil
		}
	}
	return nil, errprocess.New(errprocess.NotFound, msgUserNotFound)
}

func (d *fakeDirectory) UsersByIDs(ctx context.Context, ids []string) (map[string]dirdomain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]dirdomain.User, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type fakeURLs struct {
	urls map[string]string
	err  error
}

func (f fakeURLs) GetURL(ctx context.Context, storageID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.urls[storageID], nil
}

// recordingPubSub captures published events, Subscribe delivers them synchronously
type recordingPubSub struct {
	mu       sync.Mutex
	events   map[string][]domain.Event
	handlers map[string][]func(domain.Event)
}

func newRecordingPubSub() *recordingPubSub {
	return &recordingPubSub{events: map[string][]domain.Event{}, handlers: map[string][]func(domain.Event){}}
}

func (p *recordingPubSub) Publish(ctx context.Context, channel string, ev domain.Event) error {
	p.mu.Lock()
	p.events[channel] = append(p.events[channel], ev)
	handlers := append([]func(domain.Event){}, p.handlers[channel]...)
	p.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
	return nil
}

func (p *recordingPubSub) Subscribe(ctx context.Context, channel string, handler func(ev domain.Event)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[channel] = append(p.handlers[channel], handler)
	return nil
}

func (p *recordingPubSub) received(userID string) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Event{}, p.events[domain.UserChannel(userID)]...)
}

func testUser(id, name string) dirdomain.User {
	return dirdomain.User{ID: id, TokenIdentifier: "tok-" + id, Name: name, Email: id + "@example.com", Username: id}
}

// fixture wires both use cases on shared in memory stores
type fixture struct {
	convs   *memConversations
	members *memMemberships
	msgs    *memMessages
	reads   *memReadMarks
	pubsub  *recordingPubSub
	users   *fakeDirectory
	urls    fakeURLs
	clock   int64

	conv *conversationUseCase
	msg  *messageUseCase
}

func newFixture(users ...dirdomain.User) *fixture {
	f := &fixture{
		convs:   newMemConversations(),
		members: &memMemberships{},
		msgs:    &memMessages{},
		reads:   newMemReadMarks(),
		pubsub:  newRecordingPubSub(),
		users:   newFakeDirectory(users...),
		urls:    fakeURLs{urls: map[string]string{}},
		clock:   1_000,
	}
	f.rebuild()
	return f
}

func (f *fixture) rebuild() {
	f.conv = NewConversationUseCase(f.convs, f.members, f.msgs, f.reads, f.pubsub, f.users, f.urls, 4).(*conversationUseCase)
	f.msg = NewMessageUseCase(f.members, f.msgs, f.pubsub, f.users, f.urls).(*messageUseCase)
	f.conv.now = f.tick
	f.msg.now = f.tick
}

// tick strictly increasing clock in milliseconds
func (f *fixture) tick() time.Time {
	return time.UnixMilli(atomic.AddInt64(&f.clock, 10))
}
