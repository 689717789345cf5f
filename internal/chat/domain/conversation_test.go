package domain

import (
	"encoding/json"
	"testing"

	dirdomain "chat_platform/internal/directory/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairKey(t *testing.T) {
	assert.Equal(t, PairKey("b", "a"), PairKey("a", "b"))
	assert.Equal(t, "a:b", PairKey("b", "a"))
}

func TestParticipantJSON(t *testing.T) {
	found := Found(dirdomain.User{ID: "u-1", Name: "Bob"})
	removed := Removed("u-2")

	b, err := json.Marshal([]Participant{found, removed})
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Bob", decoded[0]["name"])
	assert.Nil(t, decoded[1])

	_, ok := removed.User()
	assert.False(t, ok)
	assert.Equal(t, "u-2", removed.ID())
}

func TestDisplayFields(t *testing.T) {
	me := Found(dirdomain.User{ID: "me", Name: "Me"})

	t.Run("1:1 uses the other participant", func(t *testing.T) {
		other := Found(dirdomain.User{ID: "o", Name: "Other", Image: "http://o.png"})
		name, image := DisplayFields(Conversation{}, "me", []Participant{me, other})
		assert.Equal(t, "Other", name)
		assert.Equal(t, "http://o.png", image)
	})

	t.Run("1:1 falls back to email then placeholder", func(t *testing.T) {
		other := Found(dirdomain.User{ID: "o", Email: "o@x.com"})
		name, image := DisplayFields(Conversation{}, "me", []Participant{me, other})
		assert.Equal(t, "o@x.com", name)
		assert.Equal(t, dirdomain.PlaceholderImage, image)
	})

	t.Run("1:1 with a removed other", func(t *testing.T) {
		name, image := DisplayFields(Conversation{}, "me", []Participant{me, Removed("o")})
		assert.Equal(t, UnknownUser, name)
		assert.Equal(t, dirdomain.PlaceholderImage, image)
	})

	t.Run("group defaults", func(t *testing.T) {
		name, image := DisplayFields(Conversation{IsGroup: true}, "me", nil)
		assert.Equal(t, UnnamedGroup, name)
		assert.Equal(t, DefaultGroupImage, image)

		name, image = DisplayFields(Conversation{IsGroup: true, GroupName: "Team", GroupImage: "http://g"}, "me", nil)
		assert.Equal(t, "Team", name)
		assert.Equal(t, "http://g", image)
	})
}

func TestAnyOtherOnline(t *testing.T) {
	me := Found(dirdomain.User{ID: "me", IsOnline: true})
	assert.False(t, AnyOtherOnline("me", []Participant{me, Found(dirdomain.User{ID: "o"}), Removed("x")}))
	assert.True(t, AnyOtherOnline("me", []Participant{me, Found(dirdomain.User{ID: "o", IsOnline: true})}))
}

func TestIsLastMessageSeen(t *testing.T) {
	members := []string{"me", "a", "b"}
	last := &Message{Sender: "me", CreatedAt: 100}

	cases := []struct {
		name  string
		last  *Message
		marks map[string]int64
		want  bool
	}{
		{"no message", nil, map[string]int64{"a": 200, "b": 200}, false},
		{"sent by someone else", &Message{Sender: "a", CreatedAt: 100}, map[string]int64{"a": 200, "b": 200}, false},
		{"everyone caught up", last, map[string]int64{"a": 100, "b": 150}, true},
		{"one behind", last, map[string]int64{"a": 100, "b": 99}, false},
		{"one never read", last, map[string]int64{"a": 100}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, IsLastMessageSeen(c.last, "me", members, c.marks))
		})
	}
}

func TestViewState(t *testing.T) {
	var v ViewState
	_, ok := v.Selected()
	assert.False(t, ok)

	v.View("c-1")
	assert.True(t, v.IsViewing("c-1"))
	assert.False(t, v.IsViewing("c-2"))

	v.Leave()
	assert.False(t, v.IsViewing("c-1"))
}

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent(NewMessage, "c-1", Message{ID: "m-1"})
	require.NoError(t, err)
	assert.Contains(t, string(ev.Data), `"id":"m-1"`)

	ev, err = NewEvent(MemberRemoved, "c-1", nil)
	require.NoError(t, err)
	assert.Nil(t, ev.Data)
	assert.Equal(t, "chat:user:u-1", UserChannel("u-1"))
}
