package domain

import (
	"encoding/json"
	"sort"

	dirdomain "chat_platform/internal/directory/domain"
)

const (
	// DefaultGroupImage image of a group without one
	DefaultGroupImage = "/default-group-image.png"
	// UnnamedGroup name of a group without one
	UnnamedGroup = "Unnamed Group"
	// UnknownUser name of a 1:1 whose other side no longer resolves
	UnknownUser = "Unknown User"
)

// Conversation 1:1 or group conversation
type Conversation struct {
	ID         string `bson:"_id" json:"id"`
	IsGroup    bool   `bson:"is_group" json:"is_group"`
	GroupName  string `bson:"group_name,omitempty" json:"group_name,omitempty"`
	GroupImage string `bson:"group_image,omitempty" json:"group_image,omitempty"`
	Admin      string `bson:"admin,omitempty" json:"admin,omitempty"`
	Initiator  string `bson:"initiator,omitempty" json:"initiator,omitempty"`
	// PairKey only set on 1:1, unique at the store
	PairKey   string `bson:"pair_key,omitempty" json:"-"`
	CreatedAt int64  `bson:"created_at" json:"created_at"`
}

// Membership user <-> conversation join row
type Membership struct {
	ID             string `bson:"_id" json:"id"`
	UserID         string `bson:"user" json:"user"`
	ConversationID string `bson:"conversation" json:"conversation"`
	CreatedAt      int64  `bson:"created_at" json:"created_at"`
}

// ReadMark last time (unix ms) the user acknowledged a conversation
type ReadMark struct {
	UserID         string `bson:"user" json:"user"`
	ConversationID string `bson:"conversation" json:"conversation"`
	LastReadTime   int64  `bson:"last_read_time" json:"last_read_time"`
}

// CreateConversationInput request of createConversation, GroupImage is a storage id
type CreateConversationInput struct {
	Participants []string `json:"participants"`
	IsGroup      bool     `json:"is_group"`
	GroupName    string   `json:"group_name,omitempty"`
	GroupImage   string   `json:"group_image,omitempty"`
	Admin        string   `json:"admin,omitempty"`
}

// PairKey order independent key of a 1:1 pair
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids[0] + ":" + ids[1]
}

// Participant either a resolved user or the id of one that no longer resolves
type Participant struct {
	id   string
	user *dirdomain.User
}

// Found participant backed by a directory user
func Found(u dirdomain.User) Participant {
	return Participant{id: u.ID, user: &u}
}

// Removed participant whose user record is gone
func Removed(id string) Participant {
	return Participant{id: id}
}

// ID user id of the participant
func (p Participant) ID() string { return p.id }

// User the resolved user, ok is false for a removed participant
func (p Participant) User() (dirdomain.User, bool) {
	if p.user == nil {
		return dirdomain.User{}, false
	}
	return *p.user, true
}

// MarshalJSON the user object, or null when removed
func (p Participant) MarshalJSON() ([]byte, error) {
	if p.user == nil {
		return []byte("null"), nil
	}
	return json.Marshal(p.user)
}

// ConversationView what a member sees for one conversation
type ConversationView struct {
	Conversation
	Name                   string        `json:"name"`
	Image                  string        `json:"image"`
	Participants           []Participant `json:"participants"`
	IsAnyParticipantOnline bool          `json:"is_any_participant_online"`
	LastMessage            *Message      `json:"last_message"`
	UnreadMessageCount     int64         `json:"unread_message_count"`
	IsLastMessageSeen      bool          `json:"is_last_message_seen"`
}

// DisplayFields name and image shown to viewerID
func DisplayFields(conv Conversation, viewerID string, participants []Participant) (name, image string) {
	if conv.IsGroup {
		name, image = conv.GroupName, conv.GroupImage
		if name == "" {
			name = UnnamedGroup
		}
		if image == "" {
			image = DefaultGroupImage
		}
		return name, image
	}

	for _, p := range participants {
		if p.ID() == viewerID {
			continue
		}
		u, ok := p.User()
		if !ok {
			break
		}
		name = u.Name
		if name == "" {
			name = u.Email
		}
		if name == "" {
			name = UnknownUser
		}
		image = u.Image
		if image == "" {
			image = dirdomain.PlaceholderImage
		}
		return name, image
	}
	return UnknownUser, dirdomain.PlaceholderImage
}

// AnyOtherOnline whether a resolved participant other than viewerID is online
func AnyOtherOnline(viewerID string, participants []Participant) bool {
	for _, p := range participants {
		if p.ID() == viewerID {
			continue
		}
		if u, ok := p.User(); ok && u.IsOnline {
			return true
		}
	}
	return false
}

// IsLastMessageSeen last was sent by viewerID and every other member's mark reached it
func IsLastMessageSeen(last *Message, viewerID string, memberIDs []string, marks map[string]int64) bool {
	if last == nil || last.Sender != viewerID {
		return false
	}
	for _, id := range memberIDs {
		if id == viewerID {
			continue
		}
		if marks[id] < last.CreatedAt {
			return false
		}
	}
	return true
}
