package domain

import (
	"encoding/json"
	"sync"
)

// UserChannel redis channel of a user's realtime feed
func UserChannel(userID string) string {
	return "chat:user:" + userID
}

// Action websocket request action / pushed event name
type Action string

const (
	// ViewConversation websocket action view_conversation
	ViewConversation Action = "view_conversation"
	// LeaveConversation websocket action leave_conversation
	LeaveConversation Action = "leave_conversation"
	// MarkRead websocket action mark_read
	MarkRead Action = "mark_read"
	// GetConversations websocket action get_conversations
	GetConversations Action = "get_conversations"

	// NewMessage pushed when a member sends a message
	NewMessage Action = "new_message"
	// ConversationCreated pushed to every participant of a new conversation
	ConversationCreated Action = "conversation_created"
	// MemberRemoved pushed to the kicked user
	MemberRemoved Action = "member_removed"

	// ActionError response to an unusable request
	ActionError Action = "error"
)

// Event published on a user channel
type Event struct {
	Action         Action          `json:"action"`
	ConversationID string          `json:"conversation_id"`
	Data           json.RawMessage `json:"data,omitempty"`
}

// NewEvent encode data into an Event
func NewEvent(action Action, conversationID string, data interface{}) (Event, error) {
	ev := Event{Action: action, ConversationID: conversationID}
	if data == nil {
		return ev, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return ev, err
	}
	ev.Data = raw
	return ev, nil
}

// WSRequest websocket Request
type WSRequest struct {
	Action         string `json:"action"`
	ConversationID string `json:"conversation_id"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// ViewState which conversation a websocket session is looking at.
// One per session, read by the subscription goroutine and written by the read loop.
type ViewState struct {
	mu                    sync.RWMutex
	selectedConversation  string
	isViewingConversation bool
}

// View select conversationID
func (v *ViewState) View(conversationID string) {
	v.mu.Lock()
	v.selectedConversation = conversationID
	v.isViewingConversation = conversationID != ""
	v.mu.Unlock()
}

// Leave clear the selection
func (v *ViewState) Leave() {
	v.mu.Lock()
	v.selectedConversation = ""
	v.isViewingConversation = false
	v.mu.Unlock()
}

// Selected current conversation, ok is false when nothing is viewed
func (v *ViewState) Selected() (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.selectedConversation, v.isViewingConversation
}

// IsViewing whether conversationID is the one on screen
func (v *ViewState) IsViewing(conversationID string) bool {
	id, ok := v.Selected()
	return ok && id == conversationID
}
