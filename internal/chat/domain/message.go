package domain

import dirdomain "chat_platform/internal/directory/domain"

// MessageType content kind of a message
type MessageType string

const (
	// MessageText plain text
	MessageText MessageType = "text"
	// MessageImage content is an image url
	MessageImage MessageType = "image"
	// MessageVideo content is a video url
	MessageVideo MessageType = "video"
)

// Message immutable chat message
type Message struct {
	ID             string      `bson:"_id" json:"id"`
	ConversationID string      `bson:"conversation" json:"conversation"`
	Sender         string      `bson:"sender" json:"sender"`
	Content        string      `bson:"content" json:"content"`
	MessageType    MessageType `bson:"message_type" json:"message_type"`
	CreatedAt      int64       `bson:"created_at" json:"created_at"`
}

// MessageView message with its sender resolved
type MessageView struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation"`
	Sender         dirdomain.User `json:"sender"`
	Content        string         `json:"content"`
	MessageType    MessageType    `json:"message_type"`
	CreatedAt      int64          `json:"created_at"`
}

// NewMessageView combine m with its sender
func NewMessageView(m Message, sender dirdomain.User) MessageView {
	return MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         sender,
		Content:        m.Content,
		MessageType:    m.MessageType,
		CreatedAt:      m.CreatedAt,
	}
}
