package repository

import (
	"context"
	"errors"

	"chat_platform/internal/chat/domain"
	"chat_platform/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository definition immutable messages
type MessageRepository interface {
	EnsureIndexes(ctx context.Context) error
	Insert(ctx context.Context, msg *domain.Message) error
	// FindByConversation ascending created_at
	FindByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
	// FindLast most recent message, nil when the conversation is empty
	FindLast(ctx context.Context, conversationID string) (*domain.Message, error)
	// CountUnread messages created after `after` whose sender is not excludeSender
	CountUnread(ctx context.Context, conversationID string, after int64, excludeSender string) (int64, error)
}

type messageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{coll: db.Collection("messages")}
}

func (r *messageRepository) EnsureIndexes(ctx context.Context) error {
	return database.EnsureIndexes(ctx, r.coll, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation", Value: 1}, {Key: "created_at", Value: 1}},
		Options: options.Index().SetName("conversation_created_at"),
	})
}

func (r *messageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *messageRepository) FindByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"conversation": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	msgs := []domain.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) FindLast(ctx context.Context, conversationID string) (*domain.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	var msg domain.Message
	err := r.coll.FindOne(ctx, bson.M{"conversation": conversationID}, opts).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, conversationID string, after int64, excludeSender string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{
		"conversation": conversationID,
		"created_at":   bson.M{"$gt": after},
		"sender":       bson.M{"$ne": excludeSender},
	})
}
