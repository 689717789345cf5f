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

// ReadMarkRepository definition user_conversation_reads
type ReadMarkRepository interface {
	EnsureIndexes(ctx context.Context) error
	// Upsert update the mark in place, insert it when absent
	Upsert(ctx context.Context, userID, conversationID string, lastReadTime int64) error
	Find(ctx context.Context, userID, conversationID string) (*domain.ReadMark, error)
	FindByConversation(ctx context.Context, conversationID string) ([]domain.ReadMark, error)
}

type readMarkRepository struct {
	coll *mongo.Collection
}

// NewMongoReadMarkRepository create a ReadMarkRepository
func NewMongoReadMarkRepository(db *mongo.Database) ReadMarkRepository {
	return &readMarkRepository{coll: db.Collection("user_conversation_reads")}
}

func (r *readMarkRepository) EnsureIndexes(ctx context.Context) error {
	return database.EnsureIndexes(ctx, r.coll,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "conversation", Value: 1}},
			Options: options.Index().SetName("user_conversation_unique").SetUnique(true),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "conversation", Value: 1}},
			Options: options.Index().SetName("by_conversation"),
		},
	)
}

func (r *readMarkRepository) Upsert(ctx context.Context, userID, conversationID string, lastReadTime int64) error {
	filter := bson.M{"user": userID, "conversation": conversationID}
	update := bson.M{"$set": bson.M{"last_read_time": lastReadTime}}
	_, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *readMarkRepository) Find(ctx context.Context, userID, conversationID string) (*domain.ReadMark, error) {
	var mark domain.ReadMark
	err := r.coll.FindOne(ctx, bson.M{"user": userID, "conversation": conversationID}).Decode(&mark)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mark, nil
}

func (r *readMarkRepository) FindByConversation(ctx context.Context, conversationID string) ([]domain.ReadMark, error) {
	marks := []domain.ReadMark{}
	cur, err := r.coll.Find(ctx, bson.M{"conversation": conversationID})
	if err != nil {
		return nil, err
	}
	if err := cur.All(ctx, &marks); err != nil {
		return nil, err
	}
	return marks, nil
}
