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

// ErrDuplicatePair a 1:1 conversation for the pair already exists
var ErrDuplicatePair = errors.New("duplicate one-to-one conversation")

// ConversationRepository definition conversation documents. Lookups return (nil, nil) when absent.
type ConversationRepository interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, conv *domain.Conversation) error
	FindByID(ctx context.Context, id string) (*domain.Conversation, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.Conversation, error)
	FindByPairKey(ctx context.Context, pairKey string) (*domain.Conversation, error)
	Delete(ctx context.Context, id string) error
}

type conversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{coll: db.Collection("conversations")}
}

func (r *conversationRepository) EnsureIndexes(ctx context.Context) error {
	return database.EnsureIndexes(ctx, r.coll, mongo.IndexModel{
		Keys: bson.D{{Key: "pair_key", Value: 1}},
		Options: options.Index().
			SetName("pair_key_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"pair_key": bson.M{"$type": "string"}}),
	})
}

func (r *conversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	_, err := r.coll.InsertOne(ctx, conv)
	if mongo.IsDuplicateKeyError(err) && conv.PairKey != "" {
		return ErrDuplicatePair
	}
	return err
}

func (r *conversationRepository) findOne(ctx context.Context, filter bson.M) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, filter).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *conversationRepository) FindByPairKey(ctx context.Context, pairKey string) (*domain.Conversation, error) {
	return r.findOne(ctx, bson.M{"pair_key": pairKey})
}

func (r *conversationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *conversationRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Conversation, error) {
	convs := []domain.Conversation{}
	if len(ids) == 0 {
		return convs, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	if err := cur.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// MembershipRepository definition user_conversations join rows
type MembershipRepository interface {
	EnsureIndexes(ctx context.Context) error
	CreateMany(ctx context.Context, rows []domain.Membership) error
	FindByUser(ctx context.Context, userID string) ([]domain.Membership, error)
	FindByConversation(ctx context.Context, conversationID string) ([]domain.Membership, error)
	Exists(ctx context.Context, userID, conversationID string) (bool, error)
	// Delete reports whether a row was removed
	Delete(ctx context.Context, userID, conversationID string) (bool, error)
}

type membershipRepository struct {
	coll *mongo.Collection
}

// NewMongoMembershipRepository create a MembershipRepository
func NewMongoMembershipRepository(db *mongo.Database) MembershipRepository {
	return &membershipRepository{coll: db.Collection("user_conversations")}
}

func (r *membershipRepository) EnsureIndexes(ctx context.Context) error {
	return database.EnsureIndexes(ctx, r.coll,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "conversation", Value: 1}},
			Options: options.Index().SetName("user_conversation_unique").SetUnique(true),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "conversation", Value: 1}},
			Options: options.Index().SetName("by_conversation"),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("by_user_created"),
		},
	)
}

// CreateMany insert rows, rows that already exist are skipped so a retry is safe
func (r *membershipRepository) CreateMany(ctx context.Context, rows []domain.Membership) error {
	if len(rows) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row)
	}
	_, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// find rows in creation order
func (r *membershipRepository) find(ctx context.Context, filter bson.M) ([]domain.Membership, error) {
	rows := []domain.Membership{}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *membershipRepository) FindByUser(ctx context.Context, userID string) ([]domain.Membership, error) {
	return r.find(ctx, bson.M{"user": userID})
}

func (r *membershipRepository) FindByConversation(ctx context.Context, conversationID string) ([]domain.Membership, error) {
	return r.find(ctx, bson.M{"conversation": conversationID})
}

func (r *membershipRepository) Exists(ctx context.Context, userID, conversationID string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"user": userID, "conversation": conversationID}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *membershipRepository) Delete(ctx context.Context, userID, conversationID string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"user": userID, "conversation": conversationID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
