package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"interviewai/internal/model"
)

// QuestionRepo handles MongoDB operations for the question bank
type QuestionRepo interface {
	Create(ctx context.Context, question *model.Question) error
	GetByID(ctx context.Context, id string) (*model.Question, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*model.Question, error)
	// GetByText resolves a question by exact text, for deduplication
	GetByText(ctx context.Context, text string) (*model.Question, error)
	// PickFromBank selects the least-used question matching category and
	// difficulty, excluding already-asked ids
	PickFromBank(ctx context.Context, category model.Category, difficulty model.Difficulty, excludeIDs []string) (*model.Question, error)
	MarkUsed(ctx context.Context, id string) error
	EnsureIndexes(ctx context.Context) error
}

type questionRepo struct {
	collection *mongo.Collection
}

// NewQuestionRepo creates a new question repository
func NewQuestionRepo(db *mongo.Database) QuestionRepo {
	return &questionRepo{
		collection: db.Collection("questions"),
	}
}

func (r *questionRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "text", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *questionRepo) Create(ctx context.Context, question *model.Question) error {
	if question.ID == "" {
		question.ID = primitive.NewObjectID().Hex()
	}
	if question.CreatedAt.IsZero() {
		question.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, question)
	return err
}

func (r *questionRepo) GetByID(ctx context.Context, id string) (*model.Question, error) {
	var question model.Question
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&question)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*model.Question, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var questions []*model.Question
	if err = cursor.All(ctx, &questions); err != nil {
		return nil, err
	}

	byID := make(map[string]*model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return byID, nil
}

func (r *questionRepo) GetByText(ctx context.Context, text string) (*model.Question, error) {
	var question model.Question
	err := r.collection.FindOne(ctx, bson.M{"text": text}).Decode(&question)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepo) PickFromBank(ctx context.Context, category model.Category, difficulty model.Difficulty, excludeIDs []string) (*model.Question, error) {
	filter := bson.M{
		"category":   category,
		"difficulty": difficulty,
	}
	if len(excludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": excludeIDs}
	}

	// Prefer the least-used question so the bank rotates
	opts := options.FindOne().SetSort(bson.D{
		{Key: "usageCount", Value: 1},
		{Key: "lastUsed", Value: 1},
	})

	var question model.Question
	err := r.collection.FindOne(ctx, filter, opts).Decode(&question)
	if err == mongo.ErrNoDocuments {
		// Relax the difficulty constraint before giving up
		delete(filter, "difficulty")
		err = r.collection.FindOne(ctx, filter, opts).Decode(&question)
	}
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepo) MarkUsed(ctx context.Context, id string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"usageCount": 1},
			"$set": bson.M{"lastUsed": time.Now()},
		},
	)
	return err
}
