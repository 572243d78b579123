package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"interviewai/internal/model"
)

// ErrVersionConflict is returned when an optimistic save loses the race
// against a concurrent writer
var ErrVersionConflict = errors.New("session was modified concurrently")

// SessionRepo handles MongoDB operations for sessions
type SessionRepo interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id string) (*model.Session, error)
	// Save replaces the session iff the stored version matches, then
	// increments it. Returns ErrVersionConflict on a lost race.
	Save(ctx context.Context, session *model.Session) error
	// FindStaleOngoing returns ongoing sessions idle since before cutoff
	FindStaleOngoing(ctx context.Context, cutoff time.Time) ([]*model.Session, error)
}

type sessionRepo struct {
	collection *mongo.Collection
}

// NewSessionRepo creates a new session repository
func NewSessionRepo(db *mongo.Database) SessionRepo {
	return &sessionRepo{
		collection: db.Collection("sessions"),
	}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.Session) error {
	if session.ID == "" {
		session.ID = primitive.NewObjectID().Hex()
	}
	session.Version = 1
	_, err := r.collection.InsertOne(ctx, session)
	return err
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) Save(ctx context.Context, session *model.Session) error {
	expected := session.Version
	session.Version = expected + 1

	result, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": session.ID, "version": expected},
		session,
	)
	if err != nil {
		session.Version = expected
		return err
	}
	if result.MatchedCount == 0 {
		session.Version = expected
		return ErrVersionConflict
	}
	return nil
}

func (r *sessionRepo) FindStaleOngoing(ctx context.Context, cutoff time.Time) ([]*model.Session, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"status":       model.SessionOngoing,
		"lastActivity": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
