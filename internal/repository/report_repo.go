package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"interviewai/internal/model"
)

// ErrDuplicateReport is returned when a report already exists for a session
var ErrDuplicateReport = errors.New("report already exists for session")

// ErrStatusRegression is returned on an attempted backward status move
var ErrStatusRegression = errors.New("report status cannot move backward")

// ReportRepo handles MongoDB operations for reports. The session reference
// is unique: at most one report exists per session.
type ReportRepo interface {
	Create(ctx context.Context, report *model.Report) error
	GetByID(ctx context.Context, id string) (*model.Report, error)
	GetBySession(ctx context.Context, sessionID string) (*model.Report, error)
	// SetStatus advances the lifecycle; backward moves are rejected
	SetStatus(ctx context.Context, id string, status model.ReportStatus) error
	// SaveResult writes the completed report body in one update
	SaveResult(ctx context.Context, report *model.Report) error
	EnsureIndexes(ctx context.Context) error
}

type reportRepo struct {
	collection *mongo.Collection
}

// NewReportRepo creates a new report repository
func NewReportRepo(db *mongo.Database) ReportRepo {
	return &reportRepo{
		collection: db.Collection("reports"),
	}
}

func (r *reportRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *reportRepo) Create(ctx context.Context, report *model.Report) error {
	if report.ID == "" {
		report.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now()
	report.CreatedAt = now
	report.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, report)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateReport
	}
	return err
}

func (r *reportRepo) GetByID(ctx context.Context, id string) (*model.Report, error) {
	var report model.Report
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepo) GetBySession(ctx context.Context, sessionID string) (*model.Report, error) {
	var report model.Report
	err := r.collection.FindOne(ctx, bson.M{"session": sessionID}).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepo) SetStatus(ctx context.Context, id string, status model.ReportStatus) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return mongo.ErrNoDocuments
	}
	if !current.Status.CanTransition(status) {
		return ErrStatusRegression
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": current.Status},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
	)
	return err
}

func (r *reportRepo) SaveResult(ctx context.Context, report *model.Report) error {
	report.UpdatedAt = time.Now()
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": report.ID},
		bson.M{"$set": bson.M{
			"status":           report.Status,
			"summary":          report.Summary,
			"overallScore":     report.OverallScore,
			"finalScores":      report.FinalScores,
			"detailedFeedback": report.DetailedFeedback,
			"metadata":         report.Metadata,
			"updatedAt":        report.UpdatedAt,
		}},
	)
	return err
}
