// Package queue is a durable Redis-backed job queue for report generation.
// Delivery is at-least-once; consumers must guard against duplicate jobs.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"interviewai/internal/model"
)

// JobName is the single job type this queue carries
const JobName = "generate-report"

const queueKey = "queue:" + JobName

// ReportQueue enqueues and consumes generate-report jobs
type ReportQueue interface {
	Enqueue(ctx context.Context, reportID, sessionID string) error
	// Dequeue blocks until a job is available or the context is done
	Dequeue(ctx context.Context) (*model.ReportJob, error)
}

type reportQueue struct {
	client *redis.Client
}

// NewReportQueue creates a new Redis-backed report queue
func NewReportQueue(client *redis.Client) ReportQueue {
	return &reportQueue{client: client}
}

func (q *reportQueue) Enqueue(ctx context.Context, reportID, sessionID string) error {
	job := model.ReportJob{
		JobID:     uuid.NewString(),
		ReportID:  reportID,
		SessionID: sessionID,
	}
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, queueKey, data).Err()
}

func (q *reportQueue) Dequeue(ctx context.Context) (*model.ReportJob, error) {
	// Short block so context cancellation is honored promptly
	result, err := q.client.BRPop(ctx, 2*time.Second, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}

	var job model.ReportJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, err
	}
	return &job, nil
}
