package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"interviewai/internal/model"
)

// ReportStatusCache keeps the latest report status hot for the polling API
type ReportStatusCache interface {
	SetStatus(ctx context.Context, reportID string, status model.ReportStatus) error
	GetStatus(ctx context.Context, reportID string) (model.ReportStatus, bool, error)
}

type reportStatusCache struct {
	client *redis.Client
}

// NewReportStatusCache creates a new report status cache
func NewReportStatusCache(client *redis.Client) ReportStatusCache {
	return &reportStatusCache{client: client}
}

func (c *reportStatusCache) SetStatus(ctx context.Context, reportID string, status model.ReportStatus) error {
	return c.client.Set(ctx, "report:status:"+reportID, string(status), 10*time.Minute).Err()
}

func (c *reportStatusCache) GetStatus(ctx context.Context, reportID string) (model.ReportStatus, bool, error) {
	value, err := c.client.Get(ctx, "report:status:"+reportID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return model.ReportStatus(value), true, nil
}
