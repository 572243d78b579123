package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"interviewai/internal/cache"
	"interviewai/internal/model"
	"interviewai/internal/repository"
)

var (
	// ErrReportNotFound means no report exists for the given id
	ErrReportNotFound = errors.New("report not found")
	// ErrSessionNotFinished means a report was requested for a session that
	// has not completed
	ErrSessionNotFinished = errors.New("session has not finished")
)

// ReportLookup is the polling view of one report
type ReportLookup struct {
	Report *model.Report `json:"report"`
	// Ready is true once the worker has produced the final body
	Ready bool `json:"ready"`
}

// ReportService serves report reads and lazily backfills reports for
// completed sessions that somehow missed finalization
type ReportService struct {
	sessions    repository.SessionRepo
	reports     repository.ReportRepo
	statusCache cache.ReportStatusCache
	finalizer   *Finalizer
}

// NewReportService creates a new report service
func NewReportService(
	sessions repository.SessionRepo,
	reports repository.ReportRepo,
	statusCache cache.ReportStatusCache,
	finalizer *Finalizer,
) *ReportService {
	return &ReportService{
		sessions:    sessions,
		reports:     reports,
		statusCache: statusCache,
		finalizer:   finalizer,
	}
}

// BySession returns the report for a session, creating and queueing one if
// the session completed without it. Returns ErrSessionNotFinished when the
// session is still ongoing or was abandoned.
func (s *ReportService) BySession(ctx context.Context, sessionID string) (*ReportLookup, error) {
	report, err := s.reports.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("look up report: %w", err)
	}
	if report != nil {
		return &ReportLookup{Report: report, Ready: report.Status == model.ReportCompleted}, nil
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != model.SessionCompleted {
		return nil, ErrSessionNotFinished
	}

	// Completed session without a report: recover by finalizing again
	log.Printf("[report] backfilling missing report for completed session %s", sessionID)
	if err := s.finalizer.Finalize(ctx, sessionID, session.EndReason); err != nil {
		return nil, err
	}
	report, err = s.reports.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("look up report: %w", err)
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	return &ReportLookup{Report: report, Ready: report.Status == model.ReportCompleted}, nil
}

// Status answers the polling endpoint. The Redis cache short-circuits the
// database for non-terminal states; completed reports always come from the
// database so the body is included.
func (s *ReportService) Status(ctx context.Context, reportID string) (*ReportLookup, error) {
	status, found, err := s.statusCache.GetStatus(ctx, reportID)
	if err != nil {
		log.Printf("[report] status cache read failed for %s: %v", reportID, err)
	}
	if found && status != model.ReportCompleted {
		return &ReportLookup{
			Report: &model.Report{ID: reportID, Status: status},
			Ready:  false,
		}, nil
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	return &ReportLookup{Report: report, Ready: report.Status == model.ReportCompleted}, nil
}
