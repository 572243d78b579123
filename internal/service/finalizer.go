package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"interviewai/internal/cache"
	"interviewai/internal/model"
	"interviewai/internal/queue"
	"interviewai/internal/repository"
)

// Finalizer moves a session to completed and kicks off report generation.
// Finalize is idempotent: any number of concurrent or repeated calls for one
// session yield exactly one report and at most one queued job.
type Finalizer struct {
	sessions    repository.SessionRepo
	reports     repository.ReportRepo
	queue       queue.ReportQueue
	statusCache cache.ReportStatusCache
}

// NewFinalizer creates a new finalizer
func NewFinalizer(
	sessions repository.SessionRepo,
	reports repository.ReportRepo,
	q queue.ReportQueue,
	statusCache cache.ReportStatusCache,
) *Finalizer {
	return &Finalizer{
		sessions:    sessions,
		reports:     reports,
		queue:       q,
		statusCache: statusCache,
	}
}

// Finalize completes the session with the given reason and enqueues report
// generation. A session that is already terminal keeps its original end
// reason; a missing session is a no-op.
func (f *Finalizer) Finalize(ctx context.Context, sessionID string, reason model.EndReason) error {
	session, err := f.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil
	}

	if !session.Status.IsTerminal() {
		session.Status = model.SessionCompleted
		session.EndReason = reason
		session.Refresh(time.Now())
		if err := f.sessions.Save(ctx, session); err != nil {
			if !errors.Is(err, repository.ErrVersionConflict) {
				return fmt.Errorf("complete session: %w", err)
			}
			// A concurrent writer got there first. Re-read before the
			// terminal checks: the winner may have abandoned the session.
			log.Printf("[finalizer] concurrent completion of session %s", sessionID)
			session, err = f.sessions.GetByID(ctx, sessionID)
			if err != nil {
				return fmt.Errorf("reload session: %w", err)
			}
			if session == nil {
				return nil
			}
		}
	}

	if session.Status == model.SessionAbandoned {
		return nil
	}

	return f.ensureReport(ctx, session)
}

// ensureReport creates the pending report and queues its job. The unique
// session index is the arbiter under concurrency: whoever inserts first owns
// the enqueue, everyone else backs off.
func (f *Finalizer) ensureReport(ctx context.Context, session *model.Session) error {
	sessionID := session.ID
	existing, err := f.reports.GetBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("look up report: %w", err)
	}
	if existing != nil {
		return nil
	}

	report := &model.Report{
		SessionID: sessionID,
		Status:    model.ReportPending,
		Role:      session.Role,
		Company:   session.Company,
	}
	if err := f.reports.Create(ctx, report); err != nil {
		if errors.Is(err, repository.ErrDuplicateReport) {
			return nil
		}
		return fmt.Errorf("create report: %w", err)
	}

	if err := f.statusCache.SetStatus(ctx, report.ID, model.ReportPending); err != nil {
		log.Printf("[finalizer] status cache write failed for report %s: %v", report.ID, err)
	}

	if err := f.queue.Enqueue(ctx, report.ID, sessionID); err != nil {
		return fmt.Errorf("enqueue report job: %w", err)
	}
	log.Printf("[finalizer] report %s queued for session %s", report.ID, sessionID)
	return nil
}
