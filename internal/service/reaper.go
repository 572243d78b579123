package service

import (
	"context"
	"log"
	"time"

	"interviewai/internal/model"
	"interviewai/internal/repository"
)

// Reaper finalizes sessions that went quiet. A session with no activity for
// the idle timeout is treated as hitting its time limit, so the candidate
// still gets a report for what they answered.
type Reaper struct {
	sessions  repository.SessionRepo
	finalizer *Finalizer
	idleAfter time.Duration
	interval  time.Duration
}

// NewReaper creates a new session reaper
func NewReaper(sessions repository.SessionRepo, finalizer *Finalizer, idleAfter, interval time.Duration) *Reaper {
	return &Reaper{
		sessions:  sessions,
		finalizer: finalizer,
		idleAfter: idleAfter,
		interval:  interval,
	}
}

// Run sweeps on a fixed interval until the context is cancelled
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Printf("[reaper] started, idle timeout %s, sweep every %s", r.idleAfter, r.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[reaper] stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.idleAfter)
	stale, err := r.sessions.FindStaleOngoing(ctx, cutoff)
	if err != nil {
		log.Printf("[reaper] stale session query failed: %v", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	log.Printf("[reaper] finalizing %d stale session(s)", len(stale))
	for _, session := range stale {
		if err := r.finalizer.Finalize(ctx, session.ID, model.EndTimeLimit); err != nil {
			log.Printf("[reaper] finalize %s failed: %v", session.ID, err)
		}
	}
}
