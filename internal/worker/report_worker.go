package worker

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"interviewai/internal/ai"
	"interviewai/internal/cache"
	"interviewai/internal/model"
	"interviewai/internal/queue"
	"interviewai/internal/repository"
)

const maxAnswerExcerpt = 500

// AnswerEvaluator scores answers and writes the closing summary
type AnswerEvaluator interface {
	EvaluateAnswer(ctx context.Context, question *model.Question, answer string) ai.EvalResult
	Summarize(ctx context.Context, feedback []model.FeedbackItem) model.Summary
}

// ReportWorker consumes report jobs and produces the scored report body.
// Per-answer evaluation failures degrade the report instead of failing it;
// only structural problems (missing session, storage errors) fail the job.
type ReportWorker struct {
	queue       queue.ReportQueue
	sessions    repository.SessionRepo
	reports     repository.ReportRepo
	questions   repository.QuestionRepo
	evaluator   AnswerEvaluator
	statusCache cache.ReportStatusCache
}

// NewReportWorker creates a new report worker
func NewReportWorker(
	q queue.ReportQueue,
	sessions repository.SessionRepo,
	reports repository.ReportRepo,
	questions repository.QuestionRepo,
	evaluator AnswerEvaluator,
	statusCache cache.ReportStatusCache,
) *ReportWorker {
	return &ReportWorker{
		queue:       q,
		sessions:    sessions,
		reports:     reports,
		questions:   questions,
		evaluator:   evaluator,
		statusCache: statusCache,
	}
}

// Run consumes jobs until the context is cancelled
func (w *ReportWorker) Run(ctx context.Context) {
	log.Println("[worker] report worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("[worker] report worker stopped")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("[worker] dequeue failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		if err := w.Process(ctx, job); err != nil {
			log.Printf("[worker] job %s for report %s failed: %v", job.JobID, job.ReportID, err)
			w.markFailed(ctx, job.ReportID)
		}
	}
}

// Process handles one job end to end. Redelivered jobs for a report that
// already moved past pending are dropped without side effects.
func (w *ReportWorker) Process(ctx context.Context, job *model.ReportJob) error {
	report, err := w.reports.GetByID(ctx, job.ReportID)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	if report == nil {
		return fmt.Errorf("report %s does not exist", job.ReportID)
	}
	if report.Status != model.ReportPending {
		log.Printf("[worker] report %s already %s, dropping job %s", report.ID, report.Status, job.JobID)
		return nil
	}

	session, err := w.sessions.GetByID(ctx, job.SessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return fmt.Errorf("session %s does not exist", job.SessionID)
	}
	if session.Status != model.SessionCompleted {
		return fmt.Errorf("session %s is %s, not completed", session.ID, session.Status)
	}

	if err := w.reports.SetStatus(ctx, report.ID, model.ReportProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	w.cacheStatus(ctx, report.ID, model.ReportProcessing)

	feedback, scores, overall, procErrors := w.evaluate(ctx, session)

	report.Status = model.ReportCompleted
	report.Summary = w.evaluator.Summarize(ctx, feedback)
	report.OverallScore = overall
	report.FinalScores = scores
	report.DetailedFeedback = feedback
	report.Metadata = model.ReportMetadata{
		TotalQuestions:         len(session.History),
		AnsweredQuestions:      len(feedback) + len(procErrors),
		SessionDurationMinutes: sessionMinutes(session),
		ProcessingErrors:       procErrors,
	}

	if err := w.reports.SaveResult(ctx, report); err != nil {
		return fmt.Errorf("save report result: %w", err)
	}
	w.cacheStatus(ctx, report.ID, model.ReportCompleted)
	log.Printf("[worker] report %s completed, overall %.1f", report.ID, overall)
	return nil
}

// evaluate scores every answered history item in interview order. An item
// whose evaluation fails is recorded in procErrors and left out of the
// feedback and the averages.
func (w *ReportWorker) evaluate(ctx context.Context, session *model.Session) ([]model.FeedbackItem, model.FinalScores, float64, []string) {
	ids := make([]string, 0, len(session.History))
	for i := range session.History {
		ids = append(ids, session.History[i].QuestionID)
	}
	questionsByID, err := w.questions.GetByIDs(ctx, ids)
	if err != nil {
		log.Printf("[worker] bulk question load failed: %v", err)
		questionsByID = map[string]*model.Question{}
	}

	feedback := make([]model.FeedbackItem, 0, len(session.History))
	procErrors := []string{}
	sums := map[model.Category]float64{}
	counts := map[model.Category]int{}

	for i := range session.History {
		item := &session.History[i]
		if !item.Answered() {
			continue
		}

		question := questionsByID[item.QuestionID]
		if question == nil {
			procErrors = append(procErrors, fmt.Sprintf("question %s missing for answer %d", item.QuestionID, i+1))
			continue
		}

		eval, err := w.evaluateOne(ctx, question, item.UserAnswer)
		if err != nil {
			procErrors = append(procErrors, fmt.Sprintf("evaluation failed for question %d: %v", i+1, err))
			continue
		}

		feedback = append(feedback, model.FeedbackItem{
			Question: question.Text,
			Category: question.Category,
			Answer:   truncate(item.UserAnswer, maxAnswerExcerpt),
			Score:    eval.Score,
			Details:  eval.Details,
			Tips:     eval.Tips,
		})
		sums[question.Category] += eval.Score
		counts[question.Category]++
	}

	scores := model.FinalScores{
		Behavioral: round1(mean(sums[model.CategoryBehavioral], counts[model.CategoryBehavioral])),
		Theory:     round1(mean(sums[model.CategoryTheory], counts[model.CategoryTheory])),
		Coding:     round1(mean(sums[model.CategoryCoding], counts[model.CategoryCoding])),
	}

	// Overall averages only the categories that were actually exercised
	total, n := 0.0, 0
	for _, v := range []float64{scores.Behavioral, scores.Theory, scores.Coding} {
		if v > 0 {
			total += v
			n++
		}
	}
	overall := 0.0
	if n > 0 {
		overall = round1(total / float64(n))
	}
	return feedback, scores, overall, procErrors
}

func (w *ReportWorker) evaluateOne(ctx context.Context, question *model.Question, answer string) (result ai.EvalResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluator panic: %v", r)
		}
	}()
	result = w.evaluator.EvaluateAnswer(ctx, question, answer)
	return result, nil
}

func (w *ReportWorker) markFailed(ctx context.Context, reportID string) {
	if err := w.reports.SetStatus(ctx, reportID, model.ReportFailed); err != nil {
		log.Printf("[worker] could not mark report %s failed: %v", reportID, err)
		return
	}
	w.cacheStatus(ctx, reportID, model.ReportFailed)
}

func (w *ReportWorker) cacheStatus(ctx context.Context, reportID string, status model.ReportStatus) {
	if err := w.statusCache.SetStatus(ctx, reportID, status); err != nil {
		log.Printf("[worker] status cache write failed for report %s: %v", reportID, err)
	}
}

func sessionMinutes(session *model.Session) int {
	return int(session.LastActivity.Sub(session.CreatedAt).Minutes())
}

func mean(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
