package worker

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"interviewai/internal/ai"
	"interviewai/internal/model"
	"interviewai/internal/repository"
)

// Minimal in-memory fakes mirroring the storage contracts

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func (r *memSessions) Create(ctx context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return nil
}

func (r *memSessions) GetByID(ctx context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id], nil
}

func (r *memSessions) Save(ctx context.Context, s *model.Session) error { return nil }

func (r *memSessions) FindStaleOngoing(ctx context.Context, cutoff time.Time) ([]*model.Session, error) {
	return nil, nil
}

type memReports struct {
	mu      sync.Mutex
	reports map[string]*model.Report
}

func (r *memReports) Create(ctx context.Context, rep *model.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[rep.ID] = rep
	return nil
}

func (r *memReports) GetByID(ctx context.Context, id string) (*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reports[id]
	if !ok {
		return nil, nil
	}
	clone := *rep
	return &clone, nil
}

func (r *memReports) GetBySession(ctx context.Context, sessionID string) (*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.reports {
		if rep.SessionID == sessionID {
			clone := *rep
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *memReports) SetStatus(ctx context.Context, id string, status model.ReportStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reports[id]
	if !ok {
		return repository.ErrStatusRegression
	}
	if !rep.Status.CanTransition(status) {
		return repository.ErrStatusRegression
	}
	rep.Status = status
	return nil
}

func (r *memReports) SaveResult(ctx context.Context, rep *model.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *rep
	r.reports[rep.ID] = &clone
	return nil
}

func (r *memReports) EnsureIndexes(ctx context.Context) error { return nil }

type memQuestions struct {
	questions map[string]*model.Question
}

func (r *memQuestions) Create(ctx context.Context, q *model.Question) error { return nil }

func (r *memQuestions) GetByID(ctx context.Context, id string) (*model.Question, error) {
	return r.questions[id], nil
}

func (r *memQuestions) GetByIDs(ctx context.Context, ids []string) (map[string]*model.Question, error) {
	out := make(map[string]*model.Question, len(ids))
	for _, id := range ids {
		if q, ok := r.questions[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (r *memQuestions) GetByText(ctx context.Context, text string) (*model.Question, error) {
	return nil, nil
}

func (r *memQuestions) PickFromBank(ctx context.Context, category model.Category, difficulty model.Difficulty, excludeIDs []string) (*model.Question, error) {
	return nil, nil
}

func (r *memQuestions) MarkUsed(ctx context.Context, id string) error { return nil }

func (r *memQuestions) EnsureIndexes(ctx context.Context) error { return nil }

type memQueue struct{}

func (memQueue) Enqueue(ctx context.Context, reportID, sessionID string) error { return nil }
func (memQueue) Dequeue(ctx context.Context) (*model.ReportJob, error)         { return nil, nil }

type memStatusCache struct {
	mu       sync.Mutex
	statuses []model.ReportStatus
}

func (c *memStatusCache) SetStatus(ctx context.Context, reportID string, status model.ReportStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, status)
	return nil
}

func (c *memStatusCache) GetStatus(ctx context.Context, reportID string) (model.ReportStatus, bool, error) {
	return "", false, nil
}

// scriptedEvaluator returns fixed scores keyed by question id and can panic
// on chosen questions to exercise the per-item failure path
type scriptedEvaluator struct {
	scores  map[string]float64
	panicOn map[string]bool
}

func (e *scriptedEvaluator) EvaluateAnswer(ctx context.Context, question *model.Question, answer string) ai.EvalResult {
	if e.panicOn[question.ID] {
		panic("scripted evaluation failure")
	}
	return ai.EvalResult{
		Score:   e.scores[question.ID],
		Details: "Scored " + question.ID,
		Tips:    "Keep practicing",
	}
}

func (e *scriptedEvaluator) Summarize(ctx context.Context, feedback []model.FeedbackItem) model.Summary {
	return model.Summary{
		Strengths:  "Clear communication",
		Weaknesses: "More depth needed",
		NextSteps:  "Practice mock interviews",
	}
}

type workerFixture struct {
	worker    *ReportWorker
	sessions  *memSessions
	reports   *memReports
	questions *memQuestions
	cache     *memStatusCache
	evaluator *scriptedEvaluator
}

func newWorkerFixture() *workerFixture {
	fx := &workerFixture{
		sessions:  &memSessions{sessions: make(map[string]*model.Session)},
		reports:   &memReports{reports: make(map[string]*model.Report)},
		questions: &memQuestions{questions: make(map[string]*model.Question)},
		cache:     &memStatusCache{},
		evaluator: &scriptedEvaluator{scores: map[string]float64{}, panicOn: map[string]bool{}},
	}
	fx.worker = NewReportWorker(memQueue{}, fx.sessions, fx.reports, fx.questions, fx.evaluator, fx.cache)
	return fx
}

func answered(questionID string, answer string) model.HistoryItem {
	now := time.Now()
	return model.HistoryItem{
		QuestionID:   questionID,
		UserAnswer:   answer,
		TimestampEnd: &now,
	}
}

func (fx *workerFixture) addQuestion(id string, category model.Category) {
	fx.questions.questions[id] = &model.Question{
		ID:         id,
		Text:       "Question " + id,
		Category:   category,
		Difficulty: model.DifficultyMedium,
	}
}

func (fx *workerFixture) completedSession(id string, items ...model.HistoryItem) *model.Session {
	created := time.Now().Add(-20 * time.Minute)
	session := &model.Session{
		ID:           id,
		Status:       model.SessionCompleted,
		EndReason:    model.EndNaturalConclusion,
		History:      items,
		CreatedAt:    created,
		LastActivity: time.Now(),
	}
	fx.sessions.Create(context.Background(), session)
	return session
}

func (fx *workerFixture) pendingReport(id, sessionID string) {
	fx.reports.Create(context.Background(), &model.Report{
		ID:        id,
		SessionID: sessionID,
		Status:    model.ReportPending,
	})
}

func TestProcessCompletesReport(t *testing.T) {
	ctx := context.Background()
	fx := newWorkerFixture()

	fx.addQuestion("b1", model.CategoryBehavioral)
	fx.addQuestion("b2", model.CategoryBehavioral)
	fx.addQuestion("t1", model.CategoryTheory)
	fx.evaluator.scores = map[string]float64{"b1": 4.0, "b2": 3.0, "t1": 5.0}

	fx.completedSession("s1",
		answered("b1", "first answer"),
		answered("b2", "second answer"),
		answered("t1", "third answer"),
	)
	fx.pendingReport("r1", "s1")

	job := &model.ReportJob{JobID: "j1", ReportID: "r1", SessionID: "s1"}
	if err := fx.worker.Process(ctx, job); err != nil {
		t.Fatalf("process: %v", err)
	}

	report, _ := fx.reports.GetByID(ctx, "r1")
	if report.Status != model.ReportCompleted {
		t.Fatalf("expected completed, got %s", report.Status)
	}
	if len(report.DetailedFeedback) != 3 {
		t.Fatalf("expected 3 feedback items, got %d", len(report.DetailedFeedback))
	}
	// Feedback follows interview order
	if report.DetailedFeedback[0].Question != "Question b1" || report.DetailedFeedback[2].Question != "Question t1" {
		t.Errorf("feedback out of order: %v", report.DetailedFeedback)
	}

	if report.FinalScores.Behavioral != 3.5 {
		t.Errorf("behavioral mean = %.1f, want 3.5", report.FinalScores.Behavioral)
	}
	if report.FinalScores.Theory != 5.0 {
		t.Errorf("theory mean = %.1f, want 5.0", report.FinalScores.Theory)
	}
	if report.FinalScores.Coding != 0 {
		t.Errorf("unexercised category must stay 0, got %.1f", report.FinalScores.Coding)
	}
	// Overall averages only exercised categories: (3.5 + 5.0) / 2
	if report.OverallScore != 4.3 {
		t.Errorf("overall = %.1f, want 4.3", report.OverallScore)
	}
	if len(report.Metadata.ProcessingErrors) != 0 {
		t.Errorf("unexpected processing errors: %v", report.Metadata.ProcessingErrors)
	}
	if report.Summary.Strengths == "" {
		t.Error("expected a summary")
	}
}

func TestProcessSkipsFailedEvaluations(t *testing.T) {
	ctx := context.Background()
	fx := newWorkerFixture()

	fx.addQuestion("b1", model.CategoryBehavioral)
	fx.addQuestion("b2", model.CategoryBehavioral)
	fx.addQuestion("t1", model.CategoryTheory)
	fx.evaluator.scores = map[string]float64{"b1": 4.0, "t1": 3.0}
	fx.evaluator.panicOn = map[string]bool{"b2": true}

	fx.completedSession("s1",
		answered("b1", "first"),
		answered("b2", "second"),
		answered("t1", "third"),
	)
	fx.pendingReport("r1", "s1")

	if err := fx.worker.Process(ctx, &model.ReportJob{JobID: "j1", ReportID: "r1", SessionID: "s1"}); err != nil {
		t.Fatalf("process: %v", err)
	}

	report, _ := fx.reports.GetByID(ctx, "r1")
	if report.Status != model.ReportCompleted {
		t.Fatalf("per-item failures must still complete, got %s", report.Status)
	}
	if len(report.DetailedFeedback) != 2 {
		t.Errorf("expected the failed item skipped, got %d feedback items", len(report.DetailedFeedback))
	}
	if len(report.Metadata.ProcessingErrors) != 1 {
		t.Fatalf("expected 1 processing error, got %v", report.Metadata.ProcessingErrors)
	}
	if report.FinalScores.Behavioral != 4.0 {
		t.Errorf("failed item must not drag the mean, got %.1f", report.FinalScores.Behavioral)
	}
}

func TestProcessRecordsMissingQuestions(t *testing.T) {
	ctx := context.Background()
	fx := newWorkerFixture()

	fx.addQuestion("b1", model.CategoryBehavioral)
	fx.evaluator.scores = map[string]float64{"b1": 4.0}

	fx.completedSession("s1",
		answered("b1", "first"),
		answered("ghost", "second"),
	)
	fx.pendingReport("r1", "s1")

	if err := fx.worker.Process(ctx, &model.ReportJob{JobID: "j1", ReportID: "r1", SessionID: "s1"}); err != nil {
		t.Fatalf("process: %v", err)
	}

	report, _ := fx.reports.GetByID(ctx, "r1")
	if len(report.Metadata.ProcessingErrors) != 1 {
		t.Fatalf("expected 1 processing error, got %v", report.Metadata.ProcessingErrors)
	}
	if !strings.Contains(report.Metadata.ProcessingErrors[0], "ghost") {
		t.Errorf("error should name the missing question, got %q", report.Metadata.ProcessingErrors[0])
	}
}

func TestProcessDropsDuplicateJob(t *testing.T) {
	ctx := context.Background()
	fx := newWorkerFixture()

	fx.addQuestion("b1", model.CategoryBehavioral)
	fx.evaluator.scores = map[string]float64{"b1": 4.0}
	fx.completedSession("s1", answered("b1", "first"))
	fx.pendingReport("r1", "s1")

	job := &model.ReportJob{JobID: "j1", ReportID: "r1", SessionID: "s1"}
	if err := fx.worker.Process(ctx, job); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	before, _ := fx.reports.GetByID(ctx, "r1")

	// Redelivery of the same job must not touch the finished report
	if err := fx.worker.Process(ctx, job); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	after, _ := fx.reports.GetByID(ctx, "r1")
	if after.UpdatedAt != before.UpdatedAt || after.Status != before.Status {
		t.Error("duplicate delivery modified the report")
	}
}

func TestProcessFailsForUnfinishedSession(t *testing.T) {
	ctx := context.Background()
	fx := newWorkerFixture()

	session := fx.completedSession("s1")
	session.Status = model.SessionOngoing
	fx.pendingReport("r1", "s1")

	if err := fx.worker.Process(ctx, &model.ReportJob{JobID: "j1", ReportID: "r1", SessionID: "s1"}); err == nil {
		t.Fatal("expected an error for an ongoing session")
	}
}

func TestProcessFailsForMissingSession(t *testing.T) {
	ctx := context.Background()
	fx := newWorkerFixture()
	fx.pendingReport("r1", "gone")

	if err := fx.worker.Process(ctx, &model.ReportJob{JobID: "j1", ReportID: "r1", SessionID: "gone"}); err == nil {
		t.Fatal("expected an error for a missing session")
	}
}

func TestProcessTruncatesLongAnswers(t *testing.T) {
	ctx := context.Background()
	fx := newWorkerFixture()

	fx.addQuestion("b1", model.CategoryBehavioral)
	fx.evaluator.scores = map[string]float64{"b1": 4.0}

	long := strings.Repeat("x", 2000)
	fx.completedSession("s1", answered("b1", long))
	fx.pendingReport("r1", "s1")

	if err := fx.worker.Process(ctx, &model.ReportJob{JobID: "j1", ReportID: "r1", SessionID: "s1"}); err != nil {
		t.Fatalf("process: %v", err)
	}

	report, _ := fx.reports.GetByID(ctx, "r1")
	if got := len(report.DetailedFeedback[0].Answer); got != maxAnswerExcerpt {
		t.Errorf("answer excerpt length = %d, want %d", got, maxAnswerExcerpt)
	}
}

func TestRound1(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{3.44, 3.4},
		{3.45, 3.5},
		{4.25, 4.3},
		{0, 0},
	}
	for _, tt := range tests {
		if got := round1(tt.in); got != tt.want {
			t.Errorf("round1(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
