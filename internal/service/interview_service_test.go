package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"interviewai/internal/ai"
	"interviewai/internal/config"
	"interviewai/internal/model"
)

type fakeQuestionRepo struct {
	mu        sync.Mutex
	questions map[string]*model.Question
	nextID    int
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	repo := &fakeQuestionRepo{questions: make(map[string]*model.Question)}
	for _, c := range []model.Category{model.CategoryBehavioral, model.CategoryTheory, model.CategoryCoding} {
		for _, d := range []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard} {
			for i := 0; i < 4; i++ {
				repo.Create(context.Background(), &model.Question{
					Text:       fmt.Sprintf("%s %s question %d", c, d, i),
					Category:   c,
					Difficulty: d,
					Source:     model.SourceSeed,
				})
			}
		}
	}
	return repo
}

func (r *fakeQuestionRepo) Create(ctx context.Context, q *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	q.ID = fmt.Sprintf("q-%d", r.nextID)
	clone := *q
	r.questions[q.ID] = &clone
	return nil
}

func (r *fakeQuestionRepo) GetByID(ctx context.Context, id string) (*model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[id]
	if !ok {
		return nil, nil
	}
	clone := *q
	return &clone, nil
}

func (r *fakeQuestionRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*model.Question, error) {
	out := make(map[string]*model.Question, len(ids))
	for _, id := range ids {
		if q, _ := r.GetByID(ctx, id); q != nil {
			out[id] = q
		}
	}
	return out, nil
}

func (r *fakeQuestionRepo) GetByText(ctx context.Context, text string) (*model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.questions {
		if q.Text == text {
			clone := *q
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeQuestionRepo) PickFromBank(ctx context.Context, category model.Category, difficulty model.Difficulty, excludeIDs []string) (*model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	for i := 1; i <= r.nextID; i++ {
		id := fmt.Sprintf("q-%d", i)
		q, ok := r.questions[id]
		if ok && !excluded[id] && q.Category == category && q.Difficulty == difficulty {
			clone := *q
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeQuestionRepo) MarkUsed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.questions[id]; ok {
		q.UsageCount++
	}
	return nil
}

func (r *fakeQuestionRepo) EnsureIndexes(ctx context.Context) error { return nil }

type disabledGenerator struct{}

func (disabledGenerator) Enabled() bool { return false }
func (disabledGenerator) GenerateJSON(ctx context.Context, modelName, prompt string) (string, error) {
	return "", errors.New("disabled")
}

type scriptedGenerator struct {
	reply string
	err   error
}

func (scriptedGenerator) Enabled() bool { return true }
func (g scriptedGenerator) GenerateJSON(ctx context.Context, modelName, prompt string) (string, error) {
	return g.reply, g.err
}

type interviewFixture struct {
	svc       *InterviewService
	sessions  *fakeSessionRepo
	reports   *fakeReportRepo
	queue     *fakeQueue
	questions *fakeQuestionRepo
}

func newInterviewFixture() *interviewFixture {
	return newInterviewFixtureWith(disabledGenerator{})
}

func newInterviewFixtureWith(gen ai.Generator) *interviewFixture {
	sessions := newFakeSessionRepo()
	reports := newFakeReportRepo()
	q := &fakeQueue{}
	finalizer := NewFinalizer(sessions, reports, q, newFakeStatusCache())

	cfg := config.DefaultAIConfig()
	orchestrator := ai.NewOrchestrator(gen, cfg)
	runner := ai.NewCodeRunner(cfg)

	questions := newFakeQuestionRepo()
	svc := NewInterviewService(sessions, questions, orchestrator, runner, finalizer)
	return &interviewFixture{svc: svc, sessions: sessions, reports: reports, queue: q, questions: questions}
}

func startRequest() *StartRequest {
	return &StartRequest{
		Role:          "Backend Engineer",
		Company:       "Acme",
		InterviewType: model.TypeBehavioral,
		InterviewMode: model.ModeSpecific,
	}
}

func TestStartCreatesSessionWithOpenQuestion(t *testing.T) {
	ctx := context.Background()
	fx := newInterviewFixture()

	resp, err := fx.svc.Start(ctx, startRequest())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if !strings.Contains(resp.Greeting, "Backend Engineer") {
		t.Errorf("greeting should name the role, got %q", resp.Greeting)
	}
	if resp.Question == "" {
		t.Error("expected a first question")
	}

	session, _ := fx.sessions.GetByID(ctx, resp.SessionID)
	if session.Status != model.SessionOngoing {
		t.Errorf("expected ongoing, got %s", session.Status)
	}
	if session.CurrentDifficulty != model.DifficultyMedium {
		t.Errorf("sessions start at medium, got %s", session.CurrentDifficulty)
	}
	if open := session.OpenItem(); open == nil {
		t.Error("expected one open history item")
	}
}

func TestStartValidation(t *testing.T) {
	ctx := context.Background()
	fx := newInterviewFixture()

	req := startRequest()
	req.Role = "  "
	if _, err := fx.svc.Start(ctx, req); err == nil {
		t.Error("expected an error for a blank role")
	}

	req = startRequest()
	req.InterviewType = "Vibes Check"
	if _, err := fx.svc.Start(ctx, req); err == nil {
		t.Error("expected an error for an unknown interview type")
	}

	req = startRequest()
	req.InterviewMode = "turbo"
	if _, err := fx.svc.Start(ctx, req); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}

func TestStartDefaultsCompany(t *testing.T) {
	ctx := context.Background()
	fx := newInterviewFixture()

	req := startRequest()
	req.Company = ""
	resp, err := fx.svc.Start(ctx, req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	session, _ := fx.sessions.GetByID(ctx, resp.SessionID)
	if session.Company != "Tech Company" {
		t.Errorf("expected the default company, got %q", session.Company)
	}
}

func TestNextStepClosesAndOpensExactlyOne(t *testing.T) {
	ctx := context.Background()
	fx := newInterviewFixture()
	resp, _ := fx.svc.Start(ctx, startRequest())

	step, err := fx.svc.NextStep(ctx, resp.SessionID, strings.Repeat("a solid detailed answer ", 10))
	if err != nil {
		t.Fatalf("next step: %v", err)
	}
	if step.Action != ai.ActionContinue {
		t.Fatalf("expected CONTINUE, got %s", step.Action)
	}
	if step.Dialogue == "" {
		t.Error("expected dialogue with the next question")
	}

	session, _ := fx.sessions.GetByID(ctx, resp.SessionID)
	if len(session.History) != 2 {
		t.Fatalf("expected 2 history items, got %d", len(session.History))
	}
	if !session.History[0].Answered() {
		t.Error("the first item must be closed")
	}
	if session.History[0].Analysis == nil {
		t.Error("closed items carry an analysis")
	}
	if session.History[1].Answered() {
		t.Error("the new item must be open")
	}

	open := 0
	for i := range session.History {
		if !session.History[i].Answered() {
			open++
		}
	}
	if open != 1 {
		t.Errorf("expected exactly one open item, got %d", open)
	}
}

func TestNextStepMissingSession(t *testing.T) {
	fx := newInterviewFixture()
	if _, err := fx.svc.NextStep(context.Background(), "absent", "hi"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestNextStepOnFinishedSession(t *testing.T) {
	ctx := context.Background()
	fx := newInterviewFixture()
	resp, _ := fx.svc.Start(ctx, startRequest())

	if err := fx.svc.End(ctx, resp.SessionID); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := fx.svc.NextStep(ctx, resp.SessionID, "late answer"); !errors.Is(err, ErrSessionFinished) {
		t.Errorf("expected ErrSessionFinished, got %v", err)
	}
}

func TestNextStepRudenessEscalation(t *testing.T) {
	ctx := context.Background()
	fx := newInterviewFixture()
	resp, _ := fx.svc.Start(ctx, startRequest())

	rude := "this is stupid, why would anyone ask that"

	step, err := fx.svc.NextStep(ctx, resp.SessionID, rude)
	if err != nil {
		t.Fatalf("first rude step: %v", err)
	}
	if step.Action != ai.ActionContinue || step.Warnings != 1 {
		t.Fatalf("first offense warns, got action=%s warnings=%d", step.Action, step.Warnings)
	}

	step, err = fx.svc.NextStep(ctx, resp.SessionID, rude)
	if err != nil {
		t.Fatalf("second rude step: %v", err)
	}
	if step.Action != ai.ActionEndInterview {
		t.Fatalf("second offense ends the interview, got %s", step.Action)
	}

	session, _ := fx.sessions.GetByID(ctx, resp.SessionID)
	if session.Status != model.SessionCompleted {
		t.Errorf("expected completed, got %s", session.Status)
	}
	if session.EndReason != model.EndInappropriate {
		t.Errorf("expected inappropriate_behavior, got %s", session.EndReason)
	}
	if fx.queue.size() != 1 {
		t.Errorf("the conduct ending still queues a report, got %d jobs", fx.queue.size())
	}
}

func TestNextStepRudenessRepeatsQuestionWithLiveGenerator(t *testing.T) {
	ctx := context.Background()
	fx := newInterviewFixtureWith(scriptedGenerator{reply: `{"action":"CONTINUE","dialogue":"Next one.","category":"theory","difficulty":"medium"}`})
	resp, _ := fx.svc.Start(ctx, startRequest())

	before, _ := fx.sessions.GetByID(ctx, resp.SessionID)
	asked := before.OpenItem().QuestionID
	original, _ := fx.questions.GetByID(ctx, asked)

	step, err := fx.svc.NextStep(ctx, resp.SessionID, "this is stupid, why would anyone ask that")
	if err != nil {
		t.Fatalf("next step: %v", err)
	}
	if step.Action != ai.ActionContinue || step.Warnings != 1 {
		t.Fatalf("expected a first warning, got action=%s warnings=%d", step.Action, step.Warnings)
	}
	if !strings.Contains(step.Dialogue, original.Text) {
		t.Errorf("warning dialogue should repeat the question, got %q", step.Dialogue)
	}

	session, _ := fx.sessions.GetByID(ctx, resp.SessionID)
	open := session.OpenItem()
	if open == nil || open.QuestionID != asked {
		t.Fatalf("expected the same question back on the table, got %+v", open)
	}

	fx.questions.mu.Lock()
	defer fx.questions.mu.Unlock()
	for _, q := range fx.questions.questions {
		if strings.Contains(q.Text, "professional") {
			t.Errorf("warning dialogue was persisted as a question: %q", q.Text)
		}
	}
}

func TestSpecificInterviewRunsToNaturalEnd(t *testing.T) {
	ctx := context.Background()
	fx := newInterviewFixture()
	resp, _ := fx.svc.Start(ctx, startRequest())

	answer := strings.Repeat("thorough answer with plenty of substance ", 8)
	var last *StepResponse
	for i := 0; i < 10; i++ {
		step, err := fx.svc.NextStep(ctx, resp.SessionID, answer)
		if err != nil {
			t.Fatalf("step %d: %v", i+1, err)
		}
		last = step
		if step.Action == ai.ActionEndInterview {
			break
		}
	}
	if last == nil || last.Action != ai.ActionEndInterview {
		t.Fatal("expected the interview to end within 10 answers")
	}

	session, _ := fx.sessions.GetByID(ctx, resp.SessionID)
	if session.Status != model.SessionCompleted {
		t.Errorf("expected completed, got %s", session.Status)
	}
	if session.EndReason != model.EndNaturalConclusion {
		t.Errorf("expected natural_conclusion, got %s", session.EndReason)
	}
	report, _ := fx.reports.GetBySession(ctx, resp.SessionID)
	if report == nil {
		t.Error("expected a queued report")
	}
}

func TestEndIsIdempotentThroughService(t *testing.T) {
	ctx := context.Background()
	fx := newInterviewFixture()
	resp, _ := fx.svc.Start(ctx, startRequest())

	for i := 0; i < 3; i++ {
		if err := fx.svc.End(ctx, resp.SessionID); err != nil {
			t.Fatalf("end #%d: %v", i+1, err)
		}
	}
	if fx.queue.size() != 1 {
		t.Errorf("repeated end queued %d jobs, want 1", fx.queue.size())
	}
}

func TestAbandonSkipsReport(t *testing.T) {
	ctx := context.Background()
	fx := newInterviewFixture()
	resp, _ := fx.svc.Start(ctx, startRequest())

	if err := fx.svc.Abandon(ctx, resp.SessionID); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	session, _ := fx.sessions.GetByID(ctx, resp.SessionID)
	if session.Status != model.SessionAbandoned {
		t.Errorf("expected abandoned, got %s", session.Status)
	}
	if fx.queue.size() != 0 {
		t.Error("abandoned sessions must not queue reports")
	}
}
