package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"interviewai/internal/ai"
	"interviewai/internal/analysis"
	"interviewai/internal/model"
	"interviewai/internal/policy"
	"interviewai/internal/repository"
)

var (
	// ErrSessionNotFound means the session id resolves to nothing
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionFinished means the session is already terminal
	ErrSessionFinished = errors.New("session already finished")
	// ErrNoOpenQuestion means an answer arrived with nothing awaiting one
	ErrNoOpenQuestion = errors.New("no open question awaiting an answer")
)

// StartRequest carries the parameters for a new interview
type StartRequest struct {
	Role             string              `json:"role"`
	Company          string              `json:"company"`
	CandidateContext string              `json:"candidateContext"`
	InterviewType    model.InterviewType `json:"interviewType"`
	InterviewMode    model.InterviewMode `json:"interviewMode"`
}

// StartResponse is returned on session creation
type StartResponse struct {
	SessionID    string `json:"sessionId"`
	Greeting     string `json:"greeting"`
	Question     string `json:"question"`
	CurrentStage int    `json:"currentStage"`
}

// StepResponse is the interviewer's reply to one answer
type StepResponse struct {
	Action       ai.ActionType `json:"action"`
	Dialogue     string        `json:"dialogue"`
	CurrentStage int           `json:"currentStage"`
	Warnings     int           `json:"warnings"`
}

// InterviewService owns the session state machine. All answer processing for
// one session runs inside that session's critical section.
type InterviewService struct {
	sessions     repository.SessionRepo
	questions    repository.QuestionRepo
	orchestrator *ai.Orchestrator
	runner       *ai.CodeRunner
	finalizer    *Finalizer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewInterviewService creates a new interview service
func NewInterviewService(
	sessions repository.SessionRepo,
	questions repository.QuestionRepo,
	orchestrator *ai.Orchestrator,
	runner *ai.CodeRunner,
	finalizer *Finalizer,
) *InterviewService {
	return &InterviewService{
		sessions:     sessions,
		questions:    questions,
		orchestrator: orchestrator,
		runner:       runner,
		finalizer:    finalizer,
		locks:        make(map[string]*sync.Mutex),
	}
}

// lockSession returns the per-session mutex, creating it on first use.
// Single-writer discipline per session id: combined with the version check
// on save this guarantees at most one resolution per open history item.
func (s *InterviewService) lockSession(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// Start creates a new ongoing session with its greeting and first question
func (s *InterviewService) Start(ctx context.Context, req *StartRequest) (*StartResponse, error) {
	req.Role = strings.TrimSpace(req.Role)
	if req.Role == "" {
		return nil, fmt.Errorf("role is required")
	}
	if !model.ValidInterviewType(req.InterviewType) {
		return nil, fmt.Errorf("invalid interview type %q", req.InterviewType)
	}
	if req.InterviewMode != model.ModeFull && req.InterviewMode != model.ModeSpecific {
		return nil, fmt.Errorf("invalid interview mode %q", req.InterviewMode)
	}
	company := strings.TrimSpace(req.Company)
	if company == "" {
		company = "Tech Company"
	}

	now := time.Now()
	session := &model.Session{
		Role:              req.Role,
		Company:           company,
		CandidateContext:  strings.TrimSpace(req.CandidateContext),
		InterviewType:     req.InterviewType,
		InterviewMode:     req.InterviewMode,
		Status:            model.SessionOngoing,
		CurrentDifficulty: model.DifficultyMedium,
		CurrentStage:      1,
		ConversationMemory: &model.ConversationMemory{
			MentionedExperiences: []model.MentionedExperience{},
			TechnicalTopics:      []string{},
			PersonalTraits:       []string{},
		},
		CreatedAt:    now,
		LastActivity: now,
	}

	greeting := fmt.Sprintf(
		"Hi, thanks for coming in today! I'll be conducting your %s interview for the %s position at %s. Ready to get started?",
		session.InterviewType, session.Role, session.Company)
	session.Messages = append(session.Messages, model.Message{Role: model.RoleAssistant, Content: greeting})

	category := firstCategory(session)
	question, err := s.resolveBankQuestion(ctx, session, category, session.CurrentDifficulty)
	if err != nil {
		return nil, fmt.Errorf("resolve first question: %w", err)
	}

	session.History = append(session.History, model.HistoryItem{
		QuestionID:     question.ID,
		TimestampStart: now,
		Stage:          session.CurrentStage,
	})
	session.Messages = append(session.Messages, model.Message{Role: model.RoleAssistant, Content: question.Text})
	session.Refresh(now)

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &StartResponse{
		SessionID:    session.ID,
		Greeting:     greeting,
		Question:     question.Text,
		CurrentStage: session.CurrentStage,
	}, nil
}

// Get returns a session by id
func (s *InterviewService) Get(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// NextStep applies one answer to the session and returns the interviewer's
// next move. Safe to call concurrently; duplicate calls for an already
// terminal session are reported as ErrSessionFinished, not corruption.
func (s *InterviewService) NextStep(ctx context.Context, sessionID, answer string) (*StepResponse, error) {
	lock := s.lockSession(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Status.IsTerminal() {
		return nil, ErrSessionFinished
	}

	open := session.OpenItem()
	if open == nil {
		return nil, ErrNoOpenQuestion
	}

	current, err := s.questions.GetByID(ctx, open.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("resolve current question: %w", err)
	}
	category := model.CategoryBehavioral
	if current != nil {
		category = current.Category
	}

	// Close the open item
	now := time.Now()
	result := analysis.Analyze(answer, category)
	open.UserAnswer = strings.TrimSpace(answer)
	if open.UserAnswer == "" {
		open.UserAnswer = "(no answer)"
	}
	open.TimestampEnd = &now
	seconds := int(now.Sub(open.TimestampStart).Seconds())
	open.ResponseTimeSeconds = &seconds
	open.Analysis = &model.Analysis{
		Score:       analysis.HeuristicScore(answer, category),
		IsWeak:      result.IsWeak,
		IsRude:      result.IsRude,
		Sentiment:   result.Sentiment,
		Emotions:    result.Emotions,
		EvaluatedAt: now,
	}
	session.Messages = append(session.Messages, model.Message{Role: model.RoleUser, Content: open.UserAnswer})
	if result.IsRude {
		session.Warnings++
	}
	s.rememberAnswer(session, open.UserAnswer, result)

	// Policy runs on the updated history
	decision := policy.Evaluate(session.History, session.CurrentDifficulty, session.CurrentStage, session.InterviewMode)
	session.CurrentDifficulty = decision.NextDifficulty
	if decision.StageAdvanced {
		session.CurrentStage = decision.NextStage
	}

	action := s.orchestrator.NextAction(ctx, session, result, decision, current)

	switch action.Type {
	case ai.ActionContinue:
		if action.Repeat {
			// Conduct warning: the same question goes back on the table,
			// the dialogue never becomes a Question of its own
			dialogue := action.Dialogue
			if current != nil {
				dialogue = dialogue + " " + current.Text
			}
			session.History = append(session.History, model.HistoryItem{
				QuestionID:     open.QuestionID,
				TimestampStart: now,
				Stage:          session.CurrentStage,
			})
			session.Messages = append(session.Messages, model.Message{Role: model.RoleAssistant, Content: dialogue})
			action.Dialogue = dialogue
			break
		}
		question, dialogue, err := s.resolveNextQuestion(ctx, session, action)
		if err != nil {
			return nil, fmt.Errorf("resolve next question: %w", err)
		}
		session.History = append(session.History, model.HistoryItem{
			QuestionID:     question.ID,
			IsFollowUp:     result.IsWeak && !result.IsRude,
			TimestampStart: now,
			Stage:          session.CurrentStage,
		})
		session.Messages = append(session.Messages, model.Message{Role: model.RoleAssistant, Content: dialogue})
		action.Dialogue = dialogue

	case ai.ActionEndInterview:
		session.Messages = append(session.Messages, model.Message{Role: model.RoleAssistant, Content: action.Dialogue})
		session.Status = model.SessionCompleted
		session.EndReason = action.EndReason
	}

	session.Prune()
	session.Refresh(now)
	if err := s.sessions.Save(ctx, session); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			// A concurrent writer won; this resolution is discarded
			log.Printf("[interview] save conflict for session %s, dropping step", sessionID)
			return nil, ErrSessionFinished
		}
		return nil, fmt.Errorf("save session: %w", err)
	}

	if action.Type == ai.ActionEndInterview {
		if err := s.finalizer.Finalize(ctx, session.ID, action.EndReason); err != nil {
			log.Printf("[interview] finalize after end action failed for %s: %v", session.ID, err)
		}
	}

	return &StepResponse{
		Action:       action.Type,
		Dialogue:     action.Dialogue,
		CurrentStage: session.CurrentStage,
		Warnings:     session.Warnings,
	}, nil
}

// End terminates a session on the user's request
func (s *InterviewService) End(ctx context.Context, sessionID string) error {
	return s.finalizer.Finalize(ctx, sessionID, model.EndUserEnded)
}

// Abandon marks an ongoing session abandoned without producing a report
func (s *InterviewService) Abandon(ctx context.Context, sessionID string) error {
	lock := s.lockSession(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if session.Status.IsTerminal() {
		return nil
	}
	session.Status = model.SessionAbandoned
	session.Refresh(time.Now())
	return s.sessions.Save(ctx, session)
}

// SubmitCode runs candidate code through the execution collaborator and
// stores the result on the open coding item as a side signal
func (s *InterviewService) SubmitCode(ctx context.Context, sessionID, sourceCode string, languageID int) (*model.CodeResult, error) {
	result, err := s.runner.Run(ctx, sourceCode, languageID)
	if err != nil {
		return nil, err
	}

	lock := s.lockSession(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil || session == nil {
		return result, err
	}
	if open := session.OpenItem(); open != nil {
		open.CodeResult = result
		session.Refresh(time.Now())
		if err := s.sessions.Save(ctx, session); err != nil {
			log.Printf("[interview] could not store code result for %s: %v", sessionID, err)
		}
	}
	return result, nil
}

// rememberAnswer grows the conversation memory from a scored answer
func (s *InterviewService) rememberAnswer(session *model.Session, answer string, result analysis.Result) {
	if session.ConversationMemory == nil {
		session.ConversationMemory = &model.ConversationMemory{}
	}
	mem := session.ConversationMemory

	mem.TechnicalTopics = append(mem.TechnicalTopics, analysis.ExtractTopics(answer)...)
	mem.PersonalTraits = append(mem.PersonalTraits, result.Emotions...)

	if company, ok := analysis.ExtractCompanyMention(answer); ok {
		excerpt := answer
		if len(excerpt) > 100 {
			excerpt = excerpt[:100]
		}
		mem.MentionedExperiences = append(mem.MentionedExperiences, model.MentionedExperience{
			Type:        "company",
			Value:       []string{company},
			Context:     excerpt,
			MentionedAt: time.Now(),
		})
	}
}

// resolveNextQuestion turns a CONTINUE action into a persisted Question plus
// the dialogue line to show. AI-authored questions are deduplicated by exact
// text; mock dialogue gets the bank question appended.
func (s *InterviewService) resolveNextQuestion(ctx context.Context, session *model.Session, action ai.Action) (*model.Question, string, error) {
	text := strings.TrimSpace(action.Dialogue)

	existing, err := s.questions.GetByText(ctx, text)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		if err := s.questions.MarkUsed(ctx, existing.ID); err != nil {
			log.Printf("[interview] mark used failed for %s: %v", existing.ID, err)
		}
		return existing, text, nil
	}

	if s.orchestrator.Enabled() {
		question := &model.Question{
			Text:       text,
			Category:   action.Category,
			Difficulty: action.Difficulty,
			Source:     model.SourceAI,
		}
		if action.Category == model.CategoryCoding {
			langID := 93 // JavaScript
			question.LanguageID = &langID
		}
		if err := s.questions.Create(ctx, question); err != nil {
			return nil, "", err
		}
		return question, text, nil
	}

	// Mock dialogue carries no question; draw one from the seed bank
	question, err := s.resolveBankQuestion(ctx, session, action.Category, action.Difficulty)
	if err != nil {
		return nil, "", err
	}
	return question, action.Dialogue + " " + question.Text, nil
}

func (s *InterviewService) resolveBankQuestion(ctx context.Context, session *model.Session, category model.Category, difficulty model.Difficulty) (*model.Question, error) {
	asked := make([]string, 0, len(session.History))
	for i := range session.History {
		asked = append(asked, session.History[i].QuestionID)
	}

	question, err := s.questions.PickFromBank(ctx, category, difficulty, asked)
	if err != nil {
		return nil, err
	}
	if question != nil {
		if err := s.questions.MarkUsed(ctx, question.ID); err != nil {
			log.Printf("[interview] mark used failed for %s: %v", question.ID, err)
		}
		return question, nil
	}

	// Bank exhausted; fall back to a generic prompt for the category
	question = &model.Question{
		Text:       genericQuestion(category, session.Role),
		Category:   category,
		Difficulty: difficulty,
		Source:     model.SourceManual,
	}
	existing, err := s.questions.GetByText(ctx, question.Text)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	if err := s.questions.Create(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

func firstCategory(session *model.Session) model.Category {
	if session.InterviewMode == model.ModeFull {
		return model.CategoryBehavioral
	}
	switch session.InterviewType {
	case model.TypeCodingChallenge:
		return model.CategoryCoding
	case model.TypeSystemDesign, model.TypeTechnicalScreen:
		return model.CategoryTheory
	default:
		return model.CategoryBehavioral
	}
}

func genericQuestion(category model.Category, role string) string {
	switch category {
	case model.CategoryTheory:
		return fmt.Sprintf("What technical concepts do you consider most important for a %s, and why?", role)
	case model.CategoryCoding:
		return "Write a function that returns the most frequent element in an array."
	default:
		return "Tell me about a recent project you are proud of and your role in it."
	}
}
