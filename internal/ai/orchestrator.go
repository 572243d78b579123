package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"interviewai/internal/analysis"
	"interviewai/internal/config"
	"interviewai/internal/model"
	"interviewai/internal/policy"
)

// ActionType tags the orchestrator's decision
type ActionType string

const (
	ActionContinue     ActionType = "CONTINUE"
	ActionEndInterview ActionType = "END_INTERVIEW"
)

// Action is the fully-resolved next step for the state machine. The
// orchestrator never surfaces transport errors; a failed collaborator call
// becomes a synthetic END_INTERVIEW.
type Action struct {
	Type       ActionType
	Dialogue   string
	Category   model.Category
	Difficulty model.Difficulty
	EndReason  model.EndReason
	// Repeat re-asks the question already on the table instead of
	// resolving a new one. The dialogue is framing, not a question.
	Repeat bool
}

// Generator is the dialogue-generation collaborator
type Generator interface {
	Enabled() bool
	GenerateJSON(ctx context.Context, modelName, prompt string) (string, error)
}

const (
	// Specific-mode interviews end after this many questions
	maxQuestions = 7

	fallbackClosing = "I seem to be having a technical issue on our end, so let's wrap up here. Thank you so much for your time today."
	conductClosing  = "I'm going to stop the interview here. We expect professional conduct throughout the session. Thank you for your time."
	naturalClosing  = "That concludes our session. Thank you for your thoughtful responses — your performance report will be ready shortly."
)

// Orchestrator turns session state plus the latest answer analysis into the
// next interviewer action
type Orchestrator struct {
	gen Generator
	cfg *config.AIConfig
}

// NewOrchestrator creates a new dialogue orchestrator
func NewOrchestrator(gen Generator, cfg *config.AIConfig) *Orchestrator {
	return &Orchestrator{gen: gen, cfg: cfg}
}

// Enabled reports whether dialogue comes from the live collaborator rather
// than the deterministic mock path
func (o *Orchestrator) Enabled() bool {
	return o.gen.Enabled()
}

// NextAction decides the interviewer's next move. Rudeness handling and
// terminal conditions are resolved locally, before any collaborator call.
func (o *Orchestrator) NextAction(ctx context.Context, session *model.Session, last analysis.Result, decision policy.Decision, current *model.Question) Action {
	if last.IsRude {
		return o.rudenessAction(session, current)
	}

	if decision.Complete {
		return Action{
			Type:      ActionEndInterview,
			Dialogue:  naturalClosing,
			EndReason: model.EndNaturalConclusion,
		}
	}

	category := o.nextCategory(session, decision)
	difficulty := decision.NextDifficulty

	if session.InterviewMode == model.ModeSpecific && answeredCount(session) >= maxQuestions {
		return Action{
			Type:      ActionEndInterview,
			Dialogue:  naturalClosing,
			EndReason: model.EndNaturalConclusion,
		}
	}

	if !o.gen.Enabled() {
		return o.mockContinue(last, decision, category, difficulty)
	}

	prompt := o.buildInterviewerPrompt(session, last, decision, category, difficulty)
	raw, err := o.gen.GenerateJSON(ctx, o.cfg.Models.Dialogue, prompt)
	if err != nil {
		log.Printf("[orchestrator] dialogue generation failed, ending interview: %v", err)
		return Action{
			Type:      ActionEndInterview,
			Dialogue:  fallbackClosing,
			EndReason: model.EndTechnicalError,
		}
	}

	action, ok := parseAction(raw, category, difficulty)
	if !ok {
		log.Printf("[orchestrator] unparseable collaborator reply, ending interview")
		return Action{
			Type:      ActionEndInterview,
			Dialogue:  fallbackClosing,
			EndReason: model.EndTechnicalError,
		}
	}
	return action
}

// rudenessAction escalates conduct violations without touching the network.
// The session's warning counter has already been incremented for this answer.
func (o *Orchestrator) rudenessAction(session *model.Session, current *model.Question) Action {
	category := model.CategoryBehavioral
	difficulty := session.CurrentDifficulty
	if current != nil {
		category = current.Category
		difficulty = current.Difficulty
	}

	if session.Warnings <= 1 {
		return Action{
			Type:       ActionContinue,
			Dialogue:   "Let's keep things professional, please. I'll give you another chance — let's try that question again.",
			Category:   category,
			Difficulty: difficulty,
			Repeat:     true,
		}
	}
	return Action{
		Type:      ActionEndInterview,
		Dialogue:  conductClosing,
		EndReason: model.EndInappropriate,
	}
}

func (o *Orchestrator) mockContinue(last analysis.Result, decision policy.Decision, category model.Category, difficulty model.Difficulty) Action {
	var sb strings.Builder
	if decision.TransitionText != "" {
		sb.WriteString(decision.TransitionText)
		sb.WriteString(" ")
	} else if last.IsWeak {
		sb.WriteString("Thanks — that answer could use a bit more depth. ")
	} else {
		sb.WriteString("Thanks for sharing. ")
	}
	sb.WriteString("Let me ask you the next question.")

	return Action{
		Type:       ActionContinue,
		Dialogue:   sb.String(),
		Category:   category,
		Difficulty: difficulty,
	}
}

// nextCategory picks the track of the next question. Full-mode interviews
// walk behavioral -> theory -> coding by stage; specific interviews stay on
// the round's track.
func (o *Orchestrator) nextCategory(session *model.Session, decision policy.Decision) model.Category {
	if session.InterviewMode == model.ModeFull {
		switch decision.NextStage {
		case 1:
			return model.CategoryBehavioral
		case 2:
			return model.CategoryTheory
		default:
			return model.CategoryCoding
		}
	}

	switch session.InterviewType {
	case model.TypeBehavioral:
		return model.CategoryBehavioral
	case model.TypeCodingChallenge:
		return model.CategoryCoding
	case model.TypeSystemDesign, model.TypeTechnicalScreen:
		return model.CategoryTheory
	default:
		// Full Simulation in specific mode rotates by answer count
		switch answeredCount(session) % 3 {
		case 0:
			return model.CategoryBehavioral
		case 1:
			return model.CategoryTheory
		default:
			return model.CategoryCoding
		}
	}
}

func answeredCount(session *model.Session) int {
	n := 0
	for i := range session.History {
		if session.History[i].Answered() {
			n++
		}
	}
	return n
}

func (o *Orchestrator) buildInterviewerPrompt(session *model.Session, last analysis.Result, decision policy.Decision, category model.Category, difficulty model.Difficulty) string {
	recent := session.Messages
	if len(recent) > 8 {
		recent = recent[len(recent)-8:]
	}
	var history strings.Builder
	for _, msg := range recent {
		speaker := "Candidate"
		if msg.Role == model.RoleAssistant {
			speaker = "Interviewer"
		}
		fmt.Fprintf(&history, "%s: %s\n", speaker, msg.Content)
	}

	instruction := fmt.Sprintf("Proceed to the next question smoothly. Constraints: category %q, difficulty %q.", category, difficulty)
	if decision.TransitionText != "" {
		instruction = fmt.Sprintf("First acknowledge the phase change (%s), then ask the next question. Constraints: category %q, difficulty %q.", decision.TransitionText, category, difficulty)
	} else if last.IsWeak {
		instruction = fmt.Sprintf("The candidate's last answer was weak (%s). Ask one short clarifying follow-up before moving on. Constraints: category %q, difficulty %q.", strings.Join(last.Reasons, "; "), category, difficulty)
	}

	memory := ""
	if mem := session.ConversationMemory; mem != nil && len(mem.TechnicalTopics) > 0 {
		memory = "Topics the candidate has mentioned: " + strings.Join(mem.TechnicalTopics, ", ") + "."
	}

	return fmt.Sprintf(`You are a friendly, professional AI interviewer conducting a %s interview for a %s position at %s.
Ask only one question at a time, with a brief natural acknowledgment of the previous answer.
%s

Return ONLY valid JSON matching this schema:
{
  "action": "CONTINUE" or "END_INTERVIEW",
  "dialogue": "what the interviewer says next, including the question if continuing",
  "category": "behavioral" or "theory" or "coding",
  "difficulty": "easy" or "medium" or "hard"
}

Conversation so far:
%s

Your next action: %s`,
		session.InterviewType, session.Role, companyOrDefault(session.Company), memory, history.String(), instruction)
}

func companyOrDefault(company string) string {
	if company == "" {
		return "a top tech company"
	}
	return company
}

// parseAction decodes a collaborator reply, tolerating prose around the JSON
// payload. Defaults fill in missing category/difficulty on CONTINUE.
func parseAction(raw string, defaultCategory model.Category, defaultDifficulty model.Difficulty) (Action, bool) {
	payload := raw
	if extracted, ok := ExtractJSON(raw); ok {
		payload = extracted
	}

	var reply struct {
		Action     string `json:"action"`
		Dialogue   string `json:"dialogue"`
		Category   string `json:"category"`
		Difficulty string `json:"difficulty"`
	}
	if err := json.Unmarshal([]byte(payload), &reply); err != nil {
		return Action{}, false
	}
	if reply.Dialogue == "" {
		return Action{}, false
	}

	switch reply.Action {
	case string(ActionEndInterview):
		return Action{
			Type:      ActionEndInterview,
			Dialogue:  reply.Dialogue,
			EndReason: model.EndNaturalConclusion,
		}, true
	case string(ActionContinue):
		action := Action{
			Type:       ActionContinue,
			Dialogue:   reply.Dialogue,
			Category:   model.Category(reply.Category),
			Difficulty: model.Difficulty(reply.Difficulty),
		}
		if !model.ValidCategory(action.Category) {
			action.Category = defaultCategory
		}
		switch action.Difficulty {
		case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
		default:
			action.Difficulty = defaultDifficulty
		}
		return action, true
	default:
		return Action{}, false
	}
}
