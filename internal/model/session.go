package model

import "time"

// SessionStatus is the lifecycle state of an interview session
type SessionStatus string

const (
	SessionOngoing   SessionStatus = "ongoing"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
	SessionError     SessionStatus = "error"
)

// IsTerminal reports whether the status is absorbing
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionAbandoned || s == SessionError
}

// InterviewMode selects between the staged full simulation and a single round
type InterviewMode string

const (
	ModeFull     InterviewMode = "full"
	ModeSpecific InterviewMode = "specific"
)

// InterviewType is the round the session focuses on
type InterviewType string

const (
	TypeBehavioral      InterviewType = "Behavioral"
	TypeSystemDesign    InterviewType = "System Design"
	TypeCodingChallenge InterviewType = "Coding Challenge"
	TypeTechnicalScreen InterviewType = "Technical Screen"
	TypeFullSimulation  InterviewType = "Full Simulation"
)

// ValidInterviewType reports whether t is one of the supported rounds
func ValidInterviewType(t InterviewType) bool {
	switch t {
	case TypeBehavioral, TypeSystemDesign, TypeCodingChallenge, TypeTechnicalScreen, TypeFullSimulation:
		return true
	}
	return false
}

// Difficulty is the three-level question difficulty ladder
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// EndReason records why a session reached a terminal status
type EndReason string

const (
	EndNaturalConclusion EndReason = "natural_conclusion"
	EndUserEnded         EndReason = "user_ended"
	EndTimeLimit         EndReason = "time_limit"
	EndTechnicalError    EndReason = "technical_error"
	EndInappropriate     EndReason = "inappropriate_behavior"
)

// Sentiment classification for an answer
type Sentiment string

const (
	SentimentPositive  Sentiment = "positive"
	SentimentNegative  Sentiment = "negative"
	SentimentNeutral   Sentiment = "neutral"
	SentimentUncertain Sentiment = "uncertain"
)

// Analysis is the heuristic verdict attached to an answered history item
type Analysis struct {
	Score       float64   `json:"score" bson:"score"`
	IsWeak      bool      `json:"isWeak" bson:"isWeak"`
	IsRude      bool      `json:"isRude" bson:"isRude"`
	Sentiment   Sentiment `json:"sentiment" bson:"sentiment"`
	Emotions    []string  `json:"emotions,omitempty" bson:"emotions,omitempty"`
	EvaluatedAt time.Time `json:"evaluatedAt" bson:"evaluatedAt"`
}

// CodeResult is the side signal from the code-execution collaborator
type CodeResult struct {
	Stdout string `json:"stdout" bson:"stdout"`
	Stderr string `json:"stderr" bson:"stderr"`
	Status string `json:"status" bson:"status"`
}

// HistoryItem is one asked-question/answer/score record. UserAnswer, Analysis
// and TimestampEnd transition from empty to filled exactly once, by the state
// machine.
type HistoryItem struct {
	QuestionID          string      `json:"questionId" bson:"question"`
	UserAnswer          string      `json:"userAnswer" bson:"userAnswer"`
	IsFollowUp          bool        `json:"isFollowUp" bson:"isFollowUp"`
	Analysis            *Analysis   `json:"analysis,omitempty" bson:"analysis,omitempty"`
	CodeResult          *CodeResult `json:"codeResult,omitempty" bson:"codeResult,omitempty"`
	TimestampStart      time.Time   `json:"timestampStart" bson:"timestampStart"`
	TimestampEnd        *time.Time  `json:"timestampEnd,omitempty" bson:"timestampEnd,omitempty"`
	Stage               int         `json:"stage" bson:"stage"`
	ResponseTimeSeconds *int        `json:"responseTimeSeconds,omitempty" bson:"responseTimeSeconds,omitempty"`
}

// Answered reports whether the item has received its answer
func (h *HistoryItem) Answered() bool {
	return h.UserAnswer != ""
}

// MessageRole is the speaker of a transcript message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one transcript entry, separate from the scored history
type Message struct {
	Role    MessageRole `json:"role" bson:"role"`
	Content string      `json:"content" bson:"content"`
}

// MentionedExperience is one background fact the candidate brought up
type MentionedExperience struct {
	Type        string    `json:"type" bson:"type"` // company, project, skill, achievement, challenge
	Value       []string  `json:"value" bson:"value"`
	Context     string    `json:"context" bson:"context"`
	MentionedAt time.Time `json:"mentionedAt" bson:"mentionedAt"`
}

// ConversationMemory accumulates mentions used only to personalize prompts,
// never to score
type ConversationMemory struct {
	MentionedExperiences []MentionedExperience `json:"mentionedExperiences" bson:"mentionedExperiences"`
	TechnicalTopics      []string              `json:"technicalTopics" bson:"technicalTopics"`
	PersonalTraits       []string              `json:"personalTraits" bson:"personalTraits"`
}

const (
	// MaxMessages bounds the transcript; pruning keeps the greeting
	MaxMessages = 50

	maxExperiences = 15
	maxTopics      = 20
	maxTraits      = 10
)

// Session is the aggregate root for one interview attempt
type Session struct {
	ID                  string              `json:"id" bson:"_id,omitempty"`
	Version             int64               `json:"-" bson:"version"`
	Role                string              `json:"role" bson:"role"`
	Company             string              `json:"company" bson:"company"`
	CandidateContext    string              `json:"candidateContext,omitempty" bson:"candidateContext,omitempty"`
	InterviewType       InterviewType       `json:"interviewType" bson:"interviewType"`
	InterviewMode       InterviewMode       `json:"interviewMode" bson:"interviewMode"`
	Status              SessionStatus       `json:"status" bson:"status"`
	CurrentDifficulty   Difficulty          `json:"currentDifficulty" bson:"currentDifficulty"`
	CurrentStage        int                 `json:"currentStage" bson:"currentStage"`
	Warnings            int                 `json:"warnings" bson:"warnings"`
	EndReason           EndReason           `json:"endReason,omitempty" bson:"endReason,omitempty"`
	History             []HistoryItem       `json:"history" bson:"history"`
	Messages            []Message           `json:"messages" bson:"messages"`
	ConversationMemory  *ConversationMemory `json:"conversationMemory,omitempty" bson:"conversationMemory,omitempty"`
	TotalQuestions      int                 `json:"totalQuestions" bson:"totalQuestions"`
	AverageResponseTime *int                `json:"averageResponseTime,omitempty" bson:"averageResponseTime,omitempty"`
	CreatedAt           time.Time           `json:"createdAt" bson:"createdAt"`
	LastActivity        time.Time           `json:"lastActivity" bson:"lastActivity"`
}

// OpenItem returns the single history item still awaiting an answer, or nil
func (s *Session) OpenItem() *HistoryItem {
	for i := range s.History {
		if !s.History[i].Answered() {
			return &s.History[i]
		}
	}
	return nil
}

// StageItemCount counts history items asked at the given stage
func (s *Session) StageItemCount(stage int) int {
	n := 0
	for i := range s.History {
		if s.History[i].Stage == stage {
			n++
		}
	}
	return n
}

// Prune bounds the transcript and the conversation memory in place.
// It never drops scored history and always keeps the greeting message.
func (s *Session) Prune() {
	if len(s.Messages) > MaxMessages {
		kept := MaxMessages - 6
		pruned := make([]Message, 0, kept+1)
		pruned = append(pruned, s.Messages[0])
		pruned = append(pruned, s.Messages[len(s.Messages)-kept:]...)
		s.Messages = pruned
	}

	if s.ConversationMemory == nil {
		return
	}
	mem := s.ConversationMemory
	if len(mem.MentionedExperiences) > maxExperiences {
		mem.MentionedExperiences = mem.MentionedExperiences[len(mem.MentionedExperiences)-maxExperiences:]
	}
	mem.TechnicalTopics = dedupeTail(mem.TechnicalTopics, maxTopics)
	mem.PersonalTraits = dedupeTail(mem.PersonalTraits, maxTraits)
}

// Refresh updates the denormalized counters before a save
func (s *Session) Refresh(now time.Time) {
	s.LastActivity = now
	s.TotalQuestions = len(s.History)

	timed, totalSec := 0, 0
	for i := range s.History {
		if rt := s.History[i].ResponseTimeSeconds; rt != nil {
			timed++
			totalSec += *rt
		}
	}
	if timed > 0 {
		avg := totalSec / timed
		s.AverageResponseTime = &avg
	}
}

func dedupeTail(values []string, max int) []string {
	seen := make(map[string]bool, len(values))
	unique := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	if len(unique) > max {
		unique = unique[len(unique)-max:]
	}
	return unique
}
