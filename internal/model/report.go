package model

import "time"

// ReportStatus is the report lifecycle. It only moves forward:
// pending -> processing -> completed | failed.
type ReportStatus string

const (
	ReportPending    ReportStatus = "pending"
	ReportProcessing ReportStatus = "processing"
	ReportCompleted  ReportStatus = "completed"
	ReportFailed     ReportStatus = "failed"
)

var reportRank = map[ReportStatus]int{
	ReportPending:    0,
	ReportProcessing: 1,
	ReportCompleted:  2,
	ReportFailed:     2,
}

// CanTransition reports whether moving from s to next is a forward step
func (s ReportStatus) CanTransition(next ReportStatus) bool {
	return reportRank[next] > reportRank[s]
}

// Summary is the free-text verdict from the summarization collaborator
type Summary struct {
	Strengths  string `json:"strengths" bson:"strengths"`
	Weaknesses string `json:"weaknesses" bson:"weaknesses"`
	NextSteps  string `json:"nextSteps" bson:"nextSteps"`
}

// FinalScores holds the per-category means, rounded to 1 decimal
type FinalScores struct {
	Behavioral float64 `json:"behavioral" bson:"behavioral"`
	Theory     float64 `json:"theory" bson:"theory"`
	Coding     float64 `json:"coding" bson:"coding"`
}

// FeedbackItem mirrors one answered history item, in interview order
type FeedbackItem struct {
	Question string   `json:"question" bson:"question"`
	Category Category `json:"category" bson:"category"`
	Answer   string   `json:"answer" bson:"answer"`
	Score    float64  `json:"score" bson:"score"`
	Details  string   `json:"details" bson:"details"`
	Tips     string   `json:"tips" bson:"tips"`
}

// ReportMetadata carries processing bookkeeping
type ReportMetadata struct {
	TotalQuestions         int      `json:"totalQuestions" bson:"totalQuestions"`
	AnsweredQuestions      int      `json:"answeredQuestions" bson:"answeredQuestions"`
	SessionDurationMinutes int      `json:"sessionDurationMinutes" bson:"sessionDurationMinutes"`
	ProcessingErrors       []string `json:"processingErrors" bson:"processingErrors"`
}

// Report is the durable, asynchronously produced scored summary of a
// completed session. One per session, enforced by a unique index.
type Report struct {
	ID               string         `json:"id" bson:"_id,omitempty"`
	SessionID        string         `json:"sessionId" bson:"session"`
	Status           ReportStatus   `json:"status" bson:"status"`
	Role             string         `json:"role" bson:"role"`
	Company          string         `json:"company" bson:"company"`
	Summary          Summary        `json:"summary" bson:"summary"`
	OverallScore     float64        `json:"overallScore" bson:"overallScore"`
	FinalScores      FinalScores    `json:"finalScores" bson:"finalScores"`
	DetailedFeedback []FeedbackItem `json:"detailedFeedback" bson:"detailedFeedback"`
	Metadata         ReportMetadata `json:"metadata" bson:"metadata"`
	CreatedAt        time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// ReportJob is the queue payload for the generate-report job
type ReportJob struct {
	JobID     string `json:"jobId"`
	ReportID  string `json:"reportId"`
	SessionID string `json:"sessionId"`
}
