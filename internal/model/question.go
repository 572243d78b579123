package model

import "time"

// Category is the evaluation track a question belongs to
type Category string

const (
	CategoryBehavioral Category = "behavioral"
	CategoryTheory     Category = "theory"
	CategoryCoding     Category = "coding"
)

// ValidCategory reports whether c names a known category
func ValidCategory(c Category) bool {
	return c == CategoryBehavioral || c == CategoryTheory || c == CategoryCoding
}

// QuestionSource records where a question came from
type QuestionSource string

const (
	SourceSeed   QuestionSource = "seed"
	SourceAI     QuestionSource = "ai"
	SourceManual QuestionSource = "manual"
)

// Question lives in its own collection; history items reference it by id and
// resolve lazily. Text is unique across the bank.
type Question struct {
	ID          string         `json:"id" bson:"_id,omitempty"`
	Text        string         `json:"text" bson:"text"`
	Category    Category       `json:"category" bson:"category"`
	Difficulty  Difficulty     `json:"difficulty" bson:"difficulty"`
	IdealAnswer string         `json:"idealAnswer,omitempty" bson:"idealAnswer,omitempty"`
	Source      QuestionSource `json:"source" bson:"source"`
	LanguageID  *int           `json:"languageId,omitempty" bson:"languageId,omitempty"`
	UsageCount  int            `json:"usageCount" bson:"usageCount"`
	LastUsed    *time.Time     `json:"lastUsed,omitempty" bson:"lastUsed,omitempty"`
	CreatedAt   time.Time      `json:"createdAt" bson:"createdAt"`
}
