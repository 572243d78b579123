package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"

	"interviewai/internal/analysis"
	"interviewai/internal/config"
	"interviewai/internal/model"
)

// EvalResult is one answer's score from the evaluation collaborator
type EvalResult struct {
	Score   float64 `json:"score"`
	Details string  `json:"details"`
	Tips    string  `json:"tips"`
}

// Evaluator dispatches answers to the category-appropriate evaluation
// collaborator and falls back to heuristic scoring on any failure
type Evaluator struct {
	gen Generator
	cfg *config.AIConfig
}

// NewEvaluator creates a new evaluator
func NewEvaluator(gen Generator, cfg *config.AIConfig) *Evaluator {
	return &Evaluator{gen: gen, cfg: cfg}
}

// EvaluateAnswer scores one answered question. It never returns an error for
// collaborator failures; those degrade to the heuristic fallback.
func (e *Evaluator) EvaluateAnswer(ctx context.Context, question *model.Question, answer string) EvalResult {
	if strings.TrimSpace(answer) == "" {
		return EvalResult{
			Score:   1.0,
			Details: "No answer was provided for evaluation",
			Tips:    "Make sure to attempt every question, even with a partial answer",
		}
	}

	if !e.gen.Enabled() {
		return e.heuristicEval(question, answer)
	}

	prompt := e.buildEvalPrompt(question, answer)
	raw, err := e.gen.GenerateJSON(ctx, e.cfg.Models.Eval, prompt)
	if err != nil {
		log.Printf("[evaluator] AI evaluation failed, using heuristic fallback: %v", err)
		return e.heuristicEval(question, answer)
	}

	result, ok := parseEval(raw)
	if !ok {
		log.Printf("[evaluator] malformed evaluation reply, using heuristic fallback")
		return e.heuristicEval(question, answer)
	}
	return result
}

// Summarize produces the report's strengths/weaknesses/nextSteps block.
// On failure it substitutes a deterministic summary so the field is never
// left empty.
func (e *Evaluator) Summarize(ctx context.Context, feedback []model.FeedbackItem) model.Summary {
	if len(feedback) == 0 {
		return model.Summary{
			Strengths:  "Unable to generate summary - insufficient feedback data",
			Weaknesses: "No specific areas identified",
			NextSteps:  "Complete more interview questions for detailed analysis",
		}
	}

	if !e.gen.Enabled() {
		return fallbackSummary(feedback)
	}

	var sb strings.Builder
	for i, fb := range feedback {
		fmt.Fprintf(&sb, "%d. [%s] %s — answer: %s (score: %.1f)\n", i+1, fb.Category, fb.Question, fb.Answer, fb.Score)
	}

	prompt := fmt.Sprintf(`You are a recruiter summarizing interview performance.

Interview feedback:
%s
Identify patterns and provide actionable insights.

Respond with JSON only:
{"strengths": "key strengths observed", "weaknesses": "main areas for improvement", "nextSteps": "specific action items"}`, sb.String())

	raw, err := e.gen.GenerateJSON(ctx, e.cfg.Models.Summary, prompt)
	if err != nil {
		log.Printf("[evaluator] summary generation failed, using fallback: %v", err)
		return fallbackSummary(feedback)
	}

	payload := raw
	if extracted, ok := ExtractJSON(raw); ok {
		payload = extracted
	}
	var summary model.Summary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil || summary.Strengths == "" {
		return fallbackSummary(feedback)
	}
	return summary
}

func (e *Evaluator) buildEvalPrompt(question *model.Question, answer string) string {
	switch question.Category {
	case model.CategoryTheory:
		ideal := question.IdealAnswer
		if ideal == "" {
			ideal = "Not provided"
		}
		return fmt.Sprintf(`You are a senior engineer assessing theoretical knowledge.

Question: %q
Expected answer: %q
Candidate answer: %q

Evaluate accuracy, completeness, and clarity.

Respond with JSON only:
{"score": number between 0 and 5, "details": "brief comparison", "tips": "one improvement tip"}`, question.Text, ideal, answer)
	case model.CategoryCoding:
		return fmt.Sprintf(`You are a staff engineer reviewing code.

Problem: %q
Code: %q

Evaluate code structure, readability, logic, and approach. Do NOT test for
correctness - only review code quality.

Respond with JSON only:
{"score": number between 0 and 5, "details": "brief code review", "tips": "one improvement tip"}`, question.Text, answer)
	default:
		return fmt.Sprintf(`You are an experienced hiring manager evaluating a behavioral interview answer.

Question: %q
Answer: %q

Evaluate based on STAR structure (Situation, Task, Action, Result), specific
examples, and professional impact.

Respond with JSON only:
{"score": number between 0 and 5, "details": "brief analysis", "tips": "one improvement tip"}`, question.Text, answer)
	}
}

func (e *Evaluator) heuristicEval(question *model.Question, answer string) EvalResult {
	score := analysis.HeuristicScore(answer, question.Category)
	wordCount := len(strings.Fields(answer))

	var tips string
	switch question.Category {
	case model.CategoryBehavioral:
		tips = "Structure your answer using the STAR method for better impact"
	case model.CategoryTheory:
		tips = "Add more specific examples and technical details"
	default:
		tips = "Add comments and consider edge cases"
	}

	return EvalResult{
		Score:   score,
		Details: fmt.Sprintf("Heuristic evaluation based on answer structure (%d words)", wordCount),
		Tips:    tips,
	}
}

func fallbackSummary(feedback []model.FeedbackItem) model.Summary {
	total := 0.0
	for _, fb := range feedback {
		total += fb.Score
	}
	avg := total / float64(len(feedback))

	summary := model.Summary{
		Strengths:  "Shows engagement with the interview process",
		Weaknesses: "Areas for development identified",
		NextSteps:  "Continue practicing interview skills",
	}
	if avg > 3.5 {
		summary.Strengths = "Demonstrates solid understanding and communication skills"
		summary.NextSteps = "Focus on advanced topics and leadership examples"
	} else if avg < 2.5 {
		summary.Weaknesses = "Needs foundational skill development"
		summary.NextSteps = "Review core concepts and practice structured responses"
	}
	return summary
}

func parseEval(raw string) (EvalResult, bool) {
	payload := raw
	if extracted, ok := ExtractJSON(raw); ok {
		payload = extracted
	}
	var result EvalResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return EvalResult{}, false
	}
	// Clamp out-of-range collaborator scores rather than rejecting them
	if math.IsNaN(result.Score) || result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 5 {
		result.Score = 5
	}
	if result.Details == "" {
		result.Details = "Evaluation completed"
	}
	if result.Tips == "" {
		result.Tips = "Keep practicing"
	}
	return result, true
}
