// Package policy decides difficulty and stage movement from the session's
// trailing performance. Pure functions, no I/O.
package policy

import (
	"fmt"

	"interviewai/internal/model"
)

// Decision is the outcome of one policy evaluation
type Decision struct {
	NextDifficulty model.Difficulty
	// StageAdvanced is true when currentStage moved forward by one
	StageAdvanced bool
	NextStage     int
	// Complete signals that stage 3 has met its quota
	Complete bool
	// TransitionText is a one-off acknowledgment for a stage transition
	TransitionText string
}

const (
	trailingWindow = 3
	minScored      = 2

	raiseAt = 4.0
	lowerAt = 2.5

	// MaxStage is the last phase of a full-mode interview
	MaxStage = 3
)

// stageQuotas is the per-stage question budget for full-mode interviews
var stageQuotas = map[int]int{1: 3, 2: 4, 3: 2}

// StageQuota returns how many questions the given stage asks
func StageQuota(stage int) int {
	return stageQuotas[stage]
}

// Evaluate computes the next difficulty and any stage movement. Difficulty
// moves one ladder step at a time; stages only advance forward.
func Evaluate(history []model.HistoryItem, difficulty model.Difficulty, stage int, mode model.InterviewMode) Decision {
	d := Decision{
		NextDifficulty: nextDifficulty(history, difficulty),
		NextStage:      stage,
	}

	if mode != model.ModeFull {
		return d
	}

	quota := stageQuotas[stage]
	answered := 0
	for i := range history {
		if history[i].Stage == stage && history[i].Answered() {
			answered++
		}
	}
	if quota == 0 || answered < quota {
		return d
	}

	if stage >= MaxStage {
		d.Complete = true
		return d
	}

	d.StageAdvanced = true
	d.NextStage = stage + 1
	d.TransitionText = transitionText(d.NextStage)
	return d
}

func nextDifficulty(history []model.HistoryItem, current model.Difficulty) model.Difficulty {
	scores := trailingScores(history)
	if len(scores) < minScored {
		return current
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	avg := sum / float64(len(scores))

	switch {
	case avg >= raiseAt:
		return stepUp(current)
	case avg < lowerAt:
		return stepDown(current)
	default:
		// Settle toward medium, still one step at a time
		if current == model.DifficultyHard {
			return model.DifficultyMedium
		}
		if current == model.DifficultyEasy {
			return model.DifficultyMedium
		}
		return current
	}
}

func trailingScores(history []model.HistoryItem) []float64 {
	var scores []float64
	for i := len(history) - 1; i >= 0 && len(scores) < trailingWindow; i-- {
		item := &history[i]
		if item.Answered() && item.Analysis != nil {
			scores = append(scores, item.Analysis.Score)
		}
	}
	return scores
}

func stepUp(d model.Difficulty) model.Difficulty {
	switch d {
	case model.DifficultyEasy:
		return model.DifficultyMedium
	default:
		return model.DifficultyHard
	}
}

func stepDown(d model.Difficulty) model.Difficulty {
	switch d {
	case model.DifficultyHard:
		return model.DifficultyMedium
	default:
		return model.DifficultyEasy
	}
}

func transitionText(nextStage int) string {
	switch nextStage {
	case 2:
		return "Great, that wraps up the opening questions. Let's move into the technical portion of the interview."
	case 3:
		return "Nice work so far. For the last part of our session, let's look at a coding exercise."
	default:
		return fmt.Sprintf("Let's move on to part %d of the interview.", nextStage)
	}
}
