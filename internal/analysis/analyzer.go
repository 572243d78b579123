// Package analysis scores candidate answers with deterministic keyword
// heuristics. It performs no I/O and is safe to call from any goroutine.
package analysis

import (
	"regexp"
	"strings"

	"interviewai/internal/model"
)

// Result is the heuristic verdict for one answer
type Result struct {
	IsWeak    bool
	IsRude    bool
	Sentiment model.Sentiment
	Emotions  []string
	// StarCoverage counts how many STAR classes (0-4) a behavioral answer hits
	StarCoverage int
	// Reasons explains weakness verdicts, used to steer the next prompt
	Reasons []string
}

var (
	rudePattern = regexp.MustCompile(`(?i)\b(stupid|idiot|shut up|screw (you|this)|damn you|this is (dumb|bullshit)|f[u*]ck|wtf|useless crap)\b`)

	starSituation = regexp.MustCompile(`(?i)(situation|context|project i worked on|my role was|at my (previous|last) (job|company))`)
	starTask      = regexp.MustCompile(`(?i)(task|objective|goal|i needed to|responsible for)`)
	starAction    = regexp.MustCompile(`(?i)(action|i did|we did|i implemented|we built|i led|i designed)`)
	starResult    = regexp.MustCompile(`(?i)(result|outcome|impact|achieved|we delivered|improved|reduced)`)

	codeToken = regexp.MustCompile(`(?i)(\bfunc\b|\bfunction\b|\bdef\b|\bclass\b|\breturn\b|\bfor\b.*\{|=>|==|\{\s*$)`)

	positiveWords  = regexp.MustCompile(`(?i)\b(great|excited|love|enjoy|successfully|proud|confident|achieved)\b`)
	negativeWords  = regexp.MustCompile(`(?i)\b(hate|terrible|awful|failed|frustrat(ed|ing)|impossible|worst)\b`)
	uncertainWords = regexp.MustCompile(`(?i)\b(maybe|not sure|i guess|i think so|probably|don't know|um+|uh+)\b`)
)

// emotionPatterns tags are independent; an answer can carry several
var emotionPatterns = map[string]*regexp.Regexp{
	"nervous":    regexp.MustCompile(`(?i)\b(nervous|anxious|worried|stressed)\b`),
	"confident":  regexp.MustCompile(`(?i)\b(confident|certain|definitely|absolutely)\b`),
	"excited":    regexp.MustCompile(`(?i)\b(excited|thrilled|can't wait|eager)\b`),
	"frustrated": regexp.MustCompile(`(?i)\b(frustrat(ed|ing)|annoy(ed|ing)|stuck)\b`),
	"thoughtful": regexp.MustCompile(`(?i)\b(consider(ed|ing)?|reflect(ed|ing)?|weigh(ed|ing)? the options|on the other hand)\b`),
	"apologetic": regexp.MustCompile(`(?i)\b(sorry|apologize|my (mistake|fault|bad))\b`),
}

const (
	behavioralMinWords = 30
	theoryMinWords     = 15
	codingMinWords     = 20

	// Fewer than 3 of the 4 STAR classes reads as missing structure
	starWeakBelow = 3
)

// Analyze scores answerText for the given question category.
// Rudeness short-circuits: a rude answer is weak and gets no STAR scoring.
func Analyze(answerText string, category model.Category) Result {
	trimmed := strings.TrimSpace(answerText)
	if trimmed == "" {
		return Result{
			IsWeak:    true,
			Sentiment: model.SentimentNeutral,
			Reasons:   []string{"no answer provided"},
		}
	}

	if rudePattern.MatchString(trimmed) {
		return Result{
			IsWeak:    true,
			IsRude:    true,
			Sentiment: model.SentimentNegative,
			Reasons:   []string{"answer contains inappropriate language"},
		}
	}

	res := Result{Sentiment: classifySentiment(trimmed)}
	res.Emotions = tagEmotions(trimmed)
	wordCount := len(strings.Fields(trimmed))

	switch category {
	case model.CategoryBehavioral:
		res.StarCoverage = starCoverage(trimmed)
		if wordCount < behavioralMinWords {
			res.IsWeak = true
			res.Reasons = append(res.Reasons, "answer is very short")
		}
		if res.StarCoverage < starWeakBelow {
			res.IsWeak = true
			res.Reasons = append(res.Reasons, "answer may be missing key elements of the STAR method")
		}
	case model.CategoryTheory:
		if wordCount < theoryMinWords {
			res.IsWeak = true
			res.Reasons = append(res.Reasons, "answer is very brief for a theory question")
		}
	case model.CategoryCoding:
		if wordCount < codingMinWords && !codeToken.MatchString(trimmed) {
			res.IsWeak = true
			res.Reasons = append(res.Reasons, "response does not appear to contain code")
		}
	}

	return res
}

func starCoverage(text string) int {
	count := 0
	if starSituation.MatchString(text) {
		count++
	}
	if starTask.MatchString(text) {
		count++
	}
	if starAction.MatchString(text) {
		count++
	}
	if starResult.MatchString(text) {
		count++
	}
	return count
}

// classifySentiment is mutually exclusive: the first matching class wins,
// default neutral
func classifySentiment(text string) model.Sentiment {
	switch {
	case uncertainWords.MatchString(text):
		return model.SentimentUncertain
	case negativeWords.MatchString(text):
		return model.SentimentNegative
	case positiveWords.MatchString(text):
		return model.SentimentPositive
	default:
		return model.SentimentNeutral
	}
}

func tagEmotions(text string) []string {
	var tags []string
	// Stable order so results are deterministic
	for _, name := range []string{"nervous", "confident", "excited", "frustrated", "thoughtful", "apologetic"} {
		if emotionPatterns[name].MatchString(text) {
			tags = append(tags, name)
		}
	}
	return tags
}

// HeuristicScore converts a heuristic result into a 0-5 score, used as the
// evaluation fallback when the AI collaborator is unavailable.
func HeuristicScore(answerText string, category model.Category) float64 {
	trimmed := strings.TrimSpace(answerText)
	if trimmed == "" {
		return 0
	}
	wordCount := len(strings.Fields(trimmed))
	score := 2.0

	switch category {
	case model.CategoryBehavioral:
		if wordCount > 50 {
			score += 1.0
		}
		if wordCount > 100 {
			score += 0.5
		}
		score += 0.5 * float64(starCoverage(trimmed))
	case model.CategoryTheory:
		if wordCount > 30 {
			score += 1.0
		}
		if wordCount > 60 {
			score += 0.5
		}
	case model.CategoryCoding:
		if codeToken.MatchString(trimmed) {
			score += 1.0
		}
		if strings.Contains(trimmed, "return") {
			score += 0.5
		}
		if strings.Contains(trimmed, "//") || strings.Contains(trimmed, "#") {
			score += 0.5
		}
	}

	if score > 5.0 {
		score = 5.0
	}
	return score
}
