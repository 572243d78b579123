package analysis

import (
	"regexp"
	"strings"
)

// Technical topics worth remembering for prompt personalization
var topicPattern = regexp.MustCompile(`(?i)\b(javascript|typescript|python|java|golang|react|node|django|spring|sql|nosql|mongodb|postgres|redis|kafka|aws|gcp|azure|docker|kubernetes|terraform|graphql|grpc|microservices|machine learning)\b`)

var experiencePattern = regexp.MustCompile(`(?i)(at|for) ([A-Z][A-Za-z]+(?: [A-Z][A-Za-z]+)?)(,| i | we | my )`)

// ExtractTopics returns the lowercase technical topics mentioned in text
func ExtractTopics(text string) []string {
	matches := topicPattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	var topics []string
	for _, m := range matches {
		topic := strings.ToLower(m)
		if !seen[topic] {
			seen[topic] = true
			topics = append(topics, topic)
		}
	}
	return topics
}

// ExtractCompanyMention returns a capitalized company-like mention, if any
func ExtractCompanyMention(text string) (string, bool) {
	m := experiencePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[2], true
}
