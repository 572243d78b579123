package config

import "os"

// GeminiModels defines which Gemini models to use for different tasks
type GeminiModels struct {
	// Dialogue drives the interviewer turn-by-turn (needs to be fast)
	Dialogue string `json:"dialogue"`

	// Eval scores one answer during report generation
	Eval string `json:"eval"`

	// Summary produces the final strengths/weaknesses/nextSteps block
	// (quality over speed, runs once per report)
	Summary string `json:"summary"`
}

// AIConfig holds all AI-related configuration
type AIConfig struct {
	APIKey     string       `json:"-"` // Never serialize
	BaseURL    string       `json:"baseUrl"`
	Models     GeminiModels `json:"models"`
	TimeoutMS  int          `json:"timeoutMs"`
	MaxRetries int          `json:"maxRetries"`

	// Judge0 code-execution collaborator
	Judge0Host string `json:"judge0Host"`
	Judge0Key  string `json:"-"`
}

// DefaultAIConfig returns the default AI configuration
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/models",
		Models: GeminiModels{
			Dialogue: getEnvOrDefault("GEMINI_MODEL_DIALOGUE", "gemini-2.0-flash"),
			Eval:     getEnvOrDefault("GEMINI_MODEL_EVAL", "gemini-2.0-flash"),
			Summary:  getEnvOrDefault("GEMINI_MODEL_SUMMARY", "gemini-2.0-flash"),
		},
		TimeoutMS:  10000, // 10 second default timeout
		MaxRetries: 3,
		Judge0Host: os.Getenv("JUDGE0_API_HOST"),
		Judge0Key:  os.Getenv("JUDGE0_API_KEY"),
	}
}

// IsEnabled returns true if the AI API is configured
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}

// CodeRunnerEnabled returns true if the Judge0 collaborator is configured
func (c *AIConfig) CodeRunnerEnabled() bool {
	return c.Judge0Host != "" && c.Judge0Key != ""
}

// ModelEndpoint returns the full endpoint for a given model
func (c *AIConfig) ModelEndpoint(model string) string {
	return c.BaseURL + "/" + model + ":generateContent"
}
