package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"interviewai/internal/config"
	"interviewai/internal/model"
)

// CodeRunner executes candidate code through the Judge0 API. The result is a
// side signal for coding questions, never required for report correctness.
type CodeRunner struct {
	cfg    *config.AIConfig
	client *http.Client
}

// NewCodeRunner creates a new Judge0 client
func NewCodeRunner(cfg *config.AIConfig) *CodeRunner {
	return &CodeRunner{
		cfg: cfg,
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// Enabled reports whether the Judge0 collaborator is configured
func (r *CodeRunner) Enabled() bool {
	return r.cfg.CodeRunnerEnabled()
}

// Run submits source code for synchronous execution
func (r *CodeRunner) Run(ctx context.Context, sourceCode string, languageID int) (*model.CodeResult, error) {
	if !r.Enabled() {
		return nil, fmt.Errorf("code runner is not configured")
	}

	reqBody, err := json.Marshal(map[string]interface{}{
		"language_id": languageID,
		"source_code": sourceCode,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("https://%s/submissions?base64_encoded=false&wait=true", r.cfg.Judge0Host)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-RapidAPI-Host", r.cfg.Judge0Host)
	req.Header.Set("X-RapidAPI-Key", r.cfg.Judge0Key)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("judge0 request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("judge0 returned %d", resp.StatusCode)
	}

	var result struct {
		Stdout string `json:"stdout"`
		Stderr string `json:"stderr"`
		Status struct {
			Description string `json:"description"`
		} `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &model.CodeResult{
		Stdout: result.Stdout,
		Stderr: result.Stderr,
		Status: result.Status.Description,
	}, nil
}
