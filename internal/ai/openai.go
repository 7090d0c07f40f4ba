package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tbourn/go-documind-backend/internal/config"
)

// ChatMessage is one message in an OpenAI-style chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAICompatibleGenerator calls POST {BaseURL}/chat/completions.
type OpenAICompatibleGenerator struct {
	BaseURL string
	APIKey  string
	Model   string

	httpClient *http.Client
}

// NewOpenAICompatibleGenerator builds a generator from cfg. A zero Timeout
// falls back to 60s.
func NewOpenAICompatibleGenerator(cfg config.AIConfig) *OpenAICompatibleGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAICompatibleGenerator{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var systemPrompts = map[string]string{
	"write":       "You are a writing assistant. Draft new text for the user's document. Reply in simple HTML.",
	"edit":        "You are an editor. Suggest concrete edits to the user's document. Reply in simple HTML.",
	"study_guide": "You build study guides with key concepts and review questions. Reply in simple HTML.",
	"summarize":   "You summarize documents concisely. Reply in simple HTML with a 'Summary' heading.",
}

// Messages builds the chat transcript sent for req.
func Messages(req Request) []ChatMessage {
	sys, ok := systemPrompts[req.AssistanceType]
	if !ok {
		sys = systemPrompts["write"]
	}
	return []ChatMessage{
		{Role: "system", Content: sys},
		{Role: "user", Content: "Context:\n" + req.Context + "\n\nRequest:\n" + req.Prompt},
	}
}

// Generate sends one non-streaming completion request.
func (g *OpenAICompatibleGenerator) Generate(ctx context.Context, req Request) (string, error) {
	reqBody := map[string]interface{}{
		"model":    g.Model,
		"messages": Messages(req),
		"stream":   false,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal llm request failed: %w", err)
	}

	url := strings.TrimRight(g.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build llm request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.APIKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read llm response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("llm response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse llm json failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty llm choices")
	}
	out := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("empty llm content")
	}
	return out, nil
}
