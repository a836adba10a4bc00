package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gymmind/coach-api/internal/config"

	log "github.com/sirupsen/logrus"
)

// defaultModel is used when the config names no model.
const defaultModel = "gpt-4o-mini"

// HTTPGenerator calls an OpenAI-compatible chat-completions endpoint.
type HTTPGenerator struct {
	cfg    config.GeneratorConfig
	client *http.Client
}

// NewHTTPGenerator constructs an HTTPGenerator from provider settings.
func NewHTTPGenerator(cfg config.GeneratorConfig) *HTTPGenerator {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	return &HTTPGenerator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate implements Generator. Provider failures and unparseable responses
// degrade to the deterministic fallback plan rather than failing the request.
func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	if strings.TrimSpace(g.cfg.BaseURL) == "" || strings.TrimSpace(g.cfg.APIKey) == "" {
		return FallbackPlan(req)
	}

	content, errCall := g.complete(ctx, req)
	if errCall != nil {
		log.WithError(errCall).Warn("plan provider call failed, using fallback plan")
		return FallbackPlan(req)
	}

	doc, ok := extractJSONObject(content)
	if !ok {
		log.Warn("plan provider returned no parseable document, using fallback plan")
		return FallbackPlan(req)
	}
	return doc, nil
}

// complete runs one chat-completions round trip and returns the raw assistant
// message.
func (g *HTTPGenerator) complete(ctx context.Context, req Request) (string, error) {
	body, errMarshal := json.Marshal(chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(req.Kind)},
			{Role: "user", Content: BuildPrompt(req)},
		},
		MaxTokens:   4000,
		Temperature: 0.7,
	})
	if errMarshal != nil {
		return "", fmt.Errorf("encode request: %w", errMarshal)
	}

	url := strings.TrimRight(g.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, errReq := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if errReq != nil {
		return "", fmt.Errorf("build request: %w", errReq)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, errDo := g.client.Do(httpReq)
	if errDo != nil {
		return "", fmt.Errorf("call provider: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	data, errRead := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if errRead != nil {
		return "", fmt.Errorf("read provider response: %w", errRead)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed chatResponse
	if errUnmarshal := json.Unmarshal(data, &parsed); errUnmarshal != nil {
		return "", fmt.Errorf("decode provider response: %w", errUnmarshal)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// extractJSONObject pulls the first JSON object out of a model reply, which
// may wrap it in prose or code fences.
func extractJSONObject(content string) (json.RawMessage, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	candidate := content[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, false
	}
	return json.RawMessage(candidate), true
}

// systemPrompt frames the assistant role per plan kind.
func systemPrompt(kind string) string {
	if kind == KindWorkout {
		return "Você é um personal trainer brasileiro experiente que cria planos de treino detalhados e seguros. Responda somente com JSON válido."
	}
	return "Você é um nutricionista brasileiro experiente que cria planos alimentares detalhados usando apenas os alimentos preferidos do cliente. Responda somente com JSON válido."
}
