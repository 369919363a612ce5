package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"kaiwa/models"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const personaInstruction = "You are a concise, friendly chat-room assistant. " +
	"Answer in plain language, keep replies short, and stay on the topic of the " +
	"conversation so far. If the question is unclear, ask one brief clarifying question."

// GeminiResponder calls the Gemini generateContent API with a fixed persona
// and output cap. It makes exactly one request per Generate call; retry
// policy belongs to callers.
type GeminiResponder struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewGeminiResponder(apiKey, model string) *GeminiResponder {
	return &GeminiResponder{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  http.DefaultClient,
	}
}

// Generate sends history plus the new utterance as the final user turn and
// returns the reply text. A reachable API that yields no usable text returns
// FallbackReply; transport and status failures return an error.
func (s *GeminiResponder) Generate(ctx context.Context, history []models.Message, utterance string) (string, error) {
	if strings.TrimSpace(s.apiKey) == "" {
		return "", fmt.Errorf("gemini api key is not set")
	}

	contents := make([]any, 0, len(history)+1)
	for _, m := range history {
		contents = append(contents, map[string]any{
			"role":  WireRole(m.Role),
			"parts": []any{map[string]any{"text": m.Content}},
		})
	}
	contents = append(contents, map[string]any{
		"role":  "user",
		"parts": []any{map[string]any{"text": utterance}},
	})

	reqBody := map[string]any{
		"systemInstruction": map[string]any{
			"parts": []any{map[string]any{"text": personaInstruction}},
		},
		"contents": contents,
		"generationConfig": map[string]any{
			"temperature":     0.6,
			"maxOutputTokens": 1024,
			"topK":            40,
			"topP":            0.9,
		},
	}
	bodyBytes, _ := json.Marshal(reqBody)

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, s.model, s.apiKey)
	log.Printf("[gemini] using model %s", s.model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read error: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBytes)))
	}

	text := extractCandidateText(respBytes)
	if strings.TrimSpace(text) == "" {
		log.Printf("[gemini] empty candidates from model %s, using fallback reply", s.model)
		return FallbackReply, nil
	}
	return strings.TrimSpace(text), nil
}

func extractCandidateText(body []byte) string {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	cands, ok := parsed["candidates"].([]any)
	if !ok || len(cands) == 0 {
		return ""
	}
	first, ok := cands[0].(map[string]any)
	if !ok {
		return ""
	}
	content, ok := first["content"].(map[string]any)
	if !ok {
		return ""
	}
	// Candidates should come back on the model side of the wire vocabulary;
	// anything else is not a reply.
	if wire, ok := content["role"].(string); ok {
		if r, known := InternalRole(wire); known && r != models.RoleAssistant {
			return ""
		}
	}
	parts, ok := content["parts"].([]any)
	if !ok {
		return ""
	}
	for _, p := range parts {
		if pm, ok := p.(map[string]any); ok {
			if txt, ok := pm["text"].(string); ok && strings.TrimSpace(txt) != "" {
				return txt
			}
		}
	}
	return ""
}
