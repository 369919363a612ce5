package services

import (
	"context"
	"fmt"
	"strings"

	"kaiwa/models"
)

// LocalResponder is the offline stand-in used when Gemini is disabled via
// config. It is deterministic so exchanges stay reproducible in staging.
type LocalResponder struct{}

func NewLocalResponder() *LocalResponder { return &LocalResponder{} }

func (s *LocalResponder) Generate(ctx context.Context, history []models.Message, utterance string) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	topic := strings.TrimSpace(utterance)
	if topic == "" {
		return FallbackReply, nil
	}
	b := &strings.Builder{}
	fmt.Fprintf(b, "You said: %s\n", truncate(topic, 60))
	if n := len(history); n > 0 {
		fmt.Fprintf(b, "That makes %d earlier messages in this room. ", n)
	}
	b.WriteString("The assistant is running in offline mode, so this is a canned reply.")
	return b.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
