package chat

import (
	"context"
	"log"
	"strings"

	"kaiwa/models"
)

// Store is the slice of the store adapter the pipeline depends on.
type Store interface {
	Append(ctx context.Context, content string, role models.Role, roomID string) (models.Message, error)
	ReadOrdered(ctx context.Context, limit int, roomID string) ([]models.Message, error)
}

// Responder generates a reply from ordered prior messages plus the new user
// utterance. Implementations live in pkg/services.
type Responder interface {
	Generate(ctx context.Context, history []models.Message, utterance string) (string, error)
}

// Exchange is the outcome of one submit: the persisted user message and, when
// generation and its write both succeeded, the persisted assistant reply.
type Exchange struct {
	User      models.Message
	Assistant *models.Message
}

// Pipeline runs the save -> fetch history -> generate -> save sequence for one
// submission. It holds no mutable state; concurrent Submit calls are
// independent and all shared state lives in the store.
type Pipeline struct {
	store     Store
	window    *HistoryWindow
	responder Responder
}

func NewPipeline(store Store, window *HistoryWindow, responder Responder) *Pipeline {
	return &Pipeline{store: store, window: window, responder: responder}
}

// Submit validates and persists the user message, then tries to produce and
// persist an assistant reply from bounded history.
//
// Failure semantics: blank input returns ErrEmptyMessage with nothing
// written. A failed user write returns a StoreError and halts. Once the user
// message is durable it is never lost: a history-fetch failure degrades to an
// empty window, a generation failure yields a user-only Exchange with a nil
// error, and a failed assistant write returns the user-only Exchange together
// with a StoreError for that leg. The responder is invoked at most once per
// call, with no retries.
func (p *Pipeline) Submit(ctx context.Context, rawText, roomID string) (*Exchange, error) {
	content := strings.TrimSpace(rawText)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	userMsg, err := p.store.Append(ctx, content, models.RoleUser, roomID)
	if err != nil {
		return nil, &StoreError{Op: "append user message", Err: err}
	}
	ex := &Exchange{User: userMsg}

	history := p.window.WindowFor(ctx, userMsg.RoomID)
	// The window is read after the user write, so strip the new row: the
	// responder receives it separately as the final user turn.
	prior := history[:0]
	for _, m := range history {
		if m.ID != userMsg.ID {
			prior = append(prior, m)
		}
	}

	reply, err := p.responder.Generate(ctx, prior, content)
	if err != nil {
		log.Printf("[chat] %v", &GenerationError{Err: err})
		return ex, nil
	}

	botMsg, err := p.store.Append(ctx, reply, models.RoleAssistant, userMsg.RoomID)
	if err != nil {
		return ex, &StoreError{Op: "append assistant message", Err: err}
	}
	ex.Assistant = &botMsg
	return ex, nil
}
