package chat

import (
	"context"
	"log"

	"kaiwa/models"
)

// HistoryWindow derives the bounded, ordered slice of prior messages used as
// generation context.
type HistoryWindow struct {
	store Store
	limit int
}

func NewHistoryWindow(store Store, limit int) *HistoryWindow {
	if limit <= 0 {
		limit = 12
	}
	return &HistoryWindow{store: store, limit: limit}
}

// WindowFor returns at most limit recent messages for roomID, ascending by
// (created_at, id). A store failure degrades to an empty window; context
// retrieval must never sink a message that is already durable.
func (w *HistoryWindow) WindowFor(ctx context.Context, roomID string) []models.Message {
	msgs, err := w.store.ReadOrdered(ctx, w.limit, roomID)
	if err != nil {
		log.Printf("[chat] history fetch failed, proceeding without context: %v", err)
		return nil
	}
	return msgs
}
