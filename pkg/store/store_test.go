package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kaiwa/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Message{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db)
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	st := newTestStore(t)

	m, err := st.Append(context.Background(), "hello", models.RoleUser, "")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if m.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if m.CreatedAt.IsZero() {
		t.Fatalf("expected assigned created_at")
	}
	if m.RoomID != models.DefaultRoomID {
		t.Fatalf("expected default room, got %q", m.RoomID)
	}
}

func TestAppendTimestampsAreStrictlyIncreasing(t *testing.T) {
	st := newTestStore(t)
	var prev time.Time
	for i := 0; i < 50; i++ {
		m, err := st.Append(context.Background(), "x", models.RoleUser, "")
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if !m.CreatedAt.After(prev) {
			t.Fatalf("append %d: created_at %v not after %v", i, m.CreatedAt, prev)
		}
		prev = m.CreatedAt
	}
}

func TestReadOrderedRoundTrip(t *testing.T) {
	st := newTestStore(t)
	in, err := st.Append(context.Background(), "exact content", models.RoleAssistant, "room-a")
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	out, err := st.ReadOrdered(context.Background(), 0, "room-a")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 message, got %d", len(out))
	}
	if out[0].Content != in.Content || out[0].Role != in.Role {
		t.Fatalf("round trip mismatch: wrote %+v read %+v", in, out[0])
	}
}

func TestReadOrderedLimitKeepsMostRecentAscending(t *testing.T) {
	st := newTestStore(t)
	for i := 0; i < 10; i++ {
		if _, err := st.Append(context.Background(), fmt.Sprintf("msg %d", i), models.RoleUser, ""); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	out, err := st.ReadOrdered(context.Background(), 4, "")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(out))
	}
	if out[0].Content != "msg 6" || out[3].Content != "msg 9" {
		t.Fatalf("expected the most recent rows ascending, got first %q last %q", out[0].Content, out[3].Content)
	}
	for i := 1; i < len(out); i++ {
		if !out[i-1].Before(out[i]) {
			t.Fatalf("result not ascending at %d", i)
		}
	}
}

func TestReadOrderedIsolatesRooms(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.Append(context.Background(), "a", models.RoleUser, "room-a"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := st.Append(context.Background(), "b", models.RoleUser, "room-b"); err != nil {
		t.Fatalf("append: %v", err)
	}

	out, err := st.ReadOrdered(context.Background(), 0, "room-a")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != 1 || out[0].Content != "a" {
		t.Fatalf("expected only room-a rows, got %+v", out)
	}
}

func TestSubscribeInsertsDeliversInOrder(t *testing.T) {
	st := newTestStore(t)
	sub := st.SubscribeInserts("")
	defer sub.Close()

	want := []string{"one", "two", "three"}
	for _, c := range want {
		if _, err := st.Append(context.Background(), c, models.RoleUser, ""); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	for i, w := range want {
		select {
		case m := <-sub.C():
			if m.Content != w {
				t.Fatalf("delivery %d: expected %q, got %q", i, w, m.Content)
			}
		case <-time.After(time.Second):
			t.Fatalf("delivery %d: timed out", i)
		}
	}
}

func TestSubscribeInsertsFiltersByRoom(t *testing.T) {
	st := newTestStore(t)
	sub := st.SubscribeInserts("room-a")
	defer sub.Close()

	if _, err := st.Append(context.Background(), "other", models.RoleUser, "room-b"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := st.Append(context.Background(), "mine", models.RoleUser, "room-a"); err != nil {
		t.Fatalf("append: %v", err)
	}

	select {
	case m := <-sub.C():
		if m.Content != "mine" {
			t.Fatalf("expected only room-a delivery, got %q", m.Content)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for delivery")
	}
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	st := newTestStore(t)
	sub := st.SubscribeInserts("")
	sub.Close()

	if _, err := st.Append(context.Background(), "after close", models.RoleUser, ""); err != nil {
		t.Fatalf("append: %v", err)
	}

	// A closed subscription has a closed channel and never a live delivery.
	m, ok := <-sub.C()
	if ok {
		t.Fatalf("expected closed channel, got delivery %+v", m)
	}
}

func TestSlowSubscriberIsEvicted(t *testing.T) {
	st := newTestStore(t)
	sub := st.SubscribeInserts("")

	for i := 0; i < subscriptionBuffer+1; i++ {
		if _, err := st.Append(context.Background(), "x", models.RoleUser, ""); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	// Drain: the buffered rows arrive, then the channel closes (evicted)
	// instead of silently skipping the overflowed row.
	n := 0
	for range sub.C() {
		n++
	}
	if n != subscriptionBuffer {
		t.Fatalf("expected %d buffered deliveries before eviction, got %d", subscriptionBuffer, n)
	}
}
