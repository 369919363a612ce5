package livesync_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kaiwa/controllers"
	"kaiwa/models"
	"kaiwa/pkg/livesync"
	"kaiwa/pkg/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Message{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st := store.New(db)

	r := gin.New()
	r.GET("/api/messages", controllers.ListMessages(st))
	r.GET("/ws/messages", controllers.MessagesWS(st))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, st
}

func waitForCount(t *testing.T, v *livesync.View, n int) []models.Message {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if msgs := v.Messages(); len(msgs) >= n {
			return msgs
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages, have %d", n, len(v.Messages()))
	return nil
}

func TestClientSeedsAndFollowsFeed(t *testing.T) {
	srv, st := newTestServer(t)

	if _, err := st.Append(context.Background(), "before open", models.RoleUser, ""); err != nil {
		t.Fatalf("append: %v", err)
	}

	c := livesync.NewClient(srv.URL, "")
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	if s, _ := c.View().State(); s != livesync.StateReady {
		t.Fatalf("expected ready after open, got %q", s)
	}
	if msgs := c.View().Messages(); len(msgs) != 1 || msgs[0].Content != "before open" {
		t.Fatalf("unexpected seed: %+v", msgs)
	}

	if _, err := st.Append(context.Background(), "after open", models.RoleAssistant, ""); err != nil {
		t.Fatalf("append: %v", err)
	}

	msgs := waitForCount(t, c.View(), 2)
	if msgs[1].Content != "after open" || msgs[1].Role != models.RoleAssistant {
		t.Fatalf("unexpected live message: %+v", msgs[1])
	}
	for i := 1; i < len(msgs); i++ {
		if !msgs[i-1].Before(msgs[i]) {
			t.Fatalf("view not ascending at %d", i)
		}
	}
}

func TestClientIgnoresOtherRooms(t *testing.T) {
	srv, st := newTestServer(t)

	c := livesync.NewClient(srv.URL, "room-a")
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	if _, err := st.Append(context.Background(), "elsewhere", models.RoleUser, "room-b"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := st.Append(context.Background(), "here", models.RoleUser, "room-a"); err != nil {
		t.Fatalf("append: %v", err)
	}

	msgs := waitForCount(t, c.View(), 1)
	if len(msgs) != 1 || msgs[0].Content != "here" {
		t.Fatalf("expected only room-a messages, got %+v", msgs)
	}
}

func TestClientCloseFreezesView(t *testing.T) {
	srv, st := newTestServer(t)

	c := livesync.NewClient(srv.URL, "")
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	c.Close()

	if _, err := st.Append(context.Background(), "too late", models.RoleUser, ""); err != nil {
		t.Fatalf("append: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if msgs := c.View().Messages(); len(msgs) != 0 {
		t.Fatalf("view mutated after close: %+v", msgs)
	}
}
