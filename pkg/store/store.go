package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"kaiwa/models"
)

// Store wraps the durable message table: ordered append, ordered bounded
// read, and a feed of newly inserted rows. All timestamps are assigned here
// at insert time so (CreatedAt, ID) is a single authoritative total order.
type Store struct {
	db   *gorm.DB
	feed *Feed

	mu     sync.Mutex
	lastAt time.Time
}

// Open connects via the configured driver and migrates the message table.
func Open(driver, dsn string) (*Store, error) {
	var dial gorm.Dialector
	switch driver {
	case "mysql":
		dial = mysql.Open(dsn)
	case "sqlite":
		dial = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	if err := db.AutoMigrate(&models.Message{}); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return New(db), nil
}

// New builds a Store over an already-open gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db, feed: NewFeed()}
}

// Append inserts one message and returns the fully populated row. The
// timestamp is taken from a per-process monotonic clock so two sequential
// appends never tie even on coarse wall clocks. A successful insert is
// published to all active feed subscribers.
func (s *Store) Append(ctx context.Context, content string, role models.Role, roomID string) (models.Message, error) {
	if !role.Valid() {
		role = models.RoleUser
	}
	if strings.TrimSpace(roomID) == "" {
		roomID = models.DefaultRoomID
	}
	m := models.Message{
		Content:   content,
		Role:      role,
		RoomID:    roomID,
		CreatedAt: s.nextTimestamp(),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return models.Message{}, fmt.Errorf("append message: %w", err)
	}
	s.feed.publish(m)
	return m, nil
}

// ReadOrdered returns messages for a room ascending by (created_at, id).
// A positive limit caps the result to the most recent rows by that order,
// still presented ascending.
func (s *Store) ReadOrdered(ctx context.Context, limit int, roomID string) ([]models.Message, error) {
	if strings.TrimSpace(roomID) == "" {
		roomID = models.DefaultRoomID
	}
	q := s.db.WithContext(ctx).Where("room_id = ?", roomID)

	var list []models.Message
	if limit > 0 {
		// Take the newest rows first, then flip back to ascending.
		if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&list).Error; err != nil {
			return nil, fmt.Errorf("read messages: %w", err)
		}
		for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
			list[i], list[j] = list[j], list[i]
		}
		return list, nil
	}
	if err := q.Order("created_at ASC").Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	return list, nil
}

// SubscribeInserts opens a feed of rows inserted after this call. The caller
// must Close the subscription when done.
func (s *Store) SubscribeInserts(roomID string) *Subscription {
	if strings.TrimSpace(roomID) == "" {
		roomID = models.DefaultRoomID
	}
	return s.feed.Subscribe(roomID)
}

func (s *Store) nextTimestamp() time.Time {
	now := time.Now().UTC()
	s.mu.Lock()
	if !now.After(s.lastAt) {
		now = s.lastAt.Add(time.Microsecond)
	}
	s.lastAt = now
	s.mu.Unlock()
	return now
}
