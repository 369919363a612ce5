package models

import (
	"time"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// DefaultRoomID is used when a request carries no partition key.
const DefaultRoomID = "lobby"

// Message is a single chat message. Rows are immutable once inserted; the
// store assigns ID and CreatedAt, and (CreatedAt, ID) is the total order all
// views must respect.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Role      Role      `gorm:"size:20;not null" json:"role"`
	RoomID    string    `gorm:"size:64;index;not null" json:"room_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Before reports whether m precedes other in the (CreatedAt, ID) order.
func (m Message) Before(other Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}
