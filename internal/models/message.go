package models

import (
	"time"
)

// RoomID names a room. Rooms exist only as this key on messages and on
// live connection membership.
type RoomID string

type Message struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Username  string    `gorm:"type:text" json:"username"`
	Message   string    `gorm:"type:text" json:"message"`
	Room      RoomID    `gorm:"type:varchar(255);index:idx_messages_room_timestamp,priority:1" json:"room"`
	Timestamp time.Time `gorm:"not null;index:idx_messages_room_timestamp,priority:2" json:"timestamp"`

	// Soft delete: deleted messages stay in the table but are hidden
	Deleted bool `gorm:"not null;default:false;index" json:"-"`
}
