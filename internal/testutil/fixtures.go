package testutil

import (
	"testing"
	"time"

	"github.com/Baaaki/roomchat/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateTestMessage builds a message with an explicit timestamp, bypassing
// the repository so tests control ordering.
func CreateTestMessage(room models.RoomID, username, text string, at time.Time) *models.Message {
	return &models.Message{
		ID:        uuid.New().String(),
		Username:  username,
		Message:   text,
		Room:      room,
		Timestamp: at.UTC(),
	}
}

// CreateDeletedTestMessage is CreateTestMessage with the deleted flag set.
func CreateDeletedTestMessage(room models.RoomID, username, text string, at time.Time) *models.Message {
	msg := CreateTestMessage(room, username, text, at)
	msg.Deleted = true
	return msg
}

// InsertMessages writes messages straight into the table.
func InsertMessages(t *testing.T, db *gorm.DB, messages ...*models.Message) {
	t.Helper()

	for _, msg := range messages {
		if err := db.Create(msg).Error; err != nil {
			t.Fatalf("Failed to insert test message %s: %v", msg.ID, err)
		}
	}
}

// LoadMessage reads a message by id, including deleted ones.
func LoadMessage(t *testing.T, db *gorm.DB, id string) *models.Message {
	t.Helper()

	var msg models.Message
	if err := db.Where("id = ?", id).First(&msg).Error; err != nil {
		t.Fatalf("Failed to load message %s: %v", id, err)
	}
	return &msg
}

// CountMessages counts every stored row, deleted or not.
func CountMessages(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	if err := db.Model(&models.Message{}).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count messages: %v", err)
	}
	return count
}
