package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Baaaki/roomchat/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrMessageNotFound = errors.New("message not found")

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append assigns the id and timestamp, then persists the message.
// Fields are stored as given; empty strings are fine.
func (r *MessageRepository) Append(ctx context.Context, message *models.Message) (*models.Message, error) {
	message.ID = uuid.New().String()
	message.Timestamp = time.Now().UTC()
	message.Deleted = false

	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

// ListByRoom returns every visible message in the room, oldest first.
// There is no limit.
func (r *MessageRepository) ListByRoom(ctx context.Context, room models.RoomID) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("room = ? AND deleted = ?", room, false).
		Order("timestamp ASC").
		Find(&messages).Error

	return messages, err
}

// GetByID returns the message whether or not it is deleted.
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// MarkDeleted hides a message from history. The row is kept.
func (r *MessageRepository) MarkDeleted(ctx context.Context, id string) (*models.Message, error) {
	var message *models.Message

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &MessageRepository{db: tx}

		found, err := txRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Message{}).
			Where("id = ?", id).
			Update("deleted", true).Error; err != nil {
			return err
		}

		found.Deleted = true
		message = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	return message, nil
}
