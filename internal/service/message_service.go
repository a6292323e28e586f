package service

import (
	"context"
	"errors"

	"github.com/Baaaki/roomchat/internal/hub"
	"github.com/Baaaki/roomchat/internal/models"
	"github.com/Baaaki/roomchat/internal/repository"
	"github.com/Baaaki/roomchat/internal/timefmt"
	"github.com/Baaaki/roomchat/pkg/logger"
	"go.uber.org/zap"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageStore is the persistence the service needs.
type MessageStore interface {
	Append(ctx context.Context, message *models.Message) (*models.Message, error)
	ListByRoom(ctx context.Context, room models.RoomID) ([]models.Message, error)
	MarkDeleted(ctx context.Context, id string) (*models.Message, error)
}

// RoomPublisher pushes an event to the live members of a room.
type RoomPublisher interface {
	PublishToRoom(ctx context.Context, room models.RoomID, event string, payload any) error
}

// ReceiveMessagePayload is the data of a receiveMessage event.
type ReceiveMessagePayload struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Room      string `json:"room"`
	Timestamp string `json:"timestamp"`
}

// MessageDeletedPayload is the data of a messageDeleted event.
type MessageDeletedPayload struct {
	ID string `json:"id"`
}

type MessageService struct {
	store     MessageStore
	publisher RoomPublisher
	formatter *timefmt.Formatter
}

func NewMessageService(store MessageStore, publisher RoomPublisher, formatter *timefmt.Formatter) *MessageService {
	return &MessageService{
		store:     store,
		publisher: publisher,
		formatter: formatter,
	}
}

// SendMessage stores the message and then pushes it to everyone in the room,
// the sender included if they joined it.
func (s *MessageService) SendMessage(ctx context.Context, username, message string, room models.RoomID) (*models.Message, error) {
	stored, err := s.store.Append(ctx, &models.Message{
		Username: username,
		Message:  message,
		Room:     room,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, room, hub.EventReceiveMessage, ReceiveMessagePayload{
		ID:        stored.ID,
		Username:  stored.Username,
		Message:   stored.Message,
		Room:      string(stored.Room),
		Timestamp: s.formatter.Format(stored.Timestamp),
	})

	return stored, nil
}

func (s *MessageService) GetRoomMessages(ctx context.Context, room models.RoomID) ([]models.Message, error) {
	return s.store.ListByRoom(ctx, room)
}

// DeleteMessage hides the message and tells its room.
func (s *MessageService) DeleteMessage(ctx context.Context, id string) (*models.Message, error) {
	deleted, err := s.store.MarkDeleted(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	s.publish(ctx, deleted.Room, hub.EventMessageDeleted, MessageDeletedPayload{ID: deleted.ID})

	return deleted, nil
}

// FormatTimestamp renders a stored timestamp for display.
func (s *MessageService) FormatTimestamp(msg models.Message) string {
	return s.formatter.Format(msg.Timestamp)
}

// publish logs failures; the stored change stands.
func (s *MessageService) publish(ctx context.Context, room models.RoomID, event string, payload any) {
	if err := s.publisher.PublishToRoom(ctx, room, event, payload); err != nil {
		logger.Log.Error("Failed to publish room event",
			zap.String("room", string(room)),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}
