package hub

import "encoding/json"

// Commands sent by clients.
const (
	CommandJoinRoom    = "joinRoom"
	CommandSendMessage = "sendMessage"
)

// Events pushed to clients.
const (
	EventReceiveMessage = "receiveMessage"
	EventMessageDeleted = "messageDeleted"
)

// Envelope is the frame format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(event string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: data}, nil
}

// SendMessageCommand is the data of a sendMessage command.
type SendMessageCommand struct {
	Username string `json:"username"`
	Message  string `json:"message"`
	Room     string `json:"room"`
}
