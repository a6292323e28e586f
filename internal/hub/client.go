package hub

import "github.com/google/uuid"

// Client is one live connection as the hub sees it. The transport drains
// Send and writes each frame to the peer; the hub closes Send on Unregister.
type Client struct {
	id   string
	send chan []byte
}

func NewClient(buffer int) *Client {
	if buffer <= 0 {
		buffer = 1
	}
	return &Client{
		id:   uuid.NewString(),
		send: make(chan []byte, buffer),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send yields encoded frames queued for this client.
func (c *Client) Send() <-chan []byte {
	return c.send
}
