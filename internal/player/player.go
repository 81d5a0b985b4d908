package player

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one websocket connection. Its id doubles as the
// participant id in whichever game it joins, so a reconnect is a new
// participant.
type Client struct {
	ID   string
	Conn *websocket.Conn

	mu       sync.Mutex
	gameID   string
	lastSeen time.Time
}

func New(conn *websocket.Conn) *Client {
	return &Client{
		ID:       uuid.New().String(),
		Conn:     conn,
		lastSeen: time.Now(),
	}
}

// GameID returns the code of the game this connection has joined, if
// any. Broadcast paths clear it from other goroutines, so access goes
// through the client mutex.
func (c *Client) GameID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameID
}

func (c *Client) SetGameID(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gameID = code
}

func (c *Client) UpdateActivity() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen = time.Now()
}

// LastSeen reports the time of the last inbound message.
func (c *Client) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// SendJSON serializes writes; gorilla connections allow only one
// concurrent writer.
func (c *Client) SendJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteJSON(v)
}
