// Package testclient is a scripted WebSocket player used by integration
// tests. It records every event the server sends.
package testclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message is one event received from the server.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Decode unmarshals the message data into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Data, v)
}

// TestClient represents a test client connection to the game server
type TestClient struct {
	Name     string
	conn     *websocket.Conn
	writeMu  sync.Mutex
	mu       sync.Mutex
	messages []Message
	done     chan struct{}
}

// Dial connects to a server. address may be an http(s) or ws(s) URL; the
// /ws path is added when missing.
func Dial(name, address string) (*TestClient, error) {
	return DialWithHeader(name, address, nil)
}

// DialWithHeader connects with extra request headers, e.g. Origin.
func DialWithHeader(name, address string, header http.Header) (*TestClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(address), header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	client := &TestClient{
		Name: name,
		conn: conn,
		done: make(chan struct{}),
	}
	go client.readMessages()
	return client, nil
}

func wsURL(address string) string {
	switch {
	case strings.HasPrefix(address, "http://"):
		address = "ws://" + strings.TrimPrefix(address, "http://")
	case strings.HasPrefix(address, "https://"):
		address = "wss://" + strings.TrimPrefix(address, "https://")
	case !strings.HasPrefix(address, "ws"):
		address = "ws://" + address
	}
	if !strings.HasSuffix(address, "/ws") {
		address = strings.TrimSuffix(address, "/") + "/ws"
	}
	return address
}

// readMessages continuously reads messages from the server
func (c *TestClient) readMessages() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		c.mu.Lock()
		c.messages = append(c.messages, msg)
		c.mu.Unlock()
	}
}

// Send sends one command. A nil payload sends no data.
func (c *TestClient) Send(event string, payload any) error {
	frame := map[string]any{"event": event}
	if payload != nil {
		frame["data"] = payload
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return c.SendRaw(data)
}

// SendRaw writes a frame as is, for malformed-input tests.
func (c *TestClient) SendRaw(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Messages returns all messages received so far
func (c *TestClient) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]Message, len(c.messages))
	copy(result, c.messages)
	return result
}

// Events returns the names of the messages received so far, in order.
func (c *TestClient) Events() []string {
	msgs := c.Messages()
	names := make([]string, len(msgs))
	for i, m := range msgs {
		names[i] = m.Event
	}
	return names
}

// Count returns how many event messages have arrived.
func (c *TestClient) Count(event string) int {
	n := 0
	for _, m := range c.Messages() {
		if m.Event == event {
			n++
		}
	}
	return n
}

// ClearMessages clears the message buffer
func (c *TestClient) ClearMessages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

// WaitFor waits for the first message named event.
func (c *TestClient) WaitFor(event string, timeout time.Duration) (Message, bool) {
	return c.WaitForNth(event, 1, timeout)
}

// WaitForNth waits until n messages named event have arrived and returns
// the nth.
func (c *TestClient) WaitForNth(event string, n int, timeout time.Duration) (Message, bool) {
	deadline := time.Now().Add(timeout)
	for {
		seen := 0
		for _, m := range c.Messages() {
			if m.Event == event {
				seen++
				if seen == n {
					return m, true
				}
			}
		}
		if time.Now().After(deadline) {
			return Message{}, false
		}
		select {
		case <-c.done:
			// Connection gone; one last look happens on the next pass.
			deadline = time.Now()
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// Closed reports whether the server has closed the connection.
func (c *TestClient) Closed(timeout time.Duration) bool {
	select {
	case <-c.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close closes the connection to the server
func (c *TestClient) Close() error {
	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}
