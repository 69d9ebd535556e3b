package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lawnchairsociety/gridquest/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ErrBackpressure means a client stopped draining its send queue.
var ErrBackpressure = errors.New("send queue full")

// Envelope is the frame of every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is one WebSocket connection. Outbound frames are encoded by the hub
// and queued here, so the order of hub calls is the order on the wire.
type Client struct {
	id   string
	ip   string
	conn *websocket.Conn
	send chan []byte

	commands *CommandTracker

	closeOnce sync.Once
	done      chan struct{}
	closeErr  error
}

func newClient(conn *websocket.Conn, ip string, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Client{
		id:   uuid.NewString(),
		ip:   ip,
		conn: conn,
		send: make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
}

// ID returns the connection id used as player id.
func (c *Client) ID() string { return c.id }

// RemoteAddr returns the client IP for logging.
func (c *Client) RemoteAddr() string { return c.ip }

// enqueue queues a frame without blocking. A full queue drops the client.
func (c *Client) enqueue(frame []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- frame:
	default:
		logger.Warning("Dropping slow client", "conn", c.id, "ip", c.ip, "queued", len(c.send))
		c.close(ErrBackpressure)
	}
}

// close stops the write loop; the first reason wins.
func (c *Client) close(reason error) {
	c.closeOnce.Do(func() {
		c.closeErr = reason
		close(c.done)
	})
}

// run pumps the connection until either side fails or ctx ends. handle is
// called for every inbound envelope, one at a time, in arrival order.
func (c *Client) run(ctx context.Context, maxMessageSize int64, handle func(ctx context.Context, env Envelope)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer c.close(nil)
		return c.readLoop(ctx, maxMessageSize, handle)
	})
	g.Go(func() error {
		return c.writeLoop(ctx)
	})
	return g.Wait()
}

func (c *Client) readLoop(ctx context.Context, maxMessageSize int64, handle func(ctx context.Context, env Envelope)) error {
	if maxMessageSize > 0 {
		c.conn.SetReadLimit(maxMessageSize)
	}
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			logger.Debug("Ignoring malformed message", "conn", c.id, "error", err)
			continue
		}
		handle(ctx, env)
	}
}

// writeLoop owns every write on the connection and closes it on exit, which
// unblocks the read loop.
func (c *Client) writeLoop(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		case <-c.done:
			if c.closeErr == nil {
				c.flush()
			}
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return c.closeErr
		case <-ctx.Done():
			c.flush()
			return nil
		}
	}
}

// flush writes whatever is still queued, best effort.
func (c *Client) flush() {
	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}
