// Package ws provides a WebSocket client for the tasktrack task feed.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/dohr-michael/tasktrack/internal/events"
	wsprotocol "github.com/dohr-michael/tasktrack/internal/gateway/ws"
)

// ErrNotEvent is returned by TaskEvent for frames that carry no event.
var ErrNotEvent = errors.New("not an event frame")

// Client is a WebSocket client for the task feed.
type Client struct {
	conn   *websocket.Conn
	reqSeq uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// FeedURL derives the feed endpoint from a Task API base URL.
func FeedURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/ws"
}

// Dial connects to the feed endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ws dial: %w", err)
	}

	clientCtx, cancel := context.WithCancel(context.Background())

	return &Client{
		conn:   conn,
		ctx:    clientCtx,
		cancel: cancel,
	}, nil
}

// ListTasks asks the gateway for the current task list.
// The answer arrives as a response frame through ReadFrame.
func (c *Client) ListTasks() (string, error) {
	seq := atomic.AddUint64(&c.reqSeq, 1)
	id := fmt.Sprintf("req-%d", seq)

	frame, err := wsprotocol.NewRequestFrame(id, wsprotocol.MethodListTasks, nil)
	if err != nil {
		return "", err
	}
	data, err := wsprotocol.MarshalFrame(frame)
	if err != nil {
		return "", err
	}
	if err := c.conn.Write(c.ctx, websocket.MessageText, data); err != nil {
		return "", fmt.Errorf("ws write: %w", err)
	}
	return id, nil
}

// ReadFrame reads the next frame from the connection.
func (c *Client) ReadFrame() (wsprotocol.Frame, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		return wsprotocol.Frame{}, err
	}
	return wsprotocol.UnmarshalFrame(data)
}

// Close gracefully closes the connection.
func (c *Client) Close() error {
	defer c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

// TaskEvent decodes the bus event carried by an event frame.
func TaskEvent(f wsprotocol.Frame) (events.Event, error) {
	if f.Type != wsprotocol.FrameTypeEvent {
		return events.Event{}, ErrNotEvent
	}
	var e events.Event
	if err := json.Unmarshal(f.Payload, &e); err != nil {
		return events.Event{}, fmt.Errorf("decode event %s: %w", f.Event, err)
	}
	return e, nil
}
