package exchange

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/GriffinCanCode/etherpipe/internal/shared/id"
)

// DefaultWSPath is used when a ws endpoint has no path.
const DefaultWSPath = "/ws"

// wsClient keeps one websocket open; round trips are serialized.
type wsClient struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	timeout time.Duration
	closed  bool
}

func dialWS(ctx context.Context, u *url.URL, o options) (*wsClient, error) {
	target := *u
	if target.Path == "" || target.Path == "/" {
		target.Path = DefaultWSPath
	}

	dialer := websocket.Dialer{HandshakeTimeout: o.timeout}
	conn, _, err := dialer.DialContext(ctx, target.String(), nil)
	if err != nil {
		return nil, err
	}
	return &wsClient{conn: conn, timeout: o.timeout}, nil
}

func (c *wsClient) Exchange(ctx context.Context, v int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	reqID := id.NewRequestID().String()
	payload, err := sonic.Marshal(Message{Value: v, RequestID: reqID})
	if err != nil {
		return 0, err
	}

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return 0, err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return 0, fmt.Errorf("ws send: %w", err)
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return 0, err
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return 0, fmt.Errorf("ws receive: %w", err)
	}

	var out Message
	if err := sonic.Unmarshal(data, &out); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if out.RequestID != reqID {
		return 0, fmt.Errorf("%w: request id %q, want %q", ErrBadResponse, out.RequestID, reqID)
	}
	return out.Value, nil
}

func (c *wsClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}
