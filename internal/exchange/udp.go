package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const maxDatagram = 64

// udpClient sends "<seq> <value>" and waits for the same datagram back.
// Round trips are serialized; replies to earlier, timed-out requests are
// discarded by sequence number.
type udpClient struct {
	mu      sync.Mutex
	conn    net.Conn
	seq     uint64
	timeout time.Duration
	logger  *zap.Logger
	closed  bool
}

func dialUDP(ctx context.Context, addr string, o options) (*udpClient, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, err
	}
	return &udpClient{conn: conn, timeout: o.timeout, logger: o.logger}, nil
}

func (c *udpClient) Exchange(ctx context.Context, v int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return 0, err
	}

	c.seq++
	seq := c.seq
	if _, err := c.conn.Write(encodeDatagram(seq, v)); err != nil {
		return 0, fmt.Errorf("udp send: %w", err)
	}

	// Cancellation unblocks the read by moving the deadline to now.
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Now()) //nolint:errcheck
	})
	defer stop()

	buf := make([]byte, maxDatagram)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, fmt.Errorf("udp receive: %w", ctxErr)
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return 0, fmt.Errorf("udp receive: %w", context.DeadlineExceeded)
			}
			return 0, fmt.Errorf("udp receive: %w", err)
		}

		gotSeq, value, err := decodeDatagram(buf[:n])
		if err != nil {
			return 0, err
		}
		if gotSeq == seq {
			return value, nil
		}
		c.logger.Debug("Discarding stale udp reply",
			zap.Uint64("want", seq),
			zap.Uint64("got", gotSeq),
		)
	}
}

func (c *udpClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func encodeDatagram(seq uint64, v int64) []byte {
	b := strconv.AppendUint(nil, seq, 10)
	b = append(b, ' ')
	return strconv.AppendInt(b, v, 10)
}

func decodeDatagram(b []byte) (uint64, int64, error) {
	seqText, valueText, ok := strings.Cut(strings.TrimSpace(string(b)), " ")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadResponse, b)
	}
	seq, err := strconv.ParseUint(seqText, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadResponse, b)
	}
	value, err := strconv.ParseInt(valueText, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadResponse, b)
	}
	return seq, value, nil
}
