// Package transport delivers fuzz frames to a target over TCP or UDP.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluxprobe/fluxprobe/internal/schema"
)

// Supported transport kinds.
const (
	KindTCP = "tcp"
	KindUDP = "udp"
)

// DefaultBufferSize bounds a single Receive.
const DefaultBufferSize = 4096

var (
	ErrUnsupportedTransport = errors.New("unsupported transport type")
	ErrPortUnset            = errors.New("target port is not set")
	ErrClosed               = errors.New("transport is closed")
)

// Transport sends frames to one target and reads replies.
type Transport interface {
	// Send writes the whole frame.
	Send(ctx context.Context, data []byte) error

	// Receive waits up to timeout for a reply. A timeout is not an error:
	// it yields an empty slice.
	Receive(ctx context.Context, timeout time.Duration) ([]byte, error)

	// Close releases the connection. Further calls return ErrClosed.
	Close() error
}

// Reconnector is implemented by connection-oriented transports that can
// re-establish their connection after a failure.
type Reconnector interface {
	Reconnect(ctx context.Context) error
}

// New dials the target described by spec.
func New(ctx context.Context, spec schema.TransportSpec) (Transport, error) {
	if spec.Port == 0 {
		return nil, ErrPortUnset
	}
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = schema.DefaultTimeout
	}

	c := &conn{
		network: strings.ToLower(spec.Type),
		address: spec.Address(),
		timeout: timeout,
	}
	switch c.network {
	case KindTCP, KindUDP:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransport, spec.Type)
	}

	if err := c.dial(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// conn serves both kinds; UDP sockets are connected so Read only sees
// datagrams from the target.
type conn struct {
	network string
	address string
	timeout time.Duration

	mu     sync.Mutex
	c      net.Conn
	closed atomic.Bool
}

func (c *conn) dial(ctx context.Context) error {
	d := net.Dialer{Timeout: c.timeout}
	nc, err := d.DialContext(ctx, c.network, c.address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s://%s: %w", c.network, c.address, err)
	}
	c.mu.Lock()
	c.c = nc
	c.mu.Unlock()
	return nil
}

func (c *conn) current() (net.Conn, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.c == nil {
		return nil, ErrClosed
	}
	return c.c, nil
}

func (c *conn) Send(ctx context.Context, data []byte) error {
	nc, err := c.current()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := nc.SetWriteDeadline(deadline(ctx, c.timeout)); err != nil {
		return err
	}
	if _, err := nc.Write(data); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

func (c *conn) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	nc, err := c.current()
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, nil
	}
	if err := nc.SetReadDeadline(deadline(ctx, timeout)); err != nil {
		return nil, err
	}

	bufp := receiveBuffers.get()
	defer receiveBuffers.put(bufp)

	n, err := nc.Read(*bufp)
	data := append([]byte(nil), (*bufp)[:n]...)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return data, ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			return data, fmt.Errorf("receive failed: peer closed connection: %w", err)
		}
		return data, fmt.Errorf("receive failed: %w", err)
	}
	return data, nil
}

// Reconnect drops the current connection and dials again.
func (c *conn) Reconnect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.mu.Lock()
	if c.c != nil {
		c.c.Close()
		c.c = nil
	}
	c.mu.Unlock()
	return c.dial(ctx)
}

func (c *conn) Close() error {
	if c.closed.Swap(true) {
		return ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.c == nil {
		return nil
	}
	err := c.c.Close()
	c.c = nil
	return err
}

// deadline is now+timeout, pulled in by an earlier context deadline.
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}
