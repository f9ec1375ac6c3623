package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/vajra-sim/vajra/pkg/streaming"
)

const (
	sendChSize   = 256
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
)

// ErrClosed is returned for sends after close.
var ErrClosed = errors.New("remote connection closed")

// connection owns one collector socket. A single writer goroutine drains
// sendCh; acks are routed to the waiter registered for their id.
type connection struct {
	mu      sync.Mutex
	conn    *ws.Conn
	waiters map[string]chan streaming.AckMessage
	closed  bool

	sendCh chan []byte
	done   chan struct{}

	wsURL  string
	secret string
	hello  []byte

	initialBackoff time.Duration
	logger         *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		waiters:        make(map[string]chan streaming.AckMessage),
		sendCh:         make(chan []byte, sendChSize),
		done:           make(chan struct{}),
		initialBackoff: time.Second,
		logger:         logger,
	}
}

// dial connects, sends hello, and starts the read/write loops.
func (c *connection) dial(rawURL, secret string, hello []byte) error {
	c.wsURL = rawURL
	c.secret = secret
	c.hello = hello

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writeLoop(conn)
	go c.readLoop(conn)
	return nil
}

// dialOnce dials with the secret as a query parameter and writes hello.
func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid collector URL: %w", err)
	}
	if c.secret != "" {
		q := u.Query()
		q.Set("secret", c.secret)
		u.RawQuery = q.Encode()
	}

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("collector dial failed: %w", err)
	}

	if c.hello != nil {
		if err := writeFrame(conn, c.hello); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("collector hello failed: %w", err)
		}
	}
	return conn, nil
}

func writeFrame(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// writeLoop serves one socket; it returns on write error or shutdown.
func (c *connection) writeLoop(conn *ws.Conn) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := writeFrame(conn, data); err != nil {
				c.logger.Warn("Collector write error", "error", err)
				// Put the frame back so the next socket sends it.
				select {
				case c.sendCh <- data:
				default:
				}
				go c.reconnect(conn)
				return
			}
		}
	}
}

// readLoop routes acks to their waiters.
func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("Collector read error", "error", err)
			go c.reconnect(conn)
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Ignoring collector message", "raw", string(message))
			continue
		}

		c.mu.Lock()
		ch, ok := c.waiters[ack.For]
		delete(c.waiters, ack.For)
		c.mu.Unlock()
		if ok {
			ch <- ack
		}
	}
}

// reconnect replaces broken with a fresh socket using exponential backoff.
// Only the first caller for a given socket does the work.
func (c *connection) reconnect(broken *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != broken {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.mu.Unlock()
	_ = broken.Close()

	backoff := c.initialBackoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		c.logger.Info("Reconnecting to collector", "attempt", attempt)
		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Collector reconnect failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		c.logger.Info("Collector reconnected", "attempt", attempt)
		go c.writeLoop(conn)
		go c.readLoop(conn)
		return
	}

	c.logger.Error("Collector reconnect gave up", "maxAttempts", maxReconnect)
}

// sendAndWait queues data and blocks until the ack for id arrives or
// timeout expires.
func (c *connection) sendAndWait(id string, data []byte, timeout time.Duration) error {
	ch := make(chan streaming.AckMessage, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.waiters[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.waiters, id)
		c.mu.Unlock()
	}()

	select {
	case c.sendCh <- data:
	default:
		return fmt.Errorf("send queue full, dropping %s", id)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ack := <-ch:
		if ack.Error != "" {
			return fmt.Errorf("collector rejected %s: %s", id, ack.Error)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("timeout waiting for ack of %s", id)
	case <-c.done:
		return ErrClosed
	}
}

// close sends a close frame and stops every goroutine.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return conn.Close()
	}
	return nil
}
