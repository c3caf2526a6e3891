package collab

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/e-code/agent/internal/platform"
	"github.com/e-code/agent/internal/shared/metrics"
)

const defaultSendBuffer = 256

// Config holds presence client configuration.
type Config struct {
	// SendBuffer is the outbound queue size. A full queue drops the
	// message instead of blocking the editor event path.
	SendBuffer int
}

// Client maintains one live WebSocket connection per active project
// session, translates local editor events into outbound messages and
// dispatches inbound messages to the presence store.
//
// Failure semantics follow the upstream client: connection errors are
// logged and swallowed, there is no automatic reconnection, outbound
// sends are fire-and-forget with no ack and no retries. A closed
// connection clears all presence until the next explicit Connect.
type Client struct {
	endpoints  *platform.Endpoints
	store      *Store
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	sendBuffer int

	mu   sync.Mutex
	sess *session
}

// session owns one socket: the reader goroutine dispatches messages
// run-to-completion in delivery order, the writer drains the send queue.
type session struct {
	conn *websocket.Conn
	send chan *Message
	done chan struct{}
	wg   sync.WaitGroup
}

// NewClient creates a presence client. The metrics parameter may be nil.
func NewClient(cfg Config, endpoints *platform.Endpoints, store *Store, dispatcher *Dispatcher, m *metrics.Metrics, logger *zap.Logger) *Client {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoints:  endpoints,
		store:      store,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger.Named("collab-client"),
		sendBuffer: cfg.SendBuffer,
	}
}

// Connect opens the collaboration socket scoped to the given project and
// announces local presence as active. A previous session, if any, is
// disconnected first. A failed dial returns the error and nothing else
// happens; there is no retry.
func (c *Client) Connect(ctx context.Context, projectID string) error {
	c.Disconnect()

	wsURL, err := c.endpoints.CollabURL(projectID)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}

	sess := &session{
		conn: conn,
		send: make(chan *Message, c.sendBuffer),
		done: make(chan struct{}),
	}

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	sess.wg.Add(2)
	go c.readLoop(sess)
	go c.writeLoop(sess)

	c.logger.Info("collaboration session connected",
		zap.String("project_id", projectID),
	)

	c.enqueue(&Message{Type: TypePresence, Status: StatusActive})
	return nil
}

// Disconnect closes the connection if open and clears all known
// collaborators. Idempotent: safe to call with no open connection, and
// stale collaborator state is cleared either way.
func (c *Client) Disconnect() {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()

	if sess != nil {
		close(sess.done)
		_ = sess.conn.Close()
		sess.wg.Wait()
		c.logger.Info("collaboration session disconnected")
	}

	c.store.Clear()
}

// NotifyCursor emits a cursor message for the primary selection's active
// end. Called on every local selection change, no debouncing.
func (c *Client) NotifyCursor(file string, pos Position) {
	c.enqueue(&Message{Type: TypeCursor, File: file, Position: &pos})
}

// NotifyFileChange emits a file_change message for the newly focused file.
func (c *Client) NotifyFileChange(file string) {
	c.enqueue(&Message{Type: TypeFileChange, File: file})
}

// enqueue queues an outbound message, dropping it when disconnected or
// when the queue is full. Never blocks the caller.
func (c *Client) enqueue(msg *Message) {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	if sess == nil {
		return
	}

	select {
	case sess.send <- msg:
		if c.metrics != nil {
			c.metrics.RecordCollabMessage("out", msg.Type)
		}
	default:
		if c.metrics != nil {
			c.metrics.RecordCollabDrop()
		}
		c.logger.Warn("send queue full, dropping message",
			zap.String("message_type", msg.Type),
		)
	}
}

// readLoop owns the socket read side. Messages are dispatched
// run-to-completion in socket-delivery order. Malformed payloads are
// logged and skipped; the loop continues. A read error ends the session
// and clears all presence.
func (c *Client) readLoop(sess *session) {
	defer sess.wg.Done()

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			select {
			case <-sess.done:
				// Local disconnect; the close is expected.
			default:
				c.logger.Warn("collaboration socket closed", zap.Error(err))
				c.store.Clear()
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("malformed collaboration message",
				zap.Error(err),
				zap.Int("bytes", len(data)),
			)
			continue
		}

		if c.metrics != nil {
			c.metrics.RecordCollabMessage("in", msg.Type)
		}
		c.dispatcher.Dispatch(&msg)
	}
}

// writeLoop drains the send queue. Write errors are logged and the
// message dropped; the read side notices the broken socket.
func (c *Client) writeLoop(sess *session) {
	defer sess.wg.Done()

	for {
		select {
		case <-sess.done:
			return
		case msg := <-sess.send:
			if err := sess.conn.WriteJSON(msg); err != nil {
				c.logger.Warn("collaboration send failed",
					zap.String("message_type", msg.Type),
					zap.Error(err),
				)
			}
		}
	}
}
