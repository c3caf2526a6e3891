package collab

import (
	"sync"

	"go.uber.org/zap"
)

// Handler processes inbound collaboration messages.
type Handler interface {
	// Handles returns the message types this handler wants.
	Handles() []string
	// Handle processes one message. Errors are isolated by the dispatcher.
	Handle(msg *Message) error
}

// Dispatcher routes inbound messages to registered handlers by type tag.
// Handlers run synchronously in registration order on the caller's
// goroutine, so messages are processed in socket-delivery order.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *zap.Logger
}

// NewDispatcher creates a new message dispatcher.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		handlers: make(map[string][]Handler),
		logger:   logger.Named("collab-dispatch"),
	}
}

// Register registers a handler for the message types it handles.
func (d *Dispatcher) Register(handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, msgType := range handler.Handles() {
		d.handlers[msgType] = append(d.handlers[msgType], handler)
		d.logger.Debug("registered message handler",
			zap.String("message_type", msgType),
		)
	}
}

// Dispatch routes a message to all handlers registered for its type.
// A failing handler is logged and the remaining handlers still run.
// Messages with no registered handler are logged and skipped.
func (d *Dispatcher) Dispatch(msg *Message) {
	d.mu.RLock()
	handlers := d.handlers[msg.Type]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.logger.Debug("no handler for message type",
			zap.String("message_type", msg.Type),
		)
		return
	}

	for _, handler := range handlers {
		if err := handler.Handle(msg); err != nil {
			d.logger.Error("message handler failed",
				zap.String("message_type", msg.Type),
				zap.Error(err),
			)
		}
	}
}
