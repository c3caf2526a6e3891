package terminal

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/e-code/agent/internal/platform"
)

// detachKey ends the session locally without touching the remote shell.
const detachKey = 0x1d // Ctrl-]

// resizeMessage announces the local terminal size as a JSON control
// message on the otherwise binary stream.
type resizeMessage struct {
	Type string `json:"type"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

var errDetached = errors.New("detached")

// Bridge connects a local TTY to a project terminal session over
// WebSocket. Input is pumped to the socket as binary messages and socket
// output to the local writer until either side closes. There is no
// reconnection; a remote close ends the session.
type Bridge struct {
	endpoints *platform.Endpoints
	in        io.Reader
	out       io.Writer
	logger    *zap.Logger
}

// NewBridge creates a terminal bridge. Passing nil for in or out selects
// the process stdin and stdout.
func NewBridge(endpoints *platform.Endpoints, in io.Reader, out io.Writer, logger *zap.Logger) *Bridge {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		endpoints: endpoints,
		in:        in,
		out:       out,
		logger:    logger.Named("terminal"),
	}
}

// Attach dials the project terminal socket and pumps both directions
// until the remote closes, the context is canceled, the local input
// ends, or the detach key (Ctrl-]) is pressed.
func (b *Bridge) Attach(ctx context.Context, projectID string) error {
	wsURL, err := b.endpoints.TerminalURL(projectID)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Raw mode when attached to a real TTY, restored on exit.
	if f, ok := b.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		oldState, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return err
		}
		defer func() { _ = term.Restore(int(f.Fd()), oldState) }()

		if cols, rows, err := term.GetSize(int(f.Fd())); err == nil {
			if err := conn.WriteJSON(resizeMessage{Type: "resize", Cols: cols, Rows: rows}); err != nil {
				b.logger.Warn("resize announcement failed", zap.Error(err))
			}
		}
	}

	b.logger.Info("terminal session attached", zap.String("project_id", projectID))

	errCh := make(chan error, 2)
	go b.pumpInput(conn, errCh)
	go b.pumpOutput(conn, errCh)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		switch {
		case errors.Is(err, errDetached):
			b.logger.Info("terminal session detached")
			return nil
		case err == nil || errors.Is(err, io.EOF):
			b.logger.Info("terminal session closed")
			return nil
		default:
			b.logger.Info("terminal session ended", zap.Error(err))
			return nil
		}
	}
}

// pumpInput copies local input to the socket, watching for the detach key.
func (b *Bridge) pumpInput(conn *websocket.Conn, errCh chan<- error) {
	buf := make([]byte, 4096)
	for {
		n, err := b.in.Read(buf)
		if n > 0 {
			data := buf[:n]
			for i, c := range data {
				if c == detachKey {
					if i > 0 {
						_ = conn.WriteMessage(websocket.BinaryMessage, data[:i])
					}
					errCh <- errDetached
					return
				}
			}
			if werr := conn.WriteMessage(websocket.BinaryMessage, data); werr != nil {
				errCh <- werr
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

// pumpOutput copies socket output to the local writer.
func (b *Bridge) pumpOutput(conn *websocket.Conn, errCh chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			errCh <- err
			return
		}
		if _, err := b.out.Write(data); err != nil {
			errCh <- err
			return
		}
	}
}
