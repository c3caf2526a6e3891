package collab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/e-code/agent/internal/platform"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// collabServer is an in-process collaboration endpoint for client tests.
type collabServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	received []Message
	conn     *websocket.Conn
	ready    chan struct{}
}

func newCollabServer(t *testing.T) *collabServer {
	t.Helper()
	s := &collabServer{ready: make(chan struct{}, 1)}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/collaboration" {
			http.NotFound(w, r)
			return
		}
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		s.ready <- struct{}{}

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			s.mu.Lock()
			s.received = append(s.received, msg)
			s.mu.Unlock()
		}
	}))
	t.Cleanup(s.close)
	return s
}

func (s *collabServer) close() {
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.mu.Unlock()
	s.srv.Close()
}

// push sends a message from the server to the connected client.
func (s *collabServer) push(t *testing.T, msg Message) {
	t.Helper()
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	require.NotNil(t, conn)
	require.NoError(t, conn.WriteJSON(msg))
}

func (s *collabServer) messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.received))
	copy(out, s.received)
	return out
}

func newTestClient(srv *collabServer, store *Store) *Client {
	dispatcher := NewDispatcher(nil)
	dispatcher.Register(store)
	endpoints := platform.NewEndpoints(srv.srv.URL)
	return NewClient(Config{SendBuffer: 16}, endpoints, store, dispatcher, nil, nil)
}

func TestClientIdempotentDisconnect(t *testing.T) {
	store := newTestStore(NopEditor{})
	endpoints := platform.NewEndpoints("http://localhost:0")
	client := NewClient(Config{}, endpoints, store, NewDispatcher(nil), nil, nil)

	// Seed stale state as if a previous session had left it behind.
	store.Add(Collaborator{ID: "stale", Name: "Old", Status: StatusActive, Color: "#000000"})

	assert.NotPanics(t, func() {
		client.Disconnect()
		client.Disconnect()
	})
	assert.Empty(t, store.Collaborators())
}

func TestClientConnectAnnouncesPresence(t *testing.T) {
	srv := newCollabServer(t)
	store := newTestStore(NopEditor{})
	client := newTestClient(srv, store)

	require.NoError(t, client.Connect(context.Background(), "proj-1"))
	defer client.Disconnect()
	<-srv.ready

	require.Eventually(t, func() bool {
		return len(srv.messages()) >= 1
	}, time.Second, 10*time.Millisecond)

	first := srv.messages()[0]
	assert.Equal(t, TypePresence, first.Type)
	assert.Equal(t, StatusActive, first.Status)
}

func TestClientConnectFailureReturnsError(t *testing.T) {
	store := newTestStore(NopEditor{})
	endpoints := platform.NewEndpoints("http://127.0.0.1:1")
	client := NewClient(Config{}, endpoints, store, NewDispatcher(nil), nil, nil)

	err := client.Connect(context.Background(), "proj-1")
	assert.Error(t, err)
}

func TestClientNotifyEmitsMessages(t *testing.T) {
	srv := newCollabServer(t)
	store := newTestStore(NopEditor{})
	client := newTestClient(srv, store)

	require.NoError(t, client.Connect(context.Background(), "proj-1"))
	defer client.Disconnect()
	<-srv.ready

	client.NotifyCursor("src/a.ts", Position{Line: 4, Character: 2})
	client.NotifyFileChange("src/b.ts")

	require.Eventually(t, func() bool {
		return len(srv.messages()) >= 3
	}, time.Second, 10*time.Millisecond)

	msgs := srv.messages()
	assert.Equal(t, TypeCursor, msgs[1].Type)
	assert.Equal(t, "src/a.ts", msgs[1].File)
	require.NotNil(t, msgs[1].Position)
	assert.Equal(t, 4, msgs[1].Position.Line)
	assert.Equal(t, 2, msgs[1].Position.Character)

	assert.Equal(t, TypeFileChange, msgs[2].Type)
	assert.Equal(t, "src/b.ts", msgs[2].File)
}

func TestClientNotifyWhileDisconnectedIsDropped(t *testing.T) {
	store := newTestStore(NopEditor{})
	endpoints := platform.NewEndpoints("http://localhost:0")
	client := NewClient(Config{}, endpoints, store, NewDispatcher(nil), nil, nil)

	assert.NotPanics(t, func() {
		client.NotifyCursor("a.go", Position{Line: 1})
		client.NotifyFileChange("a.go")
	})
}

func TestClientMalformedInboundIsSkipped(t *testing.T) {
	srv := newCollabServer(t)
	store := newTestStore(NopEditor{})
	client := newTestClient(srv, store)

	require.NoError(t, client.Connect(context.Background(), "proj-1"))
	defer client.Disconnect()
	<-srv.ready

	srv.mu.Lock()
	conn := srv.conn
	srv.mu.Unlock()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	// A valid message after the malformed one still gets through.
	srv.push(t, Message{
		Type:         TypeCollaboratorJoined,
		Collaborator: &Collaborator{ID: "u1", Name: "Ann", Status: StatusActive, Color: "#ff0000"},
	})

	require.Eventually(t, func() bool {
		return len(store.Collaborators()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestClientEndToEndScenario(t *testing.T) {
	srv := newCollabServer(t)
	store := newTestStore(NopEditor{})
	client := newTestClient(srv, store)

	require.NoError(t, client.Connect(context.Background(), "proj-1"))
	defer client.Disconnect()
	<-srv.ready

	// Initial snapshot.
	srv.push(t, Message{
		Type: TypeCollaboratorsList,
		Collaborators: []Collaborator{
			{ID: "u1", Name: "Ann", Status: StatusActive, Color: "#ff0000"},
		},
	})
	require.Eventually(t, func() bool {
		return len(store.Collaborators()) == 1
	}, time.Second, 10*time.Millisecond)

	got, ok := store.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, StatusActive, got.Status)
	assert.Equal(t, "#ff0000", got.Color)
	assert.Empty(t, got.CurrentFile)

	// Cursor update.
	srv.push(t, Message{
		Type:           TypeCursorUpdate,
		CollaboratorID: "u1",
		File:           "src/a.ts",
		Position:       &Position{Line: 4, Character: 2},
	})
	require.Eventually(t, func() bool {
		c, ok := store.Get("u1")
		return ok && c.CurrentFile == "src/a.ts"
	}, time.Second, 10*time.Millisecond)

	got, _ = store.Get("u1")
	require.NotNil(t, got.Cursor)
	assert.Equal(t, 4, got.Cursor.Line)
	assert.Equal(t, 2, got.Cursor.Character)

	// Leave.
	srv.push(t, Message{Type: TypeCollaboratorLeft, CollaboratorID: "u1"})
	require.Eventually(t, func() bool {
		return len(store.Collaborators()) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestClientReconnectReplacesSession(t *testing.T) {
	srv := newCollabServer(t)
	store := newTestStore(NopEditor{})
	client := newTestClient(srv, store)

	require.NoError(t, client.Connect(context.Background(), "proj-1"))
	<-srv.ready
	store.Add(Collaborator{ID: "u1", Name: "Ann", Status: StatusActive, Color: "#ff0000"})

	// Connecting again tears down the previous session and clears state.
	require.NoError(t, client.Connect(context.Background(), "proj-1"))
	defer client.Disconnect()
	<-srv.ready

	assert.Empty(t, store.Collaborators())
}
