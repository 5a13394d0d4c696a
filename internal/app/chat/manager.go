package chat

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatroom/internal/app/user"
	"chatroom/internal/pkg/logx"
)

// Manager tracks every open feed connection, grouped by session id, so that
// signing out can close the connections of that session and shutdown can
// close them all.
type Manager struct {
	feed     *Feed
	composer *Composer
	renderer SnapshotRenderer
	recorder Recorder

	// ctx is the parent of every client; cancelled on Shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	// sessions maps session id to its live clients.
	sessions map[string]map[*Client]struct{}
	closed   bool

	// mu protects sessions and closed.
	mu sync.Mutex

	// wg tracks running clients so Shutdown can wait for them.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewManager constructs a Manager. recorder may be nil.
func NewManager(ctx context.Context, feed *Feed, composer *Composer, renderer SnapshotRenderer, recorder Recorder) *Manager {
	ctx, cancel := context.WithCancel(ctx)

	return &Manager{
		feed:     feed,
		composer: composer,
		renderer: renderer,
		recorder: recorder,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]map[*Client]struct{}),
		logger:   logx.Component("feed_manager"),
	}
}

// Serve runs a feed connection for viewer until it ends. It blocks. The
// connection is closed with WsCloseCodeSessionRevoked at expiresAt unless
// expiresAt is zero.
func (m *Manager) Serve(conn *websocket.Conn, viewer user.Identity, sessionID string, expiresAt time.Time) {
	client := &Client{
		conn:      conn,
		viewer:    viewer,
		sessionID: sessionID,
		expiresAt: expiresAt,
		feed:      m.feed,
		composer:  m.composer,
		renderer:  m.renderer,
		recorder:  m.recorder,
		send:      make(chan []byte, sendBufferSize),
		closing:   make(chan closeRequest, 1),
		logger:    newClientLogger(viewer, sessionID),
	}

	if !m.add(client) {
		client.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		client.closeConn()
		return
	}
	defer m.remove(client)

	if m.recorder != nil {
		m.recorder.ConnectionOpened()
		defer m.recorder.ConnectionClosed()
	}

	client.logger.Info().Msg("Feed connection opened.")
	client.Serve(m.ctx)
	client.logger.Info().Msg("Feed connection closed.")
}

func (m *Manager) add(c *Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	clients, ok := m.sessions[c.sessionID]
	if !ok {
		clients = make(map[*Client]struct{})
		m.sessions[c.sessionID] = clients
	}
	clients[c] = struct{}{}
	m.wg.Add(1)
	return true
}

func (m *Manager) remove(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if clients, ok := m.sessions[c.sessionID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(m.sessions, c.sessionID)
		}
	}
	m.wg.Done()
}

// Connections returns the number of open feed connections.
func (m *Manager) Connections() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, clients := range m.sessions {
		n += len(clients)
	}
	return n
}

// CloseSession closes every connection opened with sessionID and returns how many there were.
func (m *Manager) CloseSession(sessionID, reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	clients := m.sessions[sessionID]
	for c := range clients {
		c.Close(WsCloseCodeSessionRevoked, reason)
	}

	if len(clients) > 0 {
		m.logger.Info().Str("session_id", sessionID).Int("connections", len(clients)).Msg("Closing connections of revoked session.")
	}
	return len(clients)
}

// Shutdown closes every connection and waits for them to finish or for ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info().Msg("Shutting down feed connections...")

	m.mu.Lock()
	m.closed = true
	for _, clients := range m.sessions {
		for c := range clients {
			c.Close(websocket.CloseGoingAway, "server shutting down")
		}
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.cancel()
		m.logger.Info().Msg("Feed connections shutdown complete.")
		return nil
	case <-ctx.Done():
		m.cancel()
		return ctx.Err()
	}
}
