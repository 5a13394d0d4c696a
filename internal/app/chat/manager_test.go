package chat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatroom/internal/app/chat"
	"chatroom/internal/app/memstore"
	"chatroom/internal/app/user"
	"chatroom/internal/pkg/errs"
)

// textRenderer renders a snapshot as the list of message texts.
type textRenderer struct{}

func (textRenderer) RenderSnapshot(snap chat.Snapshot, _ user.Identity) any {
	return texts(snap)
}

type wireFrame struct {
	Type    chat.FrameType  `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type room struct {
	manager *chat.Manager
	server  *httptest.Server
	ids     map[string]user.Identity
}

func newRoom(t *testing.T) *room {
	t.Helper()

	store := memstore.New()
	ids := seedProfiles(t, store, "a", "b")
	notifier := chat.NewLocalNotifier()
	feed := startFeed(t, store, notifier)
	manager := chat.NewManager(context.Background(), feed, chat.NewComposer(store, notifier), textRenderer{}, nil)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		viewer := ids[query.Get("as")]

		var expiresAt time.Time
		if ttl, err := time.ParseDuration(query.Get("ttl")); err == nil {
			expiresAt = time.Now().Add(ttl)
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		manager.Serve(conn, viewer, "session-"+viewer.ID, expiresAt)
	}))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
		defer cancel()
		_ = manager.Shutdown(ctx)
		server.Close()
	})

	return &room{manager: manager, server: server, ids: ids}
}

func (r *room) dial(t *testing.T, as string) *websocket.Conn {
	t.Helper()
	return r.dialQuery(t, "as="+as)
}

func (r *room) dialQuery(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(r.server.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readFrame returns the next frame of type want, skipping others.
func readFrame(t *testing.T, conn *websocket.Conn, want chat.FrameType) wireFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitTimeout)))
	for {
		var f wireFrame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == want {
			return f
		}
	}
}

func readTexts(t *testing.T, conn *websocket.Conn) []string {
	t.Helper()
	var out []string
	require.NoError(t, json.Unmarshal(readFrame(t, conn, chat.TypeSnapshot).Payload, &out))
	return out
}

func TestConnectionSendAndReceive(t *testing.T) {
	r := newRoom(t)

	connA := r.dial(t, "a")
	connB := r.dial(t, "b")
	assert.Empty(t, readTexts(t, connA))
	assert.Empty(t, readTexts(t, connB))

	require.NoError(t, connA.WriteJSON(map[string]any{
		"type":    "send",
		"tempId":  "tmp-1",
		"payload": map[string]string{"text": "hi"},
	}))

	var ack chat.AckPayload
	require.NoError(t, json.Unmarshal(readFrame(t, connA, chat.TypeAck).Payload, &ack))
	assert.Equal(t, "tmp-1", ack.TempID)
	assert.NotEmpty(t, ack.ID)

	assert.Equal(t, []string{"hi"}, readTexts(t, connB))
	assert.Equal(t, 2, r.manager.Connections())
}

func TestConnectionBlankSendIsRejected(t *testing.T) {
	r := newRoom(t)
	conn := r.dial(t, "a")
	readTexts(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "send",
		"tempId":  "tmp-2",
		"payload": map[string]string{"text": "   "},
	}))

	var payload chat.ErrorPayload
	require.NoError(t, json.Unmarshal(readFrame(t, conn, chat.TypeError).Payload, &payload))
	assert.Equal(t, errs.ErrMessageEmpty, payload.Code)
	assert.Equal(t, "tmp-2", payload.TempID)
}

func TestConnectionRejectsMalformedFrames(t *testing.T) {
	r := newRoom(t)
	conn := r.dial(t, "a")
	readTexts(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var payload chat.ErrorPayload
	require.NoError(t, json.Unmarshal(readFrame(t, conn, chat.TypeError).Payload, &payload))
	assert.Equal(t, errs.ErrInvalidJSONFormat, payload.Code)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "shout", "tempId": "x"}))
	require.NoError(t, json.Unmarshal(readFrame(t, conn, chat.TypeError).Payload, &payload))
	assert.Equal(t, errs.ErrInvalidParams, payload.Code)
}

// readUntilClosed drains conn and returns the error that ended it.
func readUntilClosed(t *testing.T, conn *websocket.Conn) error {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitTimeout)))
	var err error
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	return err
}

func TestConnectionClosesWhenSessionExpires(t *testing.T) {
	r := newRoom(t)
	expiring := r.dialQuery(t, "as=a&ttl=300ms")
	lasting := r.dial(t, "b")
	readTexts(t, expiring)
	readTexts(t, lasting)

	err := readUntilClosed(t, expiring)
	assert.True(t, websocket.IsCloseError(err, chat.WsCloseCodeSessionRevoked), "got %v", err)

	require.Eventually(t, func() bool { return r.manager.Connections() == 1 }, waitTimeout, 10*time.Millisecond)
}

func TestCloseSessionKicksConnections(t *testing.T) {
	r := newRoom(t)
	connA := r.dial(t, "a")
	connB := r.dial(t, "b")
	readTexts(t, connA)
	readTexts(t, connB)

	assert.Equal(t, 1, r.manager.CloseSession("session-a", "signed out"))

	err := readUntilClosed(t, connA)
	assert.True(t, websocket.IsCloseError(err, chat.WsCloseCodeSessionRevoked), "got %v", err)

	require.Eventually(t, func() bool { return r.manager.Connections() == 1 }, waitTimeout, 10*time.Millisecond)
	assert.Zero(t, r.manager.CloseSession("session-unknown", "signed out"))
}
