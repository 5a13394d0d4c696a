package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatroom/internal/app/user"
	"chatroom/internal/pkg/errs"
	"chatroom/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192

	sendBufferSize = 64

	// WsCloseCodeSessionRevoked tells the client its session was signed out.
	WsCloseCodeSessionRevoked = 4001

	// WsCloseCodeSubscriptionLost tells the client the feed stopped and it must reconnect explicitly.
	WsCloseCodeSubscriptionLost = 4002
)

// SnapshotRenderer turns a snapshot into the payload of a snapshot frame for one viewer.
type SnapshotRenderer interface {
	RenderSnapshot(snap Snapshot, viewer user.Identity) any
}

// Recorder receives feed connection metrics. A nil Recorder is allowed.
type Recorder interface {
	MessageSent(err error)
	ConnectionOpened()
	ConnectionClosed()
}

type closeRequest struct {
	code   int
	reason string
}

// Client struct represents an active WebSocket feed connection and its viewer.
type Client struct {
	conn      *websocket.Conn
	viewer    user.Identity
	sessionID string

	// expiresAt is when the session lapses; zero means never.
	expiresAt time.Time

	feed     *Feed
	composer *Composer
	renderer SnapshotRenderer
	recorder Recorder

	// a buffered channel used to queue acks and errors waiting to be sent to the client.
	send chan []byte

	// close requests from other goroutines; only WritePump writes to conn.
	closing chan closeRequest

	// structured logger with client context.
	logger zerolog.Logger
}

// Serve subscribes to the feed and runs the read and write pumps until the
// connection ends or the session expires. It closes the connection before returning.
func (c *Client) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub, err := c.feed.Subscribe(ctx, c.viewer)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to open feed subscription.")
		c.writeFinal(errs.NewError(errs.ErrSubscriptionLost), WsCloseCodeSubscriptionLost)
		c.closeConn()
		return
	}

	if !c.expiresAt.IsZero() {
		expiry := time.AfterFunc(time.Until(c.expiresAt), func() {
			c.Close(WsCloseCodeSessionRevoked, "session expired")
		})
		defer expiry.Stop()
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		c.WritePump(ctx, sub)
	}()

	c.ReadPump(ctx)
	cancel()
	<-writerDone
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong) and hands send frames to the composer.
func (c *Client) ReadPump(ctx context.Context) {
	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			return
		}

		c.processInboundFrame(ctx, frameBytes)
	}
}

// processInboundFrame handles raw frames received from the client.
func (c *Client) processInboundFrame(ctx context.Context, frameBytes []byte) {
	var inbound InboundFrame
	if err := json.Unmarshal(frameBytes, &inbound); err != nil {
		c.logger.Warn().Err(err).Int("frame_len", len(frameBytes)).Msg("Client sent invalid JSON")
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat), "")
		return
	}

	switch inbound.Type {
	case TypeSend:
		c.handleSend(ctx, inbound.Payload, inbound.TempID)

	default:
		c.logger.Warn().Str("frame_type", string(inbound.Type)).Msg("Client sent unsupported frame type")
		c.SendError(errs.NewError(errs.ErrInvalidParams), inbound.TempID)
	}
}

// handleSend passes the text to the composer and answers with an ack or an error.
// The new message itself reaches every viewer, the sender included, through the feed.
func (c *Client) handleSend(ctx context.Context, payloadBytes json.RawMessage, tempID string) {
	var payload SendPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid send payload")
		c.SendError(errs.NewError(errs.ErrInvalidParams), tempID)
		return
	}

	msg, err := c.composer.Send(ctx, c.viewer, payload.Text)
	if c.recorder != nil {
		c.recorder.MessageSent(err)
	}
	if err != nil {
		c.SendError(err, tempID)
		return
	}

	c.sendFrame(Frame{
		Type: TypeAck,
		Payload: AckPayload{
			TempID:    tempID,
			ID:        msg.ID,
			Timestamp: msg.SentAt.UnixMilli(),
		},
	})
}

// WritePump is the only writer of the connection. It forwards queued frames
// and feed snapshots and sends periodic pings.
func (c *Client) WritePump(ctx context.Context, sub *Subscription) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case frame := <-c.send:
			if !c.write(websocket.TextMessage, frame) {
				return
			}

		case snap := <-sub.Updates():
			frame, err := json.Marshal(Frame{
				Type:    TypeSnapshot,
				Payload: c.renderer.RenderSnapshot(snap, c.viewer),
			})
			if err != nil {
				c.logger.Error().Err(err).Msg("Error marshaling snapshot frame")
				continue
			}
			if !c.write(websocket.TextMessage, frame) {
				return
			}

		case <-sub.Done():
			if err := sub.Err(); err != nil {
				c.logger.Warn().Err(err).Msg("Feed subscription lost. Closing connection.")
				c.writeFinal(err, WsCloseCodeSubscriptionLost)
				return
			}
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case req := <-c.closing:
			c.logger.Info().Int("close_code", req.code).Str("reason", req.reason).Msg("Closing connection on request.")
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(req.code, req.reason))
			return

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Close asks the write pump to send a close frame with code and reason and
// end the connection. It does not block.
func (c *Client) Close(code int, reason string) {
	select {
	case c.closing <- closeRequest{code: code, reason: reason}:
	default:
	}
}

// SendError queues an error frame. Errors without a code are reported as ErrUnknown.
func (c *Client) SendError(err error, tempID string) {
	var customErr *errs.CustomError
	if errors.Is(err, ErrNoIdentity) {
		customErr = errs.NewError(errs.ErrUnauthorized)
	} else {
		customErr = errs.From(err)
	}

	c.sendFrame(Frame{
		Type: TypeError,
		Payload: ErrorPayload{
			Code:    customErr.Code,
			Message: customErr.Message,
			TempID:  tempID,
		},
	})
}

// sendFrame marshals frame and attempts to queue it on the send channel.
func (c *Client) sendFrame(frame Frame) {
	frameBytes, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error().Err(err).Msg("Error marshaling frame for client")
		return
	}

	select {
	case c.send <- frameBytes:
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Str("frame_type", string(frame.Type)).Msg("Client send channel full, dropping frame")
	}
}

// writeFinal writes an error frame followed by a close frame.
func (c *Client) writeFinal(err error, closeCode int) {
	customErr := errs.From(err)
	frame, marshalErr := json.Marshal(Frame{
		Type:    TypeError,
		Payload: ErrorPayload{Code: customErr.Code, Message: customErr.Message},
	})
	if marshalErr == nil {
		c.write(websocket.TextMessage, frame)
	}
	c.write(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode, fmt.Sprintf("error %d", customErr.Code)))
}

// write sets the deadline and writes one frame. It returns false when the
// connection is no longer usable.
func (c *Client) write(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(messageType, data); err != nil {
		if !errors.Is(err, websocket.ErrCloseSent) {
			c.logger.Debug().Err(err).Int("message_type", messageType).Msg("Error writing to connection")
		}
		return false
	}

	return true
}

func (c *Client) closeConn() {
	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

func newClientLogger(viewer user.Identity, sessionID string) zerolog.Logger {
	return logx.Logger().With().
		Str("component", "feed_client").
		Str("client_id", viewer.ID).
		Str("session_id", sessionID).
		Logger()
}
