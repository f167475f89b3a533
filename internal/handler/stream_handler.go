package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/coinhunt/coinhunt-backend-go/internal/auth"
	"github.com/coinhunt/coinhunt-backend-go/internal/events"
	"github.com/coinhunt/coinhunt-backend-go/pkg/response"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamHandler upgrades render clients to a WebSocket carrying the session's
// target event stream. Browsers cannot set headers on the upgrade request, so
// the session token travels in the query string.
type StreamHandler struct {
	tokens *auth.TokenIssuer
	sink   *events.Sink
	buffer int
}

// NewStreamHandler creates a new stream handler. buffer is the per-subscriber
// event queue capacity; the hub drops the oldest queued event when it fills.
func NewStreamHandler(tokens *auth.TokenIssuer, sink *events.Sink, buffer int) *StreamHandler {
	if buffer < 1 {
		buffer = 64
	}
	return &StreamHandler{
		tokens: tokens,
		sink:   sink,
		buffer: buffer,
	}
}

// Stream handles GET /api/v1/stream
func (h *StreamHandler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "token required")
		return
	}
	claims, err := h.tokens.Parse(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sessionID := claims.SessionID
	ch := h.sink.Subscribe(sessionID, h.buffer)
	defer h.sink.Unsubscribe(sessionID, ch)

	// Late subscribers get the retained latest state per target so the AR
	// scene can be rebuilt without waiting for the next transition.
	for _, ev := range h.sink.Replay(sessionID) {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}

	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		// The stream is one-way; reads only service pong frames and detect
		// the peer going away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
