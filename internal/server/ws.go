package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// handleChatWS serves /chat over a WebSocket. Each text frame is one chat
// request and gets one complete chat response frame back, from a fresh Chef.
// The handshake's Authorization header or ?token= applies to frames that do
// not carry their own token.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	token := r.Header.Get("Authorization")
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go keepAlive(ctx, conn)

	conn.SetReadLimit(maxBodyBytes)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "err", err)
			}
			return
		}
		if err := conn.WriteJSON(s.answerFrame(ctx, data, token)); err != nil {
			slog.Warn("websocket write failed", "err", err)
			return
		}
	}
}

// answerFrame returns the chat response, or an error response, for one
// frame.
func (s *Server) answerFrame(ctx context.Context, data []byte, token string) any {
	var req chatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errorResponse{Error: fmt.Sprintf("decode request: %v", err)}
	}
	if req.Token != "" {
		token = req.Token
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout())
	defer cancel()
	resp, err := s.chat(ctx, req, token)
	if err != nil {
		slog.Error("websocket chat failed", "model", req.Model, "err", err)
		return errorResponse{Error: err.Error()}
	}
	return resp
}

// keepAlive pings the peer until ctx ends. WriteControl may run concurrently
// with the handler's writes.
func keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
