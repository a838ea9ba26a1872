package ipc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// SubscribeRequest is the first message a websocket subscriber sends.
type SubscribeRequest struct {
	Types []string `json:"types"`
}

// SubscribeReply acknowledges a subscription.
type SubscribeReply struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

const subscribeHandshakeTimeout = 10 * time.Second

// handleSubscribe upgrades to a websocket. The client sends one
// SubscribeRequest; the server replies and then writes each matching event
// as a JSON text message until either side goes away.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"127.0.0.1:*", "localhost:*"},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	conn.SetReadLimit(64 * 1024)

	hsCtx, cancel := context.WithTimeout(r.Context(), subscribeHandshakeTimeout)
	_, data, err := conn.Read(hsCtx)
	cancel()
	if err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, "expected subscribe request")
		return
	}
	var req SubscribeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.writeWS(r.Context(), conn, SubscribeReply{Error: "invalid subscribe request"})
		_ = conn.Close(websocket.StatusUnsupportedData, "invalid subscribe request")
		return
	}

	sub := s.events.Subscribe(req.Types)
	defer s.events.Unsubscribe(sub)
	s.logger.Debug("websocket subscriber joined", "id", sub.id, "types", req.Types)

	// Nothing more is read; CloseRead keeps control frames flowing and
	// cancels ctx when the peer closes.
	ctx := conn.CloseRead(r.Context())

	if err := s.writeWS(ctx, conn, SubscribeReply{Success: true, ID: sub.id}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case ev := <-sub.ch:
			if err := s.writeWS(ctx, conn, ev); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeWS(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, data)
}
