package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// wsMessage is one inbound chat message on the websocket stream.
type wsMessage struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// wsReply is one outbound assistant reply.
type wsReply struct {
	Agent     string `json:"agent"`
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Error     string `json:"error,omitempty"`
}

// handleChatSocket upgrades to a websocket and answers each inbound
// message with a dispatched reply, until the client closes.
func (g *Gateway) handleChatSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Same permissive policy as the HTTP CORS layer.
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			g.logger.Warn("ws: accept failed", "error", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "unexpected close") //nolint:errcheck // best-effort close

		g.metrics.WSOpened()
		defer g.metrics.WSClosed()

		ctx := r.Context()
		for {
			msgType, data, err := conn.Read(ctx)
			if err != nil {
				status := websocket.CloseStatus(err)
				if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway ||
					errors.Is(err, context.Canceled) {
					_ = conn.Close(websocket.StatusNormalClosure, "")
					return
				}
				g.logger.Debug("ws: read ended", "error", err)
				return
			}
			if msgType != websocket.MessageText {
				g.sendWS(ctx, conn, wsReply{Agent: "chat", Error: "only text frames are supported"})
				continue
			}

			var msg wsMessage
			if err := json.Unmarshal(data, &msg); err != nil || msg.Message == "" {
				g.sendWS(ctx, conn, wsReply{Agent: "chat", Error: "expected {\"message\": ..., \"session_id\": ...}"})
				continue
			}
			if msg.SessionID == "" {
				msg.SessionID = g.config.DefaultSession
			}

			start := time.Now()
			reply := g.dispatcher.Reply(ctx, msg.Message, msg.SessionID)
			g.metrics.ObserveReply("ws", time.Since(start))

			g.sendWS(ctx, conn, wsReply{
				Agent:     "chat",
				SessionID: msg.SessionID,
				Reply:     reply,
			})
		}
	}
}

func (g *Gateway) sendWS(ctx context.Context, conn *websocket.Conn, reply wsReply) {
	data, err := json.Marshal(reply)
	if err != nil {
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		g.logger.Debug("ws: write failed", "error", err)
	}
}
