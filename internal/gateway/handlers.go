package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/okdesk/deskagent/internal/memory"
	"github.com/okdesk/deskagent/internal/tracing"
)

// Request and response shapes mirror the original backend's JSON
// surface so existing frontends keep working.

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type planRequest struct {
	Goal string `json:"goal"`
}

type executeRequest struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
}

type memoryRequest struct {
	Mode string         `json:"mode"`
	Data map[string]any `json:"data"`
}

type collaborateRequest struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Task     string `json:"task"`
}

func (g *Gateway) handleRoot() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"message": "openKylin Multi-Agent backend running",
		})
	}
}

// handleHealth reports process liveness plus the active session count.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"status":    "ok",
			"uptime":    time.Since(g.startedAt).Round(time.Second).String(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if g.sessions != nil {
			resp["sessions"] = g.sessions.Len()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (g *Gateway) handleChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Message == "" {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}
		if req.SessionID == "" {
			req.SessionID = g.config.DefaultSession
		}

		ctx, span := tracing.StartReplySpan(r.Context(), req.SessionID)
		defer span.End()

		g.metrics.CountRequest("chat")
		start := time.Now()
		reply := g.dispatcher.Reply(ctx, req.Message, req.SessionID)
		g.metrics.ObserveReply("http", time.Since(start))

		writeJSON(w, http.StatusOK, map[string]any{
			"agent":      "chat",
			"session_id": req.SessionID,
			"reply":      reply,
		})
	}
}

func (g *Gateway) handlePlan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req planRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Goal == "" {
			writeError(w, http.StatusBadRequest, "goal is required")
			return
		}

		g.metrics.CountRequest("plan")
		plan := g.planner.Plan(r.Context(), req.Goal)
		writeJSON(w, http.StatusOK, map[string]any{
			"agent": "planner",
			"goal":  plan.Goal,
			"steps": plan.Steps,
		})
	}
}

func (g *Gateway) handleExecute() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req executeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Action == "" {
			writeError(w, http.StatusBadRequest, "action is required")
			return
		}

		ctx, span := tracing.StartActionSpan(r.Context(), req.Action)
		defer span.End()

		g.metrics.CountRequest("execute")
		result := g.executor.Execute(ctx, req.Action, req.Params)
		writeJSON(w, http.StatusOK, map[string]any{
			"agent":  "executor",
			"result": result,
		})
	}
}

func (g *Gateway) handleMemory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req memoryRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		g.metrics.CountRequest("memory")
		result := memory.Handle(r.Context(), g.store, req.Mode, req.Data)
		writeJSON(w, http.StatusOK, map[string]any{
			"agent":  "memory",
			"mode":   req.Mode,
			"result": result,
		})
	}
}

func (g *Gateway) handleCollaborate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req collaborateRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		g.metrics.CountRequest("collaborate")
		result := g.relay.Communicate(r.Context(), req.Sender, req.Receiver, req.Task)
		writeJSON(w, http.StatusOK, map[string]any{
			"agent":  "collaborate",
			"task":   req.Task,
			"result": result,
		})
	}
}

// decodeJSON decodes the request body into dst, answering 400 on
// malformed input. The bool return reports success.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
