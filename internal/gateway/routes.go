package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired. The CORS
// policy is permissive, matching the original backend which allowed
// every origin for the local frontend.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/", g.handleRoot())
	r.Get("/health", g.handleHealth())
	r.Get("/metrics", g.metrics.Handler().ServeHTTP)

	r.Post("/agent/chat", g.handleChat())
	r.Post("/agent/plan", g.handlePlan())
	r.Post("/agent/execute", g.handleExecute())
	r.Post("/agent/memory", g.handleMemory())
	r.Post("/agent/collaborate", g.handleCollaborate())

	r.Get("/ws/chat", g.handleChatSocket())

	return r
}

// corsMiddleware allows any origin, matching the original backend.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
