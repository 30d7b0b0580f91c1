package sim

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lpouillo/google-dc-g5k/internal/platform/distem"
)

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RegisterRoutes registers the Distem REST endpoints to r.
func (tb *Testbed) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Recoverer)
	r.Route("/vnodes", func(r chi.Router) {
		r.Get("/", tb.listVNodesHandler)
		r.Get("/{name}", tb.getVNodeHandler)
	})
}

// listVNodesHandler handles GET /vnodes/.
func (tb *Testbed) listVNodesHandler(w http.ResponseWriter, _ *http.Request) {
	nodes := tb.VNodes()
	if tb.Coordinator() == "" {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "distem is not running"})
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

// getVNodeHandler handles GET /vnodes/{name}.
func (tb *Testbed) getVNodeHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	tb.mu.Lock()
	var node *distem.VNode
	if tb.fabric != nil {
		if v := tb.fabric.vnodes[name]; v != nil {
			n := *v
			node = &n
		}
	}
	tb.mu.Unlock()

	if node == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "vnode " + name + " not found"})
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
