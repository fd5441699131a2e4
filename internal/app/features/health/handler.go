package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/carehub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is a dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client  *mongo.Client
	Backend Pinger
	Log     *zap.Logger
}

// NewHandler constructs a health Handler with the Mongo client, the REST
// backend and a logger.
func NewHandler(client *mongo.Client, backend Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		Client:  client,
		Backend: backend,
		Log:     logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Backend  string `json:"backend"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "backend":"reachable" }
//
// When either dependency fails: 503 and
//
//	{ "status":"error", "database":"…", "backend":"…", "message":"…", "error":"…" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
		Backend:  "reachable",
	}

	if h.Client == nil {
		resp.Database = "disabled"
	} else if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
	}

	if h.Backend != nil {
		if err := h.Backend.Ping(ctx); err != nil {
			h.Log.Error("health-check: backend ping failed", zap.Error(err))
			resp.Backend = "unreachable"
			if resp.Status == "ok" {
				resp.Message = "Backend unavailable"
				resp.Error = err.Error()
			}
			resp.Status = "error"
		}
	}

	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
