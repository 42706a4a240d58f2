package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/deltasync/pkg/api"
)

// NodeInfo сведения об узле для health check
type NodeInfo interface {
	ReplicaID() string
	Names() []string
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	node    NodeInfo
	version string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, node NodeInfo, version string) *HealthHandler {
	if version == "" {
		version = "dev"
	}
	return &HealthHandler{
		logger:  logger,
		node:    node,
		version: version,
	}
}

// Health обрабатывает GET /api/v1/health
// Health check endpoint для мониторинга
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{
		Status:  "ok",
		Version: h.version,
	}
	if h.node != nil {
		resp.ReplicaID = h.node.ReplicaID()
		resp.Collaborations = h.node.Names()
	}

	sendJSON(w, h.logger, resp, http.StatusOK)
}
