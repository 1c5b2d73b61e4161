package hrest

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/SukhvirKooner/Louder/internal/domain"
	"github.com/SukhvirKooner/Louder/shared/response"
)

// Ingester is satisfied by *service.EventService.
type Ingester interface {
	Ingest(ctx context.Context) (domain.IngestReport, error)
	PurgePast(ctx context.Context) (int64, error)
}

type AdminHandler struct {
	ingester Ingester
	health   func(ctx context.Context) error
	logger   *zap.Logger
}

func NewAdminHandler(ingester Ingester, health func(ctx context.Context) error, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{ingester: ingester, health: health, logger: logger}
}

// HandleIngest runs a scrape-and-upsert pass inline and returns its report.
// It may overlap the background cycle; upserts are safe to interleave.
func (h *AdminHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	report, err := h.ingester.Ingest(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, report)
}

func (h *AdminHandler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	n, err := h.ingester.PurgePast(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *AdminHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			response.Error(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
