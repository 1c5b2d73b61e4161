package hrest

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SukhvirKooner/Louder/internal/service"
	"github.com/SukhvirKooner/Louder/shared/response"
)

const maxListLimit = 500

type EventHandler struct {
	svc    *service.EventService
	logger *zap.Logger
}

func NewEventHandler(svc *service.EventService, logger *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

// HandleListUpcoming serves GET /api/v1/events?limit=N.
func (h *EventHandler) HandleListUpcoming(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	if limit == 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	events, err := h.svc.ListUpcoming(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, events)
}

func (h *EventHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, ev)
}

// HandleLookup finds an event by its source identity.
func (h *EventHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source, sourceID := q.Get("source"), q.Get("source_id")
	if source == "" || sourceID == "" {
		response.Error(w, http.StatusBadRequest, "source and source_id are required")
		return
	}
	ev, err := h.svc.Lookup(r.Context(), source, sourceID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, ev)
}
