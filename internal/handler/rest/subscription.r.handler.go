package hrest

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/SukhvirKooner/Louder/internal/domain"
	"github.com/SukhvirKooner/Louder/internal/service"
	"github.com/SukhvirKooner/Louder/shared/response"
)

type SubscriptionHandler struct {
	svc    *service.SubscriptionService
	logger *zap.Logger
}

func NewSubscriptionHandler(svc *service.SubscriptionService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc, logger: logger}
}

type subscribeRequest struct {
	Email   string `json:"email"`
	EventID string `json:"event_id"`
}

func (h *SubscriptionHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Submit(r.Context(), req.Email, req.EventID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if res.Status == domain.SubmitAlreadySubscribed {
		response.Message(w, http.StatusOK, "already subscribed", res)
		return
	}
	response.Message(w, http.StatusCreated, "subscribed", res)
}
