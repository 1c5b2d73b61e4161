package hrest

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/SukhvirKooner/Louder/internal/service"
	"github.com/SukhvirKooner/Louder/shared/response"
)

type OTPHandler struct {
	svc    *service.OTPService
	logger *zap.Logger
}

func NewOTPHandler(svc *service.OTPService, logger *zap.Logger) *OTPHandler {
	return &OTPHandler{svc: svc, logger: logger}
}

type otpRequest struct {
	Email string `json:"email"`
}

type otpVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *OTPHandler) HandleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.svc.Issue(r.Context(), req.Email); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Message(w, http.StatusAccepted, "otp sent", nil)
}

func (h *OTPHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpVerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Verify(r.Context(), req.Email, req.Code); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Message(w, http.StatusOK, "email verified", nil)
}
