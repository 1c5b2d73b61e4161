package hrest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/SukhvirKooner/Louder/shared/response"
	xerrors "github.com/SukhvirKooner/Louder/shared/utils/errors"
)

const maxBodyBytes = 1 << 16

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeError maps business outcomes to distinct statuses. Anything unknown is
// logged and reported as a 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var rle *xerrors.RateLimitError
	switch {
	case errors.As(err, &rle):
		w.Header().Set("Retry-After", strconv.Itoa(rle.RetryAfter))
		response.Error(w, http.StatusTooManyRequests, rle.Reason)
	case errors.Is(err, xerrors.ErrOTPNotFound):
		response.Error(w, http.StatusNotFound, "otp not found")
	case errors.Is(err, xerrors.ErrExpiredOTP):
		response.Error(w, http.StatusGone, "otp expired")
	case errors.Is(err, xerrors.ErrInvalidOTP):
		response.Error(w, http.StatusBadRequest, "invalid otp")
	case errors.Is(err, xerrors.ErrEmailNotVerified):
		response.Error(w, http.StatusForbidden, "email not verified")
	case errors.Is(err, xerrors.ErrEmailRequired),
		errors.Is(err, xerrors.ErrCodeRequired),
		errors.Is(err, xerrors.ErrInvalidEmailFormat),
		errors.Is(err, xerrors.ErrInvalidRequest):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, xerrors.ErrNotFound):
		response.Error(w, http.StatusNotFound, "not found")
	default:
		logger.Error("request failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, xerrors.ErrInternalServer.Error())
	}
}
