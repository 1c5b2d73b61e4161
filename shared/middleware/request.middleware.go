package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/SukhvirKooner/Louder/shared/response"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	ContextRequestID contextKey = "requestID"

	HeaderRequestID  = "X-Request-ID"
	HeaderAdminToken = "X-Admin-Token"
)

func GetRequestID(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(ContextRequestID).(string)
	return val, ok
}

// RequestID propagates an inbound X-Request-ID or assigns a fresh UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := context.WithValue(r.Context(), ContextRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			reqID, _ := GetRequestID(r.Context())
			logger.Info("http request",
				zap.String("request_id", reqID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

// RequireAdminToken guards operator routes. An empty token leaves them open.
func RequireAdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(HeaderAdminToken)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				response.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
