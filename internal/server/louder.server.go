package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	hrest "github.com/SukhvirKooner/Louder/internal/handler/rest"
	"github.com/SukhvirKooner/Louder/internal/router"
)

func (a *App) Handler() http.Handler {
	var rdb redis.UniversalClient
	if a.Cache != nil {
		rdb = a.Cache.Client()
	}
	return router.SetupRoutes(chi.NewRouter(), router.Handlers{
		Events:        hrest.NewEventHandler(a.Events, a.Logger),
		OTP:           hrest.NewOTPHandler(a.OTP, a.Logger),
		Subscriptions: hrest.NewSubscriptionHandler(a.Subscriptions, a.Logger),
		Admin:         hrest.NewAdminHandler(a.Events, a.Store.Ping, a.Logger),
	}, router.Options{
		CORSOrigins: a.Config.CORSOrigins,
		AdminToken:  a.Config.AdminToken,
		Redis:       rdb,
		Gatherer:    a.Registry,
		Logger:      a.Logger,
	})
}

// Serve runs the HTTP server and the background ingest worker until ctx is
// cancelled, then shuts both down.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.Worker.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", zap.String("addr", a.Config.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("shutting down...")
	case serveErr = <-errCh:
		a.Logger.Error("http server failed", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("http shutdown", zap.Error(err))
	}
	a.Worker.Stop()
	return serveErr
}
