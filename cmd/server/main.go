package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tambola-arena/tambola-backend/internal/config"
	"github.com/tambola-arena/tambola-backend/internal/httpapi"
	"github.com/tambola-arena/tambola-backend/internal/hub"
	"github.com/tambola-arena/tambola-backend/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Debug)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, hub.Options{
		RoomCodeLength: cfg.RoomCodeLength,
		DeckUnique:     cfg.TicketDeckUnique,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Log.Infow("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Log.Fatalw("server exited", "err", err)
	}
}
