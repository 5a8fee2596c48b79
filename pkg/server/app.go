package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	drepo "github.com/danielhafezi/BetaAnalysisTool/internal/domain/repository"
	"github.com/danielhafezi/BetaAnalysisTool/internal/service/hyperliquid"
	"github.com/danielhafezi/BetaAnalysisTool/pkg/config"
	xhttp "github.com/danielhafezi/BetaAnalysisTool/pkg/http"
	applogger "github.com/danielhafezi/BetaAnalysisTool/pkg/logger"
)

// App encapsulates the application lifecycle: chunk cache sweep at
// startup, the live price stream, and the HTTP API server.
type App struct {
	cfg        *config.Config
	handler    xhttp.Handler
	chunks     drepo.ChunkStore
	stream     *hyperliquid.Stream
	publisher  drepo.ResultPublisher
	l          *applogger.Logger
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	handler xhttp.Handler,
	chunks drepo.ChunkStore,
	stream *hyperliquid.Stream,
	publisher drepo.ResultPublisher,
	l *applogger.Logger,
) *App {
	return &App{
		cfg:       cfg,
		handler:   handler,
		chunks:    chunks,
		stream:    stream,
		publisher: publisher,
		l:         l,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Evict stale chunks before serving.
	maxAge := time.Duration(a.cfg.Cache.MaxAgeDays) * 24 * time.Hour
	if removed, err := a.chunks.Sweep(ctx, maxAge); err != nil {
		a.l.Warn("chunk sweep failed", applogger.Error(err))
	} else if removed > 0 {
		a.l.Info("swept stale chunks", applogger.Int("removed", removed))
	}

	if a.stream != nil {
		if err := a.stream.Start(ctx); err != nil {
			a.l.Warn("price stream unavailable, falling back to snapshots", applogger.Error(err))
		} else {
			a.l.Info("price stream started", applogger.String("url", a.cfg.Provider.WebSocketURL))
		}
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("api listening", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			a.l.Warn("stream close error", applogger.Error(err))
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.l.Warn("publisher close error", applogger.Error(err))
		}
	}

	// Closing the chunk store flushes the file backend to disk.
	if err := a.chunks.Close(); err != nil {
		a.l.Warn("chunk store close error", applogger.Error(err))
	}

	a.l.Info("shutdown complete")
	return nil
}
