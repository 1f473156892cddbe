package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"github.com/samber/do"
	_ "github.com/sitescan/sitescan/docs"
	"github.com/sitescan/sitescan/internal/bootstrap"
	"github.com/sitescan/sitescan/internal/config"
	"github.com/sitescan/sitescan/internal/infra/cache"
	"github.com/sitescan/sitescan/internal/infra/logger"
	mq "github.com/sitescan/sitescan/internal/infra/queue"
	"github.com/sitescan/sitescan/internal/infra/telemetry"
	"github.com/sitescan/sitescan/internal/modules/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg, log := a.cfg, a.log

	shutdownTracing, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	config.Watch(a.v, func(next *config.Config, e fsnotify.Event) {
		lvl := logger.ParseLevel(next.Log.Level)
		if lvl != a.level.Level() {
			a.level.SetLevel(lvl)
			log.Info("log level changed", zap.String("level", lvl.String()), zap.String("file", e.Name))
		}
	})

	i := bootstrap.New(ctx, cfg, log)
	defer func() {
		if err := i.Shutdown(); err != nil {
			log.Warn("dependency shutdown", zap.Error(err))
		}
	}()

	engine, err := do.Invoke[*gin.Engine](i)
	if err != nil {
		return err
	}
	capture, err := do.Invoke[service.CaptureService](i)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down http server")
		return srv.Shutdown(sctx)
	})

	g.Go(func() error {
		return capture.Run(gctx)
	})

	if cfg.MQ.Enabled {
		consumer, err := do.Invoke[*mq.Consumer](i)
		if err != nil {
			return err
		}
		qc := do.MustInvoke[cache.QueryCache](i)
		origin := string(do.MustInvoke[bootstrap.Origin](i))
		g.Go(func() error {
			defer consumer.Close()
			err := consumer.Handle(gctx, mq.InvalidationHandler(origin, qc, log))
			if err != nil && !errors.Is(err, context.Canceled) {
				// cache entries still expire by TTL; keep serving
				log.Error("event consumer stopped", zap.Error(err))
			}
			return nil
		})
	}

	return g.Wait()
}
