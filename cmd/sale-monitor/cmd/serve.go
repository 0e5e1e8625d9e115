package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/donaldgifford/sale-monitor/api/openapi"
	"github.com/donaldgifford/sale-monitor/internal/api/handlers"
	"github.com/donaldgifford/sale-monitor/internal/api/middleware"
	"github.com/donaldgifford/sale-monitor/internal/engine"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	a, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(a.log))
	e.Use(middleware.RequestLog(a.log))
	e.Use(middleware.Metrics())

	// Typed API.
	humaCfg := huma.DefaultConfig("Sale Monitor API", "1.0.0")
	api := humaecho.New(e, humaCfg)

	handlers.RegisterProductRoutes(api, handlers.NewProductsHandler(a.catalog, a.states))
	historyH := handlers.NewHistoryHandler(a.history)
	handlers.RegisterHistoryRoutes(api, historyH)
	handlers.RegisterTriggerRoutes(api, handlers.NewCheckHandler(a.engine))
	handlers.RegisterDetectRoutes(api, handlers.NewDetectHandler(a.extractor))

	// Plain Echo routes: CSV export, health, metrics, Swagger UI.
	e.GET("/api/v1/history/export", historyH.ExportCSV)

	healthH := handlers.NewHealthHandler(a.states, a.history)
	e.GET("/healthz", healthH.Healthz)
	e.GET("/readyz", healthH.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	openapi.RegisterRoutes(e)

	sched, err := engine.NewScheduler(a.engine, a.cfg.Monitor.Interval, a.cfg.Monitor.PruneInterval, a.log)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	sched.Start()

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	a.log.Info("starting server", "addr", addr, "interval", a.cfg.Monitor.Interval)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.log.Info("shutting down")

	// Stop scheduling first, then wait for any in-flight cycle so both
	// stores are quiesced before they close.
	drained := sched.Stop()
	select {
	case <-drained.Done():
	case <-time.After(30 * time.Second):
		a.log.Warn("timed out waiting for in-flight cycle")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	a.log.Info("server stopped")
	return nil
}
