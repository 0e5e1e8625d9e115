package cmd

import (
	"fmt"
	"log/slog"

	"github.com/donaldgifford/sale-monitor/internal/catalog"
	"github.com/donaldgifford/sale-monitor/internal/config"
	"github.com/donaldgifford/sale-monitor/internal/engine"
	"github.com/donaldgifford/sale-monitor/internal/extractor"
	"github.com/donaldgifford/sale-monitor/internal/history"
	"github.com/donaldgifford/sale-monitor/internal/notify"
	"github.com/donaldgifford/sale-monitor/internal/store"
	"github.com/donaldgifford/sale-monitor/pkg/logger"
)

// app bundles the wired-up components shared by the server commands.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	states    store.StateStore
	history   *history.Store
	catalog   *catalog.CSVCatalog
	extractor *extractor.HTTPExtractor
	notifier  notify.Notifier
	engine    *engine.Engine
}

// newApp loads config and wires the stores, extractor, notifier, and engine.
func newApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	states, err := openStateStore(cfg)
	if err != nil {
		return nil, err
	}

	hist, err := history.New(cfg.History.Path)
	if err != nil {
		_ = states.Close()
		return nil, fmt.Errorf("opening history store: %w", err)
	}

	cat := catalog.NewCSVCatalog(cfg.Catalog.Path)

	ex := extractor.NewHTTPExtractor(
		extractor.WithUserAgent(cfg.Monitor.UserAgent),
		extractor.WithRateLimit(cfg.Monitor.RateLimit.PerSecond, cfg.Monitor.RateLimit.Burst),
		extractor.WithLogger(log),
	)

	notifier, err := buildNotifier(cfg, log)
	if err != nil {
		_ = states.Close()
		_ = hist.Close()
		return nil, err
	}

	eng := engine.NewEngine(cat, ex, states, hist, notifier,
		engine.WithLogger(log),
		engine.WithStaggerOffset(cfg.Monitor.StaggerOffset),
		engine.WithRetentionDays(cfg.History.RetentionDays),
	)

	return &app{
		cfg:       cfg,
		log:       log,
		states:    states,
		history:   hist,
		catalog:   cat,
		extractor: ex,
		notifier:  notifier,
		engine:    eng,
	}, nil
}

func (a *app) Close() {
	_ = a.states.Close()
	_ = a.history.Close()
}

func openStateStore(cfg *config.Config) (store.StateStore, error) {
	switch cfg.State.Backend {
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.State.Path, cfg.State.LockTimeout)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite state store: %w", err)
		}
		return s, nil
	default:
		s, err := store.NewJSONStore(cfg.State.Path, store.WithLockTimeout(cfg.State.LockTimeout))
		if err != nil {
			return nil, fmt.Errorf("opening json state store: %w", err)
		}
		return s, nil
	}
}

func buildNotifier(cfg *config.Config, log *slog.Logger) (notify.Notifier, error) {
	var sinks []notify.Notifier

	if cfg.Notifications.Email.Enabled {
		email, err := notify.NewEmailNotifier(cfg.Notifications.Email)
		if err != nil {
			return nil, fmt.Errorf("configuring email notifier: %w", err)
		}
		sinks = append(sinks, email)
	}

	if cfg.Notifications.Webhook.Enabled {
		sinks = append(sinks, notify.NewWebhookNotifier(cfg.Notifications.Webhook.URL))
	}

	switch len(sinks) {
	case 0:
		return notify.NewNoOpNotifier(log), nil
	case 1:
		return sinks[0], nil
	default:
		return notify.NewMulti(sinks...), nil
	}
}
