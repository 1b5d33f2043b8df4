package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/HerbHall/livefeed/internal/api"
	"github.com/HerbHall/livefeed/internal/config"
	"github.com/HerbHall/livefeed/internal/controller"
	"github.com/HerbHall/livefeed/internal/event"
	"github.com/HerbHall/livefeed/internal/feed"
	"github.com/HerbHall/livefeed/internal/history"
	"github.com/HerbHall/livefeed/internal/i18n"
	"github.com/HerbHall/livefeed/internal/metrics"
	"github.com/HerbHall/livefeed/internal/mqtt"
	"github.com/HerbHall/livefeed/internal/notify"
	"github.com/HerbHall/livefeed/internal/state"
	"github.com/HerbHall/livefeed/internal/store"
	"github.com/HerbHall/livefeed/internal/version"
	"github.com/HerbHall/livefeed/internal/webhook"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	viperCfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("livefeed starting", zap.String("version", version.Short()))

	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	s, err := loadSettings(config.New(viperCfg))
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	if err := run(ctx, cancel, s, logger); err != nil {
		logger.Error("livefeed stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("livefeed stopped")
}

// run wires the components and blocks until ctx is cancelled or the server
// asks for a login.
func run(ctx context.Context, cancel context.CancelFunc, s settings, logger *zap.Logger) error {
	bus := event.NewBus(logger.Named("event"))

	client, err := api.New(s.API, logger.Named("api"))
	if err != nil {
		return fmt.Errorf("api client: %w", err)
	}
	wsURL, err := feed.ChannelURL(client.BaseURL())
	if err != nil {
		return fmt.Errorf("update channel url: %w", err)
	}

	catalog, err := i18n.Load(s.Notify.Locale)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}
	logger.Info("translations loaded",
		zap.String("component", "i18n"),
		zap.String("language", catalog.Language()),
	)

	session := state.NewSession(bus)
	devices := state.NewDevices(bus)
	positions := state.NewPositions(bus)

	queue := notify.New(devices, catalog, bus, s.Notify, logger.Named("notify"))
	defer queue.Close()

	if s.History.Path != "" {
		stop, err := startHistory(ctx, s.History, bus, logger.Named("history"))
		if err != nil {
			return err
		}
		defer stop()
	}

	if s.Webhook.Enabled {
		hook := webhook.New(s.Webhook, logger.Named("webhook"))
		defer hook.Subscribe(bus)()
	}

	if s.MQTT.BrokerURL != "" {
		pub := mqtt.New(s.MQTT, logger.Named("mqtt"))
		pub.Connect(ctx)
		defer pub.Close()
		defer pub.Subscribe(bus)()
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	if s.MetricsListen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.Serve(ctx, s.MetricsListen, logger.Named("metrics")); err != nil {
				logger.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	router := feed.Router{Devices: devices, Positions: positions, Events: queue}
	feedLogger := logger.Named("feed")

	ctrl := controller.New(controller.Deps{
		API:     client,
		Session: session,
		Devices: devices,
		NewFeed: func() controller.Feed {
			return feed.NewChannel(wsURL, client.HTTPClient(), router, s.Feed, feedLogger)
		},
		Navigator: controller.NavigatorFunc(func(context.Context) {
			logger.Warn("no active session; log in to the tracking server and restart",
				zap.String("component", "controller"),
				zap.String("server", client.BaseURL().String()),
			)
			cancel()
		}),
		Bus: bus,
	}, logger.Named("controller"))

	return ctrl.Run(ctx)
}

func startHistory(ctx context.Context, cfg history.Config, bus *event.Bus, logger *zap.Logger) (stop func(), err error) {
	db, err := store.New(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		db.Close()
		return nil, err
	}
	rec, err := history.New(ctx, db, cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	unsubscribe := rec.Subscribe(bus)
	rec.Start(ctx)

	logger.Info("position history enabled",
		zap.String("component", "history"),
		zap.String("path", cfg.Path),
		zap.Duration("retention", cfg.Retention),
	)

	return func() {
		unsubscribe()
		rec.Stop()
		if err := db.Close(); err != nil {
			logger.Warn("failed to close history database", zap.Error(err))
		}
	}, nil
}
