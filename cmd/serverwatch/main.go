package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/hamed0406/serverwatch/internal/config"
	"github.com/hamed0406/serverwatch/internal/httpapi"
	"github.com/hamed0406/serverwatch/internal/logging"
	"github.com/hamed0406/serverwatch/internal/monitor"
	"github.com/hamed0406/serverwatch/internal/notify"
	"github.com/hamed0406/serverwatch/internal/probe"
	"github.com/hamed0406/serverwatch/internal/registry"
	"github.com/hamed0406/serverwatch/internal/resolve"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	healthIv, membersIv, timeout := cfg.Durations()

	targets := make([]registry.TargetConfig, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		targets = append(targets, registry.TargetConfig{
			Name:      t.Name,
			Kind:      t.Kind,
			Endpoints: t.Endpoints,
		})
	}
	reg, err := registry.New(targets)
	if err != nil {
		log.Fatal(err)
	}

	probers := map[string]probe.Prober{
		config.KindJellyfin:  probe.NewJellyfin(cfg.JellyfinAPIKey, timeout),
		config.KindMinecraft: probe.NewMinecraft(timeout),
	}
	resolver := resolve.New(reg, probers, logger)

	var notifier notify.Notifier
	if d := notify.NewDiscord(cfg.DiscordWebhook); d != nil {
		notifier = notify.Multi{d}
	} else {
		logger.Warn("no discord webhook configured, notifications disabled")
	}

	mon := monitor.New(reg, resolver, notifier, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Baseline pass: establish per-target state without notifying, so a
	// restart never announces recoveries or already-online members.
	mon.Seed(ctx)

	go mon.Run(ctx, monitor.Intervals{Health: healthIv, Members: membersIv})

	api := httpapi.NewServer(logger, reg)
	srv := &http.Server{Addr: cfg.APIAddr, Handler: api.Router()}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	logger.Info("api_listen", zap.String("addr", cfg.APIAddr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
