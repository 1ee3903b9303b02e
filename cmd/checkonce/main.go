// checkonce probes every configured target once and prints the outcome.
// Exits non-zero when any target is unreachable, so it slots into scripts
// and health pipelines.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hamed0406/serverwatch/internal/config"
	"github.com/hamed0406/serverwatch/internal/logging"
	"github.com/hamed0406/serverwatch/internal/probe"
	"github.com/hamed0406/serverwatch/internal/registry"
	"github.com/hamed0406/serverwatch/internal/resolve"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.NewConsoleLogger("warn")
	defer logger.Sync()

	_, _, timeout := cfg.Durations()

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

	ctx := context.Background()
	down := 0

	for _, name := range reg.Names() {
		t, err := reg.Get(name)
		if err != nil {
			log.Fatal(err)
		}
		status, err := resolver.Authoritative(ctx, t)
		if err != nil {
			down++
			fmt.Printf("✖ %-20s %v\n", name, err)
			continue
		}
		snap, err := reg.Snapshot(name)
		if err != nil {
			log.Fatal(err)
		}
		detail := status.Descriptor
		if status.MemberCapacity > 0 {
			detail = fmt.Sprintf("%s, %d/%d members", detail, status.MemberCount, status.MemberCapacity)
		}
		fmt.Printf("✔ %-20s %s via %s (%d ms)\n",
			name, detail, snap.Active, status.Latency.Milliseconds())
	}

	if down > 0 {
		os.Exit(1)
	}
}
