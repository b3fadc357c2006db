package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"evo/internal/applier"
	"evo/internal/bench"
	"evo/internal/budget"
	"evo/internal/config"
	"evo/internal/dashboard"
	"evo/internal/evolver"
	"evo/internal/fitness"
	"evo/internal/historian"
	"evo/internal/logging"
	"evo/internal/proposer"
	"evo/internal/registry"
	"evo/internal/router"
	"evo/internal/validator"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Evolver daemon and its dashboard control surface",
	RunE:  runDaemon,
}

// runDaemon wires every component (spec.md §4.1-§4.12) and blocks
// until SIGINT/SIGTERM, mirroring the teacher's own signal-handling
// shutdown in cmd/nerd's direct-action commands.
func runDaemon(cmd *cobra.Command, args []string) error {
	registry.SetRoot(workspace)
	if err := logging.Initialize(workspace); err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging init failed: %v\n", err)
	}

	cfg, err := config.Load(filepath.Join(workspace, configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	store, err := historian.NewStore(filepath.Join(workspace, cfg.Database.Path))
	if err != nil {
		return fmt.Errorf("open historian store: %w", err)
	}
	defer store.Close()

	hist := historian.New(store, workspace, "evolvable")

	budgetTracker := budget.New(cfg.DailyBudget)
	defer budgetTracker.Stop()

	modelRouter := router.New(cfg.EscalationThreshold)

	prop := proposer.New(cfg.AnthropicAPIKey, cfg.CheapModelTag, cfg.CapableModelTag, budgetTracker, modelRouter)
	bencher := bench.New()
	val := validator.New()
	app := applier.New(workspace)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer bootCancel()
	latestHash, err := hist.LatestAcceptedHashes(bootCtx)
	if err != nil {
		logger.Sugar().Warnf("could not read last accepted artifact hashes, every target will rebuild: %v", err)
		latestHash = nil
	}
	if err := app.RestoreAll(bootCtx, latestHash); err != nil {
		logger.Sugar().Warnf("restore-on-boot failed: %v", err)
	}

	startAt, err := hist.Latest(bootCtx)
	if err != nil {
		logger.Sugar().Warnf("could not read last generation, starting at 0: %v", err)
		startAt = 0
	} else if recent, recentErr := hist.Recent(bootCtx, 1); recentErr == nil && len(recent) > 0 {
		startAt++
	}

	ev := evolver.New(evolver.Config{
		Bencher:   bencher,
		Proposer:  prop,
		Validator: val,
		Applier:   app,
		Historian: hist,
		Evaluator: fitness.New(
			fitness.Weights{Time: cfg.Fitness.WeightTime, Memory: cfg.Fitness.WeightMemory, Lines: cfg.Fitness.WeightLines},
			fitness.Thresholds{ImprovedAbove: cfg.Fitness.ImprovedAbove, RegressedBelow: cfg.Fitness.RegressedBelow},
		),
		Router:    modelRouter,
		Budget:    budgetTracker,
		Interval:  cfg.Interval(),
		StartAt:   startAt,
		AutoStart: cfg.AutoStart,
	})

	var cache *dashboard.RecentCache
	if c, err := dashboard.NewRecentCache(filepath.Join(workspace, cfg.Database.Path)); err != nil {
		logger.Sugar().Warnf("dashboard recent-generations cache unavailable, falling back to the historian: %v", err)
	} else {
		cache = c
		defer cache.Close()
	}

	dash := dashboard.New(ev, budgetTracker, modelRouter, hist, cache, cfg.RunOnceMinGap())
	server := &http.Server{Addr: cfg.Dashboard.ListenAddr, Handler: dash.Handler()}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Errorf("dashboard server error: %v", err)
		}
	}()
	logger.Sugar().Infof("evo daemon listening on %s", cfg.Dashboard.ListenAddr)

	cfgWatcher, err := config.NewWatcher(filepath.Join(workspace, configPath))
	if err != nil {
		logger.Sugar().Warnf("config watcher unavailable, evo.yaml edits require a restart: %v", err)
	} else {
		if err := cfgWatcher.Start(func(reloaded *config.Config) {
			if err := reloaded.Validate(); err != nil {
				logger.Sugar().Warnf("config reload of %s rejected: %v", configPath, err)
				return
			}
			budgetTracker.SetDailyCap(reloaded.DailyBudget)
			ev.SetInterval(reloaded.Interval())
			logger.Sugar().Infof("config reloaded from %s: daily_budget=%d interval=%s", configPath, reloaded.DailyBudget, reloaded.Interval())
		}); err != nil {
			logger.Sugar().Warnf("config watcher failed to start: %v", err)
		} else {
			defer cfgWatcher.Stop()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Sugar().Info("shutting down")
	ev.Pause()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
