package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mantohq/manto/internal/agent"
	"github.com/mantohq/manto/internal/cache"
	"github.com/mantohq/manto/internal/config"
	"github.com/mantohq/manto/internal/manto"
	"github.com/mantohq/manto/internal/natsbus"
	"github.com/mantohq/manto/internal/registry"
	"github.com/mantohq/manto/internal/retry"
	"github.com/mantohq/manto/internal/scheduler"
	"github.com/mantohq/manto/internal/search"
	"github.com/mantohq/manto/internal/store"
	"github.com/mantohq/manto/internal/telegram"
	"github.com/mantohq/manto/internal/thinker"
	"github.com/mantohq/manto/internal/vault"
	"github.com/mantohq/manto/internal/web"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("manto %s\n", version)
	case "serve":
		if err := runServe(); err != nil {
			slog.Error("serve failed", "error", err)
			os.Exit(1)
		}
	case "run":
		if err := runMission(os.Args[2:]); err != nil {
			slog.Error("run failed", "error", err)
			os.Exit(1)
		}
	case "archive":
		if err := runArchive(os.Args[2:]); err != nil {
			slog.Error("archive failed", "error", err)
			os.Exit(1)
		}
	case "restore":
		if err := runRestore(os.Args[2:]); err != nil {
			slog.Error("restore failed", "error", err)
			os.Exit(1)
		}
	case "vault":
		if err := runVault(os.Args[2:]); err != nil {
			slog.Error("vault failed", "error", err)
			os.Exit(1)
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: manto <command>\n\nCommands:\n  serve      Start the Manto gateway service\n  run        Run a single mission synchronously and print the report\n  archive    Snapshot the data directory to a tar.zst archive\n  restore    Restore the data directory from an archive\n  vault      Manage encrypted secrets\n  version    Print version\n")
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("starting manto gateway", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SQLite store
	db, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()
	slog.Info("store initialized", "path", cfg.Store.Path)

	// Embedded NATS
	bus, err := natsbus.New(cfg.NATS)
	if err != nil {
		return fmt.Errorf("init nats: %w", err)
	}
	defer bus.Close()
	slog.Info("nats started", "port", cfg.NATS.Port)

	client, err := natsbus.NewClient(bus)
	if err != nil {
		return fmt.Errorf("connect nats client: %w", err)
	}
	defer client.Close()
	sink := natsbus.NewEmitter(client)

	// Secret keeper resolves "secret:<name>" config references.
	keeper := vault.NewKeeper(vault.New(cfg.Vault.Passphrase), db)
	apiKey, err := keeper.Resolve(cfg.Search.APIKey)
	if err != nil {
		return fmt.Errorf("resolve search api key: %w", err)
	}
	tgToken, err := keeper.Resolve(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("resolve telegram token: %w", err)
	}

	// Agent registry
	reg := registry.New(db)
	if err := registerAgents(reg, cfg, apiKey); err != nil {
		return fmt.Errorf("register agents: %w", err)
	}
	if err := reg.Sync(); err != nil {
		return fmt.Errorf("sync agent registry: %w", err)
	}

	// Mission coordinator
	coord := manto.NewCoordinator(cfg.Coordinator, thinker.NewPlanner(), reg, db, sink)
	if _, err := coord.ServeIPC(client); err != nil {
		return fmt.Errorf("serve ipc: %w", err)
	}

	// Maintenance scheduler
	sched := scheduler.New(db, reg, sink, cfg.Scheduler)
	if err := sched.Seed(cfg.Agents); err != nil {
		return fmt.Errorf("seed maintenance tasks: %w", err)
	}
	go sched.Start(ctx)
	slog.Info("scheduler started")

	// Telegram notifier
	if tgToken != "" {
		notifier, err := telegram.NewNotifier(config.TelegramConfig{Token: tgToken, ChatID: cfg.Telegram.ChatID})
		if err != nil {
			return fmt.Errorf("init telegram notifier: %w", err)
		}
		if err := notifier.Start(client); err != nil {
			return fmt.Errorf("start telegram notifier: %w", err)
		}
		defer notifier.Stop()
	} else {
		slog.Warn("telegram token not set, notifier disabled")
	}

	// Web UI
	if cfg.Web.Enabled {
		srv := web.NewServer(db, bus, coord, reg, sched, cfg.Web, version)
		go func() {
			if err := srv.Start(ctx); err != nil {
				slog.Error("web server error", "error", err)
			}
		}()
		slog.Info("web server started", "port", cfg.Web.Port)
	}

	// Wait for shutdown; SIGHUP reloads the config without restarting.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			reloaded, err := config.Load()
			if err != nil {
				slog.Error("config reload failed", "error", err)
				continue
			}
			sched.UpdateConfig(reloaded.Scheduler.PollInterval)
			slog.Info("config reloaded")
			continue
		}
		slog.Info("shutting down", "signal", sig)
		break
	}
	cancel()

	return nil
}

// runMission processes a goal synchronously and prints the report,
// without starting NATS, the scheduler, or the web server.
func runMission(args []string) error {
	goal := strings.TrimSpace(strings.Join(args, " "))
	if goal == "" {
		fmt.Fprintf(os.Stderr, "Usage: manto run <goal>\n")
		return fmt.Errorf("missing goal")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	keeper := vault.NewKeeper(vault.New(cfg.Vault.Passphrase), db)
	apiKey, err := keeper.Resolve(cfg.Search.APIKey)
	if err != nil {
		return fmt.Errorf("resolve search api key: %w", err)
	}

	reg := registry.New(db)
	if err := registerAgents(reg, cfg, apiKey); err != nil {
		return fmt.Errorf("register agents: %w", err)
	}

	coord := manto.NewCoordinator(cfg.Coordinator, thinker.NewPlanner(), reg, db, natsbus.NopSink{})

	run, err := coord.Process(context.Background(), goal)
	if err != nil {
		return err
	}

	fmt.Println(run.Report)
	if run.Status != "synthesized" {
		return fmt.Errorf("mission %s: %s", run.ID, run.Status)
	}
	return nil
}

// registerAgents builds the built-in specialists from config and adds
// them to the registry in a fixed order; registration order is the
// final tie-breaker during bid selection.
func registerAgents(reg *registry.Registry, cfg *config.Config, searchAPIKey string) error {
	resultCache := cache.New(cfg.Cache.MaxSize, cfg.Cache.TTL)
	retrier := retry.New(cfg.Retry.MaxRetries, cfg.Retry.BaseBackoff, cfg.Retry.PerAttemptTimeout)
	searchClient := search.NewHTTPClient(cfg.Search.Endpoint, searchAPIKey)

	agents := []agent.Agent{
		agent.NewSearchAgent(searchClient, resultCache, retrier, cfg.Search, cfg.Agents["search"]),
		agent.NewCodeAgent(cfg.Agents["code"]),
		agent.NewStrategistAgent(cfg.Agents["strategist"]),
		agent.NewKaizenAgent(cfg.Agents["kaizen"]),
	}

	for _, a := range agents {
		if cfg.Agents[a.ID()].Disabled {
			slog.Info("agent disabled", "agent", a.ID())
			continue
		}
		if err := reg.Register(a); err != nil {
			return err
		}
	}
	return nil
}
