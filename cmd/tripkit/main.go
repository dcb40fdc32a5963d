package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tripkit/internal/api"
	"tripkit/pkg/cache"
	"tripkit/pkg/catalog"
	"tripkit/pkg/config"
	"tripkit/pkg/conversation"
	"tripkit/pkg/db"
	"tripkit/pkg/db/maintenance"
	"tripkit/pkg/imagegen"
	"tripkit/pkg/llm"
	"tripkit/pkg/llm/gemini"
	"tripkit/pkg/llm/mock"
	"tripkit/pkg/llm/tavily"
	"tripkit/pkg/logging"
	"tripkit/pkg/pipeline"
	"tripkit/pkg/probe"
	"tripkit/pkg/qa"
	"tripkit/pkg/recommend"
	"tripkit/pkg/request"
	"tripkit/pkg/session"
	"tripkit/pkg/store"
	"tripkit/pkg/styling"
	"tripkit/pkg/tracker"
	"tripkit/pkg/version"
)

var initConfig = flag.Bool("init-config", false, "Generate default config file and exit")

func main() {
	flag.Parse()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault("configs/tripkit.yaml"); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated: configs/tripkit.yaml")
		return
	}

	if err := run(context.Background(), "configs/tripkit.yaml"); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

// provider bundles the capability gateways one backend exposes.
type provider interface {
	llm.Provider
	llm.Moderator
	llm.Synthesizer
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// API keys may live in a .env file next to the binary.
	_ = godotenv.Load()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()
	logging.SetTransitionLogPath(filepath.Join(filepath.Dir(appCfg.Log.Server.Path), "transitions.log"))

	slog.Info("TripKit Started", "version", version.Version)

	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()
	st := store.NewSQLiteStore(dbConn)

	cat := catalog.New(st, st)
	if err := cat.EnsureSeeded(ctx); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	if err := maintenance.Run(ctx, st, dbConn, "data/destinations.csv", time.Duration(appCfg.Pipeline.SessionTTL)); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	tr := tracker.New()
	reqClient := request.New(cache.NewSQLiteCache(dbConn), tr)

	prov, err := initProvider(appCfg, tr)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM provider: %w", err)
	}

	searcher := initSearcher(appCfg, reqClient, prov)

	sup, reg, err := initPipeline(appCfg, st, prov, searcher, cat)
	if err != nil {
		return err
	}
	sup.OnTransition(func(evt pipeline.Event) {
		logging.LogTransition(evt.SessionID, string(evt.From), string(evt.To), evt.Seq)
	})

	// Startup Probes
	probes := []probe.Probe{
		{
			Name:     "LLM Provider",
			Check:    prov.HealthCheck,
			Critical: true,
		},
		{
			Name:     "Image Asset Directory",
			Check:    assetDirCheck(appCfg.Image.AssetDir),
			Critical: false, // image persistence degrades gracefully
		},
	}
	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	return runServer(ctx, appCfg, sup, reg, cat, st, tr)
}

// initProvider selects the configured LLM backend.
func initProvider(cfg *config.Config, tr *tracker.Tracker) (provider, error) {
	switch cfg.LLM.Provider {
	case "mock":
		slog.Warn("Using mock LLM provider")
		return mock.New(), nil
	case "gemini", "":
		return gemini.NewClient(cfg.LLM, cfg.Log.LLM.Path, cfg.Image.AssetDir, tr)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// initSearcher wires the optional web-search capability. The pipeline runs
// without it; image prompts just lose the scene keywords.
func initSearcher(cfg *config.Config, reqClient *request.Client, prov provider) llm.Searcher {
	switch cfg.Search.Provider {
	case "tavily":
		if cfg.Search.Key == "" {
			slog.Info("Search disabled: no Tavily API key configured")
			return nil
		}
		return tavily.NewClient(reqClient, cfg.Search)
	case "mock":
		if s, ok := prov.(llm.Searcher); ok {
			return s
		}
		return nil
	default:
		return nil
	}
}

func initPipeline(cfg *config.Config, st *store.SQLiteStore, prov provider, searcher llm.Searcher, cat *catalog.Service) (*pipeline.Supervisor, *session.Registry, error) {
	reg := session.NewRegistry(time.Duration(cfg.Pipeline.SessionTTL))
	sup, err := pipeline.New(reg, st, cfg.Pipeline)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	imageBackoff := request.NewProviderBackoff(
		time.Duration(cfg.Request.Backoff.BaseDelay),
		time.Duration(cfg.Request.Backoff.MaxDelay),
	)

	sup.Register(pipeline.StateConversation, conversation.New(prov, cfg.Conversation).Run)
	sup.Register(pipeline.StateRecommendation, recommend.New(prov, cat, cfg.Recommend).Run)
	sup.Register(pipeline.StateImageGeneration, imagegen.New(prov, searcher, st, imageBackoff, cfg.Image).Run)
	sup.Register(pipeline.StateEnrichment, styling.New(prov).Run)
	sup.Register(pipeline.StateQA, qa.New(prov, cfg.QA, cfg.Recommend).Run)

	return sup, reg, nil
}

func assetDirCheck(dir string) probe.CheckFunc {
	return func(ctx context.Context) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("asset dir not writable: %w", err)
		}
		return nil
	}
}

func runServer(ctx context.Context, cfg *config.Config, sup *pipeline.Supervisor, reg *session.Registry, cat *catalog.Service, st store.Store, tr *tracker.Tracker) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	srv := api.NewServer(cfg.Server.Address,
		api.NewChatHandler(sup),
		api.NewResultHandler(sup, cat),
		api.NewProgressHandler(sup),
		api.NewStatsHandler(tr, reg),
		api.NewHistoryHandler(st, st),
		api.NewImageHandler(cfg.Image.AssetDir),
		shutdownFunc,
	)

	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
