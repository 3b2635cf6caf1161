package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"triarb/internal/arbitrage"
	"triarb/internal/catalog"
	"triarb/internal/config"
	"triarb/internal/database"
	"triarb/internal/exchange"
	"triarb/internal/logging"
	"triarb/internal/metrics"
	"triarb/internal/model"
	"triarb/internal/notify"
	"triarb/internal/triangle"
)

func main() {
	defaultDir := os.Getenv("TRIARB_CONFIG")
	if defaultDir == "" {
		defaultDir = "."
	}
	configDir := flag.String("config", defaultDir, "directory holding config.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)

	if err := run(logger, &cfg); err != nil {
		logger.Error("triarb stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("triarb stopped")
}

func run(logger *slog.Logger, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := exchange.NewClient(cfg.Exchange.Name, logger, &cfg.Exchange)
	if err != nil {
		return err
	}
	instruments, err := exchange.LoadInstruments(ctx, client, &cfg.Exchange)
	if err != nil {
		return fmt.Errorf("load instruments: %w", err)
	}
	cat, err := catalog.FromInstruments(logger, instruments, cfg.Arbitrage.FeeMultiplier)
	if err != nil {
		return fmt.Errorf("build catalog: %w", err)
	}

	bridges := triangle.ResolveBridges(cat, cfg.Arbitrage.BridgeCurrencies)
	if len(bridges) == 0 {
		logger.Warn("No bridge pair found for the configured currencies", "currencies", cfg.Arbitrage.BridgeCurrencies)
	}
	tris, err := triangle.Derive(cat, bridges, triangle.Filter{
		Allow: cfg.Arbitrage.AllowCoins,
		Deny:  cfg.Arbitrage.ExcludeCoins,
	})
	if err != nil {
		return fmt.Errorf("derive triangles: %w", err)
	}
	logger.Info("Triangles derived", "pairs", cat.Len(), "bridges", len(bridges), "triangles", len(tris))

	reg := metrics.Init(logger)
	engine := arbitrage.NewEngine(logger, cfg, cat, tris)

	repo, err := database.NewRepository(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if repo != nil {
		defer repo.Close()
	}

	var pub Publisher
	if cfg.Redis.Enabled {
		rp, err := notify.NewRedisPublisher(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rp.Close()
		pub = rp
	}

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: metrics.NewMux(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("Admin server listening", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Admin server failed", "error", err)
			}
		}()
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(cfg.Stats.Schedule, func() { logStats(logger, engine.Stats()) }); err != nil {
		return fmt.Errorf("schedule stats job %q: %w", cfg.Stats.Schedule, err)
	}
	c.Start()
	defer c.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	quotes := make(chan model.QuoteEvent, 4096)
	var (
		wg      sync.WaitGroup
		feedErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		defer close(quotes)
		if feedErr = client.StartStream(ctx, quotes, trackedSymbols(cat, engine.TrackedPairIDs())); feedErr != nil {
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		engine.Run(ctx, quotes)
		cancel()
	}()
	go func() {
		defer wg.Done()
		RunSink(ctx, logger, engine.Opportunities(), repo, pub)
	}()
	wg.Wait()

	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}
	logStats(logger, engine.Stats())
	return feedErr
}

// trackedSymbols limits the subscription to the given pair ids.
func trackedSymbols(cat *catalog.Catalog, tracked []uint32) map[string]uint32 {
	ids := make(map[string]uint32, len(tracked))
	for _, id := range tracked {
		if p, ok := cat.ByID(id); ok {
			ids[p.Symbol] = id
		}
	}
	return ids
}

func logStats(logger *slog.Logger, s arbitrage.Stats) {
	logger.Info("Engine stats",
		"state", s.State.String(),
		"triangles", s.Triangles,
		"trackedPairs", s.TrackedPairs,
		"quotes", s.QuotesProcessed,
		"unknownQuotes", s.UnknownQuotes,
		"evaluations", s.TrianglesEvaluated,
		"opportunities", s.OpportunitiesEmitted,
		"dropped", s.OpportunitiesDropped)
}
