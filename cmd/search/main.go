package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/config"
	"github.com/jobreach/jobreach/internal/domain"
	"github.com/jobreach/jobreach/internal/observability"
	"github.com/jobreach/jobreach/internal/repository/postgres"
	redisrepo "github.com/jobreach/jobreach/internal/repository/redis"
	"github.com/jobreach/jobreach/internal/search"
	"github.com/jobreach/jobreach/internal/sources"
	"github.com/jobreach/jobreach/internal/storage"
)

func main() {
	keywords := flag.String("keywords", "", "Search keywords (required)")
	location := flag.String("location", "", "Location filter")
	maxResults := flag.Int("max", 25, "Maximum results per source")
	sourceList := flag.String("sources", "", "Comma-separated sources (empty for all enabled)")
	output := flag.String("output", "", "Output file for JSON result (empty for stdout summary)")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall search timeout")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (empty to disable)")
	flag.Parse()

	if *keywords == "" {
		fmt.Fprintln(os.Stderr, "Usage: search -keywords \"python backend\" [-location \"Berlin\"] [-sources linkedin,indeed]")
		os.Exit(1)
	}

	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg)
	defer logger.Sync()

	metrics := observability.NewMetrics("jobreach")
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, metrics, logger)
	}

	registry := sources.NewRegistry()
	adapterCfg := sources.Config{
		MaxPages:     cfg.Sources.MaxPages,
		MinPageDelay: cfg.Sources.MinPageDelay,
		MaxPageDelay: cfg.Sources.MaxPageDelay,
	}
	for _, name := range cfg.Sources.Enabled {
		adapter := buildAdapter(name, adapterCfg, logger)
		if adapter == nil {
			logger.Warn("unknown source in SOURCES_ENABLED", zap.String("source", name))
			continue
		}
		if err := registry.Register(adapter); err != nil {
			fmt.Fprintf(os.Stderr, "Error registering %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	session, err := browser.NewSession(cfg.Browser, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting browser: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	opts := search.Options{Metrics: metrics}

	if cfg.Redis.Enabled {
		sessionCache, err := redisrepo.New(cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, continuing without session reuse", zap.Error(err))
		} else {
			defer sessionCache.Close()
			opts.Sessions = sessionCache
		}
	}

	var db *postgres.DB
	if cfg.Database.Enabled {
		var err error
		db, err = postgres.New(cfg.Database)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.Migrate(ctx); err != nil {
			cancel()
			fmt.Fprintf(os.Stderr, "Error migrating database: %v\n", err)
			os.Exit(1)
		}
		cancel()
		opts.Store = postgres.NewListingRepository(db.DB)
	}

	coordinator := search.NewCoordinator(registry, session, cfg.Sources, opts, logger)

	query := domain.Query{
		Keywords:   *keywords,
		Location:   *location,
		MaxResults: *maxResults,
	}

	var requested []string
	if *sourceList != "" {
		requested = strings.Split(*sourceList, ",")
		for i := range requested {
			requested[i] = strings.TrimSpace(requested[i])
		}
	}

	fmt.Printf("Searching for: %s\n", *keywords)
	if *location != "" {
		fmt.Printf("Location: %s\n", *location)
	}
	fmt.Printf("Sources: %s\n", strings.Join(registry.Names(), ", "))
	fmt.Println("---")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := runWithSpinner(ctx, coordinator, query, requested)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error searching: %v\n", err)
		os.Exit(1)
	}

	printSummary(result)

	if db != nil {
		stats := db.Stats()
		metrics.UpdateDBStats(stats.InUse, stats.Idle)
	}

	if cfg.Storage.Enabled {
		archiveResult(cfg.Storage, result, logger)
	}

	if *output != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *output, err)
			os.Exit(1)
		}
		fmt.Printf("\nFull result written to %s\n", *output)
	}
}

func buildAdapter(name string, cfg sources.Config, logger *zap.Logger) sources.Adapter {
	switch name {
	case "linkedin":
		return sources.NewLinkedIn(cfg, logger)
	case "indeed":
		return sources.NewIndeed(cfg, logger)
	case "remoteco":
		return sources.NewRemoteCo(cfg, logger)
	case "wellfound":
		return sources.NewWellfound(cfg, logger)
	case "stackoverflow":
		return sources.NewStackOverflow(cfg, logger)
	default:
		return nil
	}
}

func runWithSpinner(ctx context.Context, coordinator *search.Coordinator, query domain.Query, requested []string) (*domain.MultiSourceResult, error) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("searching"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWriter(os.Stderr),
	)

	type outcome struct {
		result *domain.MultiSourceResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := coordinator.SearchAll(ctx, query, requested)
		done <- outcome{result, err}
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case o := <-done:
			bar.Finish()
			fmt.Fprintln(os.Stderr)
			return o.result, o.err
		case <-ticker.C:
			bar.Add(1)
		}
	}
}

func printSummary(result *domain.MultiSourceResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Println(bold("Search Results"))
	fmt.Printf("Run ID: %s\n", result.RunID)
	for name, sr := range result.BySource {
		status := green("ok")
		if !sr.Success {
			status = red("failed: " + sr.ErrorMessage)
		}
		simulated := ""
		if len(sr.Listings) > 0 && sr.Listings[0].IsSimulated {
			simulated = yellow(" [simulated]")
		}
		fmt.Printf("  %-12s %3d listing(s)  %s%s\n", name, len(sr.Listings), status, simulated)
	}
	fmt.Printf("\n%s unique listing(s), %d duplicate(s) removed, %s elapsed\n\n",
		bold(fmt.Sprint(result.TotalUnique)),
		result.DuplicatesRemoved,
		result.Elapsed.Round(time.Millisecond),
	)

	for i, l := range result.Listings {
		fmt.Printf("%2d. %s\n", i+1, bold(l.Title))
		fmt.Printf("    %s", l.Organization)
		if l.Location != "" {
			fmt.Printf("  (%s)", l.Location)
		}
		fmt.Println()
		fmt.Printf("    %s\n", l.URL)
		if len(l.Sources) > 1 {
			fmt.Printf("    seen on: %s\n", strings.Join(l.Sources, ", "))
		}
	}
}

// archiveResult uploads the run summary to object storage so runs stay
// inspectable after the terminal session is gone
func archiveResult(cfg config.StorageConfig, result *domain.MultiSourceResult, logger *zap.Logger) {
	data, err := json.Marshal(result)
	if err != nil {
		logger.Warn("encoding run for archival failed", zap.Error(err))
		return
	}

	store, err := storage.New(cfg)
	if err != nil {
		logger.Warn("storage unavailable, skipping run archive", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.EnsureBucket(ctx); err != nil {
		logger.Warn("storage bucket unavailable, skipping run archive", zap.Error(err))
		return
	}

	uri, err := store.UploadJSON(ctx, fmt.Sprintf("runs/%s.json", result.RunID), data)
	if err != nil {
		logger.Warn("archiving run failed", zap.Error(err))
		return
	}
	fmt.Printf("\nRun archived to %s\n", uri)
}

func serveMetrics(addr string, metrics *observability.Metrics, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics server stopped", zap.Error(err))
	}
}

func buildLogger(cfg *config.Config) *zap.Logger {
	var zcfg zap.Config
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.GetLogLevel()); err == nil {
		zcfg.Level = level
	}
	logger, err := zcfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
