package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jobreach/jobreach/internal/apply"
	"github.com/jobreach/jobreach/internal/browser"
	"github.com/jobreach/jobreach/internal/config"
	"github.com/jobreach/jobreach/internal/llm"
	"github.com/jobreach/jobreach/internal/locator"
	"github.com/jobreach/jobreach/internal/observability"
	"github.com/jobreach/jobreach/internal/resilience"
	"github.com/jobreach/jobreach/internal/review"
	"github.com/jobreach/jobreach/internal/storage"
	"github.com/jobreach/jobreach/internal/vision"
)

func main() {
	url := flag.String("url", "", "Application form URL (required)")
	profilePath := flag.String("profile", "profile.json", "Applicant profile JSON file")
	output := flag.String("output", "", "Output file for JSON outcome (empty for stdout summary)")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall timeout including review waits")
	submit := flag.Bool("submit", false, "Actually click submit instead of the default dry run")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (empty to disable)")
	flag.Parse()

	if *url == "" {
		fmt.Fprintln(os.Stderr, "Usage: apply -url https://example.com/careers/apply [-profile profile.json]")
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

	profile, err := loadProfile(*profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading profile: %v\n", err)
		os.Exit(1)
	}

	dryRun := cfg.Review.DryRun
	if *submit {
		if cfg.IsDevelopment() {
			fmt.Fprintln(os.Stderr, "-submit is ignored in development mode; running dry")
		} else {
			dryRun = false
		}
	}

	engine, cleanup, err := buildEngine(cfg, dryRun, metrics, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	session, err := browser.NewSession(cfg.Browser, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting browser: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	page, err := session.NewPage(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening page: %v\n", err)
		os.Exit(1)
	}
	defer page.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Printf("Opening %s\n", *url)
	if err := page.Navigate(ctx, *url); err != nil {
		fmt.Fprintf(os.Stderr, "Error navigating: %v\n", err)
		os.Exit(1)
	}

	outcome, err := engine.Apply(ctx, page, profile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if outcome != nil {
			printOutcome(outcome)
		}
		os.Exit(1)
	}

	printOutcome(outcome)

	if *output != "" {
		data, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding outcome: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *output, err)
			os.Exit(1)
		}
	}
}

// buildEngine wires the application pipeline from config. The returned
// cleanup closes whatever optional backends were opened.
func buildEngine(cfg *config.Config, dryRun bool, metrics *observability.Metrics, logger *zap.Logger) (*apply.Engine, func(), error) {
	cleanup := func() {}

	var visionBackend locator.VisionBackend
	var fieldVision apply.FieldVision
	if cfg.Vision.Enabled {
		client := vision.NewClient(vision.Config{
			Endpoint: cfg.Vision.Endpoint,
			Model:    cfg.Vision.Model,
			Timeout:  cfg.Vision.Timeout,
			Metrics:  metrics,
		}, logger)
		visionBackend = client
		fieldVision = client
	}

	breaker := resilience.NewBreaker(resilience.DefaultConfig("vision"))
	locatorCfg := locator.DefaultConfig()
	locatorCfg.Metrics = metrics
	elementLocator := locator.New(visionBackend, breaker, locatorCfg, logger)

	var suggester apply.Suggester
	if cfg.Claude.APIKey != "" {
		claude, err := llm.NewClaudeClient(llm.Config{
			APIKey:       cfg.Claude.APIKey,
			Model:        cfg.Claude.Model,
			MaxTokens:    cfg.Claude.MaxTokens,
			Timeout:      cfg.Claude.Timeout,
			RateLimitRPM: cfg.Claude.RateLimitRPM,
			CacheTTL:     cfg.Claude.CacheTTL,
			Caching:      cfg.Claude.EnableCaching,
			Metrics:      metrics,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("creating claude client: %w", err)
		}
		logger.Info("claude mapping fallback enabled", zap.String("model", claude.GetModel()))
		suggester = llm.NewAttributeSuggester(claude, logger)
	} else {
		logger.Info("ANTHROPIC_API_KEY not set, unmatched fields stay unmapped")
	}

	var screenshots apply.ScreenshotStore
	if cfg.Storage.Enabled {
		store, err := storage.New(cfg.Storage)
		if err != nil {
			return nil, cleanup, fmt.Errorf("creating screenshot store: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err = store.EnsureBucket(ctx)
		cancel()
		if err != nil {
			return nil, cleanup, fmt.Errorf("preparing screenshot bucket: %w", err)
		}
		screenshots = store
	}

	gate := review.NewTerminalGate(os.Stdin, os.Stdout, cfg.Review.Timeout, logger)

	fillerCfg := apply.DefaultFillerConfig()
	fillerCfg.Metrics = metrics

	engine := apply.NewEngine(
		apply.NewDiscoverer(fieldVision, logger),
		apply.NewMapper(suggester, logger),
		apply.NewFiller(elementLocator, fillerCfg, logger),
		elementLocator,
		gate,
		screenshots,
		apply.EngineConfig{
			ReviewRequired: cfg.Review.Required,
			DryRun:         dryRun,
			Metrics:        metrics,
		},
		logger,
	)
	return engine, cleanup, nil
}

func loadProfile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var profile map[string]string
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(profile) == 0 {
		return nil, fmt.Errorf("%s contains no attributes", path)
	}
	return profile, nil
}

func printOutcome(outcome *apply.Outcome) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	mapped := 0
	for _, m := range outcome.Mappings {
		if m.Attribute != "" {
			mapped++
		}
	}

	fmt.Println("---")
	fmt.Println(bold("Application Outcome"))
	fmt.Printf("Page: %s\n", outcome.PageURL)
	fmt.Printf("Fields discovered: %d, mapped: %d, filled: %d\n", outcome.Fields, mapped, outcome.Fill.FilledCount)
	if outcome.Fill.NavigationAvailable {
		fmt.Println(yellow("A continue/next control is present; further pages were not advanced"))
	}
	for _, pending := range outcome.Fill.Pending {
		fmt.Printf("  %s %s\n", yellow("pending:"), pending)
	}
	for _, errMsg := range outcome.Fill.Errors {
		fmt.Printf("  %s %s\n", yellow("error:"), errMsg)
	}
	if outcome.ScreenshotURL != "" {
		fmt.Printf("Screenshot: %s\n", outcome.ScreenshotURL)
	}
	switch {
	case outcome.Submitted:
		fmt.Printf("%s via %q\n", green("Submitted"), outcome.SubmitLabel)
	case outcome.DryRun && outcome.SubmitLabel != "":
		fmt.Printf("%s: would click %q\n", yellow("Dry run"), outcome.SubmitLabel)
	default:
		fmt.Println(yellow("Not submitted"))
	}
	fmt.Printf("Elapsed: %s\n", outcome.Elapsed.Round(time.Millisecond))
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
