package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/williampepple1/listings-scraper/internal/app"
	"github.com/williampepple1/listings-scraper/internal/config"
	"github.com/williampepple1/listings-scraper/internal/io"
	"github.com/williampepple1/listings-scraper/internal/worker"
	"github.com/williampepple1/listings-scraper/pkg/models"
)

func main() {
	// Define command-line flags
	configFile := flag.String("config", "", "Path to configuration file (YAML)")
	inputFile := flag.String("input", "", "File of searches to run (destination,checkin,checkout,guests[,budget] per line)")
	outputFile := flag.String("output", "results.json", "File to save results to")
	destination := flag.String("destination", "", "Destination for a single search")
	checkin := flag.String("checkin", "", "Check-in date (YYYY-MM-DD)")
	checkout := flag.String("checkout", "", "Check-out date (YYYY-MM-DD)")
	guests := flag.Int("guests", 1, "Number of guests")
	budget := flag.String("budget", "", "Nightly budget, e.g. $150")
	numWorkers := flag.Int("workers", 3, "Number of concurrent workers")
	rateLimitDelay := flag.Duration("rate-limit", 1*time.Second, "Delay between searches")
	maxRetries := flag.Int("retries", config.DefaultMaxRetries, "Maximum number of attempts per search")
	retryDelay := flag.Duration("retry-delay", config.DefaultRetryDelay, "Base delay between attempts")
	timeout := flag.Duration("timeout", config.DefaultTimeout, "Timeout per attempt")
	cacheDir := flag.String("cache-dir", "cache", "Directory for cached results")
	enableProxy := flag.Bool("proxy", false, "Enable proxy support")
	enableBrowser := flag.Bool("browser", false, "Enable browser-based scraping")
	enableFilter := flag.Bool("filter", false, "Keep only listings meeting the rating thresholds")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger := newLogger(*debug)
	defer logger.Sync()

	// Load configuration
	var appConfig *config.AppConfig
	if *configFile != "" {
		var err error
		appConfig, err = config.Load(*configFile)
		if err != nil {
			logger.Fatal("could not load config", zap.String("file", *configFile), zap.Error(err))
		}
		logger.Info("loaded configuration", zap.String("file", *configFile))
	} else {
		appConfig = config.CreateDefault(
			*numWorkers,
			*rateLimitDelay,
			*retryDelay,
			*timeout,
			*maxRetries,
			*inputFile,
			*outputFile,
			*cacheDir,
			*enableProxy,
			*enableBrowser,
		)
		logger.Info("using default configuration (no config file provided)")
	}

	// Override config with command-line flags if provided
	if *inputFile != "" {
		appConfig.IO.InputFile = *inputFile
	}
	if *outputFile != "results.json" {
		appConfig.IO.OutputFile = *outputFile
	}
	if *enableFilter {
		appConfig.Filter.Enabled = true
	}

	searches, err := collectSearches(appConfig, *destination, *checkin, *checkout, *guests, *budget)
	if err != nil {
		logger.Fatal("no searches to run", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := app.New(ctx, appConfig, prometheus.NewRegistry(), logger)
	defer pipeline.Close()

	logger.Info("preparing to scrape",
		zap.Int("searches", len(searches)),
		zap.Int("workers", appConfig.Scraper.Workers),
	)

	results := worker.Run(ctx, &appConfig.Scraper, pipeline.Orchestrator, searches, logger)

	var sets []*models.ResultSet
	total := 0
	for _, r := range results {
		rs := r.ResultSet
		if appConfig.Filter.Enabled {
			rs = pipeline.Filter.Apply(rs)
		}
		total += rs.TotalListings()
		sets = append(sets, rs)
		logger.Info("search finished",
			zap.String("destination", r.Request.Destination),
			zap.String("checkin", r.Request.CheckIn),
			zap.Int("listings", rs.TotalListings()),
			zap.Duration("elapsed", r.Duration),
		)
	}

	resultWriter := io.NewResultWriter(&appConfig.IO)
	if err := resultWriter.SaveToFile(sets); err != nil {
		logger.Fatal("could not save results", zap.String("file", appConfig.IO.OutputFile), zap.Error(err))
	}

	fmt.Printf("Processed %d of %d searches, %d listings saved to %s\n",
		len(results), len(searches), total, appConfig.IO.OutputFile)
}

// collectSearches returns the single search given by flags, or the batch file
func collectSearches(cfg *config.AppConfig, destination, checkin, checkout string, guests int, budget string) ([]models.SearchRequest, error) {
	if destination == "" {
		return io.NewSearchReader(&cfg.IO).GetSearches()
	}

	req := models.SearchRequest{
		Destination: destination,
		CheckIn:     checkin,
		CheckOut:    checkout,
		Guests:      guests,
	}
	if budget != "" {
		b, err := models.ParseBudget(budget)
		if err != nil {
			return nil, err
		}
		req.Budget = &b
	}
	if err := req.Validate(false); err != nil {
		return nil, err
	}
	return []models.SearchRequest{req}, nil
}

func newLogger(debug bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
