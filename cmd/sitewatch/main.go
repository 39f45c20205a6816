package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	cfgPkg "github.com/sitewatch/sitewatch/pkg/config"
	"github.com/sitewatch/sitewatch/pkg/fetch"
	"github.com/sitewatch/sitewatch/pkg/llm"
	"github.com/sitewatch/sitewatch/pkg/scheduler"
	"github.com/sitewatch/sitewatch/pkg/service"
	"github.com/sitewatch/sitewatch/pkg/store"
	"github.com/sitewatch/sitewatch/server"
)

type flags struct {
	configPath string
	dbURL      string
	ollamaURL  string
	listenAddr string
	serve      bool
	llmEnabled bool
	verbose    bool
}

func main() {
	// A .env file is optional; a missing one is not an error.
	godotenv.Load()

	f := parseFlags()
	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.dbURL, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&f.ollamaURL, "ollama-url", os.Getenv("OLLAMA_BASE_URL"), "Ollama server URL")
	flag.StringVar(&f.listenAddr, "listen", "", "HTTP listen address (overrides config)")
	flag.BoolVar(&f.serve, "serve", false, "Start the HTTP/WebSocket API")
	flag.BoolVar(&f.llmEnabled, "llm", false, "Enable text analysis and semantic search")
	flag.BoolVar(&f.verbose, "verbose", false, "Enable debug logging")
	flag.Parse()

	return f
}

func run(f flags) error {
	cfg, err := cfgPkg.LoadConfig(f.configPath)
	if err != nil {
		return err
	}
	if f.dbURL != "" {
		cfg.Database.URL = f.dbURL
	}
	if f.ollamaURL != "" {
		cfg.LLM.BaseURL = f.ollamaURL
	}
	if f.listenAddr != "" {
		cfg.Server.ListenAddr = f.listenAddr
	}
	if f.llmEnabled {
		cfg.LLM.Enabled = true
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("no database URL configured (set DATABASE_URL or database.url)")
	}

	logger, err := newLogger(f.verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var embedder *llm.Embedder
	var analyzer *llm.Analyzer
	if cfg.LLM.Enabled {
		embedder, err = llm.NewEmbedder(llm.EmbedderConfig{
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.EmbedModel,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize embedder: %v", err)
		}
		analyzer, err = llm.NewAnalyzer(llm.AnalyzerConfig{
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Logger:      logger,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize analyzer: %v", err)
		}
	}

	storeCfg := store.Config{
		ConnString: cfg.Database.URL,
		VectorDim:  cfg.Database.VectorDim,
		Logger:     logger,
	}
	if embedder != nil {
		storeCfg.Embedder = embedder
	}
	st, err := store.New(context.Background(), storeCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %v", err)
	}
	defer st.Close()

	broadcast := server.NewBroadcaster()
	var crawled int32
	svcCfg := service.Config{
		Sources:   st.Sources(),
		Documents: st.Documents(),
		Graphs:    st.Graphs(),
		Logger:    logger,
		Fetch: fetch.Config{
			Timeout:     time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
			MaxAttempts: cfg.Fetch.MaxAttempts,
			Backoff:     time.Duration(cfg.Fetch.BackoffSeconds) * time.Second,
			RateLimit:   cfg.Fetch.RateLimit,
			Logger:      logger,
		},
		OnPage: func(sourceID, pageURL string) {
			atomic.AddInt32(&crawled, 1)
			broadcast.Publish(sourceID, pageURL)
		},
	}
	if analyzer != nil {
		svcCfg.Analyzer = analyzer
	}
	if embedder != nil {
		svcCfg.Embedder = embedder
	}
	svc := service.New(svcCfg)

	sched := scheduler.New(scheduler.Config{
		Crawl:         svc.CrawlSource,
		CheckInterval: time.Duration(cfg.Scheduler.CheckIntervalSeconds) * time.Second,
		Logger:        logger,
	})
	if err := registerSources(svc, sched); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if f.serve {
		srv := server.New(server.Config{Service: svc, Broadcast: broadcast, Scheduler: sched, Logger: logger})
		go func() {
			color.Cyan("API listening on %s", cfg.Server.ListenAddr)
			if err := http.ListenAndServe(cfg.Server.ListenAddr, srv.Handler()); err != nil {
				logger.Error("api server stopped", zap.Error(err))
			}
		}()
	}

	c := &console{
		service:   svc,
		scheduler: sched,
		semantic:  cfg.LLM.Enabled,
		crawled:   &crawled,
	}
	return c.loop()
}

func registerSources(svc *service.CrawlService, sched *scheduler.Scheduler) error {
	sources, err := svc.ListSources(context.Background(), true)
	if err != nil {
		return fmt.Errorf("failed to load sources: %v", err)
	}
	for i := range sources {
		if err := sched.Register(&sources[i]); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.OutputPaths = []string{"sitewatch.log"}
	return cfg.Build()
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
