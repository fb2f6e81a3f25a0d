package main

import (
	"flag"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/summary-mcp/internal/config"
	"github.com/leonardcser/summary-mcp/internal/coordinator"
	"github.com/leonardcser/summary-mcp/internal/logger"
	"github.com/leonardcser/summary-mcp/internal/store"
	"github.com/leonardcser/summary-mcp/internal/tools"
	"github.com/leonardcser/summary-mcp/internal/web"
)

const storeDaemon = "summary-mcp-store"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	logPath := cfg.Log.Path
	if logPath == "" {
		logPath = logger.DefaultPath()
	}
	if err := logger.Init(logPath, cfg.Log.Level); err != nil {
		panic(err)
	}
	defer logger.Close()
	log := logger.Get()

	log.Info().Msg("Starting Summary MCP server")

	caches := coordinator.NewStore(coordinator.StoreConfig{
		ArtifactTTL:    cfg.Cache.ArtifactTTL,
		RawMaterialTTL: cfg.Cache.RawTTL,
		MetadataTTL:    cfg.Cache.MetadataTTL,
		PageSize:       cfg.Cache.PageSize,
	}, log)

	fetcher := web.NewFetcher(web.FetcherOptions{
		RequestTimeout: cfg.Web.RequestTimeout,
		Delay:          cfg.Web.RequestDelay,
	})
	summarizer := web.NewSummarizer(fetcher, caches, cfg.Web.SummarySentences, log)
	searcher := web.NewSearcher(caches.Lists, cfg.Web.SearchEndpoint, cfg.Web.RequestTimeout)

	opts := []coordinator.Option{
		coordinator.WithLogger(log),
		coordinator.WithRetentionCap(cfg.Coordinator.RetentionCap),
		coordinator.WithComputeTimeout(cfg.Coordinator.ComputeTimeout),
		coordinator.WithSweepInterval(cfg.Cache.Sweep),
	}

	// The result store is optional: without it summaries live in memory only.
	var results *store.Results
	var forget func(string) error
	if kv, err := connectStore(cfg.Store.Socket); err != nil {
		log.Warn().Err(err).Str("socket", cfg.Store.Socket).Msg("Result store unavailable, summaries will not persist")
	} else {
		results = store.NewResults(kv, cfg.Cache.ArtifactTTL, log)
		opts = append(opts, coordinator.WithResultSink(results.Save))
		forget = results.Forget
	}

	coord := coordinator.New(caches, summarizer.Compute, opts...)
	defer coord.Close()

	if results != nil {
		warmed, err := results.Load(coord.WarmArtifactCacheAt)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load stored summaries")
		} else {
			log.Info().Int("count", warmed).Msg("Warmed artifact cache from result store")
		}
	}

	s := server.NewMCPServer(
		"Summary MCP",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("summarize",
		mcp.WithDescription(multiline(
			"Requests a summary of the page at a URL",
			"\nFunctionality:",
			"- Returns immediately with a request id and status",
			"- Cached summaries are returned directly with status completed",
			"- Concurrent requests for the same URL share one computation",
			"\nUsage notes:",
			"- Poll summary-status with the returned id until the status is completed or failed",
			"- Set force_regenerate to discard the cached summary and fetched page",
		)),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL of the page to summarize")),
		mcp.WithString("label", mcp.Description("Optional heading used instead of the page title")),
		mcp.WithBoolean("force_regenerate", mcp.Description("Recompute even if a cached summary exists")),
	), tools.SummarizeHandler(coord))

	s.AddTool(mcp.NewTool("summary-status",
		mcp.WithDescription("Returns the status of a summarize request, and the summary once completed"),
		mcp.WithString("id", mcp.Required(), mcp.Description("The request id returned by summarize")),
	), tools.SummaryStatusHandler(coord))

	s.AddTool(mcp.NewTool("web-fetch",
		mcp.WithDescription(multiline(
			"Fetches content from a specified URL and returns it as markdown",
			"\nUsage notes:",
			"- The URL must be a fully-formed valid URL",
			"- Fetched pages are cached and shared with summarize",
			"- This tool is read-only and does not modify any files",
		)),
		mcp.WithString("url", mcp.Required(), mcp.Description("The URL to fetch content from")),
	), tools.WebFetchHandler(summarizer))

	s.AddTool(mcp.NewTool("web-search",
		mcp.WithDescription(multiline(
			"Searches the web and returns one page of results",
			"\nUsage notes:",
			"- Pages are numbered from 0 and cached per query",
			"- Set refresh to discard cached pages and search again",
		)),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query to use")),
		mcp.WithNumber("page", mcp.Description("Result page, starting at 0")),
		mcp.WithBoolean("refresh", mcp.Description("Discard cached results for this query")),
	), tools.WebSearchHandler(searcher, cfg.Cache.PageSize))

	s.AddTool(mcp.NewTool("cache-invalidate",
		mcp.WithDescription("Drops cached data for a URL, or all cached data when no key is given"),
		mcp.WithString("key", mcp.Description("The URL to invalidate")),
	), tools.CacheInvalidateHandler(coord, forget))

	s.AddTool(mcp.NewTool("cache-stats",
		mcp.WithDescription("Reports cache sizes and request counts"),
	), tools.CacheStatsHandler(coord))

	log.Info().Msg("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		log.Error().Err(err).Msg("Server error")
	}
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }

// connectStore connects to the store daemon, starting it if needed.
func connectStore(sock string) (store.KV, error) {
	client, err := store.Dial(sock, 200*time.Millisecond)
	if err == nil {
		return client, nil
	}
	logger.Warnf("Failed to connect to store daemon: %v, attempting to start daemon", err)
	if startErr := startStoreDaemon(); startErr != nil {
		return nil, startErr
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if client, err = store.Dial(sock, 200*time.Millisecond); err == nil {
			logger.Infof("Store daemon started at %s", sock)
			return client, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return nil, err
}

func startStoreDaemon() error {
	var candidates []string
	if exePath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exePath), storeDaemon))
	}
	if path, err := exec.LookPath(storeDaemon); err == nil {
		candidates = append(candidates, path)
	}
	candidates = append(candidates, "./"+storeDaemon)

	for _, c := range candidates {
		if _, err := os.Stat(c); err != nil {
			continue
		}
		cmd := exec.Command(c)
		cmd.Env = os.Environ()
		return cmd.Start()
	}
	return exec.ErrNotFound
}
