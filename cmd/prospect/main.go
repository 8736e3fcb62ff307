package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/httpclient"
	"github.com/ternarybob/prospect/internal/models"
	"github.com/ternarybob/prospect/internal/services/analyzer"
	"github.com/ternarybob/prospect/internal/services/browser"
	"github.com/ternarybob/prospect/internal/services/cache"
	"github.com/ternarybob/prospect/internal/services/directory"
	"github.com/ternarybob/prospect/internal/services/export"
	"github.com/ternarybob/prospect/internal/services/maps"
	"github.com/ternarybob/prospect/internal/services/pipeline"
	"github.com/ternarybob/prospect/internal/services/proxy"
	"github.com/ternarybob/prospect/internal/services/ratelimit"
	"github.com/ternarybob/prospect/internal/services/scheduler"
	"github.com/ternarybob/prospect/internal/useragent"
)

// configPaths allows multiple -c/-config flags, later files overriding
// earlier ones
type configPaths []string

func (c *configPaths) String() string { return fmt.Sprintf("%v", *c) }

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths

	branche  = flag.String("branche", "", "Trade to search for")
	brancheB = flag.String("b", "", "Trade to search for (shorthand)")
	stadt    = flag.String("stadt", "", "City to search in")
	stadtS   = flag.String("s", "", "City to search in (shorthand)")
	limit    = flag.Int("limit", 0, "Maximum leads to collect (overrides config)")
	limitL   = flag.Int("l", 0, "Maximum leads (shorthand)")
	maxPages = flag.Int("max-pages", 0, "Maximum search pages per trade (overrides config)")
	sources  = flag.String("sources", "", "Sources: directory, map or all (overrides config)")

	websiteCheck  = flag.String("website-check", "", "Website check depth: fast, normal or thorough")
	websiteCheckW = flag.String("w", "", "Website check depth (shorthand)")
	includeModern = flag.Bool("include-modern", false, "Keep leads with modern websites")
	minQuality    = flag.Int("min-quality", -1, "Minimum quality score 0-100")
	requirePhone  = flag.Bool("require-phone", false, "Keep only leads with a phone number")
	requireEmail  = flag.Bool("require-email", false, "Keep only leads with an email address")

	proxiesFile    = flag.String("proxies", "", "Proxy list file (enables proxy rotation)")
	showBrowser    = flag.Bool("show-browser", false, "Run the browser with a visible window")
	stealth        = flag.Bool("stealth", false, "Enable the conservative stealth pacing profile")
	sessionMinutes = flag.Int("session-minutes", 0, "Stealth session cap in minutes (overrides config)")

	output       = flag.String("output", "", "Output file path")
	outputO      = flag.String("o", "", "Output file path (shorthand)")
	format       = flag.String("format", "", "Export format: json, csv, both or pdf")
	formatF      = flag.String("f", "", "Export format (shorthand)")
	csvColumns   = flag.String("csv-columns", "", "CSV column preset: minimal, default or full")
	promptOut    = flag.String("prompt-out", "", "Write a cold-outreach prompt document to this path")
	allBranchen  = flag.Bool("all-branchen", false, "Walk the built-in trade list for the city")
	kategorie    = flag.String("kategorie", "", "Walk one trade category (handwerk, gesundheit, beauty, gastro, auto, beratung)")
	branchenFile = flag.String("branchen-file", "", "YAML file with a custom trade list")
	schedule     = flag.String("schedule", "", "Run on a cron spec until interrupted")

	verbose  = flag.Bool("verbose", false, "Debug logging")
	verboseV = flag.Bool("v", false, "Debug logging (shorthand)")
	debug    = flag.Bool("debug", false, "Trace logging")
	quiet    = flag.Bool("quiet", false, "Suppress banner and progress output")
	quietQ   = flag.Bool("q", false, "Suppress banner and progress output (shorthand)")
	version  = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be repeated)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("prospect %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("prospect.toml"); err == nil {
			configFiles = append(configFiles, "prospect.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Failed to load configuration")
	}

	applyFlagOverrides(config)

	logger := common.InitLogger(config)
	if !isQuiet() {
		common.PrintBanner(common.GetVersion())
	}

	if err := config.RequireSearchTerms(); err != nil {
		logger.Error().Err(err).Msg("Invalid search parameters")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.Schedule.Enabled {
		os.Exit(runScheduled(ctx, config, logger))
	}
	os.Exit(runOnce(ctx, config, logger))
}

func isQuiet() bool { return *quiet || *quietQ }

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func applyFlagOverrides(config *common.Config) {
	if v := pick(*brancheB, *branche); v != "" {
		config.Search.Branche = v
	}
	if v := pick(*stadtS, *stadt); v != "" {
		config.Search.Stadt = v
	}
	if *limitL > 0 {
		config.Search.MaxLeads = *limitL
	} else if *limit > 0 {
		config.Search.MaxLeads = *limit
	}
	if *maxPages > 0 {
		config.Search.MaxPages = *maxPages
	}
	if *sources != "" {
		config.Search.Sources = *sources
	}
	if v := pick(*websiteCheckW, *websiteCheck); v != "" {
		config.Search.CheckDepth = v
	}
	if *allBranchen {
		config.Search.AllBranchen = true
	}
	if *kategorie != "" {
		config.Search.Kategorie = *kategorie
	}
	if *branchenFile != "" {
		config.Search.BranchenFile = *branchenFile
	}

	if *includeModern {
		config.Filter.IncludeModernWebsite = true
	}
	if *minQuality >= 0 {
		config.Filter.MinQualityScore = *minQuality
	}
	if *requirePhone {
		config.Filter.RequirePhone = true
	}
	if *requireEmail {
		config.Filter.RequireEmail = true
	}

	if *proxiesFile != "" {
		config.Proxy.Enabled = true
		config.Proxy.File = *proxiesFile
	}
	if *showBrowser {
		config.Browser.Headless = false
	}
	if *stealth {
		config.Stealth.Enabled = true
	}
	if *sessionMinutes > 0 {
		config.Stealth.SessionMinutes = *sessionMinutes
	}

	if v := pick(*outputO, *output); v != "" {
		config.Export.Output = v
	}
	if v := pick(*formatF, *format); v != "" {
		config.Export.Format = v
	}
	if *csvColumns != "" {
		config.Export.CSVColumns = *csvColumns
	}
	if *promptOut != "" {
		config.Export.PromptOut = *promptOut
	}
	if *schedule != "" {
		config.Schedule.Enabled = true
		config.Schedule.Spec = *schedule
	}

	switch {
	case *debug:
		config.Logging.Level = "trace"
	case *verbose || *verboseV:
		config.Logging.Level = "debug"
	case isQuiet():
		config.Logging.Level = "error"
	}
}

// runtime bundles the wired pipeline and its closable resources
type runtime struct {
	orchestrator *pipeline.Orchestrator
	fetcher      *httpclient.Client
	browser      *browser.Client
	verdicts     *cache.VerdictStore
}

func (r *runtime) close(logger arbor.ILogger) {
	if r.fetcher != nil {
		r.fetcher.Close()
	}
	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			logger.Warn().Err(err).Msg("Browser shutdown failed")
		}
	}
	if r.verdicts != nil {
		if err := r.verdicts.Close(); err != nil {
			logger.Warn().Err(err).Msg("Verdict cache close failed")
		}
	}
}

func buildRuntime(config *common.Config, logger arbor.ILogger) (*runtime, error) {
	pool := useragent.NewPool(config.Scraper.RotateUAEveryN, time.Now().UnixNano())
	governor := ratelimit.NewGovernor(
		config.RateLimit,
		config.Stealth,
		hostOf(config.Scraper.DirectoryBaseURL),
		maps.Host,
	)

	proxies := proxy.NewRotator(config.Proxy.RotateEveryN, config.Proxy.MaxFailures)
	if config.Proxy.Enabled {
		n, err := proxies.LoadFile(config.Proxy.File)
		if err != nil {
			return nil, fmt.Errorf("load proxies: %w", err)
		}
		logger.Info().Int("proxies", n).Msg("Proxy rotation enabled")
	}

	fetcher, err := httpclient.New(config.Scraper, governor, pool, logger)
	if err != nil {
		return nil, err
	}

	rt := &runtime{fetcher: fetcher}

	var verdicts analyzer.VerdictCache
	if config.Cache.Enabled {
		store, err := cache.Open(config.Cache, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Verdict cache unavailable, probing every domain")
		} else {
			rt.verdicts = store
			verdicts = store
		}
	}

	classifier := analyzer.NewClassifier(fetcher, verdicts, analyzer.CheckDepth(config.Search.CheckDepth), logger)
	directoryScraper := directory.NewScraper(fetcher, config.Scraper, logger)

	var mapScraper pipeline.MapScraper
	if config.Search.Sources == "map" || config.Search.Sources == "all" {
		rt.browser = browser.New(config.Browser, pool, proxies, logger)
		mapScraper = maps.NewScraper(rt.browser, governor, config.Browser, logger)
	}

	filter := pipeline.NewFilter(config.Filter, logger)
	rt.orchestrator = pipeline.NewOrchestrator(directoryScraper, mapScraper, classifier, filter, config.Search, logger)

	if !isQuiet() {
		rt.orchestrator.OnProgress(func(message string, current, total int) {
			fmt.Printf("[%3d%%] %s\n", current, message)
		})
	}
	return rt, nil
}

func runOnce(ctx context.Context, config *common.Config, logger arbor.ILogger) int {
	rt, err := buildRuntime(config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Startup failed")
		return 1
	}
	defer rt.close(logger)

	result, stats, runErr := execute(ctx, rt, config, logger)
	if runErr != nil && result == nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn().Msg("Interrupted")
		} else {
			logger.Error().Err(runErr).Msg("Run failed")
		}
		return 1
	}
	if result == nil || len(result.Leads) == 0 {
		logger.Error().Msg("No leads found")
		return 1
	}

	if err := writeExports(config, result, stats, logger); err != nil {
		logger.Error().Err(err).Msg("Export failed")
		return 1
	}

	printSummary(result, stats)
	return 0
}

// execute runs either a single-trade or a multi-trade pipeline
func execute(ctx context.Context, rt *runtime, config *common.Config, logger arbor.ILogger) (*models.RunResult, *models.RunStats, error) {
	branchen, multi, err := resolveBranchen(config)
	if err != nil {
		return nil, nil, err
	}

	if !multi {
		return rt.orchestrator.Run(ctx, branchen[0], config.Search.Stadt)
	}

	checkpoint := pipeline.NewCheckpoint(".", config.Search.Stadt, logger)
	multirun := pipeline.NewMultiRun(rt.orchestrator, checkpoint, logger)
	result, stats, err := multirun.Run(ctx, branchen, config.Search.Stadt)
	if err != nil && errors.Is(err, ratelimit.ErrSessionLimit) {
		// Partial success: export what we have, checkpoint keeps the rest.
		logger.Warn().Msg("Session limit reached, exporting partial results")
		return result, stats, nil
	}
	return result, stats, err
}

// resolveBranchen returns the trade list for this run and whether it is a
// multi-trade walk
func resolveBranchen(config *common.Config) ([]string, bool, error) {
	if config.Search.BranchenFile != "" {
		tf, err := common.LoadTradeFile(config.Search.BranchenFile)
		if err != nil {
			return nil, false, err
		}
		if config.Search.Kategorie != "" {
			subset, ok := tf.Kategorien[config.Search.Kategorie]
			if !ok {
				return nil, false, fmt.Errorf("unknown kategorie %q in trade file", config.Search.Kategorie)
			}
			return subset, true, nil
		}
		return tf.Branchen, true, nil
	}

	if config.Search.Kategorie != "" {
		if _, ok := models.TradeCategories[config.Search.Kategorie]; !ok {
			return nil, false, fmt.Errorf("unknown kategorie %q (known: %s)",
				config.Search.Kategorie, strings.Join(models.Kategorien(), ", "))
		}
		return models.Trades(config.Search.Kategorie), true, nil
	}

	if config.Search.AllBranchen {
		return models.TradeList, true, nil
	}

	return []string{config.Search.Branche}, false, nil
}

func writeExports(config *common.Config, result *models.RunResult, stats *models.RunStats, logger arbor.ILogger) error {
	base := outputBase(config)
	sources := exportSources(config.Search.Sources)
	branchenLabel := config.Search.Branche
	if branchenLabel == "" {
		branchenLabel = config.Search.Kategorie
	}
	if config.Search.AllBranchen {
		branchenLabel = "alle"
	}

	writeJSON := config.Export.Format == "json" || config.Export.Format == "both"
	writeCSV := config.Export.Format == "csv" || config.Export.Format == "both"

	if writeJSON {
		exporter := export.NewJSONExporter(config.Export, logger)
		if err := exporter.Export(result, base+".json", branchenLabel, config.Search.Stadt,
			&config.Filter, config.Search.CheckDepth, sources); err != nil {
			return err
		}
	}
	if writeCSV {
		exporter := export.NewCSVExporter(config.Export.CSVColumns, logger)
		if err := exporter.Export(result.Leads, base+".csv"); err != nil {
			return err
		}
	}
	if config.Export.Format == "pdf" {
		exporter := export.NewPDFExporter(logger)
		if err := exporter.Export(result, stats, base+".pdf", branchenLabel, config.Search.Stadt); err != nil {
			return err
		}
	}

	if config.Export.PromptOut != "" {
		if err := export.WritePrompt(result.Leads, branchenLabel, config.Search.Stadt, config.Export.PromptOut, logger); err != nil {
			return err
		}
	}
	return nil
}

// outputBase resolves the export path without its extension
func outputBase(config *common.Config) string {
	if config.Export.Output != "" {
		out := config.Export.Output
		if ext := filepath.Ext(out); ext == ".json" || ext == ".csv" || ext == ".pdf" {
			return strings.TrimSuffix(out, ext)
		}
		return out
	}

	citySlug := pipeline.CitySlug(config.Search.Stadt)
	if config.Search.AllBranchen || config.Search.Kategorie != "" || config.Search.BranchenFile != "" {
		return fmt.Sprintf("leads_%s_multi", citySlug)
	}
	return fmt.Sprintf("leads_%s_%s", pipeline.CitySlug(config.Search.Branche), citySlug)
}

func exportSources(sources string) []string {
	switch sources {
	case "map":
		return []string{string(models.SourceGoogleMaps)}
	case "all":
		return []string{string(models.SourceGelbeSeiten), string(models.SourceGoogleMaps)}
	default:
		return []string{string(models.SourceGelbeSeiten)}
	}
}

func printSummary(result *models.RunResult, stats *models.RunStats) {
	if isQuiet() {
		return
	}

	fmt.Println()
	fmt.Printf("Leads exportiert:   %d\n", len(result.Leads))
	fmt.Printf("Gefunden gesamt:    %d\n", result.TotalGefunden)
	fmt.Printf("Gefiltert:          %d\n", result.TotalGefiltert)
	if stats != nil {
		fmt.Printf("Ohne Website:       %d\n", stats.Websites.NoWebsite)
		fmt.Printf("Veraltete Websites: %d\n", stats.Websites.WebsitesOld)
	}
	fmt.Printf("Dauer:              %.1f s\n", result.DauerSekunden)
	if result.Partial {
		fmt.Println("Hinweis: Teilergebnis (Session-Limit erreicht)")
	}
}

func runScheduled(ctx context.Context, config *common.Config, logger arbor.ILogger) int {
	sched := scheduler.New(logger)

	err := sched.Start(ctx, config.Schedule.Spec, func(runCtx context.Context) error {
		rt, err := buildRuntime(config, logger)
		if err != nil {
			return err
		}
		defer rt.close(logger)

		result, stats, err := execute(runCtx, rt, config, logger)
		if err != nil {
			return err
		}
		if result == nil || len(result.Leads) == 0 {
			logger.Warn().Msg("Scheduled run found no leads")
			return nil
		}
		return writeExports(config, result, stats, logger)
	})
	if err != nil {
		logger.Error().Err(err).Msg("Scheduler failed to start")
		return 1
	}

	logger.Info().Str("spec", config.Schedule.Spec).Msg("Running on schedule, Ctrl+C to stop")
	<-ctx.Done()
	sched.Stop()
	return 0
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
