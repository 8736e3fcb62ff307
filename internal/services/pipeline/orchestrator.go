package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/models"
	"github.com/ternarybob/prospect/internal/services/ratelimit"
)

// ErrNoListings is returned when the scrape stage produced nothing
var ErrNoListings = errors.New("no listings found")

// ProgressFunc receives run progress: a human-readable message and a
// current/total pair in percent
type ProgressFunc func(message string, current, total int)

// DirectoryScraper is the directory stage seen by the orchestrator
type DirectoryScraper interface {
	ScrapeLeads(ctx context.Context, branche, stadt string, maxLeads, maxPages int) ([]*models.Lead, int, error)
}

// MapScraper is the map stage seen by the orchestrator
type MapScraper interface {
	ScrapeLeads(ctx context.Context, branche, stadt string, maxLeads int) ([]*models.Lead, error)
}

// SiteClassifier is the website-age stage seen by the orchestrator
type SiteClassifier interface {
	Check(ctx context.Context, websiteURL string) (models.WebsiteAssessment, error)
}

// Orchestrator runs the four pipeline stages: scrape, aggregate, classify
// websites, filter. Partial results survive the stealth session limit.
type Orchestrator struct {
	directory  DirectoryScraper
	maps       MapScraper
	classifier SiteClassifier
	aggregator *Aggregator
	filter     *Filter
	cfg        common.SearchConfig
	logger     arbor.ILogger
	progress   ProgressFunc
}

// NewOrchestrator wires the pipeline. maps may be nil when the map source
// is disabled; classifier may be nil to skip website checks.
func NewOrchestrator(
	directory DirectoryScraper,
	maps MapScraper,
	classifier SiteClassifier,
	filter *Filter,
	cfg common.SearchConfig,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		directory:  directory,
		maps:       maps,
		classifier: classifier,
		aggregator: NewAggregator(logger),
		filter:     filter,
		cfg:        cfg,
		logger:     logger,
	}
}

// OnProgress registers a progress callback
func (o *Orchestrator) OnProgress(fn ProgressFunc) {
	o.progress = fn
}

func (o *Orchestrator) report(message string, percent int) {
	if o.progress != nil {
		o.progress(message, percent, 100)
	}
}

// Run executes the pipeline for one trade and city. On the stealth
// session limit the result carries the leads collected so far with
// Partial set; only cancellation and empty scrapes fail the run.
func (o *Orchestrator) Run(ctx context.Context, branche, stadt string) (*models.RunResult, *models.RunStats, error) {
	start := time.Now()
	result := &models.RunResult{}
	stats := &models.RunStats{}

	o.logger.Info().
		Str("branche", branche).
		Str("stadt", stadt).
		Str("sources", o.cfg.Sources).
		Msg("Pipeline started")
	o.report(fmt.Sprintf("Suche %s in %s", branche, stadt), 0)

	directoryLeads, mapLeads, partial := o.scrape(ctx, branche, stadt, result, stats)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if len(directoryLeads) == 0 && len(mapLeads) == 0 {
		if len(result.Fehler) > 0 {
			return nil, nil, fmt.Errorf("%w: %s", ErrNoListings, result.Fehler[0])
		}
		return nil, nil, ErrNoListings
	}

	o.report("Führe Quellen zusammen", 30)
	leads := o.aggregator.Aggregate(directoryLeads, mapLeads, &stats.Aggregate)
	result.TotalGefunden = len(leads)

	o.report("Prüfe Websites", 80)
	if sessionHit := o.classifyWebsites(ctx, leads, result, stats); sessionHit {
		partial = true
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	o.report("Filtere Ergebnisse", 95)
	filtered := o.filter.Apply(leads)
	result.Leads = filtered
	result.TotalGefiltert = len(leads) - len(filtered)
	result.DauerSekunden = time.Since(start).Seconds()
	result.Partial = partial
	stats.Partial = partial
	stats.Exported = len(filtered)

	o.report("Fertig", 100)
	o.logger.Info().
		Int("leads", len(filtered)).
		Int("gefiltert", result.TotalGefiltert).
		Bool("partial", partial).
		Float64("dauer_s", result.DauerSekunden).
		Msg("Pipeline finished")
	return result, stats, nil
}

// scrape runs the enabled sources. The session limit stops scraping but
// keeps whatever was collected.
func (o *Orchestrator) scrape(ctx context.Context, branche, stadt string, result *models.RunResult, stats *models.RunStats) (directoryLeads, mapLeads []*models.Lead, partial bool) {
	useDirectory := o.cfg.Sources == "directory" || o.cfg.Sources == "all"
	useMaps := (o.cfg.Sources == "map" || o.cfg.Sources == "all") && o.maps != nil

	if useDirectory {
		leads, pages, err := o.directory.ScrapeLeads(ctx, branche, stadt, o.cfg.MaxLeads, o.cfg.MaxPages)
		directoryLeads = leads
		result.SeitenGescraped += pages
		stats.Directory.PagesScraped = pages
		stats.Directory.ListingsFound = len(leads)
		if err != nil {
			if errors.Is(err, ratelimit.ErrSessionLimit) {
				o.logger.Warn().Msg("Session limit reached during directory scrape")
				result.AddError("session limit: directory scrape stopped early")
				return directoryLeads, nil, true
			}
			result.AddError(fmt.Sprintf("directory: %v", err))
		}
	}

	if useMaps {
		leads, err := o.maps.ScrapeLeads(ctx, branche, stadt, o.cfg.MaxLeads)
		mapLeads = leads
		stats.Maps.ListingsFound = len(leads)
		if err != nil {
			if errors.Is(err, ratelimit.ErrSessionLimit) {
				o.logger.Warn().Msg("Session limit reached during map scrape")
				result.AddError("session limit: map scrape stopped early")
				return directoryLeads, mapLeads, true
			}
			result.AddError(fmt.Sprintf("maps: %v", err))
		}
	}

	return directoryLeads, mapLeads, false
}

// classifyWebsites runs the age cascade over every lead with a website.
// Leads without a URL get status keine directly; per-lead failures
// degrade to unbekannt. Returns true when the session limit was hit.
func (o *Orchestrator) classifyWebsites(ctx context.Context, leads []*models.Lead, result *models.RunResult, stats *models.RunStats) bool {
	for i, lead := range leads {
		if lead.WebsiteURL == "" {
			lead.Website = models.WebsiteAssessment{Status: models.WebsiteStatusNone, Confidence: 1.0}
			stats.CountVerdict(models.WebsiteStatusNone)
			continue
		}
		if o.classifier == nil {
			continue
		}

		assessment, err := o.classifier.Check(ctx, lead.WebsiteURL)
		if err != nil {
			if errors.Is(err, ratelimit.ErrSessionLimit) {
				// Remaining leads keep their initial nicht_geprueft status.
				o.logger.Warn().Int("checked", i).Msg("Session limit reached during website checks")
				result.AddError("session limit: website checks stopped early")
				return true
			}
			if errors.Is(err, context.Canceled) {
				return false
			}
			o.logger.Warn().Err(err).Str("url", lead.WebsiteURL).Msg("Website check failed")
			lead.Website = models.WebsiteAssessment{Status: models.WebsiteStatusUnknown, Error: err.Error()}
			stats.Websites.WebsitesChecked++
			stats.CountVerdict(models.WebsiteStatusUnknown)
			continue
		}

		lead.Website = assessment
		stats.Websites.WebsitesChecked++
		stats.CountVerdict(assessment.Status)
	}
	return false
}
