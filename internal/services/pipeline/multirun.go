package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/models"
	"github.com/ternarybob/prospect/internal/services/ratelimit"
)

// MultiRun walks a trade list for one city, checkpointing after every
// trade so an interrupted run resumes where it stopped
type MultiRun struct {
	orchestrator *Orchestrator
	checkpoint   *Checkpoint
	aggregator   *Aggregator
	logger       arbor.ILogger
}

// NewMultiRun creates a multi-trade runner. checkpoint may be nil to
// disable resume support.
func NewMultiRun(orchestrator *Orchestrator, checkpoint *Checkpoint, logger arbor.ILogger) *MultiRun {
	return &MultiRun{
		orchestrator: orchestrator,
		checkpoint:   checkpoint,
		aggregator:   NewAggregator(logger),
		logger:       logger,
	}
}

// Run executes the pipeline for every trade and returns the combined,
// deduplicated result. Trades finished in a previous interrupted run are
// skipped. On the session limit the combined partial result is returned
// with Partial set; the checkpoint stays on disk for the next run.
func (m *MultiRun) Run(ctx context.Context, branchen []string, stadt string) (*models.RunResult, *models.RunStats, error) {
	start := time.Now()
	combined := &models.RunResult{}
	stats := &models.RunStats{}

	leads, done, err := m.resume()
	if err != nil {
		return nil, nil, err
	}
	doneSet := make(map[string]bool, len(done))
	for _, b := range done {
		doneSet[b] = true
	}
	if len(done) > 0 {
		m.logger.Info().Int("finished", len(done)).Int("leads", len(leads)).Msg("Resuming multi-trade run")
	}

	for i, branche := range branchen {
		if doneSet[branche] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		m.logger.Info().
			Str("branche", branche).
			Int("n", i+1).
			Int("total", len(branchen)).
			Msg("Multi-trade step")

		result, runStats, err := m.orchestrator.Run(ctx, branche, stadt)
		if err != nil {
			if errors.Is(err, ErrNoListings) {
				m.logger.Warn().Str("branche", branche).Msg("No listings for trade")
				done = append(done, branche)
				m.flush(leads, done)
				continue
			}
			if errors.Is(err, context.Canceled) {
				m.flush(leads, done)
				return nil, nil, err
			}
			combined.AddError(fmt.Sprintf("%s: %v", branche, err))
			done = append(done, branche)
			m.flush(leads, done)
			continue
		}

		leads = m.aggregator.Aggregate(leads, result.Leads, &stats.Aggregate)
		accumulate(stats, runStats)
		combined.SeitenGescraped += result.SeitenGescraped
		for _, msg := range result.Fehler {
			combined.AddError(msg)
		}

		if result.Partial {
			// Session limit inside the trade run: keep it unfinished so the
			// next session redoes it, but keep its leads.
			m.flush(leads, done)
			combined.Leads = leads
			combined.TotalGefunden = len(leads)
			combined.Partial = true
			stats.Partial = true
			combined.DauerSekunden = time.Since(start).Seconds()
			return combined, stats, ratelimit.ErrSessionLimit
		}

		done = append(done, branche)
		m.flush(leads, done)
	}

	combined.Leads = leads
	combined.TotalGefunden = len(leads)
	combined.DauerSekunden = time.Since(start).Seconds()
	stats.Exported = len(leads)

	if m.checkpoint != nil {
		m.checkpoint.Clear()
	}
	m.logger.Info().
		Int("branchen", len(branchen)).
		Int("leads", len(leads)).
		Float64("dauer_s", combined.DauerSekunden).
		Msg("Multi-trade run finished")
	return combined, stats, nil
}

func (m *MultiRun) resume() ([]*models.Lead, []string, error) {
	if m.checkpoint == nil {
		return nil, nil, nil
	}
	leads, err := m.checkpoint.LoadLeads()
	if err != nil {
		return nil, nil, err
	}
	done, err := m.checkpoint.LoadBranchen()
	if err != nil {
		return nil, nil, err
	}
	return leads, done, nil
}

func (m *MultiRun) flush(leads []*models.Lead, done []string) {
	if m.checkpoint == nil {
		return
	}
	if err := m.checkpoint.SaveLeads(leads); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to checkpoint leads")
	}
	if err := m.checkpoint.SaveBranchen(done); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to checkpoint trades")
	}
}

func accumulate(total, step *models.RunStats) {
	total.Directory.PagesScraped += step.Directory.PagesScraped
	total.Directory.ListingsFound += step.Directory.ListingsFound
	total.Maps.PagesScraped += step.Maps.PagesScraped
	total.Maps.ListingsFound += step.Maps.ListingsFound
	total.Websites.WebsitesChecked += step.Websites.WebsitesChecked
	total.Websites.NoWebsite += step.Websites.NoWebsite
	total.Websites.WebsitesOld += step.Websites.WebsitesOld
	total.Websites.WebsitesModern += step.Websites.WebsitesModern
	total.Websites.WebsitesUnknown += step.Websites.WebsitesUnknown
}
