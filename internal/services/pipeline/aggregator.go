package pipeline

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/models"
)

// Aggregator folds leads from multiple sources into one deduplicated list
type Aggregator struct {
	logger arbor.ILogger
}

// NewAggregator creates an aggregator
func NewAggregator(logger arbor.ILogger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Aggregate merges map leads into the directory base. Directory leads win
// field conflicts; each map lead either folds into its best match or is
// appended as a new business.
func (a *Aggregator) Aggregate(directory, maps []*models.Lead, stats *models.StageTwoStats) []*models.Lead {
	result := make([]*models.Lead, 0, len(directory)+len(maps))
	result = append(result, directory...)

	for _, candidate := range maps {
		best := a.bestMatch(result, candidate)
		if best != nil {
			MergeLeads(best, candidate)
			if stats != nil {
				stats.DuplicatesFound++
				stats.Merged++
			}
			a.logger.Debug().
				Str("primary", best.Firmenname).
				Str("merged", candidate.Firmenname).
				Msg("Merged duplicate lead")
			continue
		}
		result = append(result, candidate)
	}

	if stats != nil {
		stats.UniqueLeads = len(result)
	}
	a.logger.Info().
		Int("directory", len(directory)).
		Int("maps", len(maps)).
		Int("unique", len(result)).
		Msg("Aggregated sources")
	return result
}

// Deduplicate collapses duplicates inside a single source
func (a *Aggregator) Deduplicate(leads []*models.Lead, stats *models.StageTwoStats) []*models.Lead {
	var result []*models.Lead
	for _, candidate := range leads {
		best := a.bestMatch(result, candidate)
		if best != nil {
			MergeLeads(best, candidate)
			if stats != nil {
				stats.DuplicatesFound++
				stats.Merged++
			}
			continue
		}
		result = append(result, candidate)
	}
	if stats != nil {
		stats.UniqueLeads = len(result)
	}
	return result
}

// bestMatch returns the existing lead with the highest match confidence
// above the duplicate threshold, or nil
func (a *Aggregator) bestMatch(existing []*models.Lead, candidate *models.Lead) *models.Lead {
	var best *models.Lead
	bestConfidence := 0.0

	for _, lead := range existing {
		score := Match(lead, candidate)
		if score.Confidence >= duplicateThreshold && score.Confidence > bestConfidence {
			best = lead
			bestConfidence = score.Confidence
		}
	}
	return best
}
