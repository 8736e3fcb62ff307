package models

// maxExportedErrors caps the error strings carried into exports
const maxExportedErrors = 10

// RunResult is the outcome of one pipeline run
type RunResult struct {
	Leads           []*Lead  `json:"leads"`
	TotalGefunden   int      `json:"total_gefunden"`
	TotalGefiltert  int      `json:"total_gefiltert"`
	SeitenGescraped int      `json:"seiten_gescraped"`
	DauerSekunden   float64  `json:"dauer_sekunden"`
	Fehler          []string `json:"fehler,omitempty"`
	Partial         bool     `json:"partial,omitempty"`
}

// AddError records an error string, keeping only the most recent entries
func (r *RunResult) AddError(msg string) {
	r.Fehler = append(r.Fehler, msg)
	if len(r.Fehler) > maxExportedErrors {
		r.Fehler = r.Fehler[len(r.Fehler)-maxExportedErrors:]
	}
}

// StageOneStats counts the scraping stage per source
type StageOneStats struct {
	PagesScraped  int `json:"pages_scraped"`
	ListingsFound int `json:"listings_found"`
}

// StageTwoStats counts the aggregation stage
type StageTwoStats struct {
	DuplicatesFound int `json:"duplicates_found"`
	Merged          int `json:"merged"`
	UniqueLeads     int `json:"unique_leads"`
}

// StageThreeStats counts the website-check stage
type StageThreeStats struct {
	WebsitesChecked int `json:"websites_checked"`
	NoWebsite       int `json:"no_website"`
	WebsitesOld     int `json:"websites_old"`
	WebsitesModern  int `json:"websites_modern"`
	WebsitesUnknown int `json:"websites_unknown"`
}

// RunStats aggregates per-stage counters across a pipeline run
type RunStats struct {
	Directory StageOneStats   `json:"directory"`
	Maps      StageOneStats   `json:"maps"`
	Aggregate StageTwoStats   `json:"aggregate"`
	Websites  StageThreeStats `json:"websites"`
	Exported  int             `json:"exported"`
	Partial   bool            `json:"partial"`
}

// CountVerdict bumps the stage-three counter matching the status
func (s *RunStats) CountVerdict(status WebsiteStatus) {
	switch status {
	case WebsiteStatusNone:
		s.Websites.NoWebsite++
	case WebsiteStatusOld:
		s.Websites.WebsitesOld++
	case WebsiteStatusModern:
		s.Websites.WebsitesModern++
	default:
		s.Websites.WebsitesUnknown++
	}
}
