package pipeline

import (
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/models"
)

// LeadFilter is a named custom inclusion rule
type LeadFilter struct {
	Name string
	Keep func(*models.Lead) bool
}

// Filter applies the inclusion policy to aggregated leads and records why
// leads were excluded
type Filter struct {
	cfg     common.FilterConfig
	custom  []LeadFilter
	logger  arbor.ILogger
	Dropped map[string]int
}

// NewFilter creates a filter from the configured policy
func NewFilter(cfg common.FilterConfig, logger arbor.ILogger) *Filter {
	f := &Filter{
		cfg:     cfg,
		logger:  logger,
		Dropped: make(map[string]int),
	}

	if len(cfg.BlacklistNames) > 0 {
		f.custom = append(f.custom, BlacklistFilter(cfg.BlacklistNames))
	}
	if len(cfg.WhitelistCategories) > 0 {
		f.custom = append(f.custom, WhitelistFilter(cfg.WhitelistCategories))
	}
	if len(cfg.PLZPrefixes) > 0 {
		f.custom = append(f.custom, RegionFilter(cfg.PLZPrefixes))
	}
	return f
}

// AddCustom appends a caller-defined rule
func (f *Filter) AddCustom(filter LeadFilter) {
	f.custom = append(f.custom, filter)
}

// Apply filters the leads and returns the survivors sorted by quality
// score, best first
func (f *Filter) Apply(leads []*models.Lead) []*models.Lead {
	var kept []*models.Lead
	for _, lead := range leads {
		if reason := f.exclusionReason(lead); reason != "" {
			f.Dropped[reason]++
			continue
		}
		kept = append(kept, lead)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		qi, qj := kept[i].QualityScore(), kept[j].QualityScore()
		if qi != qj {
			return qi > qj
		}
		return kept[i].Firmenname < kept[j].Firmenname
	})

	f.logger.Info().
		Int("in", len(leads)).
		Int("kept", len(kept)).
		Int("dropped", len(leads)-len(kept)).
		Msg("Filtered leads")
	for reason, count := range f.Dropped {
		f.logger.Debug().Str("reason", reason).Int("count", count).Msg("Exclusion reason")
	}
	return kept
}

// exclusionReason returns the first gate the lead fails, or empty. Gate
// order: website status, quality score, required fields, custom rules.
// Unchecked websites always pass the status gate.
func (f *Filter) exclusionReason(lead *models.Lead) string {
	switch lead.Website.Status {
	case models.WebsiteStatusNone:
		if !f.cfg.IncludeNoWebsite {
			return "website_keine"
		}
	case models.WebsiteStatusOld:
		if !f.cfg.IncludeOldWebsite {
			return "website_alt"
		}
	case models.WebsiteStatusModern:
		if !f.cfg.IncludeModernWebsite {
			return "website_modern"
		}
	case models.WebsiteStatusUnknown:
		if !f.cfg.IncludeUnknownWebsite {
			return "website_unbekannt"
		}
	}

	if f.cfg.MinQualityScore > 0 && lead.QualityScore() < f.cfg.MinQualityScore {
		return "qualitaet_zu_niedrig"
	}

	if f.cfg.RequirePhone && lead.Telefon == "" {
		return "telefon_fehlt"
	}
	if f.cfg.RequireEmail && lead.Email == "" {
		return "email_fehlt"
	}
	if f.cfg.RequireAddress && !lead.Adresse.IsComplete() {
		return "adresse_unvollstaendig"
	}

	for _, filter := range f.custom {
		if !filter.Keep(lead) {
			return filter.Name
		}
	}
	return ""
}

// BlacklistFilter drops leads whose name contains any blacklisted term
func BlacklistFilter(names []string) LeadFilter {
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}
	return LeadFilter{
		Name: "name_blacklist",
		Keep: func(lead *models.Lead) bool {
			name := strings.ToLower(lead.Firmenname)
			for _, term := range lowered {
				if strings.Contains(name, term) {
					return false
				}
			}
			return true
		},
	}
}

// WhitelistFilter keeps only leads whose trade matches a whitelisted term
func WhitelistFilter(categories []string) LeadFilter {
	lowered := make([]string, len(categories))
	for i, c := range categories {
		lowered[i] = strings.ToLower(c)
	}
	return LeadFilter{
		Name: "branche_nicht_erlaubt",
		Keep: func(lead *models.Lead) bool {
			branche := strings.ToLower(lead.Branche + " " + lead.BranchenZusatz)
			for _, term := range lowered {
				if strings.Contains(branche, term) {
					return true
				}
			}
			return false
		},
	}
}

// RegionFilter keeps only leads whose postal code starts with one of the
// given prefixes. Leads without a postal code pass.
func RegionFilter(prefixes []string) LeadFilter {
	return LeadFilter{
		Name: "ausserhalb_region",
		Keep: func(lead *models.Lead) bool {
			if lead.Adresse.PLZ == "" {
				return true
			}
			for _, prefix := range prefixes {
				if strings.HasPrefix(lead.Adresse.PLZ, prefix) {
					return true
				}
			}
			return false
		},
	}
}
