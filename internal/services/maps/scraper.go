package maps

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
	"github.com/ternarybob/prospect/internal/services/ratelimit"
)

// SearchBaseURL is the map search endpoint
const SearchBaseURL = "https://www.google.com/maps/search/"

// Host is the rate-governor host class for map traffic
const Host = "www.google.com"

// resultsPanelSelectors locate the scrollable results feed
var resultsPanelSelectors = []string{
	"div[role='feed']",
	"div.m6QErb",
}

// consentSelectors match the cookie-consent button shown on first visits
var consentSelectors = []string{
	"button[aria-label*='Alle ablehnen']",
	"button[aria-label*='Reject all']",
	"form[action*='consent'] button",
}

// Scraper drives a headless browser over map search results. Result cards
// load lazily, so the feed is scrolled until no new businesses appear.
type Scraper struct {
	browser  interfaces.Browser
	governor *ratelimit.Governor
	cfg      common.BrowserConfig
	parser   *Parser
	logger   arbor.ILogger
}

// NewScraper creates a map scraper on top of a browser surface
func NewScraper(browser interfaces.Browser, governor *ratelimit.Governor, cfg common.BrowserConfig, logger arbor.ILogger) *Scraper {
	return &Scraper{
		browser:  browser,
		governor: governor,
		cfg:      cfg,
		parser:   NewParser(logger),
		logger:   logger,
	}
}

// SearchURL builds the map search URL for a trade in a city
func (s *Scraper) SearchURL(branche, stadt string) string {
	query := strings.ToLower(branche) + " " + strings.ToLower(stadt)
	return SearchBaseURL + url.PathEscape(query)
}

// Search collects listing stubs for one query, scrolling the results feed
// until maxLeads is reached or no new results load
func (s *Scraper) Search(ctx context.Context, branche, stadt string, maxLeads int) ([]*models.Listing, error) {
	searchURL := s.SearchURL(branche, stadt)

	if _, err := s.governor.Acquire(ctx, Host); err != nil {
		return nil, err
	}

	s.logger.Info().Str("url", searchURL).Msg("Loading map search")
	resp, err := s.browser.Navigate(ctx, searchURL, true)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("map search failed: %s", resp.Error)
	}
	s.dismissConsent(ctx)

	panel := s.waitForPanel(ctx)
	if panel == "" {
		// Single-result queries redirect straight to the place page.
		html, err := s.browser.Content(ctx)
		if err != nil {
			return nil, err
		}
		if lead := s.parser.ParseDetail(html, resp.FinalURL); lead != nil {
			return []*models.Listing{{
				Name:      lead.Firmenname,
				DetailURL: resp.FinalURL,
				PlaceID:   lead.GoogleMapsPlaceID,
				Quelle:    models.SourceGoogleMaps,
			}}, nil
		}
		return nil, nil
	}

	seen := make(map[string]bool)
	var listings []*models.Listing

	for scroll := 0; scroll <= s.cfg.MaxScrollAttempts; scroll++ {
		html, err := s.browser.Content(ctx)
		if err != nil {
			return listings, err
		}

		added := 0
		for _, listing := range s.parser.ParseSearch(html, searchURL) {
			key := strings.ToLower(listing.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			listings = append(listings, listing)
			added++
		}

		if maxLeads > 0 && len(listings) >= maxLeads {
			listings = listings[:maxLeads]
			break
		}
		if scroll == s.cfg.MaxScrollAttempts {
			break
		}

		scrolled := s.browser.ScrollWithin(ctx, panel, s.cfg.ScrollPause, 1)
		if scrolled == 0 && added == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return listings, err
		}
	}

	s.logger.Info().
		Str("branche", branche).
		Str("stadt", stadt).
		Int("listings", len(listings)).
		Msg("Map search finished")
	return listings, nil
}

// ScrapeLeads runs a full map scrape: the search feed, then a place-page
// visit per listing. On the stealth session limit the leads collected so
// far are returned alongside the error.
func (s *Scraper) ScrapeLeads(ctx context.Context, branche, stadt string, maxLeads int) ([]*models.Lead, error) {
	listings, err := s.Search(ctx, branche, stadt, maxLeads)
	if err != nil && len(listings) == 0 {
		return nil, err
	}

	var leads []*models.Lead
	for _, listing := range listings {
		if maxLeads > 0 && len(leads) >= maxLeads {
			break
		}

		lead, err := s.scrapePlace(ctx, listing, stadt, branche)
		if err != nil {
			if errors.Is(err, ratelimit.ErrSessionLimit) || errors.Is(err, context.Canceled) {
				return leads, err
			}
			s.logger.Warn().Err(err).Str("name", listing.Name).Msg("Place scrape failed")
			continue
		}
		if lead != nil {
			leads = append(leads, lead)
		}
	}
	return leads, nil
}

func (s *Scraper) scrapePlace(ctx context.Context, listing *models.Listing, stadt, branche string) (*models.Lead, error) {
	if listing.DetailURL == "" {
		return s.listingToLead(listing, stadt, branche), nil
	}

	if _, err := s.governor.Acquire(ctx, Host); err != nil {
		return nil, err
	}

	resp, err := s.browser.Navigate(ctx, listing.DetailURL, true)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		s.logger.Debug().Str("url", listing.DetailURL).Msg("Place page failed, using card data")
		return s.listingToLead(listing, stadt, branche), nil
	}

	// The place panel renders after navigation settles.
	s.browser.WaitForSelector(ctx, "h1", 5*time.Second)
	html, err := s.browser.Content(ctx)
	if err != nil {
		return nil, err
	}

	lead := s.parser.ParseDetail(html, resp.FinalURL)
	if lead == nil {
		return s.listingToLead(listing, stadt, branche), nil
	}

	if lead.Adresse.Stadt == "" {
		lead.Adresse.Stadt = stadt
	}
	if lead.Branche == "" {
		lead.Branche = branche
	}
	if lead.Telefon == "" {
		lead.SetTelefon(listing.Telefon)
	}
	if lead.Bewertung == nil {
		lead.Bewertung = listing.Bewertung
		lead.BewertungAnzahl = listing.BewertungAnzahl
	}
	return lead, nil
}

func (s *Scraper) listingToLead(listing *models.Listing, stadt, branche string) *models.Lead {
	brancheValue := listing.Branche
	if brancheValue == "" {
		brancheValue = branche
	}

	lead := models.NewLead(listing.Name, brancheValue, models.Address{Stadt: stadt})
	lead.GoogleMapsURL = listing.DetailURL
	lead.GoogleMapsPlaceID = listing.PlaceID
	lead.SetTelefon(listing.Telefon)
	if listing.WebsiteURL != "" {
		lead.SetWebsiteURL(listing.WebsiteURL)
	}
	lead.Bewertung = listing.Bewertung
	lead.BewertungAnzahl = listing.BewertungAnzahl
	lead.AddSource(models.SourceGoogleMaps)
	return lead
}

func (s *Scraper) dismissConsent(ctx context.Context) {
	for _, selector := range consentSelectors {
		if s.browser.Click(ctx, selector) {
			s.logger.Debug().Str("selector", selector).Msg("Dismissed consent dialog")
			return
		}
	}
}

func (s *Scraper) waitForPanel(ctx context.Context) string {
	for _, selector := range resultsPanelSelectors {
		if s.browser.WaitForSelector(ctx, selector, 5*time.Second) {
			return selector
		}
	}
	return ""
}
