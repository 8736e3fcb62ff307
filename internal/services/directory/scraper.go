package directory

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
	"github.com/ternarybob/prospect/internal/services/ratelimit"
)

// Scraper walks directory search pages and enriches each hit from its
// detail page
type Scraper struct {
	fetcher interfaces.Fetcher
	cfg     common.ScraperConfig
	listing *ListingParser
	logger  arbor.ILogger
}

// NewScraper creates a directory scraper on top of a paced fetcher
func NewScraper(fetcher interfaces.Fetcher, cfg common.ScraperConfig, logger arbor.ILogger) *Scraper {
	return &Scraper{
		fetcher: fetcher,
		cfg:     cfg,
		listing: NewListingParser(logger),
		logger:  logger,
	}
}

// SearchURL builds the directory search URL for one result page. Page 1
// has no suffix; later pages append /seite-N.
func (s *Scraper) SearchURL(branche, stadt string, page int) string {
	base := fmt.Sprintf("%s/%s/%s",
		strings.TrimRight(s.cfg.DirectorySearchURL, "/"),
		url.PathEscape(strings.ToLower(branche)),
		url.PathEscape(strings.ToLower(stadt)),
	)
	if page > 1 {
		return fmt.Sprintf("%s/seite-%d", base, page)
	}
	return base
}

// Search collects listing stubs across result pages until maxPages or the
// pagination ends. Returns the listings and the number of pages fetched.
func (s *Scraper) Search(ctx context.Context, branche, stadt string, maxPages int) ([]*models.Listing, int, error) {
	var listings []*models.Listing
	pages := 0

	for page := 1; page <= maxPages; page++ {
		pageURL := s.SearchURL(branche, stadt, page)
		s.logger.Info().Str("url", pageURL).Int("page", page).Msg("Fetching search page")

		resp, err := s.fetcher.GetWithRetry(ctx, pageURL)
		if err != nil {
			return listings, pages, err
		}
		if !resp.Success {
			s.logger.Warn().Str("url", pageURL).Int("status", resp.StatusCode).Msg("Search page failed")
			if page == 1 {
				return nil, pages, fmt.Errorf("search page %d failed: %s", page, resp.Error)
			}
			break
		}
		pages++

		pageListings := s.listing.ParseSearch(resp.Body, pageURL)
		if len(pageListings) == 0 {
			s.logger.Debug().Int("page", page).Msg("Empty result page, stopping")
			break
		}
		listings = append(listings, pageListings...)

		pagination := s.listing.Pagination(resp.Body)
		if !pagination.HasNext && pagination.TotalPages <= page {
			break
		}
	}

	s.logger.Info().
		Str("branche", branche).
		Str("stadt", stadt).
		Int("listings", len(listings)).
		Int("pages", pages).
		Msg("Search finished")
	return listings, pages, nil
}

// ScrapeLeads runs a full directory scrape: search pages, then a detail
// fetch per listing, stopping at maxLeads. On the stealth session limit
// the leads collected so far are returned alongside the error.
func (s *Scraper) ScrapeLeads(ctx context.Context, branche, stadt string, maxLeads, maxPages int) ([]*models.Lead, int, error) {
	listings, pages, err := s.Search(ctx, branche, stadt, maxPages)
	if err != nil && len(listings) == 0 {
		return nil, pages, err
	}

	detail := NewDetailParser(stadt, branche, s.logger)
	var leads []*models.Lead

	for _, listing := range listings {
		if maxLeads > 0 && len(leads) >= maxLeads {
			break
		}

		lead, err := s.scrapeDetail(ctx, detail, listing, stadt, branche)
		if err != nil {
			if errors.Is(err, ratelimit.ErrSessionLimit) || errors.Is(err, context.Canceled) {
				return leads, pages, err
			}
			s.logger.Warn().Err(err).Str("url", listing.DetailURL).Msg("Detail scrape failed")
			continue
		}
		leads = append(leads, lead)
	}

	if err != nil {
		// Search aborted mid-way but some listings yielded leads.
		return leads, pages, err
	}
	return leads, pages, nil
}

// scrapeDetail fetches one detail page and merges listing-level data into
// any gaps. A failed or unparseable detail page degrades to the listing
// data alone.
func (s *Scraper) scrapeDetail(ctx context.Context, detail *DetailParser, listing *models.Listing, stadt, branche string) (*models.Lead, error) {
	if listing.DetailURL == "" {
		return s.listingToLead(listing, stadt, branche), nil
	}

	resp, err := s.fetcher.GetWithRetry(ctx, listing.DetailURL)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		s.logger.Debug().Str("url", listing.DetailURL).Int("status", resp.StatusCode).Msg("Detail page failed, using listing data")
		return s.listingToLead(listing, stadt, branche), nil
	}

	lead := detail.ParseDetail(resp.Body, resp.FinalURL)
	if lead == nil {
		return s.listingToLead(listing, stadt, branche), nil
	}

	s.fillFromListing(lead, listing)
	return lead, nil
}

// listingToLead builds a lead from search-result data alone
func (s *Scraper) listingToLead(listing *models.Listing, stadt, branche string) *models.Lead {
	brancheValue := listing.Branche
	if brancheValue == "" {
		brancheValue = branche
	}

	lead := models.NewLead(listing.Name, brancheValue, parseRawAddress(listing.AdresseRaw, stadt))
	lead.GelbeSeitenURL = listing.DetailURL
	lead.GelbeSeitenID = extractDetailID(listing.DetailURL)
	lead.SetTelefon(listing.Telefon)
	if listing.HatWebsite && listing.WebsiteURL != "" {
		lead.SetWebsiteURL(listing.WebsiteURL)
	}
	lead.Bewertung = listing.Bewertung
	lead.BewertungAnzahl = listing.BewertungAnzahl
	lead.AddSource(models.SourceGelbeSeiten)
	return lead
}

// fillFromListing fills detail-page gaps with search-result data
func (s *Scraper) fillFromListing(lead *models.Lead, listing *models.Listing) {
	if lead.Telefon == "" {
		lead.SetTelefon(listing.Telefon)
	}
	if lead.WebsiteURL == "" && listing.HatWebsite && listing.WebsiteURL != "" {
		lead.SetWebsiteURL(listing.WebsiteURL)
	}
	if lead.Bewertung == nil {
		lead.Bewertung = listing.Bewertung
	}
	if lead.BewertungAnzahl == nil {
		lead.BewertungAnzahl = listing.BewertungAnzahl
	}
	if lead.Branche == "" {
		lead.Branche = listing.Branche
	}
}

// parseRawAddress splits a one-line listing address into its parts
func parseRawAddress(raw, stadtFallback string) models.Address {
	addr := models.Address{Stadt: stadtFallback}
	raw = cleanText(raw)
	if raw == "" {
		return addr
	}

	if m := fullAddrPattern.FindStringSubmatch(raw); m != nil {
		street := strings.TrimRight(strings.TrimSpace(m[1]), ",")
		if sm := streetNoPattern.FindStringSubmatch(street); sm != nil {
			addr.Strasse = strings.TrimSpace(sm[1])
			addr.Hausnummer = strings.TrimSpace(sm[2])
		} else {
			addr.Strasse = street
		}
		addr.PLZ = m[2]
		addr.Stadt = m[3]
		return addr
	}

	if m := plzCityPattern.FindStringSubmatch(raw); m != nil {
		addr.PLZ = m[1]
		addr.Stadt = m[2]
		if idx := strings.Index(raw, m[0]); idx > 0 {
			street := strings.TrimRight(cleanText(raw[:idx]), ", ")
			if sm := streetNoPattern.FindStringSubmatch(street); sm != nil {
				addr.Strasse = strings.TrimSpace(sm[1])
				addr.Hausnummer = strings.TrimSpace(sm[2])
			} else if street != "" {
				addr.Strasse = street
			}
		}
	}
	return addr
}
