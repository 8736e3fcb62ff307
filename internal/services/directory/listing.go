package directory

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/models"
)

// BaseURL is the directory origin; relative detail links resolve against it.
const BaseURL = "https://www.gelbeseiten.de"

// articleSelectors locate result cards, tried in order. The directory has
// shipped several card markups over time; treat this table as configuration.
var articleSelectors = []string{
	"article[data-realid]",
	"article.mod-Treffer",
	"article.teilnehmer",
	"div.mod-Treffer",
	"[data-teilnehmerid]",
}

var nameSelectors = []string{
	"h2 a",
	"h2.mod-Treffer__name a",
	"a.mod-Treffer--bestEntryLink",
	"a.gs-name",
	"a[data-wipe-name='Name']",
	".name a",
	"h2",
	"h3 a",
}

var phoneSelectors = []string{
	"a[href^='tel:']",
	"span.mod-Treffer__phoneNumber",
	"[data-wipe-name='Anruf']",
	".phone",
	".telefon",
}

var addressSelectors = []string{
	"address",
	".mod-Treffer__address",
	".address",
	".adresse",
	"[itemprop='address']",
}

var brancheSelectors = []string{
	".mod-Treffer__branchen",
	".branchen",
	".branche",
	".category",
	"[itemprop='description']",
}

var websiteSelectors = []string{
	"a[data-wipe-name='Website']",
	"a.mod-Treffer__link--website",
	"a.website",
	"a[href*='redirect']",
}

var ratingSelectors = []string{
	".mod-Treffer__bewertung",
	".bewertung",
	".rating",
	"[itemprop='ratingValue']",
}

var (
	plzCityPattern    = regexp.MustCompile(`(\d{5})\s+([A-Za-zäöüßÄÖÜ\-]+)`)
	fullAddrPattern   = regexp.MustCompile(`(?i)([A-Za-zäöüßÄÖÜ.\-]+\s*(?:str\.|straße|weg|platz|allee|gasse)?\s*\d+[a-zA-Z]?)[,\s]+(\d{5})\s+([A-Za-zäöüßÄÖÜ\-]+)`)
	phoneTextPattern  = regexp.MustCompile(`(?:Tel\.?|Telefon)?[:\s]*([\d\s\-/]+\d)`)
	phoneDigitRun     = regexp.MustCompile(`(\d[\d\s\-/]+){6,}`)
	redirectURLParam  = regexp.MustCompile(`[?&]url=([^&]+)`)
	ratingValue       = regexp.MustCompile(`(\d[,.\d]*)`)
	ratingCount       = regexp.MustCompile(`\((\d+)\)|(\d+)\s*Bewertung`)
	seitePathPattern  = regexp.MustCompile(`seite-(\d+)`)
	totalCountPattern = regexp.MustCompile(`([\d.]+)\s*(?:Treffer|Ergebnisse|Einträge)`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
	nonPhoneChars     = regexp.MustCompile(`[^\d\s+\-/()]`)
)

// ListingParser extracts business stubs from directory search-result pages
type ListingParser struct {
	logger arbor.ILogger

	parsedCount int
	errorCount  int
}

// NewListingParser creates a listing parser
func NewListingParser(logger arbor.ILogger) *ListingParser {
	return &ListingParser{logger: logger}
}

// ParseSearch extracts all listing stubs from one search-result page
func (p *ListingParser) ParseSearch(html, pageURL string) []*models.Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to parse search HTML")
		return nil
	}

	var articles *goquery.Selection
	for _, selector := range articleSelectors {
		found := doc.Find(selector)
		if found.Length() > 0 {
			p.logger.Debug().Str("selector", selector).Int("count", found.Length()).Msg("Found result cards")
			articles = found
			break
		}
	}
	if articles == nil {
		articles = findArticlesFallback(doc)
	}

	var listings []*models.Listing
	articles.Each(func(_ int, article *goquery.Selection) {
		listing := p.parseArticle(article)
		if listing != nil {
			listings = append(listings, listing)
			p.parsedCount++
		} else {
			p.errorCount++
		}
	})

	p.logger.Debug().Int("listings", len(listings)).Str("url", pageURL).Msg("Parsed search page")
	return listings
}

// findArticlesFallback scans generic containers that expose both a title
// element and either a postal code or a phone-like digit run
func findArticlesFallback(doc *goquery.Document) *goquery.Selection {
	return doc.Find("article, div, li").FilterFunction(func(_ int, s *goquery.Selection) bool {
		hasName := s.Find("h2, h3, a").FilterFunction(func(_ int, e *goquery.Selection) bool {
			class, _ := e.Attr("class")
			lower := strings.ToLower(class)
			return strings.Contains(lower, "name") || strings.Contains(lower, "title") || strings.Contains(lower, "firma")
		}).Length() > 0
		if !hasName {
			return false
		}
		text := s.Text()
		return plzCityPattern.MatchString(text) || phoneDigitRun.MatchString(text)
	})
}

func (p *ListingParser) parseArticle(article *goquery.Selection) *models.Listing {
	name, detailURL := extractNameAndURL(article)
	if name == "" || detailURL == "" {
		return nil
	}

	hatWebsite, websiteURL := extractWebsite(article)
	bewertung, anzahl := extractRating(article)

	return &models.Listing{
		Name:            name,
		DetailURL:       detailURL,
		Telefon:         extractListingPhone(article),
		AdresseRaw:      extractListingAddress(article),
		Branche:         firstText(article, brancheSelectors),
		HatWebsite:      hatWebsite,
		WebsiteURL:      websiteURL,
		Bewertung:       bewertung,
		BewertungAnzahl: anzahl,
		Quelle:          models.SourceGelbeSeiten,
	}
}

func extractNameAndURL(article *goquery.Selection) (string, string) {
	var name, href string

	for _, selector := range nameSelectors {
		elem := article.Find(selector).First()
		if elem.Length() == 0 {
			continue
		}
		name = cleanText(elem.Text())

		if elem.Is("a") {
			href, _ = elem.Attr("href")
		} else if link := elem.Find("a").First(); link.Length() > 0 {
			href, _ = link.Attr("href")
		} else if parent := elem.Parent(); parent.Is("a") {
			href, _ = parent.Attr("href")
		}
		break
	}

	// Name without link: look for the entry's main detail link.
	if name != "" && href == "" {
		linkSelectors := []string{
			"a[href*='/gsbiz/']",
			"a[data-realid]",
			"a[data-tnid]",
			"a[href*='gelbeseiten.de']",
		}
		for _, selector := range linkSelectors {
			link := article.Find(selector).First()
			if link.Length() == 0 {
				continue
			}
			candidate, _ := link.Attr("href")
			if strings.Contains(candidate, "/gsbiz/") ||
				(strings.HasPrefix(candidate, "/") && !strings.Contains(candidate, "redirect")) {
				href = candidate
				break
			}
		}
	}

	if href != "" && !strings.HasPrefix(href, "http") {
		base, _ := url.Parse(BaseURL)
		if rel, err := url.Parse(href); err == nil {
			href = base.ResolveReference(rel).String()
		}
	}

	return name, href
}

func extractListingPhone(article *goquery.Selection) string {
	for _, selector := range phoneSelectors {
		elem := article.Find(selector).First()
		if elem.Length() == 0 {
			continue
		}
		phone := strings.TrimSpace(nonPhoneChars.ReplaceAllString(elem.Text(), ""))
		if countDigits(phone) >= 6 {
			return cleanText(phone)
		}
	}

	if m := phoneTextPattern.FindStringSubmatch(article.Text()); m != nil {
		phone := strings.TrimSpace(m[1])
		if countDigits(phone) >= 6 {
			return phone
		}
	}
	return ""
}

func extractListingAddress(article *goquery.Selection) string {
	if addr := firstText(article, addressSelectors); addr != "" {
		return addr
	}

	text := article.Text()
	if m := fullAddrPattern.FindStringSubmatch(text); m != nil {
		return m[1] + ", " + m[2] + " " + m[3]
	}
	if m := plzCityPattern.FindStringSubmatch(text); m != nil {
		return m[1] + " " + m[2]
	}
	return ""
}

// extractWebsite reports whether the listing advertises a website and, when
// the directory exposes its wrapping redirect parameter, the decoded URL
func extractWebsite(article *goquery.Selection) (bool, string) {
	for _, selector := range websiteSelectors {
		elem := article.Find(selector).First()
		if elem.Length() == 0 {
			continue
		}
		href, _ := elem.Attr("href")

		if strings.Contains(href, "redirect") || strings.Contains(href, "url=") {
			if target := unwrapRedirect(href); target != "" {
				return true, target
			}
		} else if strings.HasPrefix(href, "http") && !strings.Contains(href, "gelbeseiten.de") {
			return true, href
		}
		// Website link present, URL not extractable.
		return true, ""
	}

	lower := strings.ToLower(article.Text())
	if strings.Contains(lower, "website") || strings.Contains(lower, "homepage") {
		return true, ""
	}
	return false, ""
}

// unwrapRedirect decodes the directory's ?url=<encoded> redirect parameter
func unwrapRedirect(href string) string {
	m := redirectURLParam.FindStringSubmatch(href)
	if m == nil {
		return ""
	}
	if decoded, err := url.QueryUnescape(m[1]); err == nil {
		return decoded
	}
	return m[1]
}

func extractRating(article *goquery.Selection) (*float64, *int) {
	for _, selector := range ratingSelectors {
		elem := article.Find(selector).First()
		if elem.Length() == 0 {
			continue
		}
		text := elem.Text()

		var rating *float64
		if m := ratingValue.FindStringSubmatch(text); m != nil {
			if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
				v = clampRating(v)
				rating = &v
			}
		}

		var count *int
		if m := ratingCount.FindStringSubmatch(text); m != nil {
			raw := m[1]
			if raw == "" {
				raw = m[2]
			}
			if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
				count = &n
			}
		}
		return rating, count
	}
	return nil, nil
}

// Pagination extracts the paging state of a search-result page
func (p *ListingParser) Pagination(html string) models.Pagination {
	result := models.Pagination{CurrentPage: 1, TotalPages: 1}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return result
	}

	pagination := doc.Find(".mod-Pagination, .pagination, nav[aria-label*='Seite']").First()
	if pagination.Length() > 0 {
		current := pagination.Find(".current, .active, [aria-current='page']").First()
		if n, err := strconv.Atoi(strings.TrimSpace(current.Text())); err == nil {
			result.CurrentPage = n
		}

		pagination.Find("a[href*='seite']").Each(func(_ int, link *goquery.Selection) {
			if n, err := strconv.Atoi(strings.TrimSpace(link.Text())); err == nil && n > result.TotalPages {
				result.TotalPages = n
			}
		})

		result.HasNext = pagination.Find("a[rel='next'], a.next").Length() > 0
	}

	// Fallback on the URL pattern the directory uses for page links.
	if result.TotalPages == 1 {
		if href, ok := doc.Find("a[href*='seite-']").First().Attr("href"); ok {
			if m := seitePathPattern.FindStringSubmatch(href); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n > result.TotalPages {
					result.TotalPages = n
					result.HasNext = true
				}
			}
		}
	}

	return result
}

// TotalResults extracts the advertised total result count, or nil
func (p *ListingParser) TotalResults(html string) *int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	for _, selector := range []string{".mod-Suche__headline", ".result-count", ".treffer-anzahl"} {
		elem := doc.Find(selector).First()
		if elem.Length() == 0 {
			continue
		}
		if m := totalCountPattern.FindStringSubmatch(elem.Text()); m != nil {
			if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ".", "")); err == nil {
				return &n
			}
		}
	}
	return nil
}

// Stats returns parsed/error counters
func (p *ListingParser) Stats() (parsed, errors int) {
	return p.parsedCount, p.errorCount
}

func firstText(s *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		elem := s.Find(selector).First()
		if elem.Length() == 0 {
			continue
		}
		if text := cleanText(elem.Text()); text != "" {
			return text
		}
	}
	return ""
}

func cleanText(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func clampRating(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}
