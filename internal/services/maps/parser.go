package maps

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/models"
)

// cardSelectors locate result cards in the rendered results panel, tried
// in order
var cardSelectors = []string{
	"div[data-result-index]",
	"div.Nv2PK",
	"a[data-cid]",
}

var cardNameSelectors = []string{
	".fontHeadlineSmall",
	".qBF1Pd",
	"[role='heading']",
}

var (
	ratingAriaPattern = regexp.MustCompile(`(\d[,.\d]*)\s*Sterne`)
	reviewCountInText = regexp.MustCompile(`\(([\d.]+)\)`)
	cidPattern        = regexp.MustCompile(`data-cid="(\d+)"`)
	placeIDPattern    = regexp.MustCompile(`!1s(0x[0-9a-f]+:0x[0-9a-f]+)`)
	hoursDayPattern   = regexp.MustCompile(`(Montag|Dienstag|Mittwoch|Donnerstag|Freitag|Samstag|Sonntag)[,:\s]+(\d{1,2}[:.]\d{2}[^;,]*?\d{1,2}[:.]\d{2}|[Gg]eschlossen)`)
	headlineRating    = regexp.MustCompile(`(\d[,.]\d)`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
)

// Parser extracts business data from rendered map pages. Only aggregate
// rating values are read; review texts, reviewer identities and photo
// metadata are never extracted.
type Parser struct {
	logger arbor.ILogger
}

// NewParser creates a map result parser
func NewParser(logger arbor.ILogger) *Parser {
	return &Parser{logger: logger}
}

// ParseSearch extracts listing stubs from the rendered results panel
func (p *Parser) ParseSearch(html, pageURL string) []*models.Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to parse map results HTML")
		return nil
	}

	var cards *goquery.Selection
	for _, selector := range cardSelectors {
		found := doc.Find(selector)
		if found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return nil
	}

	var listings []*models.Listing
	cards.Each(func(_ int, card *goquery.Selection) {
		if listing := p.parseCard(card); listing != nil {
			listings = append(listings, listing)
		}
	})

	p.logger.Debug().Int("listings", len(listings)).Msg("Parsed map results panel")
	return listings
}

func (p *Parser) parseCard(card *goquery.Selection) *models.Listing {
	name := cardName(card)
	if name == "" {
		return nil
	}

	listing := &models.Listing{
		Name:   name,
		Quelle: models.SourceGoogleMaps,
	}

	if link := card.Find("a[href*='/maps/place/']").First(); link.Length() > 0 {
		href, _ := link.Attr("href")
		listing.DetailURL = href
		listing.PlaceID = placeIDFromURL(href)
	} else if card.Is("a") {
		href, _ := card.Attr("href")
		listing.DetailURL = href
	}
	if cid, ok := card.Attr("data-cid"); ok && listing.PlaceID == "" {
		listing.PlaceID = cid
	}

	listing.Bewertung, listing.BewertungAnzahl = cardRating(card)

	// Cards interleave category and address in fontBodyMedium rows.
	card.Find(".fontBodyMedium, .W4Efsd").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		text := cleanText(row.Text())
		if text == "" || text == name {
			return true
		}
		if listing.Branche == "" && !strings.ContainsAny(text, "0123456789") {
			listing.Branche = strings.Trim(strings.SplitN(text, "·", 2)[0], " ·")
			return true
		}
		if listing.AdresseRaw == "" && strings.ContainsAny(text, "0123456789") {
			parts := strings.Split(text, "·")
			listing.AdresseRaw = strings.TrimSpace(parts[len(parts)-1])
		}
		return listing.Branche == "" || listing.AdresseRaw == ""
	})

	if phone := card.Find("span.UsdlK").First(); phone.Length() > 0 {
		listing.Telefon = cleanText(phone.Text())
	}

	if site := card.Find("a[data-value='Website'], a[aria-label*='Website']").First(); site.Length() > 0 {
		listing.HatWebsite = true
		if href, ok := site.Attr("href"); ok && strings.HasPrefix(href, "http") && !strings.Contains(href, "google.") {
			listing.WebsiteURL = href
		}
	}

	return listing
}

func cardName(card *goquery.Selection) string {
	for _, selector := range cardNameSelectors {
		if elem := card.Find(selector).First(); elem.Length() > 0 {
			if name := cleanText(elem.Text()); name != "" {
				return name
			}
		}
	}
	// Place links carry the business name as their aria-label.
	if label, ok := card.Find("a[aria-label]").First().Attr("aria-label"); ok {
		return cleanText(label)
	}
	if label, ok := card.Attr("aria-label"); ok {
		return cleanText(label)
	}
	return ""
}

// cardRating reads the aggregate star rating and review count. Ratings use
// the German decimal comma in aria-labels.
func cardRating(card *goquery.Selection) (*float64, *int) {
	var rating *float64
	var count *int

	span := card.Find("span[role='img'][aria-label*='Sterne'], span.MW4etd").First()
	text := span.AttrOr("aria-label", "")
	if text == "" {
		text = span.Text()
	}
	if m := ratingAriaPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil && v >= 0 && v <= 5 {
			rating = &v
		}
	} else if v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(text), ",", "."), 64); err == nil && v >= 0 && v <= 5 && text != "" {
		rating = &v
	}

	countText := card.Find("span.UY7F9").First().Text()
	if countText == "" {
		countText = card.Text()
	}
	if m := reviewCountInText.FindStringSubmatch(countText); m != nil {
		if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ".", "")); err == nil {
			count = &n
		}
	}

	return rating, count
}

// ParseDetail extracts a lead from a rendered place page, or nil when no
// business name is present
func (p *Parser) ParseDetail(html, pageURL string) *models.Lead {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to parse place HTML")
		return nil
	}

	name := cleanText(doc.Find("h1.DUwDvf").First().Text())
	if name == "" {
		name = cleanText(doc.Find("h1").First().Text())
	}
	if name == "" {
		return nil
	}

	branche := cleanText(doc.Find("button[jsaction*='category']").First().Text())

	lead := models.NewLead(name, branche, parsePlaceAddress(doc))
	lead.GoogleMapsURL = pageURL
	lead.GoogleMapsPlaceID = placeIDFromURL(pageURL)
	if lead.GoogleMapsPlaceID == "" {
		if m := cidPattern.FindStringSubmatch(html); m != nil {
			lead.GoogleMapsPlaceID = m[1]
		}
	}

	if phone := itemValue(doc, "phone"); phone != "" {
		lead.SetTelefon(phone)
	}
	if site := doc.Find("a[data-item-id='authority']").First(); site.Length() > 0 {
		if href, ok := site.Attr("href"); ok {
			lead.SetWebsiteURL(href)
		}
	}
	lead.Oeffnungszeiten = parsePlaceHours(doc)

	if ratingText := doc.Find("div.F7nice").First().Text(); ratingText != "" {
		if m := headlineRating.FindStringSubmatch(ratingText); m != nil {
			if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
				lead.Bewertung = &v
			}
		}
		if m := reviewCountInText.FindStringSubmatch(ratingText); m != nil {
			if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ".", "")); err == nil {
				lead.BewertungAnzahl = &n
			}
		}
	}

	lead.AddSource(models.SourceGoogleMaps)
	return lead
}

// itemValue reads the text of the action row identified by data-item-id
func itemValue(doc *goquery.Document, prefix string) string {
	var value string
	doc.Find("button[data-item-id], div[data-item-id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("data-item-id")
		if strings.HasPrefix(id, prefix) {
			value = cleanText(s.AttrOr("aria-label", s.Text()))
			// aria-labels read "Telefonnummer: 0231 12345".
			if idx := strings.IndexByte(value, ':'); idx >= 0 && !strings.ContainsAny(value[:idx], "0123456789") {
				value = strings.TrimSpace(value[idx+1:])
			}
			return false
		}
		return true
	})
	return value
}

var plzCityInAddr = regexp.MustCompile(`(\d{5})\s+([A-Za-zäöüßÄÖÜ\-]+)`)
var streetNoInAddr = regexp.MustCompile(`^(.*?)\s+(\d+\s*[a-zA-Z]?)$`)

func parsePlaceAddress(doc *goquery.Document) models.Address {
	var addr models.Address

	raw := itemValue(doc, "address")
	if raw == "" {
		return addr
	}

	parts := strings.Split(raw, ",")
	if m := plzCityInAddr.FindStringSubmatch(raw); m != nil {
		addr.PLZ = m[1]
		addr.Stadt = m[2]
	}
	street := strings.TrimSpace(parts[0])
	if m := streetNoInAddr.FindStringSubmatch(street); m != nil {
		addr.Strasse = strings.TrimSpace(m[1])
		addr.Hausnummer = strings.TrimSpace(m[2])
	} else if street != "" && !plzCityInAddr.MatchString(street) {
		addr.Strasse = street
	}
	return addr
}

func parsePlaceHours(doc *goquery.Document) map[string]string {
	table := doc.Find("table.eK4R0e, div[aria-label*='ffnungszeiten']").First()
	text := table.AttrOr("aria-label", "")
	if text == "" {
		text = table.Text()
	}
	if text == "" {
		return nil
	}

	hours := make(map[string]string)
	for _, m := range hoursDayPattern.FindAllStringSubmatch(text, -1) {
		value := cleanText(m[2])
		if strings.EqualFold(value, "geschlossen") {
			value = "geschlossen"
		}
		hours[m[1]] = value
	}
	if len(hours) == 0 {
		return nil
	}
	return hours
}

// placeIDFromURL extracts the hex place id pair from a place URL
func placeIDFromURL(rawURL string) string {
	decoded, err := url.QueryUnescape(rawURL)
	if err != nil {
		decoded = rawURL
	}
	if m := placeIDPattern.FindStringSubmatch(decoded); m != nil {
		return m[1]
	}
	return ""
}

func cleanText(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
