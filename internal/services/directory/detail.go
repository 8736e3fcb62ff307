package directory

import (
	"regexp"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/models"
)

var detailNameSelectors = []string{
	"h1[itemprop='name']",
	"h1.mod-TeilnehmerKopf__name",
	"h1",
}

var detailAddressSelectors = []string{
	"address",
	"[itemprop='address']",
	".mod-TeilnehmerKopf__adresse",
	".adresse",
}

var detailDescriptionSelectors = []string{
	"[itemprop='description']",
	".mod-Beschreibung",
	".beschreibung",
	".description",
}

var (
	faxLabelPattern  = regexp.MustCompile(`(?i)Fax[:\s]*([\d\s\-/]+\d)`)
	emailPattern     = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	streetNoPattern  = regexp.MustCompile(`^(.*?)\s+(\d+\s*[a-zA-Z]?(?:\s*[-/]\s*\d+\s*[a-zA-Z]?)?)$`)
	hoursRowPattern  = regexp.MustCompile(`(Mo|Di|Mi|Do|Fr|Sa|So)\.?(?:\s*[-–]\s*(Mo|Di|Mi|Do|Fr|Sa|So)\.?)?\s*:?\s*(\d{1,2}[:.]\d{2})\s*[-–]\s*(\d{1,2}[:.]\d{2})`)
	timeDotSeparator = regexp.MustCompile(`(\d{1,2})\.(\d{2})`)
)

// weekdayNames maps the abbreviated labels used on detail pages to the full
// names the export carries
var weekdayNames = map[string]string{
	"Mo": "Montag",
	"Di": "Dienstag",
	"Mi": "Mittwoch",
	"Do": "Donnerstag",
	"Fr": "Freitag",
	"Sa": "Samstag",
	"So": "Sonntag",
}

var weekdayOrder = []string{"Mo", "Di", "Mi", "Do", "Fr", "Sa", "So"}

const descriptionLimit = 500

// DetailParser extracts a full lead from a directory detail page. Stadt and
// Branche act as fallbacks when the page itself omits them.
type DetailParser struct {
	stadt     string
	branche   string
	converter *md.Converter
	logger    arbor.ILogger
}

// NewDetailParser creates a detail parser with search-context fallbacks
func NewDetailParser(stadt, branche string, logger arbor.ILogger) *DetailParser {
	return &DetailParser{
		stadt:     stadt,
		branche:   branche,
		converter: md.NewConverter("", true, nil),
		logger:    logger,
	}
}

// ParseDetail extracts a lead from one detail page, or nil when no business
// name can be found
func (p *DetailParser) ParseDetail(html, pageURL string) *models.Lead {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to parse detail HTML")
		return nil
	}

	name := firstText(doc.Selection, detailNameSelectors)
	if name == "" {
		p.logger.Debug().Str("url", pageURL).Msg("Detail page without business name")
		return nil
	}

	branche := firstText(doc.Selection, brancheSelectors)
	if branche == "" {
		branche = p.branche
	}

	lead := models.NewLead(name, branche, p.parseAddress(doc))
	lead.GelbeSeitenURL = pageURL
	lead.GelbeSeitenID = extractDetailID(pageURL)

	lead.SetTelefon(extractDetailPhone(doc))
	lead.Fax = extractFax(doc)
	lead.SetEmail(extractEmail(doc))
	if websiteURL := extractDetailWebsite(doc); websiteURL != "" {
		lead.SetWebsiteURL(websiteURL)
	}
	lead.Oeffnungszeiten = extractOpeningHours(doc)
	lead.Beschreibung = p.extractDescription(doc)
	lead.AddSource(models.SourceGelbeSeiten)

	return lead
}

func (p *DetailParser) parseAddress(doc *goquery.Document) models.Address {
	addr := models.Address{Stadt: p.stadt}

	var container *goquery.Selection
	for _, selector := range detailAddressSelectors {
		if found := doc.Find(selector).First(); found.Length() > 0 {
			container = found
			break
		}
	}
	if container == nil {
		return addr
	}

	street := cleanText(container.Find("[itemprop='streetAddress']").First().Text())
	plz := cleanText(container.Find("[itemprop='postalCode']").First().Text())
	city := cleanText(container.Find("[itemprop='addressLocality']").First().Text())

	// No microdata: fall back on the container text.
	if street == "" && plz == "" {
		text := cleanText(container.Text())
		if m := fullAddrPattern.FindStringSubmatch(text); m != nil {
			street, plz, city = m[1], m[2], m[3]
		} else if m := plzCityPattern.FindStringSubmatch(text); m != nil {
			plz, city = m[1], m[2]
		}
	}

	if street != "" {
		if m := streetNoPattern.FindStringSubmatch(street); m != nil {
			addr.Strasse = strings.TrimRight(strings.TrimSpace(m[1]), ",")
			addr.Hausnummer = strings.TrimSpace(m[2])
		} else {
			addr.Strasse = street
		}
	}
	if plz != "" {
		addr.PLZ = plz
	}
	if city != "" {
		addr.Stadt = city
	}
	return addr
}

func extractDetailPhone(doc *goquery.Document) string {
	if href, ok := doc.Find("a[href^='tel:']").First().Attr("href"); ok {
		return strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
	}
	if phone := cleanText(doc.Find("[itemprop='telephone']").First().Text()); phone != "" {
		return phone
	}
	if m := phoneTextPattern.FindStringSubmatch(doc.Text()); m != nil {
		phone := strings.TrimSpace(m[1])
		if countDigits(phone) >= 6 {
			return phone
		}
	}
	return ""
}

func extractFax(doc *goquery.Document) string {
	if fax := cleanText(doc.Find("[itemprop='faxNumber']").First().Text()); fax != "" {
		return fax
	}
	if m := faxLabelPattern.FindStringSubmatch(doc.Text()); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractEmail(doc *goquery.Document) string {
	if href, ok := doc.Find("a[href^='mailto:']").First().Attr("href"); ok {
		email := strings.TrimPrefix(href, "mailto:")
		// mailto links carry subject/body query parameters.
		if idx := strings.IndexByte(email, '?'); idx >= 0 {
			email = email[:idx]
		}
		return strings.TrimSpace(email)
	}
	if m := emailPattern.FindString(doc.Text()); m != "" {
		return m
	}
	return ""
}

func extractDetailWebsite(doc *goquery.Document) string {
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")

		if strings.Contains(href, "redirect") || strings.Contains(href, "url=") {
			if target := unwrapRedirect(href); target != "" && !strings.Contains(target, "gelbeseiten.de") {
				found = target
				return false
			}
			return true
		}

		class, _ := link.Attr("class")
		label := strings.ToLower(link.Text() + " " + class + " " + link.AttrOr("data-wipe-name", ""))
		if (strings.Contains(label, "website") || strings.Contains(label, "homepage")) &&
			strings.HasPrefix(href, "http") && !strings.Contains(href, "gelbeseiten.de") {
			found = href
			return false
		}
		return true
	})
	return found
}

// extractOpeningHours collects weekday hour ranges keyed by full weekday name
func extractOpeningHours(doc *goquery.Document) map[string]string {
	container := doc.Find(".mod-Oeffnungszeiten, .oeffnungszeiten, [itemprop='openingHours']").First()
	text := container.Text()
	if text == "" {
		text = doc.Text()
	}

	hours := make(map[string]string)
	for _, m := range hoursRowPattern.FindAllStringSubmatch(text, -1) {
		from, to := m[1], m[2]
		open := timeDotSeparator.ReplaceAllString(m[3], "$1:$2")
		close := timeDotSeparator.ReplaceAllString(m[4], "$1:$2")
		value := open + " - " + close

		if to == "" {
			hours[weekdayNames[from]] = value
			continue
		}
		// Ranged rows like "Mo-Fr" expand to each covered weekday.
		inRange := false
		for _, day := range weekdayOrder {
			if day == from {
				inRange = true
			}
			if inRange {
				hours[weekdayNames[day]] = value
			}
			if day == to {
				break
			}
		}
	}

	if len(hours) == 0 {
		return nil
	}
	return hours
}

func (p *DetailParser) extractDescription(doc *goquery.Document) string {
	for _, selector := range detailDescriptionSelectors {
		elem := doc.Find(selector).First()
		if elem.Length() == 0 {
			continue
		}

		inner, err := elem.Html()
		var text string
		if err == nil && p.converter != nil {
			if converted, convErr := p.converter.ConvertString(inner); convErr == nil {
				text = cleanText(converted)
			}
		}
		if text == "" {
			text = cleanText(elem.Text())
		}

		if len(text) <= 20 {
			continue
		}
		if len(text) > descriptionLimit {
			cut := descriptionLimit - 3
			// Back off to a rune boundary; umlauts are multi-byte.
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut] + "..."
		}
		return text
	}
	return ""
}

// extractDetailID derives a stable directory id from the detail URL path
func extractDetailID(pageURL string) string {
	trimmed := strings.TrimRight(pageURL, "/")
	idx := strings.LastIndexByte(trimmed, '/')
	if idx < 0 {
		return ""
	}
	last := trimmed[idx+1:]
	// Strip query/fragment noise.
	if i := strings.IndexAny(last, "?#"); i >= 0 {
		last = last[:i]
	}
	return last
}
