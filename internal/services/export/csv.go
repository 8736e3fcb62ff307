package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/models"
)

// Column presets. German Excel expects the semicolon delimiter and a
// UTF-8 BOM.
var (
	MinimalColumns = []string{
		"firmenname", "branche", "telefon", "email", "website_url",
		"website_status", "plz", "stadt", "qualitaet_score",
	}

	DefaultColumns = []string{
		"firmenname", "branche", "telefon", "email", "website_url",
		"website_status", "strasse", "hausnummer", "plz", "stadt",
		"bundesland", "adresse_formatiert", "bewertung", "bewertung_anzahl",
		"qualitaet_score", "gelbe_seiten_url", "scrape_datum",
	}

	FullColumns = []string{
		"firmenname", "branche", "branchen_zusatz", "beschreibung",
		"telefon", "telefon_zusatz", "fax", "email", "website_url",
		"website_status", "website_signale", "strasse", "hausnummer",
		"plz", "stadt", "bundesland", "adresse_formatiert", "bewertung",
		"bewertung_anzahl", "oeffnungszeiten", "qualitaet_score",
		"gelbe_seiten_url", "gelbe_seiten_id", "scrape_datum",
	}
)

const (
	csvDescriptionLimit = 200
	csvMaxSignals       = 5
	csvDateFormat       = "2006-01-02 15:04"
)

// Columns resolves a preset name to its column list
func Columns(preset string) []string {
	switch preset {
	case "minimal":
		return MinimalColumns
	case "full":
		return FullColumns
	default:
		return DefaultColumns
	}
}

// CSVExporter writes leads as semicolon-delimited CSV
type CSVExporter struct {
	columns []string
	logger  arbor.ILogger
}

// NewCSVExporter creates a CSV exporter for a column preset
func NewCSVExporter(preset string, logger arbor.ILogger) *CSVExporter {
	return &CSVExporter{columns: Columns(preset), logger: logger}
}

// Export writes the leads to path
func (e *CSVExporter) Export(leads []*models.Lead, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export %s: %w", path, err)
	}
	defer f.Close()

	// BOM keeps Excel from misreading umlauts.
	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	w := csv.NewWriter(f)
	w.Comma = ';'

	if err := w.Write(e.columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, lead := range leads {
		if err := w.Write(e.row(lead)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}

	e.logger.Info().Int("leads", len(leads)).Str("file", path).Msg("CSV export written")
	return nil
}

func (e *CSVExporter) row(lead *models.Lead) []string {
	values := make([]string, len(e.columns))
	for i, column := range e.columns {
		values[i] = fieldValue(lead, column)
	}
	return values
}

func fieldValue(lead *models.Lead, column string) string {
	switch column {
	case "firmenname":
		return lead.Firmenname
	case "branche":
		return lead.Branche
	case "branchen_zusatz":
		return lead.BranchenZusatz
	case "beschreibung":
		return truncate(lead.Beschreibung, csvDescriptionLimit)
	case "telefon":
		return lead.Telefon
	case "telefon_zusatz":
		return lead.TelefonZusatz
	case "fax":
		return lead.Fax
	case "email":
		return lead.Email
	case "website_url":
		return lead.WebsiteURL
	case "website_status":
		return string(lead.Website.Status)
	case "website_signale":
		signals := lead.Website.Signals
		if len(signals) > csvMaxSignals {
			signals = signals[:csvMaxSignals]
		}
		return strings.Join(signals, "; ")
	case "strasse":
		return lead.Adresse.Strasse
	case "hausnummer":
		return lead.Adresse.Hausnummer
	case "plz":
		return lead.Adresse.PLZ
	case "stadt":
		return lead.Adresse.Stadt
	case "bundesland":
		return lead.Adresse.Bundesland
	case "adresse_formatiert":
		return lead.Adresse.FormatFull()
	case "bewertung":
		if lead.Bewertung == nil {
			return ""
		}
		return strconv.FormatFloat(*lead.Bewertung, 'f', -1, 64)
	case "bewertung_anzahl":
		if lead.BewertungAnzahl == nil {
			return ""
		}
		return strconv.Itoa(*lead.BewertungAnzahl)
	case "oeffnungszeiten":
		return formatOpeningHours(lead.Oeffnungszeiten)
	case "qualitaet_score":
		return strconv.Itoa(lead.QualityScore())
	case "gelbe_seiten_url":
		return lead.GelbeSeitenURL
	case "gelbe_seiten_id":
		return lead.GelbeSeitenID
	case "scrape_datum":
		return lead.ScrapeDatum.Format(csvDateFormat)
	}
	return ""
}

// formatOpeningHours renders "Tag: Zeiten; …" in stable weekday order
func formatOpeningHours(hours map[string]string) string {
	if len(hours) == 0 {
		return ""
	}

	order := []string{"Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag", "Sonntag"}
	var parts []string
	seen := make(map[string]bool)
	for _, day := range order {
		if value, ok := hours[day]; ok {
			parts = append(parts, day+": "+value)
			seen[day] = true
		}
	}

	// Unconventional keys sort after the weekdays.
	var rest []string
	for day := range hours {
		if !seen[day] {
			rest = append(rest, day)
		}
	}
	sort.Strings(rest)
	for _, day := range rest {
		parts = append(parts, day+": "+hours[day])
	}

	return strings.Join(parts, "; ")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	// Back off to a rune boundary so umlauts are never split.
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
