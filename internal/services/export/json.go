package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/models"
)

// formatVersion identifies the multi-source export document layout
const formatVersion = "2.0"

// excludedData names the data categories the scrapers never collect
var excludedData = []string{
	"personenbezogene_reviews",
	"review_autoren",
	"nutzerfotos",
	"owner_namen",
	"mitarbeiter_namen",
}

// Document is the exported JSON structure
type Document struct {
	Meta  *Meta       `json:"meta,omitempty"`
	Leads []LeadRow   `json:"leads"`
	Stats *LeadsStats `json:"stats,omitempty"`
}

// Meta describes the run that produced the export
type Meta struct {
	Branche              string          `json:"branche"`
	Region               string          `json:"region"`
	AnzahlLeads          int             `json:"anzahl_leads"`
	ExportDatum          string          `json:"export_datum"`
	FormatVersion        string          `json:"format_version"`
	Quellen              []string        `json:"quellen,omitempty"`
	FilterKriterien      *FilterCriteria `json:"filter_kriterien,omitempty"`
	DSGVOKonform         bool            `json:"dsgvo_konform"`
	AusgeschlosseneDaten []string        `json:"ausgeschlossene_daten"`
	Rechtsgrundlage      string          `json:"rechtsgrundlage"`
}

// FilterCriteria echoes the inclusion policy applied before export
type FilterCriteria struct {
	WebsiteCheckDepth    string `json:"website_check_depth"`
	IncludeNoWebsite     bool   `json:"include_no_website"`
	IncludeOldWebsite    bool   `json:"include_old_website"`
	IncludeModernWebsite bool   `json:"include_modern_website"`
	MinQualityScore      int    `json:"min_quality_score"`
}

// LeadRow is one exported lead record
type LeadRow struct {
	Firmenname        string            `json:"firmenname"`
	Branche           string            `json:"branche"`
	BranchenZusatz    string            `json:"branchen_zusatz"`
	Telefon           string            `json:"telefon"`
	Email             string            `json:"email"`
	WebsiteURL        string            `json:"website_url"`
	WebsiteStatus     string            `json:"website_status"`
	WebsiteSignale    []string          `json:"website_signale"`
	Adresse           AddressRow        `json:"adresse"`
	Bewertung         *float64          `json:"bewertung"`
	BewertungAnzahl   *int              `json:"bewertung_anzahl"`
	Oeffnungszeiten   map[string]string `json:"oeffnungszeiten"`
	QualitaetScore    int               `json:"qualitaet_score"`
	Quellen           []string          `json:"quellen"`
	ScrapeDatum       string            `json:"scrape_datum"`
	GelbeSeitenURL    string            `json:"gelbe_seiten_url,omitempty"`
	GoogleMapsURL     string            `json:"google_maps_url,omitempty"`
	GoogleMapsPlaceID string            `json:"google_maps_place_id,omitempty"`
}

// AddressRow is the exported address block
type AddressRow struct {
	Strasse    string `json:"strasse"`
	Hausnummer string `json:"hausnummer"`
	PLZ        string `json:"plz"`
	Stadt      string `json:"stadt"`
	Bundesland string `json:"bundesland"`
	Formatiert string `json:"formatiert"`
}

// LeadsStats is the exported run summary
type LeadsStats struct {
	TotalGefunden   int      `json:"total_gefunden"`
	TotalExportiert int      `json:"total_exportiert"`
	SeitenGescraped int      `json:"seiten_gescraped"`
	DauerSekunden   float64  `json:"dauer_sekunden"`
	FehlerAnzahl    int      `json:"fehler_anzahl"`
	Fehler          []string `json:"fehler,omitempty"`
	Partial         bool     `json:"partial,omitempty"`
}

// JSONExporter writes run results as a structured JSON document
type JSONExporter struct {
	cfg    common.ExportConfig
	logger arbor.ILogger
}

// NewJSONExporter creates a JSON exporter
func NewJSONExporter(cfg common.ExportConfig, logger arbor.ILogger) *JSONExporter {
	return &JSONExporter{cfg: cfg, logger: logger}
}

// Export writes the result to path
func (e *JSONExporter) Export(result *models.RunResult, path, branche, stadt string, filterCfg *common.FilterConfig, checkDepth string, sources []string) error {
	doc := e.BuildDocument(result, branche, stadt, filterCfg, checkDepth, sources)

	var data []byte
	var err error
	if e.cfg.PrettyPrint {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write export %s: %w", path, err)
	}
	e.logger.Info().Int("leads", len(result.Leads)).Str("file", path).Msg("JSON export written")
	return nil
}

// BuildDocument assembles the export document without writing it
func (e *JSONExporter) BuildDocument(result *models.RunResult, branche, stadt string, filterCfg *common.FilterConfig, checkDepth string, sources []string) *Document {
	doc := &Document{Leads: make([]LeadRow, 0, len(result.Leads))}
	for _, lead := range result.Leads {
		doc.Leads = append(doc.Leads, leadToRow(lead))
	}

	if e.cfg.IncludeMeta {
		meta := &Meta{
			Branche:              branche,
			Region:               stadt,
			AnzahlLeads:          len(result.Leads),
			ExportDatum:          time.Now().Format(time.RFC3339),
			FormatVersion:        formatVersion,
			Quellen:              sources,
			DSGVOKonform:         true,
			AusgeschlosseneDaten: excludedData,
			Rechtsgrundlage:      "Berechtigtes Interesse (B2B-Geschäftsdaten)",
		}
		if filterCfg != nil {
			meta.FilterKriterien = &FilterCriteria{
				WebsiteCheckDepth:    checkDepth,
				IncludeNoWebsite:     filterCfg.IncludeNoWebsite,
				IncludeOldWebsite:    filterCfg.IncludeOldWebsite,
				IncludeModernWebsite: filterCfg.IncludeModernWebsite,
				MinQualityScore:      filterCfg.MinQualityScore,
			}
		}
		doc.Meta = meta

		doc.Stats = &LeadsStats{
			TotalGefunden:   result.TotalGefunden,
			TotalExportiert: len(result.Leads),
			SeitenGescraped: result.SeitenGescraped,
			DauerSekunden:   round2(result.DauerSekunden),
			FehlerAnzahl:    len(result.Fehler),
			Fehler:          result.Fehler,
			Partial:         result.Partial,
		}
	}
	return doc
}

func leadToRow(lead *models.Lead) LeadRow {
	quellen := make([]string, 0, len(lead.Quellen))
	for _, q := range lead.Quellen {
		quellen = append(quellen, string(q))
	}

	return LeadRow{
		Firmenname:     lead.Firmenname,
		Branche:        lead.Branche,
		BranchenZusatz: lead.BranchenZusatz,
		Telefon:        lead.Telefon,
		Email:          lead.Email,
		WebsiteURL:     lead.WebsiteURL,
		WebsiteStatus:  string(lead.Website.Status),
		WebsiteSignale: lead.Website.Signals,
		Adresse: AddressRow{
			Strasse:    lead.Adresse.Strasse,
			Hausnummer: lead.Adresse.Hausnummer,
			PLZ:        lead.Adresse.PLZ,
			Stadt:      lead.Adresse.Stadt,
			Bundesland: lead.Adresse.Bundesland,
			Formatiert: lead.Adresse.FormatFull(),
		},
		Bewertung:         lead.Bewertung,
		BewertungAnzahl:   lead.BewertungAnzahl,
		Oeffnungszeiten:   lead.Oeffnungszeiten,
		QualitaetScore:    lead.QualityScore(),
		Quellen:           quellen,
		ScrapeDatum:       lead.ScrapeDatum.Format(time.RFC3339),
		GelbeSeitenURL:    lead.GelbeSeitenURL,
		GoogleMapsURL:     lead.GoogleMapsURL,
		GoogleMapsPlaceID: lead.GoogleMapsPlaceID,
	}
}

// Load reads an exported document back, for resumed multi-city merges and
// downstream tooling
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse export %s: %w", path, err)
	}
	return &doc, nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
