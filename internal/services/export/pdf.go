package export

import (
	"fmt"
	"os"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/models"
)

const pdfTopLeads = 25

// PDFExporter renders a run summary report: parameters, stage statistics
// and the top leads by quality
type PDFExporter struct {
	logger arbor.ILogger
}

// NewPDFExporter creates a PDF exporter
func NewPDFExporter(logger arbor.ILogger) *PDFExporter {
	return &PDFExporter{logger: logger}
}

// Export writes the summary report to path
func (e *PDFExporter) Export(result *models.RunResult, stats *models.RunStats, path, branche, stadt string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()

	translator := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, translator(fmt.Sprintf("Lead-Report: %s in %s", branche, stadt)), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, translator("Erstellt: "+time.Now().Format("02.01.2006 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	e.writeSummary(pdf, translator, result, stats)
	e.writeLeadTable(pdf, translator, result.Leads)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer f.Close()

	if err := pdf.Output(f); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	e.logger.Info().Int("leads", len(result.Leads)).Str("file", path).Msg("PDF report written")
	return nil
}

func (e *PDFExporter) writeSummary(pdf *fpdf.Fpdf, tr func(string) string, result *models.RunResult, stats *models.RunStats) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, tr("Zusammenfassung"), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)

	rows := [][2]string{
		{"Leads exportiert", fmt.Sprintf("%d", len(result.Leads))},
		{"Gefunden gesamt", fmt.Sprintf("%d", result.TotalGefunden)},
		{"Gefiltert", fmt.Sprintf("%d", result.TotalGefiltert)},
		{"Seiten gescraped", fmt.Sprintf("%d", result.SeitenGescraped)},
		{"Dauer", fmt.Sprintf("%.1f s", result.DauerSekunden)},
	}
	if stats != nil {
		rows = append(rows,
			[2]string{"Websites geprüft", fmt.Sprintf("%d", stats.Websites.WebsitesChecked)},
			[2]string{"Ohne Website", fmt.Sprintf("%d", stats.Websites.NoWebsite)},
			[2]string{"Veraltete Websites", fmt.Sprintf("%d", stats.Websites.WebsitesOld)},
			[2]string{"Moderne Websites", fmt.Sprintf("%d", stats.Websites.WebsitesModern)},
			[2]string{"Duplikate zusammengeführt", fmt.Sprintf("%d", stats.Aggregate.Merged)},
		)
	}
	if result.Partial {
		rows = append(rows, [2]string{"Hinweis", "Teilergebnis (Session-Limit erreicht)"})
	}

	for _, row := range rows {
		pdf.CellFormat(60, 6, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func (e *PDFExporter) writeLeadTable(pdf *fpdf.Fpdf, tr func(string) string, leads []*models.Lead) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("Top %d Leads", min(len(leads), pdfTopLeads))), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(55, 6, tr("Firma"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(35, 6, tr("Telefon"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(45, 6, tr("Ort"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 6, tr("Website"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(0, 6, tr("Score"), "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 8)
	for i, lead := range leads {
		if i >= pdfTopLeads {
			break
		}
		ort := lead.Adresse.PLZ + " " + lead.Adresse.Stadt
		pdf.CellFormat(55, 6, tr(clip(lead.Firmenname, 34)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, tr(lead.Telefon), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, tr(clip(ort, 28)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, tr(string(lead.Website.Status)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("%d", lead.QualityScore()), "1", 1, "R", false, 0, "")
	}
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
