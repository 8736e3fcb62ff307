package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/models"
)

func sampleResult() *models.RunResult {
	lead := models.NewLead("Sanitär Schmidt GmbH", "Klempner", models.Address{
		Strasse: "Hauptstraße", Hausnummer: "12", PLZ: "44135", Stadt: "Dortmund",
	})
	lead.SetTelefon("0231 12345")
	lead.SetEmail("info@sanitaer-schmidt.de")
	lead.SetWebsiteURL("www.sanitaer-schmidt.de")
	lead.Website = models.WebsiteAssessment{
		Status:     models.WebsiteStatusOld,
		Confidence: 0.8,
		Signals:    []string{"html:frameset", "url:kein_https"},
	}
	lead.AddSource(models.SourceGelbeSeiten)

	second := models.NewLead("Bäckerei Krause", "Bäcker", models.Address{Stadt: "Dortmund"})
	second.Website.Status = models.WebsiteStatusNone
	second.AddSource(models.SourceGoogleMaps)

	return &models.RunResult{
		Leads:           []*models.Lead{lead, second},
		TotalGefunden:   3,
		TotalGefiltert:  1,
		SeitenGescraped: 2,
		DauerSekunden:   12.345,
		Fehler:          []string{"detail fetch failed"},
	}
}

func exportConfig() common.ExportConfig {
	return common.ExportConfig{
		Format:      "json",
		PrettyPrint: true,
		IncludeMeta: true,
	}
}

func TestJSONExportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.json")
	exporter := NewJSONExporter(exportConfig(), common.GetLogger())
	result := sampleResult()
	filterCfg := &common.FilterConfig{IncludeNoWebsite: true, IncludeOldWebsite: true}

	err := exporter.Export(result, path, "Klempner", "Dortmund", filterCfg, "normal", []string{"gelbe_seiten"})
	require.NoError(t, err)

	doc, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, doc.Meta)
	assert.Equal(t, "Klempner", doc.Meta.Branche)
	assert.Equal(t, "Dortmund", doc.Meta.Region)
	assert.Equal(t, 2, doc.Meta.AnzahlLeads)
	assert.Equal(t, "2.0", doc.Meta.FormatVersion)
	assert.True(t, doc.Meta.DSGVOKonform)
	assert.Contains(t, doc.Meta.AusgeschlosseneDaten, "review_autoren")
	require.NotNil(t, doc.Meta.FilterKriterien)
	assert.Equal(t, "normal", doc.Meta.FilterKriterien.WebsiteCheckDepth)

	require.Len(t, doc.Leads, 2)
	first := doc.Leads[0]
	assert.Equal(t, "Sanitär Schmidt GmbH", first.Firmenname)
	assert.Equal(t, "alt", first.WebsiteStatus)
	assert.Equal(t, "https://www.sanitaer-schmidt.de", first.WebsiteURL)
	assert.Equal(t, "Hauptstraße 12, 44135 Dortmund", first.Adresse.Formatiert)
	assert.Equal(t, []string{"gelbe_seiten"}, first.Quellen)
	assert.Positive(t, first.QualitaetScore)

	require.NotNil(t, doc.Stats)
	assert.Equal(t, 3, doc.Stats.TotalGefunden)
	assert.Equal(t, 2, doc.Stats.TotalExportiert)
	assert.InDelta(t, 12.35, doc.Stats.DauerSekunden, 0.001)
	assert.Equal(t, 1, doc.Stats.FehlerAnzahl)
	assert.Len(t, doc.Stats.Fehler, 1)
}

func TestJSONExportWithoutMeta(t *testing.T) {
	cfg := exportConfig()
	cfg.IncludeMeta = false
	path := filepath.Join(t.TempDir(), "leads.json")

	exporter := NewJSONExporter(cfg, common.GetLogger())
	require.NoError(t, exporter.Export(sampleResult(), path, "Klempner", "Dortmund", nil, "normal", nil))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, doc.Meta)
	assert.Nil(t, doc.Stats)
	assert.Len(t, doc.Leads, 2)
}

func TestGeneratePrompt(t *testing.T) {
	result := sampleResult()

	prompt, err := GeneratePrompt(result.Leads, "Klempner", "Dortmund")
	require.NoError(t, err)

	assert.Contains(t, prompt, "Branche: Klempner")
	assert.Contains(t, prompt, "Region: Dortmund")
	assert.Contains(t, prompt, "Anzahl Leads: 2")
	assert.Contains(t, prompt, `"firma": "Sanitär Schmidt GmbH"`)
	assert.Contains(t, prompt, "Mit freundlichen Grüßen")
}
