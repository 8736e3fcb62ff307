package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "0231 12345", "0231 12345"},
		{"country code", "+49 231 123456", "+49 231 123456"},
		{"letters stripped", "Tel: 0231/12345", "0231/12345"},
		{"whitespace collapsed", "0231   12  345", "0231 12 345"},
		{"too few digits", "12345", ""},
		{"empty", "", ""},
		{"only noise", "anrufen!", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CleanPhone(tc.input))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "info@example.de", NormalizeEmail("  Info@Example.DE "))
	assert.Equal(t, "kontakt@mueller-gmbh.de", NormalizeEmail("kontakt@mueller-gmbh.de"))
	assert.Empty(t, NormalizeEmail("not-an-email"))
	assert.Empty(t, NormalizeEmail("missing@tld"))
	assert.Empty(t, NormalizeEmail(""))
}

func TestNormalizeWebsiteURL(t *testing.T) {
	assert.Equal(t, "https://example.de", NormalizeWebsiteURL("example.de"))
	assert.Equal(t, "http://example.de", NormalizeWebsiteURL("http://example.de"))
	assert.Equal(t, "https://example.de", NormalizeWebsiteURL(" https://example.de "))
	assert.Empty(t, NormalizeWebsiteURL("  "))
}

func TestAddress(t *testing.T) {
	addr := Address{Strasse: "Hauptstraße", Hausnummer: "12", PLZ: "44135", Stadt: "Dortmund"}

	assert.True(t, addr.IsPLZCanonical())
	assert.True(t, addr.IsComplete())
	assert.Equal(t, "Hauptstraße 12, 44135 Dortmund", addr.FormatFull())

	partial := Address{Stadt: "Dortmund"}
	assert.False(t, partial.IsComplete())
	assert.Equal(t, "Dortmund", partial.FormatFull())

	badPLZ := Address{PLZ: "4413"}
	assert.False(t, badPLZ.IsPLZCanonical())
}

func TestQualityScore(t *testing.T) {
	lead := NewLead("Test GmbH", "Klempner", Address{Stadt: "Dortmund"})
	assert.Equal(t, 0, lead.QualityScore())

	lead.SetTelefon("0231 12345")
	assert.Equal(t, 20, lead.QualityScore())

	lead.SetEmail("info@test.de")
	assert.Equal(t, 45, lead.QualityScore())

	lead.SetWebsiteURL("test.de")
	assert.Equal(t, 60, lead.QualityScore())

	// Street or PLZ alone is worth half.
	lead.Adresse.PLZ = "44135"
	assert.Equal(t, 67, lead.QualityScore())
	lead.Adresse.Strasse = "Hauptstraße"
	assert.Equal(t, 75, lead.QualityScore())

	rating := 4.5
	count := 12
	lead.Bewertung = &rating
	lead.BewertungAnzahl = &count
	lead.Oeffnungszeiten = map[string]string{"Montag": "08:00 - 17:00"}
	lead.Beschreibung = "Meisterbetrieb seit 1985"
	assert.Equal(t, 100, lead.QualityScore())
}

func TestQualityScoreRatingNeedsCount(t *testing.T) {
	lead := NewLead("Test GmbH", "Klempner", Address{})
	rating := 4.0
	lead.Bewertung = &rating
	assert.Equal(t, 0, lead.QualityScore())
}

func TestLeadSources(t *testing.T) {
	lead := NewLead("Test GmbH", "Klempner", Address{})

	assert.False(t, lead.HasSource(SourceGelbeSeiten))
	lead.AddSource(SourceGelbeSeiten)
	lead.AddSource(SourceGelbeSeiten)
	lead.AddSource(SourceGoogleMaps)

	assert.Equal(t, []Source{SourceGelbeSeiten, SourceGoogleMaps}, lead.Quellen)
}

func TestNewLeadDefaults(t *testing.T) {
	lead := NewLead("Test GmbH", "Klempner", Address{Stadt: "Dortmund"})

	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, WebsiteStatusUnchecked, lead.Website.Status)
	assert.False(t, lead.ScrapeDatum.IsZero())
}

func TestSetTelefonRejectsShort(t *testing.T) {
	lead := NewLead("Test GmbH", "Klempner", Address{})
	lead.SetTelefon("123")
	assert.Empty(t, lead.Telefon)
}
