package maps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/models"
)

const resultsPanelHTML = `<html><body>
<div role="feed">
  <div class="Nv2PK">
    <a href="https://www.google.com/maps/place/Friseur+Mia/data=!4m2!3m1!1s0x47b8c1234:0xabcdef12" aria-label="Friseur Mia"></a>
    <div class="qBF1Pd fontHeadlineSmall">Friseur Mia</div>
    <span role="img" aria-label="4,7 Sterne"></span>
    <span class="UY7F9">(132)</span>
    <div class="W4Efsd">Friseursalon</div>
    <div class="W4Efsd">Limbecker Str. 5, 45127 Essen</div>
    <span class="UsdlK">0201 556677</span>
  </div>
  <div class="Nv2PK">
    <div class="qBF1Pd fontHeadlineSmall">Haarstudio Koch</div>
  </div>
</div>
</body></html>`

func TestParseSearchPanel(t *testing.T) {
	parser := NewParser(common.GetLogger())

	listings := parser.ParseSearch(resultsPanelHTML, "https://www.google.com/maps/search/friseur%20essen")
	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, "Friseur Mia", first.Name)
	assert.Equal(t, models.SourceGoogleMaps, first.Quelle)
	assert.Contains(t, first.DetailURL, "/maps/place/Friseur+Mia")
	assert.Equal(t, "0x47b8c1234:0xabcdef12", first.PlaceID)
	require.NotNil(t, first.Bewertung)
	assert.InDelta(t, 4.7, *first.Bewertung, 0.001)
	require.NotNil(t, first.BewertungAnzahl)
	assert.Equal(t, 132, *first.BewertungAnzahl)
	assert.Equal(t, "Friseursalon", first.Branche)
	assert.Contains(t, first.AdresseRaw, "45127 Essen")
	assert.Equal(t, "0201 556677", first.Telefon)

	second := listings[1]
	assert.Equal(t, "Haarstudio Koch", second.Name)
	assert.Nil(t, second.Bewertung)
	assert.Empty(t, second.Telefon)
}

func TestParseSearchEmpty(t *testing.T) {
	parser := NewParser(common.GetLogger())
	assert.Empty(t, parser.ParseSearch(`<html><body><p>Keine Ergebnisse</p></body></html>`, "x"))
}

const placePageHTML = `<html><body>
<h1 class="DUwDvf">Friseur Mia</h1>
<button jsaction="pane.rating.category">Friseursalon</button>
<div class="F7nice">4,7 (132)</div>
<button data-item-id="address" aria-label="Adresse: Limbecker Str. 5, 45127 Essen"></button>
<button data-item-id="phone:tel:0201556677" aria-label="Telefonnummer: 0201 556677"></button>
<a data-item-id="authority" href="https://www.friseur-mia.de"></a>
<table class="eK4R0e" aria-label="Montag, 09:00 bis 18:00; Dienstag, 09:00 bis 18:00; Sonntag, Geschlossen"></table>
</body></html>`

func TestParseDetailPlace(t *testing.T) {
	parser := NewParser(common.GetLogger())

	lead := parser.ParseDetail(placePageHTML, "https://www.google.com/maps/place/Friseur+Mia/data=!4m2!3m1!1s0x47b8c1234:0xabcdef12")
	require.NotNil(t, lead)

	assert.Equal(t, "Friseur Mia", lead.Firmenname)
	assert.Equal(t, "Friseursalon", lead.Branche)
	assert.Equal(t, "0x47b8c1234:0xabcdef12", lead.GoogleMapsPlaceID)

	assert.Equal(t, "Limbecker Str.", lead.Adresse.Strasse)
	assert.Equal(t, "5", lead.Adresse.Hausnummer)
	assert.Equal(t, "45127", lead.Adresse.PLZ)
	assert.Equal(t, "Essen", lead.Adresse.Stadt)

	assert.Equal(t, "0201 556677", lead.Telefon)
	assert.Equal(t, "https://www.friseur-mia.de", lead.WebsiteURL)

	require.NotNil(t, lead.Bewertung)
	assert.InDelta(t, 4.7, *lead.Bewertung, 0.001)
	require.NotNil(t, lead.BewertungAnzahl)
	assert.Equal(t, 132, *lead.BewertungAnzahl)

	require.NotNil(t, lead.Oeffnungszeiten)
	assert.Equal(t, "09:00 bis 18:00", lead.Oeffnungszeiten["Montag"])
	assert.Equal(t, "geschlossen", lead.Oeffnungszeiten["Sonntag"])

	assert.True(t, lead.HasSource(models.SourceGoogleMaps))
}

func TestParseDetailWithoutName(t *testing.T) {
	parser := NewParser(common.GetLogger())
	assert.Nil(t, parser.ParseDetail(`<html><body></body></html>`, "x"))
}

func TestPlaceIDFromURL(t *testing.T) {
	assert.Equal(t, "0x47b8c1234:0xabcdef12",
		placeIDFromURL("https://www.google.com/maps/place/X/data=!4m2!3m1!1s0x47b8c1234:0xabcdef12"))
	assert.Equal(t, "0x47b8c1234:0xabcdef12",
		placeIDFromURL("https://www.google.com/maps/place/X/data=%214m2%213m1%211s0x47b8c1234%3A0xabcdef12"))
	assert.Empty(t, placeIDFromURL("https://www.google.com/maps/search/friseur"))
}
