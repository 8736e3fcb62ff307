package directory

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/models"
)

const detailPageHTML = `<!DOCTYPE html>
<html><body>
<h1 itemprop="name">Sanitär Schmidt GmbH</h1>
<div class="mod-Treffer__branchen">Klempner und Installateur</div>
<address itemprop="address">
  <span itemprop="streetAddress">Hauptstraße 12a</span>
  <span itemprop="postalCode">44135</span>
  <span itemprop="addressLocality">Dortmund</span>
</address>
<a href="tel:+49 231 12345">0231 12345</a>
<span itemprop="faxNumber">0231 12346</span>
<a href="mailto:info@sanitaer-schmidt.de?subject=Anfrage">E-Mail</a>
<a href="/redirect?url=https%3A%2F%2Fwww.sanitaer-schmidt.de">Zur Website</a>
<div class="mod-Oeffnungszeiten">
  Mo-Fr: 08:00 - 17:00
  Sa: 09.00 - 12.30
</div>
<div itemprop="description">Ihr Meisterbetrieb für Sanitär, Heizung und Klima in Dortmund seit 1985. Wir bieten Notdienst rund um die Uhr.</div>
</body></html>`

func TestParseDetail(t *testing.T) {
	parser := NewDetailParser("Dortmund", "Klempner", common.GetLogger())

	lead := parser.ParseDetail(detailPageHTML, "https://www.gelbeseiten.de/gsbiz/abc-1000")
	require.NotNil(t, lead)

	assert.Equal(t, "Sanitär Schmidt GmbH", lead.Firmenname)
	assert.Equal(t, "Klempner und Installateur", lead.Branche)
	assert.Equal(t, "abc-1000", lead.GelbeSeitenID)

	assert.Equal(t, "Hauptstraße", lead.Adresse.Strasse)
	assert.Equal(t, "12a", lead.Adresse.Hausnummer)
	assert.Equal(t, "44135", lead.Adresse.PLZ)
	assert.Equal(t, "Dortmund", lead.Adresse.Stadt)

	assert.Equal(t, "+49 231 12345", lead.Telefon)
	assert.Equal(t, "0231 12346", lead.Fax)
	assert.Equal(t, "info@sanitaer-schmidt.de", lead.Email)
	assert.Equal(t, "https://www.sanitaer-schmidt.de", lead.WebsiteURL)

	require.NotNil(t, lead.Oeffnungszeiten)
	assert.Equal(t, "08:00 - 17:00", lead.Oeffnungszeiten["Montag"])
	assert.Equal(t, "08:00 - 17:00", lead.Oeffnungszeiten["Freitag"])
	assert.Equal(t, "09:00 - 12:30", lead.Oeffnungszeiten["Samstag"])
	assert.NotContains(t, lead.Oeffnungszeiten, "Sonntag")

	assert.Contains(t, lead.Beschreibung, "Meisterbetrieb")
	assert.True(t, lead.HasSource(models.SourceGelbeSeiten))
}

func TestParseDetailFallbacks(t *testing.T) {
	parser := NewDetailParser("Essen", "Friseur", common.GetLogger())

	html := `<html><body><h1>Salon Mia</h1><p>Terminvereinbarung unter 0201 998877.</p></body></html>`
	lead := parser.ParseDetail(html, "https://www.gelbeseiten.de/gsbiz/mia-1")
	require.NotNil(t, lead)

	assert.Equal(t, "Salon Mia", lead.Firmenname)
	assert.Equal(t, "Friseur", lead.Branche)
	assert.Equal(t, "Essen", lead.Adresse.Stadt)
	assert.Empty(t, lead.Adresse.PLZ)
	assert.Equal(t, "0201 998877", lead.Telefon)
	assert.Empty(t, lead.Email)
	assert.Empty(t, lead.WebsiteURL)
	assert.Nil(t, lead.Oeffnungszeiten)
}

func TestParseDetailWithoutName(t *testing.T) {
	parser := NewDetailParser("Essen", "Friseur", common.GetLogger())

	lead := parser.ParseDetail(`<html><body><p>Seite nicht gefunden</p></body></html>`, "https://www.gelbeseiten.de/gsbiz/x")
	assert.Nil(t, lead)
}

func TestParseDetailShortDescriptionDropped(t *testing.T) {
	parser := NewDetailParser("Essen", "Friseur", common.GetLogger())

	html := `<html><body><h1>Salon Mia</h1><div itemprop="description">Friseur</div></body></html>`
	lead := parser.ParseDetail(html, "https://www.gelbeseiten.de/gsbiz/mia-1")
	require.NotNil(t, lead)
	assert.Empty(t, lead.Beschreibung)
}

func TestParseDetailLongDescriptionTruncatedOnRuneBoundary(t *testing.T) {
	parser := NewDetailParser("Essen", "Friseur", common.GetLogger())

	// 400 umlauts are 800 bytes; the cut lands mid-rune without backoff.
	long := strings.Repeat("ä", 400)
	html := `<html><body><h1>Salon Mia</h1><div itemprop="description">` + long + `</div></body></html>`

	lead := parser.ParseDetail(html, "https://www.gelbeseiten.de/gsbiz/mia-1")
	require.NotNil(t, lead)
	assert.True(t, utf8.ValidString(lead.Beschreibung))
	assert.LessOrEqual(t, len(lead.Beschreibung), 500)
	assert.True(t, strings.HasSuffix(lead.Beschreibung, "..."))
}

func TestExtractDetailID(t *testing.T) {
	assert.Equal(t, "abc-1000", extractDetailID("https://www.gelbeseiten.de/gsbiz/abc-1000"))
	assert.Equal(t, "abc-1000", extractDetailID("https://www.gelbeseiten.de/gsbiz/abc-1000/"))
	assert.Equal(t, "abc-1000", extractDetailID("https://www.gelbeseiten.de/gsbiz/abc-1000?utm=x"))
	assert.Empty(t, extractDetailID("gsbiz"))
}
