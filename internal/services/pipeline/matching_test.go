package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/prospect/internal/models"
)

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "23112345", NormalizePhone("0231 12345"))
	assert.Equal(t, "23112345", NormalizePhone("+49 231 12345"))
	assert.Equal(t, "23112345", NormalizePhone("0049 231 / 123-45"))
	assert.Equal(t, "23112345", NormalizePhone("(0231) 12345"))
	assert.Equal(t, "", NormalizePhone(""))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, NormalizeName("Müller GmbH"), NormalizeName("Mueller"))
	assert.Equal(t, "sanitaer schmidt", NormalizeName("Sanitär Schmidt GmbH & Co. KG"))
	assert.Equal(t, "baeckerei krause", NormalizeName("Bäckerei Krause e.K."))
	assert.Equal(t, "friseur koch", NormalizeName("  Friseur   Koch AG "))
}

func TestNormalizeAddress(t *testing.T) {
	a := models.Address{Strasse: "Hauptstr.", Hausnummer: "12"}
	b := models.Address{Strasse: "Hauptstraße", Hausnummer: "12"}
	assert.Equal(t, NormalizeAddress(a), NormalizeAddress(b))
	assert.Equal(t, "hauptstrasse 12", NormalizeAddress(a))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("abc", "abc"))
	assert.Equal(t, 0.0, Similarity("abc", ""))
	assert.InDelta(t, 0.75, Similarity("abcd", "abcx"), 0.001)
	assert.Greater(t, Similarity("sanitaer schmidt", "sanitaer schmid"), 0.9)
}

func lead(name, phone, strasse, hausnummer, plz string) *models.Lead {
	l := models.NewLead(name, "Test", models.Address{
		Strasse: strasse, Hausnummer: hausnummer, PLZ: plz, Stadt: "Dortmund",
	})
	l.Telefon = phone
	return l
}

func TestMatchExactPhoneShortCircuits(t *testing.T) {
	a := lead("Sanitär Schmidt GmbH", "0231 12345", "", "", "")
	b := lead("Schmidt Haustechnik", "+49 231 12345", "", "", "")

	score := Match(a, b)
	assert.True(t, score.PhoneMatch)
	assert.GreaterOrEqual(t, score.Confidence, 0.95)
	assert.True(t, IsDuplicate(a, b))
}

func TestMatchNameAndAddress(t *testing.T) {
	a := lead("Sanitär Schmidt GmbH", "", "Hauptstr.", "12", "44135")
	b := lead("Sanitaer Schmidt", "", "Hauptstraße", "12", "44135")

	assert.True(t, IsDuplicate(a, b))
}

func TestMatchSameNameSamePLZ(t *testing.T) {
	a := lead("Friseur Mia", "", "Limbecker Str.", "5", "45127")
	b := lead("Friseur Mia", "", "Limbeckerstrasse", "5", "45127")

	score := Match(a, b)
	assert.GreaterOrEqual(t, score.Confidence, 0.9)
}

func TestMatchPhoneExtensionAndLongerTradingName(t *testing.T) {
	a := lead("Müller Sanitär", "030 1234567", "", "", "")
	b := lead("Müller Sanitär und Heizung", "+49 30 1234567 89", "", "", "")

	score := Match(a, b)
	assert.InDelta(t, 0.9, score.PhoneScore, 0.001)
	assert.InDelta(t, 0.85, score.NameScore, 0.001)
	assert.GreaterOrEqual(t, score.Confidence, 0.85)
	assert.True(t, IsDuplicate(a, b))
}

func TestMatchPhoneSubstringNeedsSixDigits(t *testing.T) {
	a := lead("Kiosk Nord", "12345", "", "", "")
	b := lead("Kiosk Nord", "123456789", "", "", "")

	score := Match(a, b)
	assert.Less(t, score.PhoneScore, 0.9)
}

func TestMatchNameContainment(t *testing.T) {
	a := lead("Bäckerei Krause", "", "", "", "")
	b := lead("Bäckerei Krause Filiale Innenstadt", "", "", "", "")

	score := Match(a, b)
	assert.InDelta(t, 0.85, score.NameScore, 0.001)
}

func TestMatchPLZOnlyAddress(t *testing.T) {
	a := lead("Friseur Mia", "", "", "", "45127")
	b := lead("Friseur Mia", "", "", "", "45127")

	score := Match(a, b)
	assert.InDelta(t, 0.7, score.AddrScore, 0.001)
	assert.True(t, IsDuplicate(a, b))
}

func TestMatchDifferentBusinesses(t *testing.T) {
	a := lead("Friseur Mia", "0201 556677", "Limbecker Str.", "5", "45127")
	b := lead("Bäckerei Krause", "0201 998877", "Kettwiger Str.", "30", "45127")

	assert.False(t, IsDuplicate(a, b))
}

func TestMatchDifferentPLZNoAddressEvidence(t *testing.T) {
	a := lead("Friseur Mia", "", "Hauptstr.", "5", "45127")
	b := lead("Friseur Mia Essen", "", "Hauptstr.", "5", "44135")

	score := Match(a, b)
	assert.Zero(t, score.AddrScore)
}

func TestMergeLeadsPrimaryWins(t *testing.T) {
	primary := lead("Friseur Mia", "0201 556677", "Limbecker Str.", "5", "45127")
	primary.Email = "info@mia.de"
	primary.AddSource(models.SourceGelbeSeiten)

	secondary := lead("Friseur Mia", "0201 000000", "", "", "")
	secondary.Email = "kontakt@mia.de"
	secondary.WebsiteURL = "https://www.mia.de"
	secondary.GoogleMapsPlaceID = "0xabc:0xdef"
	secondary.AddSource(models.SourceGoogleMaps)

	MergeLeads(primary, secondary)

	assert.Equal(t, "0201 556677", primary.Telefon)
	assert.Equal(t, "0201 000000", primary.TelefonZusatz)
	assert.Equal(t, "info@mia.de", primary.Email)
	assert.Equal(t, "https://www.mia.de", primary.WebsiteURL)
	assert.Equal(t, "0xabc:0xdef", primary.GoogleMapsPlaceID)
	assert.True(t, primary.HasSource(models.SourceGelbeSeiten))
	assert.True(t, primary.HasSource(models.SourceGoogleMaps))
}

func TestMergeLeadsFillsGaps(t *testing.T) {
	primary := lead("Friseur Mia", "", "", "", "")
	five := 4.5
	count := 120
	secondary := lead("Friseur Mia", "0201 556677", "Limbecker Str.", "5", "45127")
	secondary.Bewertung = &five
	secondary.BewertungAnzahl = &count
	secondary.Oeffnungszeiten = map[string]string{"Montag": "09:00 - 18:00"}

	MergeLeads(primary, secondary)

	assert.Equal(t, "0201 556677", primary.Telefon)
	assert.Empty(t, primary.TelefonZusatz)
	assert.Equal(t, "Limbecker Str.", primary.Adresse.Strasse)
	assert.Equal(t, "45127", primary.Adresse.PLZ)
	assert.Equal(t, &five, primary.Bewertung)
	assert.Len(t, primary.Oeffnungszeiten, 1)
}
