package pipeline

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/ternarybob/prospect/internal/models"
)

// Duplicate-detection thresholds. Exact phone matches are near-certain;
// everything else needs a weighted aggregate over name, phone and address.
const (
	phoneMatchConfidence = 0.95
	namePLZConfidence    = 0.9
	duplicateThreshold   = 0.85

	phoneSubstringScore = 0.9
	nameContainScore    = 0.85
	plzOnlyScore        = 0.7

	phoneWeight   = 1.0
	nameWeight    = 0.8
	addressWeight = 0.6
)

// legalForms are stripped before company names are compared
var legalForms = []string{
	"gmbh & co. kg", "gmbh & co kg", "gmbh", "ag", "kg", "ohg", "ug",
	"e.k.", "e. k.", "ek", "gbr", "mbh", "inhaber", "inh.",
}

var umlautReplacer = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"Ä", "ae", "Ö", "oe", "Ü", "ue",
)

// NormalizePhone reduces a phone number to a comparable digit string:
// non-digits drop, the German country prefix (49 / 0049) folds into the
// national form without its leading zero.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch {
	case strings.HasPrefix(d, "0049"):
		d = d[4:]
	case strings.HasPrefix(d, "49") && len(d) > 9:
		d = d[2:]
	}
	d = strings.TrimPrefix(d, "0")
	return d
}

// NormalizeName lowercases, transliterates umlauts and strips legal-form
// suffixes so "Müller GmbH" and "Mueller" compare equal
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = umlautReplacer.Replace(n)

	for _, form := range legalForms {
		n = strings.ReplaceAll(n, " "+form+" ", " ")
		n = strings.TrimSuffix(n, " "+form)
	}

	var b strings.Builder
	for _, r := range n {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeAddress canonicalizes a street line for comparison
func NormalizeAddress(addr models.Address) string {
	s := strings.ToLower(addr.Strasse + " " + addr.Hausnummer)
	s = umlautReplacer.Replace(s)
	s = strings.ReplaceAll(s, "str.", "strasse")
	s = strings.ReplaceAll(s, "straße", "strasse")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	return strings.Join(strings.Fields(s), " ")
}

// Similarity is the Levenshtein ratio of two strings in [0,1]
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	return 1 - float64(dist)/float64(maxLen)
}

func minLen(a, b string) int {
	if len(a) < len(b) {
		return len(a)
	}
	return len(b)
}

// MatchScore is the evidence behind a duplicate decision
type MatchScore struct {
	Confidence float64
	PhoneMatch bool
	PhoneScore float64
	NameScore  float64
	AddrScore  float64
}

// Match scores whether two leads describe the same business
func Match(a, b *models.Lead) MatchScore {
	var score MatchScore

	phoneA := NormalizePhone(a.Telefon)
	phoneB := NormalizePhone(b.Telefon)
	if phoneA != "" && phoneA == phoneB {
		// Same line, same business.
		score.PhoneMatch = true
		score.PhoneScore = 1
		score.Confidence = phoneMatchConfidence
		return score
	}

	nameA := NormalizeName(a.Firmenname)
	nameB := NormalizeName(b.Firmenname)
	score.NameScore = Similarity(nameA, nameB)

	// "Müller Sanitär" vs "Müller Sanitär und Heizung": one listing often
	// carries a longer trading name, so containment counts as a near-match.
	if nameA != "" && nameB != "" && minLen(nameA, nameB) > 3 &&
		(strings.Contains(nameA, nameB) || strings.Contains(nameB, nameA)) &&
		score.NameScore < nameContainScore {
		score.NameScore = nameContainScore
	}

	// Street comparison only means something within the same postal code;
	// a matching PLZ also lifts the street score. When neither side has a
	// street line, the shared PLZ itself is weak positive evidence.
	addrA := NormalizeAddress(a.Adresse)
	addrB := NormalizeAddress(b.Adresse)
	samePLZ := a.Adresse.PLZ != "" && a.Adresse.PLZ == b.Adresse.PLZ
	if samePLZ {
		if addrA != "" && addrB != "" {
			score.AddrScore = Similarity(addrA, addrB) + 0.3
			if score.AddrScore > 1 {
				score.AddrScore = 1
			}
		} else {
			score.AddrScore = plzOnlyScore
		}
	}

	var sum, weights float64
	if phoneA != "" && phoneB != "" {
		score.PhoneScore = Similarity(phoneA, phoneB)
		// One number extending the other (extra extension digits) is the
		// same line in practice.
		if minLen(phoneA, phoneB) >= 6 &&
			(strings.Contains(phoneA, phoneB) || strings.Contains(phoneB, phoneA)) &&
			score.PhoneScore < phoneSubstringScore {
			score.PhoneScore = phoneSubstringScore
		}
		sum += score.PhoneScore * phoneWeight
		weights += phoneWeight
	}
	if nameA != "" && nameB != "" {
		sum += score.NameScore * nameWeight
		weights += nameWeight
	}
	if samePLZ && score.AddrScore > 0 {
		sum += score.AddrScore * addressWeight
		weights += addressWeight
	}
	if weights > 0 {
		score.Confidence = sum / weights
	}

	// Identical name in the same postal code is decisive even when street
	// spellings diverge.
	if nameA != "" && nameA == nameB &&
		a.Adresse.PLZ != "" && a.Adresse.PLZ == b.Adresse.PLZ &&
		score.Confidence < namePLZConfidence {
		score.Confidence = namePLZConfidence
	}

	return score
}

// IsDuplicate reports whether two leads cross the duplicate threshold
func IsDuplicate(a, b *models.Lead) bool {
	return Match(a, b).Confidence >= duplicateThreshold
}

// MergeLeads folds secondary into primary: primary fields win, secondary
// fills gaps. Source tags and source-specific ids always carry over.
func MergeLeads(primary, secondary *models.Lead) {
	if primary.Telefon == "" {
		primary.Telefon = secondary.Telefon
	} else if secondary.Telefon != "" &&
		NormalizePhone(primary.Telefon) != NormalizePhone(secondary.Telefon) {
		primary.TelefonZusatz = secondary.Telefon
	}
	if primary.Email == "" {
		primary.Email = secondary.Email
	}
	if primary.Fax == "" {
		primary.Fax = secondary.Fax
	}
	if primary.WebsiteURL == "" {
		primary.WebsiteURL = secondary.WebsiteURL
		primary.Website = secondary.Website
	}
	if primary.Beschreibung == "" {
		primary.Beschreibung = secondary.Beschreibung
	}
	if primary.BranchenZusatz == "" && secondary.Branche != primary.Branche {
		primary.BranchenZusatz = secondary.Branche
	}

	if primary.Adresse.Strasse == "" {
		primary.Adresse.Strasse = secondary.Adresse.Strasse
		primary.Adresse.Hausnummer = secondary.Adresse.Hausnummer
	}
	if primary.Adresse.PLZ == "" {
		primary.Adresse.PLZ = secondary.Adresse.PLZ
	}
	if primary.Adresse.Stadt == "" {
		primary.Adresse.Stadt = secondary.Adresse.Stadt
	}
	if primary.Adresse.Bundesland == "" {
		primary.Adresse.Bundesland = secondary.Adresse.Bundesland
	}

	// Ratings prefer the larger review base.
	if primary.Bewertung == nil ||
		(secondary.BewertungAnzahl != nil && primary.BewertungAnzahl != nil &&
			*secondary.BewertungAnzahl > *primary.BewertungAnzahl) {
		if secondary.Bewertung != nil {
			primary.Bewertung = secondary.Bewertung
			primary.BewertungAnzahl = secondary.BewertungAnzahl
		}
	}

	if len(primary.Oeffnungszeiten) == 0 {
		primary.Oeffnungszeiten = secondary.Oeffnungszeiten
	}

	if primary.GelbeSeitenURL == "" {
		primary.GelbeSeitenURL = secondary.GelbeSeitenURL
		primary.GelbeSeitenID = secondary.GelbeSeitenID
	}
	if primary.GoogleMapsURL == "" {
		primary.GoogleMapsURL = secondary.GoogleMapsURL
	}
	if primary.GoogleMapsPlaceID == "" {
		primary.GoogleMapsPlaceID = secondary.GoogleMapsPlaceID
	}

	for _, source := range secondary.Quellen {
		primary.AddSource(source)
	}
}
