package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WebsiteStatus classifies the apparent age of a business web presence
type WebsiteStatus string

const (
	WebsiteStatusNone      WebsiteStatus = "keine"
	WebsiteStatusOld       WebsiteStatus = "alt"
	WebsiteStatusModern    WebsiteStatus = "modern"
	WebsiteStatusUnknown   WebsiteStatus = "unbekannt"
	WebsiteStatusUnchecked WebsiteStatus = "nicht_geprueft"
)

// Source identifies where a lead record was scraped from
type Source string

const (
	SourceGelbeSeiten Source = "gelbe_seiten"
	SourceGoogleMaps  Source = "google_maps"
)

var (
	plzPattern   = regexp.MustCompile(`^\d{5}$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneKeep    = regexp.MustCompile(`[^\d+\-/\s]`)
	spaceRun     = regexp.MustCompile(`\s+`)
)

// Address holds a German postal address. PLZ is kept verbatim even when it
// does not validate as five digits; IsPLZCanonical reports which case applies.
type Address struct {
	Strasse    string `json:"strasse,omitempty" toml:"strasse"`
	Hausnummer string `json:"hausnummer,omitempty" toml:"hausnummer"`
	PLZ        string `json:"plz,omitempty" toml:"plz"`
	Stadt      string `json:"stadt" toml:"stadt"`
	Bundesland string `json:"bundesland,omitempty" toml:"bundesland"`
}

// IsPLZCanonical reports whether the postal code is a valid five-digit code
func (a Address) IsPLZCanonical() bool {
	return plzPattern.MatchString(a.PLZ)
}

// IsComplete reports whether street and postal code are both present
func (a Address) IsComplete() bool {
	return a.Strasse != "" && a.PLZ != ""
}

// FormatFull renders the address as "Straße Nr, PLZ Stadt"
func (a Address) FormatFull() string {
	var parts []string
	if a.Strasse != "" {
		street := a.Strasse
		if a.Hausnummer != "" {
			street += " " + a.Hausnummer
		}
		parts = append(parts, street)
	}
	locality := strings.TrimSpace(a.PLZ + " " + a.Stadt)
	if locality != "" {
		parts = append(parts, locality)
	}
	return strings.Join(parts, ", ")
}

// WebsiteAssessment is the classifier output attached to a lead. Signals are
// stage-prefixed ("url:", "header:", "html:") and CheckMethods records which
// probe levels actually ran.
type WebsiteAssessment struct {
	Status       WebsiteStatus `json:"status"`
	Confidence   float64       `json:"confidence"`
	Signals      []string      `json:"signals,omitempty"`
	CheckMethods []string      `json:"check_methods,omitempty"`
	ElapsedMS    int64         `json:"elapsed_ms,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// NewUncheckedAssessment returns the initial assessment state
func NewUncheckedAssessment() WebsiteAssessment {
	return WebsiteAssessment{Status: WebsiteStatusUnchecked}
}

// Lead is one business record, uniquely addressable by (source, source id)
type Lead struct {
	ID                string            `json:"id"`
	Firmenname        string            `json:"firmenname"`
	Branche           string            `json:"branche"`
	BranchenZusatz    string            `json:"branchen_zusatz,omitempty"`
	Beschreibung      string            `json:"beschreibung,omitempty"`
	Adresse           Address           `json:"adresse"`
	Telefon           string            `json:"telefon,omitempty"`
	TelefonZusatz     string            `json:"telefon_zusatz,omitempty"`
	Fax               string            `json:"fax,omitempty"`
	Email             string            `json:"email,omitempty"`
	WebsiteURL        string            `json:"website_url,omitempty"`
	Website           WebsiteAssessment `json:"website_analyse"`
	Bewertung         *float64          `json:"bewertung,omitempty"`
	BewertungAnzahl   *int              `json:"bewertung_anzahl,omitempty"`
	Oeffnungszeiten   map[string]string `json:"oeffnungszeiten,omitempty"`
	GelbeSeitenURL    string            `json:"gelbe_seiten_url,omitempty"`
	GelbeSeitenID     string            `json:"gelbe_seiten_id,omitempty"`
	GoogleMapsURL     string            `json:"google_maps_url,omitempty"`
	GoogleMapsPlaceID string            `json:"google_maps_place_id,omitempty"`
	Quellen           []Source          `json:"quellen"`
	ScrapeDatum       time.Time         `json:"scrape_datum"`
}

// NewLead constructs a lead with a fresh ID and unchecked website state
func NewLead(firmenname, branche string, adresse Address) *Lead {
	return &Lead{
		ID:          uuid.NewString(),
		Firmenname:  firmenname,
		Branche:     branche,
		Adresse:     adresse,
		Website:     NewUncheckedAssessment(),
		ScrapeDatum: time.Now(),
	}
}

// SetTelefon stores a cleaned phone number, dropping values with fewer than
// six digits
func (l *Lead) SetTelefon(raw string) {
	l.Telefon = CleanPhone(raw)
}

// SetEmail stores a validated, lowercased email address or nothing
func (l *Lead) SetEmail(raw string) {
	l.Email = NormalizeEmail(raw)
}

// SetWebsiteURL stores the URL, prepending https:// when no scheme is present
func (l *Lead) SetWebsiteURL(raw string) {
	l.WebsiteURL = NormalizeWebsiteURL(raw)
}

// HasSource reports whether the given source contributed to this lead
func (l *Lead) HasSource(s Source) bool {
	for _, q := range l.Quellen {
		if q == s {
			return true
		}
	}
	return false
}

// AddSource appends a source tag if not already present
func (l *Lead) AddSource(s Source) {
	if !l.HasSource(s) {
		l.Quellen = append(l.Quellen, s)
	}
}

// QualityScore computes the 0-100 completeness score:
// phone +20, email +25, website +15, street+PLZ +15 (either alone +7),
// rating with count +10, opening hours +5, description +10, clamped at 100.
func (l *Lead) QualityScore() int {
	score := 0
	if l.Telefon != "" {
		score += 20
	}
	if l.Email != "" {
		score += 25
	}
	if l.WebsiteURL != "" {
		score += 15
	}
	if l.Adresse.Strasse != "" && l.Adresse.PLZ != "" {
		score += 15
	} else if l.Adresse.Strasse != "" || l.Adresse.PLZ != "" {
		score += 7
	}
	if l.Bewertung != nil && l.BewertungAnzahl != nil {
		score += 10
	}
	if len(l.Oeffnungszeiten) > 0 {
		score += 5
	}
	if l.Beschreibung != "" {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

// CleanPhone keeps digits, +, -, / and spaces, collapses whitespace and
// returns empty when fewer than six digits remain
func CleanPhone(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := phoneKeep.ReplaceAllString(raw, "")
	cleaned = spaceRun.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	digits := 0
	for _, r := range cleaned {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 6 {
		return ""
	}
	return cleaned
}

// NormalizeEmail lowercases and validates the address; invalid input yields
// an empty string
func NormalizeEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || !emailPattern.MatchString(email) {
		return ""
	}
	return email
}

// NormalizeWebsiteURL prepends https:// to schemeless URLs
func NormalizeWebsiteURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return u
}
