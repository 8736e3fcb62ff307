package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/models"
)

const promptLeadLimit = 20

// promptLead is the compact lead view embedded in the outreach prompt
type promptLead struct {
	Firma         string   `json:"firma"`
	Branche       string   `json:"branche"`
	Stadt         string   `json:"stadt"`
	Telefon       string   `json:"telefon"`
	Email         string   `json:"email"`
	Website       string   `json:"website"`
	WebsiteStatus string   `json:"website_status"`
	Bewertung     *float64 `json:"bewertung"`
}

// GeneratePrompt builds a German cold-outreach prompt document from the
// top leads. Pure templating; nothing is sent anywhere.
func GeneratePrompt(leads []*models.Lead, branche, stadt string) (string, error) {
	limited := leads
	if len(limited) > promptLeadLimit {
		limited = limited[:promptLeadLimit]
	}

	rows := make([]promptLead, 0, len(limited))
	for _, lead := range limited {
		rows = append(rows, promptLead{
			Firma:         lead.Firmenname,
			Branche:       lead.Branche,
			Stadt:         lead.Adresse.Stadt,
			Telefon:       lead.Telefon,
			Email:         lead.Email,
			Website:       lead.WebsiteURL,
			WebsiteStatus: string(lead.Website.Status),
			Bewertung:     lead.Bewertung,
		})
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal prompt leads: %w", err)
	}

	return fmt.Sprintf(`# Lead-Daten für Cold Outreach

## Kontext
- Branche: %s
- Region: %s
- Anzahl Leads: %d
- Diese Leads haben KEINE oder VERALTETE Websites

## Aufgabe
Erstelle personalisierte Outreach-E-Mails für jeden Lead.
Berücksichtige dabei:
1. Den Firmennamen und die Branche
2. Den Standort für lokale Bezüge
3. Den Website-Status (keine Website vs. veraltete Website)
4. Verfügbare Bewertungen

## Lead-Daten (JSON)
`+"```json\n%s\n```"+`

## Beispiel-Vorlage
Betreff: [Personalisierter Betreff mit Stadtbezug]

Sehr geehrte/r [Ansprechpartner oder "Damen und Herren"],

[Personalisierte Einleitung mit Bezug auf die Branche und den Standort]

[Wertversprechen angepasst an Website-Status]

[Call-to-Action]

Mit freundlichen Grüßen
[Name]
`, branche, stadt, len(leads), data), nil
}

// WritePrompt writes the outreach prompt to path
func WritePrompt(leads []*models.Lead, branche, stadt, path string, logger arbor.ILogger) error {
	prompt, err := GeneratePrompt(leads, branche, stadt)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(prompt), 0644); err != nil {
		return fmt.Errorf("write prompt %s: %w", path, err)
	}
	logger.Info().Str("file", path).Msg("Outreach prompt written")
	return nil
}
