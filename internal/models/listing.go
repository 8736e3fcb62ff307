package models

// Listing is the transient stub a list-page parser produces before detail
// enrichment
type Listing struct {
	Name            string
	DetailURL       string
	Telefon         string
	AdresseRaw      string
	Branche         string
	HatWebsite      bool
	WebsiteURL      string
	Bewertung       *float64
	BewertungAnzahl *int
	Quelle          Source
	PlaceID         string
	Oeffnungszeiten map[string]string
}

// Pagination describes the paging state of a search-result page
type Pagination struct {
	CurrentPage int
	TotalPages  int
	HasNext     bool
}
