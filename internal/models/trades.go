package models

// TradeList is the built-in ordered list of German business categories,
// prioritized by the likelihood of a missing or outdated web presence.
var TradeList = []string{
	// Handwerk & Bau
	"Handwerker", "Maler", "Elektriker", "Sanitär", "Heizung", "Klempner",
	"Dachdecker", "Tischler", "Schreiner", "Fliesenleger", "Bodenleger",
	"Maurer", "Zimmermann", "Glaser", "Schlosser", "Metallbau", "Gartenbau",
	"Landschaftsbau", "Gärtner", "Bauunternehmen", "Trockenbau", "Stuckateur",
	"Gerüstbau", "Rollladen", "Jalousien", "Markisen",

	// Gesundheit & Wellness
	"Zahnarzt", "Arzt", "Hausarzt", "Orthopäde", "Physiotherapie",
	"Krankengymnastik", "Massage", "Heilpraktiker", "Ergotherapie",
	"Logopädie", "Podologe", "Fußpflege", "Chiropraktiker", "Osteopathie",
	"Psychotherapie", "Augenarzt", "HNO Arzt", "Hautarzt", "Kinderarzt",
	"Frauenarzt", "Tierarzt", "Zahntechnik", "Pflegedienst",
	"Seniorenbetreuung",

	// Schönheit & Körperpflege
	"Friseur", "Kosmetik", "Nagelstudio", "Kosmetikstudio", "Tattoo",
	"Piercing", "Sonnenstudio", "Barbershop", "Beautysalon",
	"Haarentfernung", "Permanent Makeup",

	// Gastronomie
	"Restaurant", "Gaststätte", "Pizzeria", "Imbiss", "Döner",
	"Asia Restaurant", "Italiener", "Grieche", "Café", "Bäckerei",
	"Konditorei", "Metzgerei", "Fleischerei", "Eisdiele", "Kneipe", "Bar",
	"Biergarten", "Catering", "Partyservice", "Lieferservice",

	// Einzelhandel
	"Blumenladen", "Florist", "Boutique", "Bekleidung", "Schuhladen",
	"Schmuck", "Uhren", "Optiker", "Hörgeräte", "Sanitätshaus", "Apotheke",
	"Reformhaus", "Bioladen", "Weinhandlung", "Getränkemarkt", "Tabak",
	"Kiosk", "Schreibwaren", "Spielwaren", "Elektrogeräte",
	"Haushaltsgeräte", "Möbel", "Küchen", "Raumausstatter", "Gardinen",
	"Teppiche", "Lampen", "Antiquitäten", "Second Hand", "Tierhandlung",
	"Zoofachhandel", "Angelbedarf", "Sportgeschäft", "Fahrradladen",
	"Musikinstrumente", "Bürobedarf", "Druckerei", "Copyshop",

	// Auto & Mobilität
	"Autowerkstatt", "KFZ Werkstatt", "Reifenservice", "Autolackierung",
	"Autoaufbereitung", "Autopflege", "Autohaus", "Autovermietung",
	"Fahrschule", "Abschleppdienst", "Motorrad", "Tankstelle",

	// Dienstleistungen
	"Schlüsseldienst", "Reinigung", "Gebäudereinigung", "Hausmeisterservice",
	"Umzug", "Entrümpelung", "Schädlingsbekämpfung", "Kammerjäger",
	"Wäscherei", "Änderungsschneiderei", "Schneider", "Schuhmacher",
	"Polsterei", "Reparaturservice", "Handy Reparatur", "Computer Reparatur",

	// Beratung & Büro
	"Steuerberater", "Rechtsanwalt", "Notar", "Wirtschaftsprüfer",
	"Unternehmensberatung", "Versicherung", "Finanzberater",
	"Immobilienmakler", "Hausverwaltung", "Buchhalter", "Übersetzer",
	"Dolmetscher", "Detektei",

	// Kreativ & Medien
	"Fotograf", "Videoproduktion", "Grafikdesign", "Werbeagentur",
	"Schilder", "Beschriftung", "Eventplanung", "DJ", "Musiker", "Künstler",

	// Bau & Architektur
	"Architekt", "Bauingenieur", "Statiker", "Vermessung", "Energieberater",
	"Sachverständiger", "Gutachter",

	// Bildung & Betreuung
	"Nachhilfe", "Musikschule", "Tanzschule", "Sprachschule", "Kindergarten",
	"Tagesmutter", "Kinderbetreuung",

	// Freizeit & Sport
	"Fitnessstudio", "Yoga", "Kampfsport", "Tanzstudio", "Reiterhof",
	"Schwimmschule", "Golfclub", "Tennisclub", "Bowling", "Billard",
	"Escape Room", "Spielhalle",

	// Haus & Garten
	"Gartenpflege", "Baumfällung", "Winterdienst", "Poolbau", "Zaunbau",
	"Terrassenbau", "Pflasterarbeiten", "Brunnen",

	// Technik & IT
	"Computer Service", "IT Service", "Telefonanlagen", "Alarmanlagen",
	"Videoüberwachung", "Elektrotechnik", "Antenne Satellit",

	// Sonstiges
	"Hotel", "Pension", "Ferienwohnung", "Campingplatz", "Bestattung",
	"Steinmetz", "Goldschmied", "Gravur", "Stempel", "Textildruck",
	"Werbemittel",
}

// TradeCategories maps a category tag to a curated trade subset
var TradeCategories = map[string][]string{
	"handwerk": {
		"Handwerker", "Maler", "Elektriker", "Sanitär", "Heizung",
		"Dachdecker", "Tischler", "Fliesenleger", "Maurer", "Glaser",
		"Schlosser", "Gartenbau", "Trockenbau",
	},
	"gesundheit": {
		"Zahnarzt", "Arzt", "Physiotherapie", "Massage", "Heilpraktiker",
		"Podologe", "Ergotherapie", "Logopädie", "Tierarzt",
	},
	"beauty": {
		"Friseur", "Kosmetik", "Nagelstudio", "Tattoo", "Barbershop",
	},
	"gastro": {
		"Restaurant", "Pizzeria", "Imbiss", "Café", "Bäckerei", "Metzgerei",
		"Bar", "Catering",
	},
	"auto": {
		"Autowerkstatt", "KFZ Werkstatt", "Reifenservice", "Autohaus",
		"Fahrschule", "Autolackierung",
	},
	"beratung": {
		"Steuerberater", "Rechtsanwalt", "Versicherung", "Immobilienmakler",
		"Finanzberater",
	},
}

// Trades returns the trade list for a category tag, or the full list when
// the tag is empty or unknown
func Trades(kategorie string) []string {
	if kategorie != "" {
		if subset, ok := TradeCategories[kategorie]; ok {
			return subset
		}
	}
	return TradeList
}

// Kategorien returns the available category tags
func Kategorien() []string {
	tags := make([]string, 0, len(TradeCategories))
	for tag := range TradeCategories {
		tags = append(tags, tag)
	}
	return tags
}
