package risk

import (
	"strings"

	"conflict-signal/internal/domain"
)

// Scoring constants. BaseScore is the floor every event starts from;
// the thresholds gate the economic modifiers.
const (
	BaseScore          = 30.0
	InflationThreshold = 20.0
	FuelPriceBaseline  = 650.0
	ClashFloor         = 81.0
)

// eventTypeScores are the per-type additions to the base score.
var eventTypeScores = map[domain.EventType]float64{
	domain.EventClash:      40,
	domain.EventAttack:     36,
	domain.EventConflict:   35,
	domain.EventViolence:   35,
	domain.EventTerrorism:  33,
	domain.EventBanditry:   30,
	domain.EventKidnapping: 26,
	domain.EventCommunal:   22,
	domain.EventProtest:    10,
	domain.EventOther:      3,
	domain.EventUnknown:    15,
}

const defaultEventTypeScore = 15.0

// severityScores are the per-severity additions to the base score.
var severityScores = map[domain.Severity]float64{
	domain.SeverityLow:      3,
	domain.SeverityMedium:   10,
	domain.SeverityHigh:     20,
	domain.SeverityCritical: 30,
}

const defaultSeverityScore = 5.0

func eventTypeScore(t domain.EventType) float64 {
	if s, ok := eventTypeScores[t]; ok {
		return s
	}
	return defaultEventTypeScore
}

func severityScore(s domain.Severity) float64 {
	if v, ok := severityScores[s]; ok {
		return v
	}
	return defaultSeverityScore
}

// urbanLGAs is the closed set of LGAs treated as urban centers for the
// Economic Igniter multiplier. Lowercased.
var urbanLGAs = map[string]bool{
	// Lagos
	"ikeja": true, "lagos island": true, "lagos mainland": true, "surulere": true,
	"eti-osa": true, "apapa": true, "kosofe": true, "oshodi-isolo": true,
	"alimosho": true, "ajeromi-ifelodun": true, "mushin": true,
	// FCT
	"abuja municipal": true, "gwagwalada": true, "kuje": true, "abaji": true,
	"bwari": true, "kwali": true,
	// Kano
	"kano municipal": true, "nassarawa": true, "fagge": true, "dala": true,
	"gwale": true, "tarauni": true,
	// Rivers (Port Harcourt)
	"port harcourt": true, "obio-akpor": true, "eleme": true, "okrika": true,
	// Kaduna
	"kaduna north": true, "kaduna south": true, "chikun": true, "igabi": true,
	// Oyo (Ibadan)
	"ibadan north": true, "ibadan south-west": true, "ibadan north-east": true,
	"ibadan south-east": true, "ibadan north-west": true,
	// Enugu
	"enugu north": true, "enugu south": true, "enugu east": true,
	// Anambra (Onitsha, Awka)
	"onitsha north": true, "onitsha south": true, "awka north": true, "awka south": true,
	// Delta (Warri, Asaba)
	"warri south": true, "warri north": true, "warri south-west": true, "oshimili south": true,
	// Edo (Benin City)
	"oredo": true, "egor": true, "ikpoba-okha": true,
	// Abia (Aba, Umuahia)
	"aba north": true, "aba south": true, "umuahia north": true, "umuahia south": true,
	// Plateau (Jos)
	"jos north": true, "jos south": true, "jos east": true,
	// Benue (Makurdi)
	"makurdi": true,
	// Cross River (Calabar)
	"calabar municipal": true, "calabar south": true,
	// Akwa Ibom (Uyo)
	"uyo": true,
	// Bauchi
	"bauchi": true,
	// Borno (Maiduguri)
	"maiduguri": true,
	// Gombe
	"gombe": true,
	// Imo (Owerri)
	"owerri municipal": true, "owerri north": true, "owerri west": true,
	// Kwara (Ilorin)
	"ilorin west": true, "ilorin east": true, "ilorin south": true,
	// Niger (Minna)
	"minna": true,
	// Ondo (Akure)
	"akure south": true, "akure north": true,
	// Osun (Osogbo)
	"osogbo": true,
	// Ogun (Abeokuta)
	"abeokuta south": true, "abeokuta north": true,
	// Sokoto
	"sokoto north": true, "sokoto south": true,
	// Yobe (Damaturu)
	"damaturu": true,
	// Zamfara (Gusau)
	"gusau": true,
}

// IsUrbanLGA reports whether an LGA counts as an urban center.
func IsUrbanLGA(lga string) bool {
	return urbanLGAs[strings.ToLower(strings.TrimSpace(lga))]
}

// farmerHerderKeywords mark land-competition conflicts in article text.
var farmerHerderKeywords = []string{
	"farmer", "herder", "herdsmen", "fulani", "pastoralist",
	"cattle", "grazing", "farmland", "crop", "livestock",
	"communal clash", "land dispute",
}

// isFarmerHerderText scans title, content, type and actor text for
// farmer-herder markers.
func isFarmerHerderText(e *domain.ParsedEvent) bool {
	var b strings.Builder
	b.WriteString(e.SourceTitle)
	b.WriteByte(' ')
	b.WriteString(e.Content)
	b.WriteByte(' ')
	b.WriteString(string(e.EventType))
	if e.ConflictActor != nil {
		b.WriteByte(' ')
		b.WriteString(*e.ConflictActor)
	}
	text := strings.ToLower(b.String())
	for _, kw := range farmerHerderKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// CategoryForEventType maps an event type to its conflict category and
// classification confidence.
func CategoryForEventType(t domain.EventType) (string, int) {
	switch t {
	case domain.EventClash:
		return "Organized Banditry", 94
	case domain.EventBanditry:
		return "Organized Banditry", 93
	case domain.EventAttack:
		return "Organized Banditry", 91
	case domain.EventKidnapping:
		return "Kidnapping-for-Ransom", 87
	case domain.EventTerrorism:
		return "Sectarian Insurgency", 95
	case domain.EventProtest:
		return "Sectarian Insurgency", 78
	case domain.EventCommunal:
		return "Farmer-Herder Clashes", 88
	case domain.EventViolence:
		return "Gunmen Violence", 84
	case domain.EventConflict:
		return "Gunmen Violence", 72
	default:
		return "Unknown", 0
	}
}
