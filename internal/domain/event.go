package domain

import (
	"strings"
	"time"
)

// EventType classifies the kind of conflict incident described by an article.
type EventType string

const (
	EventAttack     EventType = "attack"
	EventProtest    EventType = "protest"
	EventClash      EventType = "clash"
	EventKidnapping EventType = "kidnapping"
	EventBanditry   EventType = "banditry"
	EventTerrorism  EventType = "terrorism"
	EventCommunal   EventType = "communal"
	EventViolence   EventType = "violence"
	EventConflict   EventType = "conflict"
	EventOther      EventType = "other"
	EventUnknown    EventType = "unknown"
)

// knownEventTypes is the closed set accepted from the LLM.
var knownEventTypes = map[EventType]bool{
	EventAttack: true, EventProtest: true, EventClash: true,
	EventKidnapping: true, EventBanditry: true, EventTerrorism: true,
	EventCommunal: true, EventViolence: true, EventConflict: true,
	EventOther: true,
}

// MapEventType lowercases a raw LLM value and coerces anything outside
// the allowed set to "unknown".
func MapEventType(raw string) EventType {
	t := EventType(strings.ToLower(strings.TrimSpace(raw)))
	if knownEventTypes[t] {
		return t
	}
	return EventUnknown
}

// Severity is the qualitative impact level reported by the LLM.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
	SeverityUnknown  Severity = "unknown"
)

var knownSeverities = map[Severity]bool{
	SeverityLow: true, SeverityMedium: true, SeverityHigh: true, SeverityCritical: true,
}

// MapSeverity lowercases a raw LLM value and coerces anything outside
// the allowed set to "unknown".
func MapSeverity(raw string) Severity {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	if knownSeverities[s] {
		return s
	}
	return SeverityUnknown
}

// ParsedEvent is a structured conflict event extracted from an article.
// Corresponds to the parsed_events table. Immutable once created;
// ArticleID is unique so re-delivery of the same article is a no-op.
type ParsedEvent struct {
	ID            string    `json:"id"`
	ArticleID     string    `json:"article_id"`
	EventType     EventType `json:"event_type"`
	State         string    `json:"state"`
	LGA           string    `json:"lga"`
	Severity      Severity  `json:"severity"`
	Fatalities    int       `json:"fatalities"`
	ConflictActor *string   `json:"conflict_actor,omitempty"`
	SourceTitle   string    `json:"source_title"`
	SourceURL     string    `json:"source_url"`
	Content       string    `json:"content,omitempty"` // carried for keyword detection downstream
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	Confidence    *float64  `json:"confidence_score,omitempty"` // 0..100
	ParsedAt      time.Time `json:"parsed_at"`
}

// HasCoordinates reports whether the event carries a usable location.
func (e *ParsedEvent) HasCoordinates() bool {
	return e.Latitude != nil && e.Longitude != nil
}
