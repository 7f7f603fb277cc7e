package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"conflict-signal/internal/domain"
)

// ComputeEventID computes a deterministic event id using SHA256.
// Formula: SHA256(article_id|event_type|state|lga)
// Re-extraction of the same article yields the same id, which the
// unique constraint on parsed_events turns into an idempotent insert.
// Returns hex-encoded hash (64 characters).
func ComputeEventID(
	articleID string,
	eventType domain.EventType,
	state string,
	lga string,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		articleID,
		string(eventType),
		state,
		lga,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
