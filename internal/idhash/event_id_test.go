package idhash

import (
	"testing"

	"conflict-signal/internal/domain"
)

func TestComputeEventID(t *testing.T) {
	articleID := ComputeArticleID("https://example.ng/news/1")

	base := ComputeEventID(articleID, domain.EventClash, "Benue", "Guma")

	if len(base) != 64 {
		t.Errorf("ComputeEventID() length = %d, want 64", len(base))
	}

	// Verify determinism: same inputs should produce same output
	again := ComputeEventID(articleID, domain.EventClash, "Benue", "Guma")
	if base != again {
		t.Errorf("ComputeEventID() not deterministic: %s != %s", base, again)
	}

	// Different event_type should produce different hash
	diffType := ComputeEventID(articleID, domain.EventAttack, "Benue", "Guma")
	if base == diffType {
		t.Error("Different event_type should produce different hash")
	}

	// Different lga should produce different hash
	diffLGA := ComputeEventID(articleID, domain.EventClash, "Benue", "Makurdi")
	if base == diffLGA {
		t.Error("Different lga should produce different hash")
	}

	// Different article should produce different hash
	diffArticle := ComputeEventID(ComputeArticleID("https://example.ng/news/2"), domain.EventClash, "Benue", "Guma")
	if base == diffArticle {
		t.Error("Different article_id should produce different hash")
	}
}
