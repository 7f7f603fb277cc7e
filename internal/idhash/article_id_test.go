package idhash

import "testing"

func TestComputeArticleID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantLen int // hash length should be 64
	}{
		{
			name:    "plain url",
			url:     "https://example.ng/news/attack-in-zamfara",
			wantLen: 64,
		},
		{
			name:    "url with query",
			url:     "https://example.ng/news/attack-in-zamfara?utm=feed",
			wantLen: 64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeArticleID(tt.url)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeArticleID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeArticleID(tt.url)
			if got != got2 {
				t.Errorf("ComputeArticleID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeArticleID_TrimsWhitespace(t *testing.T) {
	base := ComputeArticleID("https://example.ng/a")
	padded := ComputeArticleID("  https://example.ng/a \n")
	if base != padded {
		t.Error("Surrounding whitespace should not change the id")
	}
}

func TestComputeContentHash_Normalization(t *testing.T) {
	base := ComputeContentHash("Gunmen Attack Village", "Armed men raided the village at dawn.")

	// Case and whitespace variations should collide
	variant := ComputeContentHash("gunmen   attack village", "Armed  men raided\nthe village at dawn.")
	if base != variant {
		t.Error("Whitespace/case variants should produce the same fingerprint")
	}

	// Different content should not collide
	other := ComputeContentHash("Gunmen Attack Village", "A completely different body.")
	if base == other {
		t.Error("Different content should produce different fingerprint")
	}

	if len(base) != 64 {
		t.Errorf("ComputeContentHash() length = %d, want 64", len(base))
	}
}
