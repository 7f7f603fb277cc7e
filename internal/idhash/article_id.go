package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ComputeArticleID computes a deterministic article id using SHA256.
// Formula: SHA256(url) over the trimmed URL.
// Returns hex-encoded hash (64 characters).
func ComputeArticleID(url string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(hash[:])
}

// ComputeContentHash computes a deduplication fingerprint using SHA256.
// Formula: SHA256(normalize(title)|normalize(content)) where normalize
// lowercases and collapses runs of whitespace to single spaces, so
// re-publications with cosmetic formatting changes collide.
// Returns hex-encoded hash (64 characters).
func ComputeContentHash(title, content string) string {
	data := normalize(title) + "|" + normalize(content)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
