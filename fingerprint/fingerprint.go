// Package fingerprint derives stable content hashes for ad records.
//
// The fingerprint is the deduplication key: two sightings of the same
// underlying ad must hash identically even when they differ in casing,
// whitespace, trailing text, or cache-busting media URL params. The mapping
// is deliberately not injective; collisions are an accepted risk because the
// downstream store upserts on fingerprint conflict.
package fingerprint

import (
	"fmt"
	"hash/fnv"
	"strings"
)

const (
	// prefix marks fingerprint strings in logs and payloads.
	prefix = "fp_"

	// textWindow bounds how much of the primary text participates in the
	// hash, so trailing variable content (timestamps, counters) of long
	// ads does not split identical creatives into distinct fingerprints.
	textWindow = 120

	// fieldSep joins the normalized fields. A control character never
	// survives DOM text extraction, so it cannot collide with field content.
	fieldSep = "\x1f"
)

// Record is the minimal view of an ad the fingerprint is computed from.
// models.RawRecord satisfies it structurally via Fields.
type Record struct {
	AdvertiserID   string
	AdvertiserName string
	PrimaryText    string
	FirstMediaURL  string
	CTAText        string
}

// Compute returns the fingerprint for the given fields. Pure and
// deterministic; missing fields are treated as empty strings.
func Compute(rec Record) string {
	parts := []string{
		rec.AdvertiserID,
		rec.AdvertiserName,
		NormalizeText(rec.PrimaryText, textWindow),
		StripQuery(rec.FirstMediaURL),
		strings.ToLower(strings.TrimSpace(rec.CTAText)),
	}

	h := fnv.New32a()
	h.Write([]byte(strings.Join(parts, fieldSep)))
	return fmt.Sprintf("%s%08x", prefix, h.Sum32())
}

// NormalizeText lower-cases s, collapses runs of whitespace to single
// spaces, and truncates to at most window runes.
func NormalizeText(s string, window int) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	runes := []rune(s)
	if len(runes) > window {
		runes = runes[:window]
	}
	return string(runes)
}

// StripQuery removes any query-string suffix from a URL, absorbing
// cache-busting params that vary between sightings of the same asset.
func StripQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
