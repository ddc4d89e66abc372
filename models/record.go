package models

import "time"

// Media types inferred from an ad's creative references.
const (
	MediaTypeImage    = "image"
	MediaTypeVideo    = "video"
	MediaTypeCarousel = "carousel"
	MediaTypeNone     = "none"
)

// NumericRange is an observed lower/upper bound pair, e.g. spend or reach.
// Upper == 0 with Lower > 0 means "at least Lower".
type NumericRange struct {
	Lower int64 `json:"lower"`
	Upper int64 `json:"upper,omitempty"`
}

// Creative is one structured variant of an ad's content (headline/body/CTA
// combinations the advertiser rotates).
type Creative struct {
	Headline string `json:"headline,omitempty"`
	Body     string `json:"body,omitempty"`
	CTA      string `json:"cta,omitempty"`
}

// RawRecord is one extracted ad. It is produced by the extraction
// collaborator, stamped with a fingerprint, and owned exclusively by the
// pipeline until delivered.
type RawRecord struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`

	AdvertiserID   string `json:"advertiser_id,omitempty"`
	AdvertiserName string `json:"advertiser_name,omitempty"`

	PrimaryText string     `json:"primary_text,omitempty"`
	CTAText     string     `json:"cta_text,omitempty"`
	Creatives   []Creative `json:"creatives,omitempty"`

	MediaURLs  []string `json:"media_urls,omitempty"`
	MediaType  string   `json:"media_type"`
	LandingURL string   `json:"landing_url,omitempty"`

	// Delivery window as reported by the library, verbatim.
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`

	SpendRange *NumericRange `json:"spend_range,omitempty"`
	ReachRange *NumericRange `json:"reach_range,omitempty"`

	Platforms []string `json:"platforms,omitempty"`

	// Provenance.
	Query     SearchQuery `json:"query"`
	ScrapedAt time.Time   `json:"scraped_at"`
	SourceURL string      `json:"source_url,omitempty"`
}

// FirstMediaURL returns the first media reference, or "" if none.
func (r *RawRecord) FirstMediaURL() string {
	if len(r.MediaURLs) == 0 {
		return ""
	}
	return r.MediaURLs[0]
}
