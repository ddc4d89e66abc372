// Package extract converts rendered ad-library DOM state into raw records.
//
// Extraction is the one markup-dependent part of the pipeline, so it sits
// behind the Extractor interface: the orchestrator and its tests never
// depend on live page structure.
package extract

import "github.com/passportdog/Apify-Local-Radar/models"

// Extractor converts a rendered page into raw ad records.
//
// Implementations must be total: a malformed card is skipped, never fatal,
// and a page with no matching cards yields an empty slice, not an error.
type Extractor interface {
	Extract(html string, q models.SearchQuery) ([]*models.RawRecord, error)
}
