package scraper

import (
	"github.com/passportdog/Apify-Local-Radar/models"
)

// Shared test helpers. Browser-dependent paths are exercised indirectly
// through the orchestrator's fakes; these cover the pure helpers.

func queryFixture() models.SearchQuery {
	return models.SearchQuery{Keyword: "golf cart", Location: "Ocala FL"}
}
