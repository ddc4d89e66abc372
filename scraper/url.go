package scraper

import (
	"net/url"

	"github.com/passportdog/Apify-Local-Radar/models"
)

// SearchURL builds the library search URL for a query. The library is an
// infinite-scroll interface; all paging happens in-page after this single
// navigation.
func SearchURL(base string, q models.SearchQuery) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", models.NewHarvestError(models.ErrCodeInvalidInput, "invalid base URL", err)
	}

	vals := u.Query()
	vals.Set("q", q.Keyword)
	vals.Set("active_status", "active")
	vals.Set("media_type", "all")
	if q.Location != "" {
		vals.Set("location", q.Location)
	}
	u.RawQuery = vals.Encode()
	return u.String(), nil
}
