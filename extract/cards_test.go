package extract

import (
	"testing"

	"github.com/passportdog/Apify-Local-Radar/models"
)

const fixturePage = `
<html><body>
<div id="results">
  <div data-ad-id="100200300">
    <a data-page-id="114477" data-landing href="https://ocalagolfcarts.example.com/?utm_source=ads">Ocala Golf Carts</a>
    <div data-ad-preview="message">New and used golf carts. Financing available!</div>
    <div data-cta-type="shop">Shop Now</div>
    <img data-ad-media src="https://cdn.example.com/media/cart1.jpg?bust=1692991231">
    <span data-ad-dates>Started running on Aug 1, 2026</span>
    <span data-ad-spend>$100 - $499</span>
    <span data-ad-reach>10K - 49K</span>
    <ul><li data-platform="facebook"></li><li data-platform="instagram"></li></ul>
    <div data-creative-variant data-headline="Summer Sale" data-cta="Shop Now">Up to 20% off all carts</div>
  </div>

  <div data-ad-id="100200301">
    <a data-page-id="114477">Ocala Golf Carts</a>
    <div data-ad-preview="message">Tour our showroom this weekend.</div>
    <video data-ad-media><source src="https://cdn.example.com/media/tour.mp4"></video>
    <span data-ad-dates>Aug 1, 2026 - Aug 20, 2026</span>
    <span data-ad-reach>1,000,000+</span>
  </div>

  <div data-ad-id="100200302">
    <a data-page-id="88221">Marion Carts Outlet</a>
    <div data-ad-preview="message">Carousel of our best sellers.</div>
    <img data-ad-media src="https://cdn.example.com/media/a.jpg">
    <img data-ad-media src="https://cdn.example.com/media/b.jpg">
    <span data-ad-spend>&lt;$100</span>
  </div>

  <!-- malformed: matched card shell with no rendered content -->
  <div data-ad-id="100200399"></div>
</div>
</body></html>`

func golfQuery() models.SearchQuery {
	return models.SearchQuery{Keyword: "golf cart", Location: "Ocala FL"}
}

func TestExtract_Cards(t *testing.T) {
	ex := NewCardExtractor("https://adlibrary.example.com/search?q=golf+cart")
	records, err := ex.Extract(fixturePage, golfQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3 (malformed card must be skipped)", len(records))
	}

	first := records[0]
	if first.ID != "100200300" {
		t.Errorf("ID = %q, want 100200300", first.ID)
	}
	if first.AdvertiserID != "114477" || first.AdvertiserName != "Ocala Golf Carts" {
		t.Errorf("advertiser = %q/%q", first.AdvertiserID, first.AdvertiserName)
	}
	if first.PrimaryText != "New and used golf carts. Financing available!" {
		t.Errorf("primary text = %q", first.PrimaryText)
	}
	if first.CTAText != "Shop Now" {
		t.Errorf("cta = %q", first.CTAText)
	}
	// Media URL is preserved verbatim; query-string stripping is the
	// fingerprint engine's job.
	if first.FirstMediaURL() != "https://cdn.example.com/media/cart1.jpg?bust=1692991231" {
		t.Errorf("media url = %q", first.FirstMediaURL())
	}
	if first.MediaType != models.MediaTypeImage {
		t.Errorf("media type = %q, want image", first.MediaType)
	}
	if first.StartDate != "Aug 1, 2026" || first.EndDate != "" {
		t.Errorf("dates = %q/%q", first.StartDate, first.EndDate)
	}
	if first.SpendRange == nil || first.SpendRange.Lower != 100 || first.SpendRange.Upper != 499 {
		t.Errorf("spend = %+v", first.SpendRange)
	}
	if first.ReachRange == nil || first.ReachRange.Lower != 10_000 || first.ReachRange.Upper != 49_000 {
		t.Errorf("reach = %+v", first.ReachRange)
	}
	if len(first.Platforms) != 2 {
		t.Errorf("platforms = %v", first.Platforms)
	}
	if len(first.Creatives) != 1 || first.Creatives[0].Headline != "Summer Sale" {
		t.Errorf("creatives = %+v", first.Creatives)
	}
	if first.Query.Keyword != "golf cart" {
		t.Errorf("query context = %+v", first.Query)
	}
	if first.SourceURL == "" || first.ScrapedAt.IsZero() {
		t.Error("provenance fields must be stamped")
	}
}

func TestExtract_MediaTypeInference(t *testing.T) {
	ex := NewCardExtractor("")
	records, err := ex.Extract(fixturePage, golfQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := records[1].MediaType; got != models.MediaTypeVideo {
		t.Errorf("video card media type = %q", got)
	}
	if got := records[2].MediaType; got != models.MediaTypeCarousel {
		t.Errorf("carousel card media type = %q", got)
	}
}

func TestExtract_OpenRanges(t *testing.T) {
	ex := NewCardExtractor("")
	records, err := ex.Extract(fixturePage, golfQuery())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reach := records[1].ReachRange
	if reach == nil || reach.Lower != 1_000_000 || reach.Upper != 0 {
		t.Errorf("open-ended reach = %+v, want lower=1000000 upper=0", reach)
	}
	spend := records[2].SpendRange
	if spend == nil || spend.Lower != 0 || spend.Upper != 100 {
		t.Errorf("capped spend = %+v, want lower=0 upper=100", spend)
	}
}

func TestExtract_NoResults(t *testing.T) {
	ex := NewCardExtractor("")
	records, err := ex.Extract(`<html><body><div id="results"></div></body></html>`, golfQuery())
	if err != nil {
		t.Fatalf("no results must not be an error, got: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestParseNumericRange(t *testing.T) {
	tests := []struct {
		in   string
		want *models.NumericRange
	}{
		{"$100 - $499", &models.NumericRange{Lower: 100, Upper: 499}},
		{"10K - 49K", &models.NumericRange{Lower: 10_000, Upper: 49_000}},
		{"2M+", &models.NumericRange{Lower: 2_000_000}},
		{"<$100", &models.NumericRange{Lower: 0, Upper: 100}},
		{"1,234", &models.NumericRange{Lower: 1234, Upper: 1234}},
		{"", nil},
		{"not a range", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseNumericRange(tt.in)
			switch {
			case got == nil && tt.want == nil:
			case got == nil || tt.want == nil:
				t.Errorf("parseNumericRange(%q) = %+v, want %+v", tt.in, got, tt.want)
			case *got != *tt.want:
				t.Errorf("parseNumericRange(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
