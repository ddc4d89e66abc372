package extract

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/passportdog/Apify-Local-Radar/models"
)

// CardSelector matches one ad card in the library's rendered results. The
// pagination controller counts it in-page; keep the two in sync through
// this constant.
const CardSelector = `div[data-ad-id]`

// Precompiled selectors for the ad-library card layout. Kept in one place
// because they are the only part of the pipeline coupled to markup.
var (
	selCard       = cascadia.MustCompile(CardSelector)
	selAdvertiser = cascadia.MustCompile(`a[data-page-id]`)
	selBody       = cascadia.MustCompile(`div[data-ad-preview="message"]`)
	selCTA        = cascadia.MustCompile(`div[data-cta-type]`)
	selImage      = cascadia.MustCompile(`img[data-ad-media]`)
	selVideo      = cascadia.MustCompile(`video[data-ad-media] source, video[data-ad-media]`)
	selLanding    = cascadia.MustCompile(`a[data-landing]`)
	selPlatform   = cascadia.MustCompile(`li[data-platform]`)
	selDates      = cascadia.MustCompile(`span[data-ad-dates]`)
	selSpend      = cascadia.MustCompile(`span[data-ad-spend]`)
	selReach      = cascadia.MustCompile(`span[data-ad-reach]`)
	selCreative   = cascadia.MustCompile(`div[data-creative-variant]`)
)

// CardExtractor is the default goquery-based extraction collaborator.
type CardExtractor struct {
	// SourceURL is stamped on every record as provenance.
	SourceURL string
}

// NewCardExtractor creates a CardExtractor for pages served from sourceURL.
func NewCardExtractor(sourceURL string) *CardExtractor {
	return &CardExtractor{SourceURL: sourceURL}
}

// Extract parses the rendered HTML and returns one record per well-formed
// ad card. Malformed cards are skipped with a debug log; zero cards is a
// valid empty outcome.
func (e *CardExtractor) Extract(html string, q models.SearchQuery) ([]*models.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, models.NewHarvestError(models.ErrCodeExtraction, "parse page HTML", err)
	}

	var records []*models.RawRecord
	doc.FindMatcher(selCard).Each(func(i int, card *goquery.Selection) {
		rec, ok := e.extractCard(card, q)
		if !ok {
			slog.Debug("skipping malformed ad card", "index", i, "query", q.Identity())
			return
		}
		records = append(records, rec)
	})

	return records, nil
}

// extractCard pulls one record out of a card node. Returns ok=false when
// the card carries neither an advertiser nor any text, which means the
// layout matched but the content did not render.
func (e *CardExtractor) extractCard(card *goquery.Selection, q models.SearchQuery) (*models.RawRecord, bool) {
	rec := &models.RawRecord{
		ID:        card.AttrOr("data-ad-id", ""),
		Query:     q,
		ScrapedAt: time.Now().UTC(),
		SourceURL: e.SourceURL,
	}
	if rec.ID == "" {
		rec.ID = "ad-" + randomID()
	}

	if adv := card.FindMatcher(selAdvertiser).First(); adv.Length() > 0 {
		rec.AdvertiserID = adv.AttrOr("data-page-id", "")
		rec.AdvertiserName = cleanText(adv.Text())
	}

	rec.PrimaryText = cleanText(card.FindMatcher(selBody).First().Text())
	rec.CTAText = cleanText(card.FindMatcher(selCTA).First().Text())
	rec.LandingURL = card.FindMatcher(selLanding).First().AttrOr("href", "")

	if rec.AdvertiserName == "" && rec.PrimaryText == "" {
		return nil, false
	}

	// Media references and inferred type.
	var videos int
	card.FindMatcher(selVideo).Each(func(_ int, s *goquery.Selection) {
		if src := s.AttrOr("src", ""); src != "" {
			rec.MediaURLs = append(rec.MediaURLs, src)
			videos++
		}
	})
	var images int
	card.FindMatcher(selImage).Each(func(_ int, s *goquery.Selection) {
		if src := s.AttrOr("src", ""); src != "" {
			rec.MediaURLs = append(rec.MediaURLs, src)
			images++
		}
	})
	switch {
	case videos > 0:
		rec.MediaType = models.MediaTypeVideo
	case images > 1:
		rec.MediaType = models.MediaTypeCarousel
	case images == 1:
		rec.MediaType = models.MediaTypeImage
	default:
		rec.MediaType = models.MediaTypeNone
	}

	// Creative variants (headline/body/CTA rotations).
	card.FindMatcher(selCreative).Each(func(_ int, s *goquery.Selection) {
		c := models.Creative{
			Headline: cleanText(s.AttrOr("data-headline", "")),
			Body:     cleanText(s.Text()),
			CTA:      cleanText(s.AttrOr("data-cta", "")),
		}
		if c.Headline != "" || c.Body != "" || c.CTA != "" {
			rec.Creatives = append(rec.Creatives, c)
		}
	})

	card.FindMatcher(selPlatform).Each(func(_ int, s *goquery.Selection) {
		if p := s.AttrOr("data-platform", ""); p != "" {
			rec.Platforms = append(rec.Platforms, p)
		}
	})

	rec.StartDate, rec.EndDate = parseDates(card.FindMatcher(selDates).First().Text())
	rec.SpendRange = parseNumericRange(card.FindMatcher(selSpend).First().Text())
	rec.ReachRange = parseNumericRange(card.FindMatcher(selReach).First().Text())

	return rec, true
}

// cleanText collapses whitespace in extracted node text.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseDates splits the library's delivery-window label, e.g.
// "Started running on Aug 1, 2026" or "Aug 1, 2026 - Aug 20, 2026".
func parseDates(s string) (start, end string) {
	s = cleanText(s)
	s = strings.TrimPrefix(s, "Started running on ")
	if s == "" {
		return "", ""
	}
	for _, sep := range []string{" - ", " – "} {
		if i := strings.Index(s, sep); i >= 0 {
			return s[:i], s[i+len(sep):]
		}
	}
	return s, ""
}

// parseNumericRange parses observed spend/reach labels such as
// "$100 - $499", "10K - 49K", "<$100", or "1,000,000+". Returns nil when
// the label is absent or unparseable.
func parseNumericRange(s string) *models.NumericRange {
	s = cleanText(s)
	if s == "" {
		return nil
	}

	if strings.HasPrefix(s, "<") {
		if v, ok := parseAmount(s[1:]); ok {
			return &models.NumericRange{Lower: 0, Upper: v}
		}
		return nil
	}
	if strings.HasSuffix(s, "+") {
		if v, ok := parseAmount(strings.TrimSuffix(s, "+")); ok {
			return &models.NumericRange{Lower: v}
		}
		return nil
	}

	for _, sep := range []string{" - ", "–", "-"} {
		if i := strings.Index(s, sep); i > 0 {
			lo, okLo := parseAmount(s[:i])
			hi, okHi := parseAmount(s[i+len(sep):])
			if okLo && okHi {
				return &models.NumericRange{Lower: lo, Upper: hi}
			}
			return nil
		}
	}

	if v, ok := parseAmount(s); ok {
		return &models.NumericRange{Lower: v, Upper: v}
	}
	return nil
}

// parseAmount parses a single amount like "$1,234", "10K", or "2M".
func parseAmount(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}

	mult := int64(1)
	switch s[len(s)-1] {
	case 'K', 'k':
		mult = 1_000
		s = s[:len(s)-1]
	case 'M', 'm':
		mult = 1_000_000
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return int64(v * float64(mult)), true
}

// randomID generates a short random hex string for records missing a
// library-assigned id.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
