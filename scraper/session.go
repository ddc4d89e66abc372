package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/passportdog/Apify-Local-Radar/extract"
	"github.com/passportdog/Apify-Local-Radar/models"
)

// Session is one worker's page for one query at a time. It implements
// paginate.Page. Sessions are never shared between concurrent queries.
type Session struct {
	scraper *Scraper
	page    *rod.Page
	// active is the page bound to the current query's context; set by
	// Navigate, used by all subsequent operations until Release.
	active *rod.Page
	router *rod.HijackRouter
}

// Acquire checks a session out of the pool, creating the underlying page
// on first use. Stealth JS and resource blocking are installed at creation
// so they take effect for every later navigation.
func (s *Scraper) Acquire() (*Session, error) {
	page, err := s.pagePool.Get(func() (*rod.Page, error) {
		p, err := s.browser.Page(proto.TargetCreateTarget{})
		if err != nil {
			return nil, err
		}
		// Stealth must be injected before any navigation; it persists
		// for the page's lifetime.
		if _, evalErr := p.EvalOnNewDocument(stealth.JS); evalErr != nil {
			_ = p.Close()
			return nil, evalErr
		}
		return p, nil
	})
	if err != nil {
		return nil, models.NewHarvestError(
			models.ErrCodeBrowserCrash,
			"failed to acquire page from pool",
			err,
		)
	}

	s.activeSessions.Add(1)
	sess := &Session{scraper: s, page: page}
	sess.router = setupHijack(page, s.browserCfg.BlockedResourceTypes)
	return sess, nil
}

// Release parks the session on about:blank and returns it to the pool.
// The cleanup navigation uses the original page reference, without the
// query context, so it succeeds even after the query's deadline expired.
func (sess *Session) Release() {
	if sess.router != nil {
		_ = sess.router.Stop()
		sess.router = nil
	}
	if err := sess.page.Navigate("about:blank"); err != nil {
		// The page is wedged; close it so the pool replaces it.
		_ = sess.page.Close()
	}
	sess.active = nil
	sess.scraper.pagePool.Put(sess.page)
	sess.scraper.activeSessions.Add(-1)
}

// Navigate loads the given URL under ctx and waits for the DOM to settle.
// All later session operations run against the ctx-bound page.
func (sess *Session) Navigate(ctx context.Context, target string) error {
	p := sess.page.Context(ctx)
	sess.active = p

	// A plausible referer; direct hits on deep search URLs are a bot tell.
	headers := map[string]string{}
	if u, err := url.Parse(target); err == nil {
		headers["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
	}
	if len(headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(p)
	}

	if err := p.Navigate(target); err != nil {
		return categorizeError(err, "navigation to ad library failed")
	}

	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		// Non-fatal: proceed with whatever DOM is present.
		return nil
	}
	return nil
}

// HTML returns the rendered page HTML.
func (sess *Session) HTML() (string, error) {
	html, err := sess.boundPage().HTML()
	if err != nil {
		return "", categorizeError(err, "failed to extract page HTML")
	}
	return html, nil
}

// VisibleCount measures the number of ad cards currently in the DOM.
// Implements paginate.Page.
func (sess *Session) VisibleCount() (int, error) {
	js := fmt.Sprintf(`() => document.querySelectorAll(%q).length`, extract.CardSelector)
	res, err := sess.boundPage().Eval(js)
	if err != nil {
		return 0, categorizeError(err, "failed to count visible ads")
	}
	return res.Value.Int(), nil
}

// ScrollToBottom scrolls one viewport down and then jumps to the document
// bottom, triggering the library's lazy load. Implements paginate.Page.
func (sess *Session) ScrollToBottom() error {
	p := sess.boundPage()

	res, err := p.Eval(`() => window.innerHeight`)
	if err != nil {
		return categorizeError(err, "failed to get viewport height")
	}
	// Mouse wheel first: some lazy loaders listen for wheel events, not
	// scroll position.
	if err := p.Mouse.Scroll(0, float64(res.Value.Int()), 0); err != nil {
		return categorizeError(err, "wheel scroll failed")
	}
	if _, err := p.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		return categorizeError(err, "scroll to bottom failed")
	}
	return nil
}

// ExpandAll clicks the explicit "see more" control when the layout renders
// one. Best-effort; a missing control is not an error. Implements
// paginate.Page.
func (sess *Session) ExpandAll() error {
	js := `() => {
		const btn = document.querySelector('[data-expand-control]');
		if (btn) { btn.click(); return true; }
		return false;
	}`
	_, err := sess.boundPage().Eval(js)
	return err
}

// boundPage returns the context-bound page if Navigate ran, else the raw page.
func (sess *Session) boundPage() *rod.Page {
	if sess.active != nil {
		return sess.active
	}
	return sess.page
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed HarvestErrors so the
// orchestrator can map them to retry/abandon decisions.
func categorizeError(err error, msg string) *models.HarvestError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewHarvestError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewHarvestError(models.ErrCodeTimeout, "operation canceled", err)
	default:
		return models.NewHarvestError(models.ErrCodeNavigation, msg, err)
	}
}
