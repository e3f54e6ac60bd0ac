package scrape

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"

	"github.com/leadboost/leadpipe/internal/model"
)

// tryHeadless renders pageURL in a headless Chrome instance and extracts
// the same fields as the plain-request fallback from the rendered DOM. The
// browser is launched fresh for this call and torn down on every exit path
// via the deferred Cleanup/Close calls — no browser process is shared
// across scrapes.
//
// A non-nil launchErr means the headless browser itself could not start in
// this environment (missing Chrome binary, sandbox restriction, ...); the
// caller falls back to the plain-request tier in that case. Any other
// failure (navigation timeout, eval error) is reported as a failed Result
// with launchErr == nil, since the browser itself is usable.
func (s *Scraper) tryHeadless(ctx context.Context, pageURL string) (result *Result, launchErr error) {
	start := time.Now()

	l := launcher.New().Headless(true).Set("disable-gpu").Set("no-sandbox")
	controlURL, err := l.Launch()
	if err != nil {
		return nil, eris.Wrap(err, "scrape: launch headless browser")
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, eris.Wrap(err, "scrape: connect to headless browser")
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return &Result{Method: string(model.SourcePlaywright), Error: err.Error(), ProcessingTimeMS: sinceMS(start)}, nil
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.WaitLoad(); err != nil {
		return &Result{Method: string(model.SourcePlaywright), Error: err.Error(), ProcessingTimeMS: sinceMS(start)}, nil
	}
	// Wait for dynamic content to settle after DOMContentLoaded.
	time.Sleep(time.Duration(s.cfg.HeadlessWaitMillis) * time.Millisecond)

	res, err := page.Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return &Result{Method: string(model.SourcePlaywright), Error: err.Error(), ProcessingTimeMS: sinceMS(start)}, nil
	}
	html := res.Value.Str()

	ex := extractFromHTML(html, pageURL)
	confidence := pageConfidence(ex)

	return &Result{
		Success:          confidence > 0,
		Data:             toResultData(ex),
		Method:           string(model.SourcePlaywright),
		Confidence:       confidence,
		ProcessingTimeMS: sinceMS(start),
	}, nil
}
