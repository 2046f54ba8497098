package fetcher

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

// Browser renders a page in a real browser engine.
type Browser interface {
	Render(ctx context.Context, url string) (string, error)
}

// ChromeBrowser renders pages with a headless Chrome via chromedp. A fresh
// browser process is started per call.
type ChromeBrowser struct {
	timeout   time.Duration
	userAgent string
	execPath  string
}

// NewChromeBrowser creates a headless renderer. execPath may be empty to let
// chromedp locate Chrome.
func NewChromeBrowser(timeout time.Duration, execPath string) *ChromeBrowser {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ChromeBrowser{
		timeout:   timeout,
		userAgent: DefaultUserAgents[0],
		execPath:  execPath,
	}
}

// Render navigates to url and returns the rendered document HTML.
func (b *ChromeBrowser) Render(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(b.userAgent),
	)
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	runCtx, cancel := context.WithTimeout(browserCtx, b.timeout)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: render %s", url)
	}
	return html, nil
}
