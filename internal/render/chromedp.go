package render

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"n8n-snap/internal/model"
)

// deviceScaleFactor doubles the raster density for retina-quality output.
const deviceScaleFactor = 2

// BrowserClient renders workflows by driving a shared headless Chromium
// instance. Each Render call runs in its own tab, so the client is safe for
// concurrent use from multiple workers.
type BrowserClient struct {
	serverURL string
	log       zerolog.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
}

type BrowserOptions struct {
	ServerURL string
	Logger    zerolog.Logger
}

// NewBrowserClient launches the headless browser. Close must be called to
// tear it down.
func NewBrowserClient(ctx context.Context, opts BrowserOptions) (*BrowserClient, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		// The workflow visualization lives in a cross-origin iframe.
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)

	// Force the browser process up front so startup failures surface here
	// instead of inside the first job.
	if err := chromedp.Run(browserCtx); err != nil {
		browserStop()
		allocCancel()
		return nil, fmt.Errorf("start headless browser: %w", err)
	}

	opts.Logger.Info().Str("server_url", opts.ServerURL).Msg("headless browser started")
	return &BrowserClient{
		serverURL:   opts.ServerURL,
		log:         opts.Logger,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		browserStop: browserStop,
	}, nil
}

func (c *BrowserClient) Close() {
	c.log.Info().Msg("closing headless browser")
	c.browserStop()
	c.allocCancel()
}

// Render satisfies Client. The configured timeout covers the whole call;
// the worker pool applies its own budget on top of this one.
func (c *BrowserClient) Render(ctx context.Context, workflow []byte, cfg model.RenderConfig) ([]byte, error) {
	if err := ValidatePayload(workflow); err != nil {
		return nil, err
	}

	attempts := cfg.Retries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		png, err := c.renderAttempt(ctx, workflow, cfg)
		if err == nil {
			return png, nil
		}
		lastErr = err
		c.log.Warn().Err(err).Int("attempt", attempt).Int("attempts", attempts).Msg("render attempt failed")
		if attempt == attempts || ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil, classify(ctx, ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	return nil, lastErr
}

func (c *BrowserClient) renderAttempt(ctx context.Context, workflow []byte, cfg model.RenderConfig) ([]byte, error) {
	tabCtx, cancelTab := chromedp.NewContext(c.browserCtx)
	defer cancelTab()

	if cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, time.Duration(cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	// Abandon the tab when the run is cancelled.
	go func() {
		select {
		case <-ctx.Done():
			cancelTab()
		case <-tabCtx.Done():
		}
	}()

	renderURL := c.renderURL(workflow, cfg)
	wait := time.Duration(cfg.WaitSeconds) * time.Second

	var clip *page.Viewport
	var png []byte
	err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(cfg.Width), int64(cfg.Height), chromedp.EmulateScale(deviceScaleFactor)),
		chromedp.Navigate(renderURL),
		chromedp.WaitReady("n8n-demo", chromedp.ByQuery),
		// The iframe needs tens of seconds to lay the workflow out; there
		// is no load event to key off, only the configured wait.
		chromedp.Sleep(wait),
		chromedp.Evaluate(iframeRectJS, &clip),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if clip == nil || clip.Width <= 0 || clip.Height <= 0 {
				return renderError("workflow iframe not found in n8n-demo shadow DOM")
			}
			clip.Scale = deviceScaleFactor
			buf, err := page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithClip(clip).
				Do(ctx)
			if err != nil {
				return err
			}
			png = buf
			return nil
		}),
	)
	if err != nil {
		return nil, classify(tabCtx, err)
	}
	return png, nil
}

func (c *BrowserClient) renderURL(workflow []byte, cfg model.RenderConfig) string {
	q := url.Values{}
	q.Set("workflow", string(workflow))
	q.Set("width", strconv.Itoa(cfg.Width))
	q.Set("height", strconv.Itoa(cfg.Height))
	if cfg.DarkMode {
		q.Set("dark", "true")
	}
	return c.serverURL + "/render?" + q.Encode()
}

const iframeRectJS = `(() => {
	const demo = document.querySelector('n8n-demo');
	if (!demo || !demo.shadowRoot) return null;
	const frame = demo.shadowRoot.querySelector('iframe');
	if (!frame) return null;
	const r = frame.getBoundingClientRect();
	return {x: r.x, y: r.y, width: r.width, height: r.height};
})()`
