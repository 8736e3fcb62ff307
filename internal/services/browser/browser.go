package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/models"
	"github.com/ternarybob/prospect/internal/services/proxy"
	"github.com/ternarybob/prospect/internal/useragent"
)

// stealthScripts are injected on every new document to mask automation
// markers before page scripts observe them.
var stealthScripts = []string{
	`Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`,
	`window.chrome = { runtime: {} };`,
	`Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });`,
	`Object.defineProperty(navigator, 'languages', { get: () => ['de-DE', 'de', 'en-US', 'en'] });`,
}

// Client drives a single headless-browser surface for JavaScript-rendered
// pages. The browser context is torn down and re-created with a fresh
// identity (and proxy, when rotation is enabled) every rotateEveryN
// navigations.
type Client struct {
	cfg     common.BrowserConfig
	pool    *useragent.Pool
	proxies *proxy.Rotator
	logger  arbor.ILogger

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc

	currentProxy *proxy.Entry
	navCount     int
}

// New creates an unstarted browser client. The first Navigate starts the
// browser lazily.
func New(cfg common.BrowserConfig, pool *useragent.Pool, proxies *proxy.Rotator, logger arbor.ILogger) *Client {
	return &Client{
		cfg:     cfg,
		pool:    pool,
		proxies: proxies,
		logger:  logger,
	}
}

// Start launches the browser with a fresh identity
func (c *Client) Start() error {
	return c.createContext()
}

func (c *Client) createContext() error {
	c.teardown()

	identity := c.pool.Random()

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", "de-DE"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(identity.UserAgent),
	)

	if c.proxies != nil && c.proxies.Enabled() {
		if entry := c.proxies.Next(); entry != nil {
			c.currentProxy = entry
			opts = append(opts, chromedp.ProxyServer(entry.URL()))
		}
	}

	c.allocatorCtx, c.allocatorCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	c.browserCtx, c.browserCancel = chromedp.NewContext(c.allocatorCtx)

	// Startup test plus stealth script registration.
	startupCtx, cancel := context.WithTimeout(c.browserCtx, 30*time.Second)
	defer cancel()

	actions := []chromedp.Action{
		chromedp.Navigate("about:blank"),
		emulation.SetTimezoneOverride("Europe/Berlin"),
	}
	for _, script := range stealthScripts {
		script := script
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
			return err
		}))
	}

	if err := chromedp.Run(startupCtx, actions...); err != nil {
		c.teardown()
		return fmt.Errorf("browser failed startup test: %w", err)
	}

	c.logger.Debug().
		Str("user_agent", identity.UserAgent).
		Bool("headless", c.cfg.Headless).
		Msg("Browser context created")

	return nil
}

// rotateIfNeeded re-creates the browser context every rotateEveryN
// navigations
func (c *Client) rotateIfNeeded() error {
	c.navCount++
	if c.cfg.RotateEveryN > 0 && c.navCount >= c.cfg.RotateEveryN {
		c.navCount = 0
		c.logger.Debug().Msg("Rotating browser context")
		return c.createContext()
	}
	return nil
}

// Navigate loads a URL and returns the rendered document. With waitReady
// the call waits for the document body to be visible before capturing.
func (c *Client) Navigate(ctx context.Context, url string, waitReady bool) (*models.FetchResponse, error) {
	if c.browserCtx == nil {
		if err := c.createContext(); err != nil {
			return nil, err
		}
	} else if err := c.rotateIfNeeded(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &models.FetchResponse{URL: url, FinalURL: url}

	navCtx, cancel := context.WithTimeout(c.browserCtx, c.cfg.NavigationTimeout)
	defer cancel()
	go func() {
		// Propagate caller cancellation into the navigation.
		select {
		case <-ctx.Done():
			cancel()
		case <-navCtx.Done():
		}
	}()

	var body, finalURL string
	actions := []chromedp.Action{chromedp.Navigate(url)}
	if waitReady {
		actions = append(actions, chromedp.WaitReady("body", chromedp.ByQuery))
	}
	actions = append(actions,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &body, chromedp.ByQuery),
	)

	err := chromedp.Run(navCtx, actions...)
	result.ElapsedMS = time.Since(start).Milliseconds()

	if err != nil {
		if c.currentProxy != nil {
			c.proxies.ReportFailure(c.currentProxy, false)
		}
		result.Error = err.Error()
		return result, nil
	}

	if c.currentProxy != nil {
		c.proxies.ReportSuccess(c.currentProxy)
	}

	result.Success = true
	result.StatusCode = 200
	result.Body = body
	result.FinalURL = finalURL
	return result, nil
}

// WaitForSelector waits until the selector is visible, returning false on
// timeout
func (c *Client) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) bool {
	if c.browserCtx == nil {
		return false
	}

	waitCtx, cancel := context.WithTimeout(c.browserCtx, timeout)
	defer cancel()

	err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
	return err == nil
}

// ScrollWithin scrolls inside a container element (a results panel) until
// no further scroll progress is made or maxScrolls is reached. Returns the
// number of effective scrolls.
func (c *Client) ScrollWithin(ctx context.Context, selector string, pause time.Duration, maxScrolls int) int {
	if c.browserCtx == nil {
		return 0
	}

	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		const before = el.scrollTop;
		el.scrollTop = el.scrollHeight;
		return el.scrollTop !== before;
	})()`, selector)

	count := 0
	for i := 0; i < maxScrolls; i++ {
		var scrolled bool
		if err := chromedp.Run(c.browserCtx, chromedp.Evaluate(script, &scrolled)); err != nil || !scrolled {
			break
		}
		count++
		if err := sleepCtx(ctx, pause); err != nil {
			break
		}
	}
	return count
}

// ScrollToBottom scrolls the page until the document height stops growing
func (c *Client) ScrollToBottom(ctx context.Context, pause time.Duration, maxScrolls int) int {
	if c.browserCtx == nil {
		return 0
	}

	count := 0
	lastHeight := int64(-1)
	for i := 0; i < maxScrolls; i++ {
		var height int64
		err := chromedp.Run(c.browserCtx,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight); document.body.scrollHeight`, &height),
		)
		if err != nil || height == lastHeight {
			break
		}
		lastHeight = height
		count++
		if err := sleepCtx(ctx, pause); err != nil {
			break
		}
	}
	return count
}

// Click clicks the first element matching the selector
func (c *Client) Click(ctx context.Context, selector string) bool {
	if c.browserCtx == nil {
		return false
	}

	clickCtx, cancel := context.WithTimeout(c.browserCtx, 5*time.Second)
	defer cancel()

	return chromedp.Run(clickCtx, chromedp.Click(selector, chromedp.ByQuery)) == nil
}

// Evaluate runs a script and unmarshals its result
func (c *Client) Evaluate(ctx context.Context, script string, result interface{}) error {
	if c.browserCtx == nil {
		return fmt.Errorf("browser not started")
	}
	return chromedp.Run(c.browserCtx, chromedp.Evaluate(script, result))
}

// Content returns the current rendered document
func (c *Client) Content(ctx context.Context) (string, error) {
	if c.browserCtx == nil {
		return "", fmt.Errorf("browser not started")
	}

	var body string
	if err := chromedp.Run(c.browserCtx, chromedp.OuterHTML("html", &body, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return body, nil
}

// Close shuts the browser down
func (c *Client) Close() error {
	c.teardown()
	c.logger.Debug().Msg("Browser closed")
	return nil
}

func (c *Client) teardown() {
	if c.browserCancel != nil {
		c.browserCancel()
		c.browserCancel = nil
		c.browserCtx = nil
	}
	if c.allocatorCancel != nil {
		c.allocatorCancel()
		c.allocatorCancel = nil
		c.allocatorCtx = nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
