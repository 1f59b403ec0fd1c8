package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"votewatch/internal/components/assert"
	"votewatch/internal/components/telemetry"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

type ChromeOptions struct {
	Headless bool
	// ExecPath overrides the Chrome binary lookup when set.
	ExecPath      string
	UserAgent     string
	WindowWidth   int
	WindowHeight  int
	LaunchTimeout time.Duration
	// ActionTimeout bounds every DevTools round trip, chromedp waits for
	// a node to become clickable without any deadline of its own.
	ActionTimeout time.Duration
}

const (
	defaultLaunchTimeout = 30 * time.Second
	defaultActionTimeout = 30 * time.Second
	dialogTimeout        = 5 * time.Second
)

// Chrome is a Driver backed by a Chrome process speaking the DevTools
// protocol.
type Chrome struct {
	tel           telemetry.API
	ctx           context.Context
	cancelTab     context.CancelFunc
	cancelAlloc   context.CancelFunc
	actionTimeout time.Duration

	mu      sync.Mutex
	dialogs []string
}

// ChromeLauncher returns a Launcher starting a new Chrome per session.
func ChromeLauncher(opts ChromeOptions, tel telemetry.API) Launcher {
	return func(ctx context.Context) (Driver, error) {
		return NewChrome(ctx, opts, tel)
	}
}

// NewChrome starts Chrome with automation fingerprints turned off. The
// session outlives ctx, it ends on Close.
func NewChrome(ctx context.Context, opts ChromeOptions, tel telemetry.API) (*Chrome, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("chrome", tel)

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
	)
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(
		allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			tel.ReportDebug("devtools error", fmt.Sprintf(format, args...))
		}),
	)

	actionTimeout := opts.ActionTimeout
	if actionTimeout <= 0 {
		actionTimeout = defaultActionTimeout
	}
	c := &Chrome{
		tel:           tel,
		ctx:           tabCtx,
		cancelTab:     cancelTab,
		cancelAlloc:   cancelAlloc,
		actionTimeout: actionTimeout,
	}
	chromedp.ListenTarget(tabCtx, c.onEvent)

	timeout := opts.LaunchTimeout
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}
	// the first Run allocates the browser and ties the process to the
	// context it is given, so it runs on the tab context itself
	launched := make(chan error, 1)
	go func() {
		launched <- chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx)
			return err
		}))
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-launched:
	case <-timer.C:
		err = fmt.Errorf("no response after %s", timeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	return c, nil
}

// onEvent records and accepts every dialog as soon as it opens. An open
// alert stalls each script evaluation on the page, including the ones
// behind URL and Title.
func (c *Chrome) onEvent(ev any) {
	opening, ok := ev.(*page.EventJavascriptDialogOpening)
	if !ok {
		return
	}
	c.mu.Lock()
	c.dialogs = append(c.dialogs, opening.Message)
	c.mu.Unlock()

	// listeners must not block the event loop
	go func() {
		ctx, cancel := context.WithTimeout(c.ctx, dialogTimeout)
		defer cancel()
		err := chromedp.Run(ctx, chromedp.ActionFunc(page.HandleJavaScriptDialog(true).Do))
		if err != nil {
			c.tel.ReportDebug("accept dialog", telemetry.KV{Key: "err", Value: err})
		}
	}()
}

// run executes actions on the tab, bounded by the caller's ctx and the
// action timeout.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	return c.runFor(ctx, c.actionTimeout, actions...)
}

func (c *Chrome) runFor(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	runCtx, cancel := context.WithDeadline(c.ctx, deadline)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}

func node(el Element) (*cdp.Node, error) {
	n, ok := el.(*cdp.Node)
	if !ok || n == nil {
		return nil, ErrStaleElement
	}
	return n, nil
}

func ids(n *cdp.Node) []cdp.NodeID {
	return []cdp.NodeID{n.NodeID}
}

func query(by By, selector string) (string, chromedp.QueryOption, error) {
	switch by {
	case ByCSS, ByTag:
		return selector, chromedp.ByQueryAll, nil
	case ByClass:
		return "." + selector, chromedp.ByQueryAll, nil
	case ByXPath:
		return selector, chromedp.BySearch, nil
	}
	return "", nil, fmt.Errorf("chrome: unknown selector kind %s", by)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) Evaluate(ctx context.Context, script string, out any) error {
	return c.run(ctx, chromedp.Evaluate(script, out))
}

func (c *Chrome) FindElements(ctx context.Context, by By, selector string) ([]Element, error) {
	return c.find(ctx, nil, by, selector)
}

func (c *Chrome) FindIn(ctx context.Context, parent Element, by By, selector string) ([]Element, error) {
	n, err := node(parent)
	if err != nil {
		return nil, err
	}
	if by == ByXPath {
		return nil, fmt.Errorf("chrome: xpath lookups cannot be scoped to an element")
	}
	return c.find(ctx, n, by, selector)
}

func (c *Chrome) find(ctx context.Context, parent *cdp.Node, by By, selector string) ([]Element, error) {
	sel, kind, err := query(by, selector)
	if err != nil {
		return nil, err
	}
	opts := []chromedp.QueryOption{kind, chromedp.AtLeast(0)}
	if parent != nil {
		opts = append(opts, chromedp.FromNode(parent))
	}

	var nodes []*cdp.Node
	if err := c.run(ctx, chromedp.Nodes(sel, &nodes, opts...)); err != nil {
		return nil, err
	}
	elements := make([]Element, len(nodes))
	for i, n := range nodes {
		elements[i] = n
	}
	return elements, nil
}

func (c *Chrome) WaitFor(ctx context.Context, by By, selector string, timeout time.Duration) error {
	sel, kind, err := query(by, selector)
	if err != nil {
		return err
	}
	err = c.runFor(ctx, timeout, chromedp.WaitReady(sel, kind))
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return ErrTimeout
	}
	return err
}

func (c *Chrome) Text(ctx context.Context, el Element) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	var text string
	err = c.run(ctx, chromedp.Text(ids(n), &text, chromedp.ByNodeID))
	return text, err
}

func (c *Chrome) Attribute(ctx context.Context, el Element, name string) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	var value string
	err = c.run(ctx, chromedp.AttributeValue(ids(n), name, &value, nil, chromedp.ByNodeID))
	return value, err
}

func (c *Chrome) Type(ctx context.Context, el Element, text string) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	return c.run(ctx,
		chromedp.Clear(ids(n), chromedp.ByNodeID),
		chromedp.SendKeys(ids(n), text, chromedp.ByNodeID),
	)
}

func (c *Chrome) Click(ctx context.Context, el Element) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	return c.run(ctx, chromedp.Click(ids(n), chromedp.ByNodeID))
}

func (c *Chrome) ScriptClick(ctx context.Context, el Element) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	return c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(n.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		_, exception, err := runtime.CallFunctionOn("function() { this.click(); }").
			WithObjectID(obj.ObjectID).
			Do(ctx)
		if err != nil {
			return err
		}
		if exception != nil {
			return exception
		}
		return nil
	}))
}

func (c *Chrome) URL(ctx context.Context) (string, error) {
	var location string
	err := c.run(ctx, chromedp.Location(&location))
	return location, err
}

func (c *Chrome) Title(ctx context.Context) (string, error) {
	var title string
	err := c.run(ctx, chromedp.Title(&title))
	return title, err
}

// DismissDialog reports the latest dialog seen since the previous call,
// onEvent has already accepted it.
func (c *Chrome) DismissDialog(ctx context.Context) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.dialogs) == 0 {
		return "", false, nil
	}
	msg := c.dialogs[len(c.dialogs)-1]
	c.dialogs = nil
	return msg, true, nil
}

func (c *Chrome) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.run(ctx,
		chromedp.OuterHTML("html", &snap.HTML, chromedp.ByQuery),
		chromedp.FullScreenshot(&snap.Screenshot, 90),
	)
	return snap, err
}

func (c *Chrome) Close() error {
	c.cancelTab()
	c.cancelAlloc()
	return nil
}
