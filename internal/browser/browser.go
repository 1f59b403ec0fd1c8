// Package browser defines the capability the scrapers drive a page through,
// along with a Chrome DevTools implementation for live sessions and a static
// HTML implementation for replaying saved pages.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// By selects how a selector passed to FindElements is interpreted.
type By int

const (
	// ByCSS is a CSS selector.
	ByCSS By = iota
	// ByClass is a single class name.
	ByClass
	// ByTag is an element tag name.
	ByTag
	// ByXPath is an XPath expression. The static driver only understands
	// the form produced by ContainsText.
	ByXPath
)

func (b By) String() string {
	switch b {
	case ByCSS:
		return "css"
	case ByClass:
		return "class"
	case ByTag:
		return "tag"
	case ByXPath:
		return "xpath"
	}
	return fmt.Sprintf("By(%d)", int(b))
}

// ContainsText builds an XPath matching tag elements whose own text
// contains text, "*" matches any tag.
func ContainsText(tag, text string) string {
	return fmt.Sprintf("//%s[contains(text(), '%s')]", tag, text)
}

var (
	// ErrTimeout is returned by WaitFor when nothing matched in time.
	ErrTimeout = errors.New("browser: timed out waiting for element")
	// ErrScriptUnsupported is returned by drivers that cannot run scripts.
	ErrScriptUnsupported = errors.New("browser: scripting is not supported by this driver")
	// ErrStaleElement is returned when a handle does not belong to the driver.
	ErrStaleElement = errors.New("browser: element handle is not valid for this driver")
)

// Element is a handle to a node on the current page. A handle is only
// meaningful to the Driver that produced it.
type Element any

// Snapshot is the markup and screenshot of the current page. Screenshot is
// nil for drivers that cannot render.
type Snapshot struct {
	HTML       string
	Screenshot []byte
}

// Driver is one interactive browser session. It is not safe for concurrent
// use: exactly one caller may drive a session at a time.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// Evaluate runs script in the page and decodes its value into out, out
	// may be nil when the value is not needed.
	Evaluate(ctx context.Context, script string, out any) error
	// FindElements returns every match on the page, an empty result is not
	// an error.
	FindElements(ctx context.Context, by By, selector string) ([]Element, error)
	// FindIn is FindElements scoped to the descendants of parent.
	FindIn(ctx context.Context, parent Element, by By, selector string) ([]Element, error)
	// WaitFor blocks until selector matches at least one element or timeout
	// elapses, in which case ErrTimeout is returned.
	WaitFor(ctx context.Context, by By, selector string, timeout time.Duration) error
	Text(ctx context.Context, el Element) (string, error)
	// Attribute returns "" when the attribute is absent.
	Attribute(ctx context.Context, el Element, name string) (string, error)
	// Type clears an input and types text into it.
	Type(ctx context.Context, el Element, text string) error
	// Click performs a native (input event) click.
	Click(ctx context.Context, el Element) error
	// ScriptClick calls the element's click() from script.
	ScriptClick(ctx context.Context, el Element) error
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	// DismissDialog accepts a modal dialog opened since the last call and
	// returns its message, open is false when there was none.
	DismissDialog(ctx context.Context) (message string, open bool, err error)
	Snapshot(ctx context.Context) (Snapshot, error)
	Close() error
}

// Launcher starts a new session, each acquisition run gets its own.
type Launcher func(ctx context.Context) (Driver, error)

// First returns the first element of a find result.
func First(elements []Element, err error) (Element, bool, error) {
	if err != nil {
		return nil, false, err
	}
	if len(elements) == 0 {
		return nil, false, nil
	}
	return elements[0], true, nil
}
