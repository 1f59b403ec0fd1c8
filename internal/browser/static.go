package browser

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"votewatch/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var containsTextXPath = regexp.MustCompile(`^\.?//([\w*-]+)\[contains\(text\(\),\s*'([^']*)'\)\]$`)

// Static drives a fixed set of saved HTML pages keyed by URL. Clicking an
// element that carries an href or data-navigate attribute switches to the
// page it points at, typing only records the value, scripts never run.
type Static struct {
	mu      sync.Mutex
	pages   map[string]*goquery.Document
	current string
	doc     *goquery.Document
	values  map[*html.Node]string
	dialogs []string
	closed  bool
}

// NewStatic parses pages, a map from URL to HTML markup.
func NewStatic(pages map[string]string) (*Static, error) {
	parsed := make(map[string]*goquery.Document, len(pages))
	for u, markup := range pages {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", u, err)
		}
		parsed[u] = doc
	}
	return &Static{
		pages:  parsed,
		values: map[*html.Node]string{},
	}, nil
}

// StaticLauncher returns a Launcher that hands out a fresh Static over the
// same pages for every session.
func StaticLauncher(pages map[string]string) Launcher {
	return func(ctx context.Context) (Driver, error) {
		return NewStatic(pages)
	}
}

// QueueDialog makes msg the pending dialog returned by the next
// DismissDialog call.
func (s *Static) QueueDialog(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialogs = append(s.dialogs, msg)
}

// Value returns what was typed into el.
func (s *Static) Value(el Element) string {
	sel, err := selection(el)
	if err != nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[sel.Get(0)]
}

func (s *Static) load(target string) error {
	doc, ok := s.pages[target]
	if !ok {
		return fmt.Errorf("static: no page for %q", target)
	}
	s.current = target
	s.doc = doc
	return nil
}

func (s *Static) page() (*goquery.Document, error) {
	if s.closed {
		return nil, fmt.Errorf("static: session closed")
	}
	if s.doc == nil {
		return nil, fmt.Errorf("static: no page loaded")
	}
	return s.doc, nil
}

func (s *Static) Navigate(ctx context.Context, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("static: session closed")
	}
	return s.load(target)
}

func (s *Static) Evaluate(ctx context.Context, script string, out any) error {
	return ErrScriptUnsupported
}

func (s *Static) FindElements(ctx context.Context, by By, selector string) ([]Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.page()
	if err != nil {
		return nil, err
	}
	return find(doc.Selection, by, selector)
}

func (s *Static) FindIn(ctx context.Context, parent Element, by By, selector string) ([]Element, error) {
	sel, err := selection(parent)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return find(sel, by, selector)
}

// WaitFor does not wait, a static page never changes on its own.
func (s *Static) WaitFor(ctx context.Context, by By, selector string, timeout time.Duration) error {
	found, err := s.FindElements(ctx, by, selector)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return ErrTimeout
	}
	return nil
}

func (s *Static) Text(ctx context.Context, el Element) (string, error) {
	sel, err := selection(el)
	if err != nil {
		return "", err
	}
	return htmlutil.InnerText(sel.Get(0)), nil
}

func (s *Static) Attribute(ctx context.Context, el Element, name string) (string, error) {
	sel, err := selection(el)
	if err != nil {
		return "", err
	}
	return sel.AttrOr(name, ""), nil
}

func (s *Static) Type(ctx context.Context, el Element, text string) error {
	sel, err := selection(el)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[sel.Get(0)] = text
	return nil
}

func (s *Static) Click(ctx context.Context, el Element) error {
	sel, err := selection(el)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.page(); err != nil {
		return err
	}

	link := sel.AttrOr("data-navigate", "")
	if link == "" {
		link = sel.AttrOr("href", "")
	}
	if link == "" {
		return nil
	}
	target, err := s.resolve(link)
	if err != nil {
		return err
	}
	return s.load(target)
}

// ScriptClick behaves exactly like Click.
func (s *Static) ScriptClick(ctx context.Context, el Element) error {
	return s.Click(ctx, el)
}

func (s *Static) resolve(link string) (string, error) {
	if _, ok := s.pages[link]; ok {
		return link, nil
	}
	base, err := url.Parse(s.current)
	if err != nil {
		return "", fmt.Errorf("static: parse current url: %w", err)
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("static: parse link %q: %w", link, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (s *Static) URL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.page(); err != nil {
		return "", err
	}
	return s.current, nil
}

func (s *Static) Title(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.page()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}

func (s *Static) DismissDialog(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.dialogs) == 0 {
		return "", false, nil
	}
	msg := s.dialogs[0]
	s.dialogs = s.dialogs[1:]
	return msg, true, nil
}

func (s *Static) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.page()
	if err != nil {
		return Snapshot{}, err
	}
	markup, err := goquery.OuterHtml(doc.Selection.Children())
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{HTML: markup}, nil
}

func (s *Static) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func selection(el Element) (*goquery.Selection, error) {
	sel, ok := el.(*goquery.Selection)
	if !ok || sel.Length() == 0 {
		return nil, ErrStaleElement
	}
	return sel, nil
}

func find(root *goquery.Selection, by By, selector string) ([]Element, error) {
	var matched *goquery.Selection
	switch by {
	case ByCSS:
		matched = root.Find(selector)
	case ByTag:
		matched = root.Find(selector)
	case ByClass:
		matched = root.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.HasClass(selector)
		})
	case ByXPath:
		m := containsTextXPath.FindStringSubmatch(selector)
		if m == nil {
			return nil, fmt.Errorf("static: unsupported xpath %q", selector)
		}
		tag, needle := m[1], m[2]
		matched = root.Find(tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(htmlutil.OwnText(s.Get(0)), needle)
		})
	default:
		return nil, fmt.Errorf("static: unknown selector kind %s", by)
	}

	elements := make([]Element, 0, matched.Length())
	matched.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, s)
	})
	return elements, nil
}
