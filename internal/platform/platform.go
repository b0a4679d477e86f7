// Package platform knows the supported social networks: how to recognise
// their links, which network responses carry media, and how their login
// walls look.
package platform

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/raphaelm22/media-downloader-bot/internal/media"
)

// Target is a classified link: the platform that owns it, the page to
// open, and how many media items the page is expected to yield.
type Target struct {
	Raw      string
	Platform string
	Kind     media.Kind
	// Shape is the platform's own content-shape token (for example
	// "reel" vs "post"), used to pick the matcher for this target.
	Shape string
	// ItemKey identifies the wanted item inside a multi-item payload,
	// for example the story pk. Empty when the page carries one item.
	ItemKey string
	// PageURL is the address the browser navigates to. It may differ
	// from Raw when query parameters are stripped during classification.
	PageURL string
}

// Response is one network response observed while a target's page loads.
// Body and PageCookies are fetched lazily so that matchers skipping a
// response never touch the browser.
type Response struct {
	URL            string
	RequestHeaders map[string]string
	Body           func() ([]byte, error)
	PageCookies    func() (string, error)
}

// Matcher inspects observed responses for a target's media. It returns
// (nil, nil) when the response is unrelated, a resource when it carries
// the wanted media, or an error when the response should have carried
// media but its payload is unusable.
type Matcher interface {
	Inspect(resp *Response, target *Target) (*media.Resource, error)
}

// MatcherFunc adapts a function to the Matcher interface.
type MatcherFunc func(resp *Response, target *Target) (*media.Resource, error)

func (f MatcherFunc) Inspect(resp *Response, target *Target) (*media.Resource, error) {
	return f(resp, target)
}

// PageOptions configures the browser page a platform is opened in.
type PageOptions struct {
	Incognito bool
	Stealth   bool
	UserAgent string
}

// Login describes a platform's credential form.
type Login struct {
	URL           string
	UsernameField string
	PasswordField string
	SubmitButton  string
}

// AuthProbe describes how a platform's login wall is recognised:
// the path prefix its redirects land on and the selectors that appear
// on gated pages.
type AuthProbe struct {
	PathPrefix string
	Selectors  []string
}

// Platform is a network resolved through the browser.
type Platform interface {
	Name() string
	// Classify reports whether the URL belongs to this platform and,
	// if so, returns the target to resolve.
	Classify(u *url.URL) (*Target, bool)
	Matcher(target *Target) Matcher
	// Page returns the page options for a target's content shape. A nil
	// target asks for the platform's default page, used by login flows.
	Page(target *Target) PageOptions
	// Login returns nil when the platform has no credential flow.
	Login() *Login
	// Probe returns nil when the platform never gates content.
	Probe() *AuthProbe
	OpenTimeout() time.Duration
}

// DirectResolver is a network resolved over plain HTTP, no browser.
type DirectResolver interface {
	Name() string
	Classify(u *url.URL) (*Target, bool)
	Resolve(ctx context.Context, target *Target) (*media.Outcome, error)
}

// Selection is the result of routing a raw link: the classified target
// plus exactly one of Browser or Direct.
type Selection struct {
	Target  *Target
	Browser Platform
	Direct  DirectResolver
}

// Registry routes raw links to the platform that owns them.
type Registry struct {
	browser []Platform
	direct  []DirectResolver
}

func NewRegistry(browser []Platform, direct []DirectResolver) *Registry {
	return &Registry{browser: browser, direct: direct}
}

// Select classifies a raw link. It returns nil for text that is not a
// URL or that no registered platform recognises; unsupported input is
// not an error, it is simply ignored.
func (r *Registry) Select(raw string) *Selection {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}

	for _, p := range r.browser {
		if target, ok := p.Classify(u); ok {
			return &Selection{Target: target, Browser: p}
		}
	}
	for _, d := range r.direct {
		if target, ok := d.Classify(u); ok {
			return &Selection{Target: target, Direct: d}
		}
	}
	return nil
}

// hostMatches reports whether host equals domain or is a subdomain of it.
func hostMatches(host, domain string) bool {
	host = strings.ToLower(host)
	return host == domain || strings.HasSuffix(host, "."+domain)
}
