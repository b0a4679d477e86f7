// Package media defines shared types for the media-downloader-bot application.
package media

// Kind classifies how many media items a target URL may yield.
type Kind int

const (
	SingleItem Kind = iota
	MultiItem
)

func (k Kind) String() string {
	switch k {
	case SingleItem:
		return "single"
	case MultiItem:
		return "multi"
	default:
		return "unknown"
	}
}

// ResourceType tells the download stage how to fetch a resource.
type ResourceType int

const (
	// File is a plain HTTP download.
	File ResourceType = iota
	// Stream is an HLS playlist that must go through ffmpeg.
	Stream
)

// Resource is an outbound request template sufficient to download one
// media file. Headers are preserved verbatim from the observed browser
// request so cookies and auth headers survive into the download stage.
type Resource struct {
	Method   string
	URL      string
	Headers  map[string]string
	Type     ResourceType
	Filename string // suggested filename for delivery

	// Quality hints, used by matchers to pick the best variant.
	Width  int
	Height int
	Rank   int
}

// Area returns the pixel area used as the resolution-quality score.
func (r Resource) Area() int {
	return r.Width * r.Height
}

// Status is the terminal classification of a resolution attempt.
type Status int

const (
	// StatusResolved means one or more resources were found.
	StatusResolved Status = iota
	// StatusNotFound means the listener ran to completion with zero matches.
	StatusNotFound
	// StatusTimedOut means the overall match wait expired first.
	StatusTimedOut
	// StatusAuthRequired means the site demanded a login instead of content.
	// Internal signal: never shown verbatim to the user.
	StatusAuthRequired
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusNotFound:
		return "not-found"
	case StatusTimedOut:
		return "timed-out"
	case StatusAuthRequired:
		return "auth-required"
	default:
		return "unknown"
	}
}

// Outcome is what exactly one resolution attempt produces.
type Outcome struct {
	Status    Status
	Resources []Resource

	// Screenshot holds a diagnostic PNG of the page, captured when a
	// browser session ends without finding media.
	Screenshot []byte
}

// Resolved builds a successful outcome.
func Resolved(resources ...Resource) Outcome {
	return Outcome{Status: StatusResolved, Resources: resources}
}

// NotFound builds the zero-matches outcome.
func NotFound() Outcome { return Outcome{Status: StatusNotFound} }

// TimedOut builds the deadline-expired outcome.
func TimedOut() Outcome { return Outcome{Status: StatusTimedOut} }

// AuthRequired builds the login-wall outcome.
func AuthRequired() Outcome { return Outcome{Status: StatusAuthRequired} }

// ExtractionError is a typed extraction failure: the response matched the
// expected endpoint but its payload was malformed or held no matching item.
// Its message is safe to surface to the user.
type ExtractionError struct {
	Msg string
}

func (e *ExtractionError) Error() string { return e.Msg }

// Credentials is an optional username/password pair. Presence gates
// whether a login flow may ever be attempted.
type Credentials struct {
	Username string
	Password string
}

// Present reports whether both fields are configured.
func (c Credentials) Present() bool {
	return c.Username != "" && c.Password != ""
}
