package platform

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/raphaelm22/media-downloader-bot/internal/media"
)

const (
	shapeReel  = "reel"
	shapePost  = "post"
	shapeStory = "story"

	storyFeedPath = "/api/v1/feed/reels_media/"
)

// Instagram resolves reels, posts and stories. Reels stream their video
// as a plain .mp4 during page load; stories arrive through the reels_media
// feed API; posts embed their payload as inline JSON in the document.
type Instagram struct {
	creds       media.Credentials
	openTimeout time.Duration
}

func NewInstagram(creds media.Credentials, openTimeout time.Duration) *Instagram {
	return &Instagram{creds: creds, openTimeout: openTimeout}
}

func (ig *Instagram) Name() string { return "instagram" }

func (ig *Instagram) Classify(u *url.URL) (*Target, bool) {
	if !hostMatches(u.Host, "instagram.com") {
		return nil, false
	}

	segs := pathSegments(u.Path)
	if len(segs) < 2 {
		return nil, false
	}

	switch segs[0] {
	case "reel", "reels":
		return ig.target(shapeReel, media.SingleItem, "", "reel", segs[1]), true
	case "p":
		return ig.target(shapePost, media.SingleItem, "", "p", segs[1]), true
	case "stories":
		// Only story links carrying the item pk are resolvable; the pk
		// selects the wanted item out of the reels_media payload.
		if len(segs) < 3 || !allDigits(segs[2]) {
			return nil, false
		}
		return ig.target(shapeStory, media.MultiItem, segs[2], "stories", segs[1], segs[2]), true
	}
	return nil, false
}

func (ig *Instagram) target(shape string, kind media.Kind, itemKey string, segs ...string) *Target {
	pageURL := "https://www.instagram.com/" + strings.Join(segs, "/") + "/"
	return &Target{
		Raw:      pageURL,
		Platform: ig.Name(),
		Kind:     kind,
		Shape:    shape,
		ItemKey:  itemKey,
		PageURL:  pageURL,
	}
}

func (ig *Instagram) Matcher(target *Target) Matcher {
	switch target.Shape {
	case shapeStory:
		return MatcherFunc(storyFeedMatch)
	case shapePost:
		return MatcherFunc(inlinePostMatch)
	default:
		return MatcherFunc(reelMatch)
	}
}

func (ig *Instagram) Page(target *Target) PageOptions {
	// Reels stream their video to anonymous visitors, so they run in a
	// throwaway incognito context. Stories and posts stay on the main
	// context: a prior login's cookies must apply there, and the login
	// flow itself (nil target) must leave its cookies behind.
	incognito := target != nil && target.Shape == shapeReel
	return PageOptions{Incognito: incognito, Stealth: true}
}

func (ig *Instagram) Login() *Login {
	return &Login{
		URL:           "https://www.instagram.com/accounts/login/",
		UsernameField: `input[name="username"]`,
		PasswordField: `input[name="password"]`,
		SubmitButton:  `button[type="submit"]`,
	}
}

func (ig *Instagram) Probe() *AuthProbe {
	return &AuthProbe{
		PathPrefix: "/accounts/login",
		Selectors: []string{
			`input[name="password"]`,
			`a[href^="/accounts/login/"]`,
		},
	}
}

func (ig *Instagram) OpenTimeout() time.Duration { return ig.openTimeout }

// reelMatch keeps responses whose URL path ends in .mp4. The outbound
// request headers are carried over verbatim so the CDN sees the same
// cookies and auth headers the browser sent.
func reelMatch(resp *Response, _ *Target) (*media.Resource, error) {
	u, err := url.Parse(resp.URL)
	if err != nil {
		return nil, nil
	}
	name := path.Base(u.Path)
	if !strings.HasSuffix(name, ".mp4") {
		return nil, nil
	}

	return &media.Resource{
		Method:   http.MethodGet,
		URL:      resp.URL,
		Headers:  cloneHeaders(resp.RequestHeaders),
		Type:     media.File,
		Filename: name,
	}, nil
}

// storyFeedMatch keeps reels_media feed responses, locates the item whose
// pk equals the target's item key, and picks its highest-resolution
// video variant.
func storyFeedMatch(resp *Response, target *Target) (*media.Resource, error) {
	if !strings.Contains(resp.URL, "instagram.com"+storyFeedPath) {
		return nil, nil
	}

	body, err := resp.Body()
	if err != nil {
		return nil, fmt.Errorf("reading story feed body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, &media.ExtractionError{Msg: "Could not read the video data"}
	}

	doc := gjson.ParseBytes(body)
	var found *media.Resource
	doc.Get("reels_media").ForEach(func(_, reel gjson.Result) bool {
		reel.Get("items").ForEach(func(_, item gjson.Result) bool {
			if item.Get("pk").String() != target.ItemKey {
				return true
			}
			found = bestByArea(item.Get("video_versions"), target.ItemKey+".mp4")
			return false
		})
		return found == nil
	})

	if found == nil {
		return nil, &media.ExtractionError{Msg: "No video was found"}
	}
	return found, nil
}

// inlinePostMatch inspects the document response itself: posts embed their
// media payload in inline JSON script tags. Documents without a
// video_versions subtree are a normal non-match, image posts included.
func inlinePostMatch(resp *Response, target *Target) (*media.Resource, error) {
	if !sameDocument(resp.URL, target.PageURL) {
		return nil, nil
	}

	body, err := resp.Body()
	if err != nil {
		return nil, fmt.Errorf("reading document body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, &media.ExtractionError{Msg: "Could not read the video data"}
	}

	var best *media.Resource
	doc.Find(`script[type="application/json"]`).Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if !gjson.Valid(text) {
			return
		}
		for _, versions := range searchKey(gjson.Parse(text), "video_versions") {
			if r := bestByRank(versions, "video.mp4"); r != nil {
				if best == nil || r.Rank < best.Rank {
					best = r
				}
			}
		}
	})

	if best == nil {
		return nil, nil
	}
	return best, nil
}

// bestByArea picks the variant with the largest height×width. Earlier
// variants win ties so the choice is stable.
func bestByArea(versions gjson.Result, filename string) *media.Resource {
	var best *media.Resource
	versions.ForEach(func(_, v gjson.Result) bool {
		r := versionResource(v, filename)
		if r == nil {
			return true
		}
		if best == nil || r.Area() > best.Area() {
			best = r
		}
		return true
	})
	return best
}

// bestByRank picks the variant with the best encoded-quality rank, the
// lowest "type" value. Earlier variants win ties.
func bestByRank(versions gjson.Result, filename string) *media.Resource {
	var best *media.Resource
	versions.ForEach(func(_, v gjson.Result) bool {
		r := versionResource(v, filename)
		if r == nil {
			return true
		}
		if best == nil || r.Rank < best.Rank {
			best = r
		}
		return true
	})
	return best
}

func versionResource(v gjson.Result, filename string) *media.Resource {
	u := v.Get("url").String()
	if u == "" {
		return nil
	}
	return &media.Resource{
		Method:   http.MethodGet,
		URL:      u,
		Type:     media.File,
		Filename: filename,
		Width:    int(v.Get("width").Int()),
		Height:   int(v.Get("height").Int()),
		Rank:     int(v.Get("type").Int()),
	}
}

// sameDocument compares two URLs ignoring query, fragment and the
// trailing slash, enough to pair a document response with its page.
func sameDocument(a, b string) bool {
	return documentKey(a) == documentKey(b)
}

func documentKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host + strings.TrimSuffix(u.Path, "/")
}

func pathSegments(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func cloneHeaders(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
