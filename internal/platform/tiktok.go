package platform

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/raphaelm22/media-downloader-bot/internal/httputil"
	"github.com/raphaelm22/media-downloader-bot/internal/media"
)

// TikTok resolves video pages, short share links included. The player
// fetches the video with a mime_type=video_mp4 query parameter; the CDN
// additionally wants the page's cookies on the download request.
type TikTok struct {
	openTimeout time.Duration
}

func NewTikTok(openTimeout time.Duration) *TikTok {
	return &TikTok{openTimeout: openTimeout}
}

func (tk *TikTok) Name() string { return "tiktok" }

func (tk *TikTok) Classify(u *url.URL) (*Target, bool) {
	if !hostMatches(u.Host, "tiktok.com") {
		return nil, false
	}
	if len(pathSegments(u.Path)) == 0 {
		return nil, false
	}
	// Short links redirect to the canonical page, so the raw URL is
	// navigated as-is.
	return &Target{
		Raw:      u.String(),
		Platform: tk.Name(),
		Kind:     media.SingleItem,
		Shape:    "video",
		PageURL:  u.String(),
	}, true
}

func (tk *TikTok) Matcher(*Target) Matcher {
	return MatcherFunc(tiktokMatch)
}

func (tk *TikTok) Page(*Target) PageOptions {
	// The web player refuses to start on an unrecognised user agent.
	return PageOptions{Stealth: true, UserAgent: httputil.DefaultUserAgent}
}

func (tk *TikTok) Login() *Login     { return nil }
func (tk *TikTok) Probe() *AuthProbe { return nil }

func (tk *TikTok) OpenTimeout() time.Duration { return tk.openTimeout }

func tiktokMatch(resp *Response, _ *Target) (*media.Resource, error) {
	u, err := url.Parse(resp.URL)
	if err != nil {
		return nil, nil
	}
	if u.Query().Get("mime_type") != "video_mp4" {
		return nil, nil
	}

	headers := cloneHeaders(resp.RequestHeaders)
	if headers == nil {
		headers = make(map[string]string)
	}
	cookies, err := resp.PageCookies()
	if err != nil {
		return nil, fmt.Errorf("reading page cookies: %w", err)
	}
	if cookies != "" {
		headers["cookie"] = cookies
	}

	return &media.Resource{
		Method:   http.MethodGet,
		URL:      resp.URL,
		Headers:  headers,
		Type:     media.File,
		Filename: "video.mp4",
	}, nil
}
