package platform

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/raphaelm22/media-downloader-bot/internal/media"
)

const tweetConfigPath = "api.twitter.com/1.1/videos/tweet/config/"

// Twitter resolves tweet videos. The player asks a config endpoint for
// the track playback URL, an HLS playlist that the download stage remuxes
// with ffmpeg.
type Twitter struct {
	openTimeout time.Duration
}

func NewTwitter(openTimeout time.Duration) *Twitter {
	return &Twitter{openTimeout: openTimeout}
}

func (tw *Twitter) Name() string { return "twitter" }

func (tw *Twitter) Classify(u *url.URL) (*Target, bool) {
	if !hostMatches(u.Host, "twitter.com") && !hostMatches(u.Host, "x.com") {
		return nil, false
	}
	segs := pathSegments(u.Path)
	if len(segs) < 3 || segs[1] != "status" || !allDigits(segs[2]) {
		return nil, false
	}
	// The embed player page requests the video config on load; the full
	// tweet page only does so after user interaction.
	pageURL := "https://twitter.com/i/videos/tweet/" + segs[2]
	return &Target{
		Raw:      u.String(),
		Platform: tw.Name(),
		Kind:     media.SingleItem,
		Shape:    "video",
		PageURL:  pageURL,
	}, true
}

func (tw *Twitter) Matcher(*Target) Matcher {
	return MatcherFunc(twitterMatch)
}

func (tw *Twitter) Page(*Target) PageOptions {
	return PageOptions{Stealth: true}
}

func (tw *Twitter) Login() *Login     { return nil }
func (tw *Twitter) Probe() *AuthProbe { return nil }

func (tw *Twitter) OpenTimeout() time.Duration { return tw.openTimeout }

// twitterMatch keeps tweet video config responses and extracts the track
// playback URL. Config responses without a playback URL (tweets with no
// video) are a normal non-match.
func twitterMatch(resp *Response, _ *Target) (*media.Resource, error) {
	if !strings.Contains(resp.URL, tweetConfigPath) {
		return nil, nil
	}

	body, err := resp.Body()
	if err != nil {
		return nil, nil
	}
	playback := gjson.GetBytes(body, "track.playbackUrl").String()
	if playback == "" {
		return nil, nil
	}

	// ffmpeg's TLS stack chokes on some playlist CDNs; the playlists are
	// served over plain HTTP as well.
	playback = strings.Replace(playback, "https://", "http://", 1)

	return &media.Resource{
		Method:   http.MethodGet,
		URL:      playback,
		Type:     media.Stream,
		Filename: "video.mp4",
	}, nil
}
