package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/raphaelm22/media-downloader-bot/internal/httputil"
	"github.com/raphaelm22/media-downloader-bot/internal/media"
)

const playerEndpoint = "https://www.youtube.com/youtubei/v1/player"

// playerRequestBody is the innertube player request for the Android
// client, which answers with direct muxed stream URLs.
const playerRequestBody = `{
  "context": {
    "client": {
      "clientName": "ANDROID",
      "clientVersion": "19.09.37",
      "androidSdkVersion": 30,
      "hl": "en"
    }
  },
  "videoId": %q
}`

// YouTube resolves shorts over plain HTTP: the innertube player endpoint
// returns stream URLs directly, no browser needed.
type YouTube struct {
	client    *http.Client
	sizeLimit int64
}

func NewYouTube(client *http.Client, sizeLimit int64) *YouTube {
	return &YouTube{client: client, sizeLimit: sizeLimit}
}

func (yt *YouTube) Name() string { return "youtube" }

func (yt *YouTube) Classify(u *url.URL) (*Target, bool) {
	var videoID string
	switch {
	case hostMatches(u.Host, "youtube.com"):
		segs := pathSegments(u.Path)
		if len(segs) < 2 || segs[0] != "shorts" {
			return nil, false
		}
		videoID = segs[1]
	case hostMatches(u.Host, "youtu.be"):
		segs := pathSegments(u.Path)
		if len(segs) < 1 {
			return nil, false
		}
		videoID = segs[0]
	default:
		return nil, false
	}

	return &Target{
		Raw:      u.String(),
		Platform: yt.Name(),
		Kind:     media.SingleItem,
		Shape:    "short",
		ItemKey:  videoID,
		PageURL:  "https://www.youtube.com/shorts/" + videoID,
	}, true
}

func (yt *YouTube) Resolve(ctx context.Context, target *Target) (*media.Outcome, error) {
	body := fmt.Sprintf(playerRequestBody, target.ItemKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, playerEndpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building player request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", httputil.DefaultUserAgent)

	resp, err := yt.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling player endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("player endpoint returned %s", resp.Status)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading player response: %w", err)
	}
	if !gjson.ValidBytes(payload) {
		return nil, &media.ExtractionError{Msg: "Could not read the video data"}
	}

	best := yt.bestFormat(gjson.GetBytes(payload, "streamingData.formats"))
	if best == nil {
		out := media.NotFound()
		return &out, nil
	}
	best.Filename = target.ItemKey + ".mp4"

	out := media.Resolved(*best)
	return &out, nil
}

// bestFormat picks the largest-area muxed format whose declared size fits
// the delivery limit. Equal areas prefer the smaller file.
func (yt *YouTube) bestFormat(formats gjson.Result) *media.Resource {
	var best *media.Resource
	var bestLen int64
	formats.ForEach(func(_, f gjson.Result) bool {
		u := f.Get("url").String()
		if u == "" || !strings.HasPrefix(f.Get("mimeType").String(), "video/mp4") {
			return true
		}
		length := f.Get("contentLength").Int()
		if length <= 0 || length >= yt.sizeLimit {
			return true
		}
		r := &media.Resource{
			Method: http.MethodGet,
			URL:    u,
			Type:   media.File,
			Width:  int(f.Get("width").Int()),
			Height: int(f.Get("height").Int()),
		}
		switch {
		case best == nil,
			r.Area() > best.Area(),
			r.Area() == best.Area() && length < bestLen:
			best, bestLen = r, length
		}
		return true
	})
	return best
}
