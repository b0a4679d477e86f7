package platform

import (
	"errors"
	"net/url"
	"testing"

	"github.com/raphaelm22/media-downloader-bot/internal/media"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q) error = %v", raw, err)
	}
	return u
}

func staticResponse(respURL, body string) *Response {
	return &Response{
		URL:            respURL,
		RequestHeaders: map[string]string{},
		Body:           func() ([]byte, error) { return []byte(body), nil },
		PageCookies:    func() (string, error) { return "", nil },
	}
}

func TestInstagramClassify(t *testing.T) {
	ig := NewInstagram(media.Credentials{}, 0)

	tests := []struct {
		name    string
		raw     string
		ok      bool
		shape   string
		kind    media.Kind
		itemKey string
		pageURL string
	}{
		{
			name:    "reel",
			raw:     "https://www.instagram.com/reel/Cxyz123/?igsh=abc",
			ok:      true,
			shape:   shapeReel,
			kind:    media.SingleItem,
			pageURL: "https://www.instagram.com/reel/Cxyz123/",
		},
		{
			name:    "reels plural",
			raw:     "https://instagram.com/reels/Cxyz123",
			ok:      true,
			shape:   shapeReel,
			kind:    media.SingleItem,
			pageURL: "https://www.instagram.com/reel/Cxyz123/",
		},
		{
			name:    "post",
			raw:     "https://www.instagram.com/p/Cpost9/",
			ok:      true,
			shape:   shapePost,
			kind:    media.SingleItem,
			pageURL: "https://www.instagram.com/p/Cpost9/",
		},
		{
			name:    "story with pk",
			raw:     "https://www.instagram.com/stories/someuser/3141592653589/",
			ok:      true,
			shape:   shapeStory,
			kind:    media.MultiItem,
			itemKey: "3141592653589",
			pageURL: "https://www.instagram.com/stories/someuser/3141592653589/",
		},
		{name: "story without pk", raw: "https://www.instagram.com/stories/someuser/", ok: false},
		{name: "story non-numeric pk", raw: "https://www.instagram.com/stories/someuser/highlights/", ok: false},
		{name: "profile", raw: "https://www.instagram.com/someuser/", ok: false},
		{name: "other host", raw: "https://example.com/reel/abc/", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := ig.Classify(mustParse(t, tt.raw))
			if ok != tt.ok {
				t.Fatalf("Classify(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if !ok {
				return
			}
			if target.Shape != tt.shape {
				t.Errorf("Shape = %q, want %q", target.Shape, tt.shape)
			}
			if target.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", target.Kind, tt.kind)
			}
			if target.ItemKey != tt.itemKey {
				t.Errorf("ItemKey = %q, want %q", target.ItemKey, tt.itemKey)
			}
			if target.PageURL != tt.pageURL {
				t.Errorf("PageURL = %q, want %q", target.PageURL, tt.pageURL)
			}
		})
	}
}

func TestInstagramPageOptions(t *testing.T) {
	ig := NewInstagram(media.Credentials{}, 0)

	if !ig.Page(&Target{Shape: shapeReel}).Incognito {
		t.Error("reel pages should be incognito")
	}
	if ig.Page(&Target{Shape: shapeStory}).Incognito {
		t.Error("story pages must reuse the main context for login cookies")
	}
	if ig.Page(nil).Incognito {
		t.Error("the login page must reuse the main context")
	}
}

func TestReelMatchPreservesHeaders(t *testing.T) {
	resp := &Response{
		URL:            "https://scontent.cdninstagram.com/v/video123.mp4?efg=xyz",
		RequestHeaders: map[string]string{"Cookie": "x=1", "User-Agent": "ua"},
	}

	r, err := reelMatch(resp, nil)
	if err != nil {
		t.Fatalf("reelMatch() error = %v", err)
	}
	if r == nil {
		t.Fatal("reelMatch() = nil, want resource")
	}
	if r.Headers["Cookie"] != "x=1" {
		t.Errorf("Cookie header = %q, want %q", r.Headers["Cookie"], "x=1")
	}
	if r.URL != resp.URL {
		t.Errorf("URL = %q, want %q", r.URL, resp.URL)
	}
	if r.Filename != "video123.mp4" {
		t.Errorf("Filename = %q, want video123.mp4", r.Filename)
	}
}

func TestReelMatchIgnoresOtherResponses(t *testing.T) {
	for _, raw := range []string{
		"https://www.instagram.com/reel/Cxyz123/",
		"https://scontent.cdninstagram.com/v/thumb.jpg",
		"https://static.cdninstagram.com/rsrc.php/app.js?mp4=1",
	} {
		r, err := reelMatch(&Response{URL: raw}, nil)
		if err != nil || r != nil {
			t.Errorf("reelMatch(%q) = %v, %v, want nil, nil", raw, r, err)
		}
	}
}

func TestStoryFeedMatchPicksLargestArea(t *testing.T) {
	body := `{
	  "reels_media": [{
	    "items": [
	      {"pk": "other", "video_versions": [{"url": "https://cdn/no", "width": 9999, "height": 9999}]},
	      {"pk": "abc", "video_versions": [
	        {"url": "https://cdn/small.mp4", "width": 20, "height": 20, "type": 103},
	        {"url": "https://cdn/big.mp4", "width": 30, "height": 30, "type": 101},
	        {"url": "https://cdn/big-again.mp4", "width": 30, "height": 30, "type": 102}
	      ]}
	    ]
	  }]
	}`
	resp := staticResponse("https://www.instagram.com/api/v1/feed/reels_media/?reel_ids=1", body)

	r, err := storyFeedMatch(resp, &Target{ItemKey: "abc"})
	if err != nil {
		t.Fatalf("storyFeedMatch() error = %v", err)
	}
	// big-again.mp4 ties on area; the first variant at the largest area
	// must win.
	if r == nil || r.URL != "https://cdn/big.mp4" {
		t.Fatalf("storyFeedMatch() = %+v, want big.mp4 variant", r)
	}
}

func TestStoryFeedMatchNumericPk(t *testing.T) {
	body := `{"reels_media":[{"items":[{"pk":314159,"video_versions":[{"url":"https://cdn/v.mp4","width":10,"height":10}]}]}]}`
	resp := staticResponse("https://www.instagram.com/api/v1/feed/reels_media/", body)

	r, err := storyFeedMatch(resp, &Target{ItemKey: "314159"})
	if err != nil {
		t.Fatalf("storyFeedMatch() error = %v", err)
	}
	if r == nil {
		t.Fatal("storyFeedMatch() = nil, want resource for numeric pk")
	}
}

func TestStoryFeedMatchUnrelatedResponse(t *testing.T) {
	resp := staticResponse("https://www.instagram.com/api/v1/users/web_profile_info/", `{}`)
	r, err := storyFeedMatch(resp, &Target{ItemKey: "abc"})
	if err != nil || r != nil {
		t.Errorf("storyFeedMatch() = %v, %v, want nil, nil for unrelated URL", r, err)
	}
}

func TestStoryFeedMatchExtractionFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"reels_media": [`},
		{name: "missing item", body: `{"reels_media":[{"items":[{"pk":"other"}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := staticResponse("https://www.instagram.com/api/v1/feed/reels_media/", tt.body)
			_, err := storyFeedMatch(resp, &Target{ItemKey: "abc"})
			var extractionErr *media.ExtractionError
			if !errors.As(err, &extractionErr) {
				t.Fatalf("storyFeedMatch() error = %v, want ExtractionError", err)
			}
		})
	}
}

func TestInlinePostMatch(t *testing.T) {
	html := `<html><body>
	  <script type="application/json">{"require":[{"app":{"media":{"video_versions":[
	    {"url": "https://cdn/low.mp4", "type": 103, "width": 10, "height": 10},
	    {"url": "https://cdn/high.mp4", "type": 101, "width": 10, "height": 10}
	  ]}}}]}</script>
	  <script type="application/json">{"unrelated": true}</script>
	</body></html>`
	target := &Target{PageURL: "https://www.instagram.com/p/Cpost9/"}
	resp := staticResponse("https://www.instagram.com/p/Cpost9/?img_index=1", html)

	r, err := inlinePostMatch(resp, target)
	if err != nil {
		t.Fatalf("inlinePostMatch() error = %v", err)
	}
	if r == nil || r.URL != "https://cdn/high.mp4" {
		t.Fatalf("inlinePostMatch() = %+v, want best-rank variant", r)
	}
}

func TestInlinePostMatchRankTies(t *testing.T) {
	html := `<html><body>
	  <script type="application/json">{"media":{"video_versions":[
	    {"url": "https://cdn/first-101.mp4", "type": 101, "width": 10, "height": 10},
	    {"url": "https://cdn/second-101.mp4", "type": 101, "width": 10, "height": 10}
	  ]}}</script>
	</body></html>`
	target := &Target{PageURL: "https://www.instagram.com/p/Cpost9/"}
	resp := staticResponse("https://www.instagram.com/p/Cpost9/", html)

	r, err := inlinePostMatch(resp, target)
	if err != nil {
		t.Fatalf("inlinePostMatch() error = %v", err)
	}
	if r == nil || r.URL != "https://cdn/first-101.mp4" {
		t.Fatalf("inlinePostMatch() = %+v, want first variant at the best rank", r)
	}
}

func TestInlinePostMatchNoVideo(t *testing.T) {
	html := `<html><body><script type="application/json">{"image_versions2": {}}</script></body></html>`
	target := &Target{PageURL: "https://www.instagram.com/p/Cpost9/"}
	resp := staticResponse("https://www.instagram.com/p/Cpost9/", html)

	r, err := inlinePostMatch(resp, target)
	if err != nil || r != nil {
		t.Errorf("inlinePostMatch() = %v, %v, want nil, nil for image post", r, err)
	}
}

func TestInlinePostMatchSkipsSubresources(t *testing.T) {
	target := &Target{PageURL: "https://www.instagram.com/p/Cpost9/"}
	resp := staticResponse("https://static.cdninstagram.com/rsrc.php/app.js", "not html")

	r, err := inlinePostMatch(resp, target)
	if err != nil || r != nil {
		t.Errorf("inlinePostMatch() = %v, %v, want nil, nil for subresource", r, err)
	}
}

func TestBestByAreaStableOnTies(t *testing.T) {
	versions := `[
	  {"url": "https://cdn/first.mp4", "width": 10, "height": 10},
	  {"url": "https://cdn/dup.mp4", "width": 10, "height": 10},
	  {"url": "https://cdn/small.mp4", "width": 5, "height": 5}
	]`
	body := `{"reels_media":[{"items":[{"pk":"abc","video_versions":` + versions + `}]}]}`
	resp := staticResponse("https://www.instagram.com/api/v1/feed/reels_media/", body)

	r, err := storyFeedMatch(resp, &Target{ItemKey: "abc"})
	if err != nil {
		t.Fatalf("storyFeedMatch() error = %v", err)
	}
	if r.URL != "https://cdn/first.mp4" {
		t.Errorf("tie-break picked %q, want first-encountered variant", r.URL)
	}
}
