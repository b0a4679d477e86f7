package platform

import (
	"testing"

	"github.com/tidwall/gjson"

	"github.com/raphaelm22/media-downloader-bot/internal/media"
)

func testRegistry() *Registry {
	return NewRegistry(
		[]Platform{
			NewInstagram(media.Credentials{}, 0),
			NewTikTok(0),
			NewTwitter(0),
		},
		[]DirectResolver{NewYouTube(nil, 50<<20)},
	)
}

func TestRegistrySelect(t *testing.T) {
	reg := testRegistry()

	tests := []struct {
		name     string
		raw      string
		platform string
		direct   bool
	}{
		{name: "instagram reel", raw: "https://www.instagram.com/reel/Cxyz123/", platform: "instagram"},
		{name: "tiktok short link", raw: "https://vm.tiktok.com/ZM123abc/", platform: "tiktok"},
		{name: "tweet", raw: "https://x.com/user/status/123456", platform: "twitter"},
		{name: "short", raw: "https://www.youtube.com/shorts/dQw4w9WgXcQ", platform: "youtube", direct: true},
		{name: "youtu.be", raw: "https://youtu.be/dQw4w9WgXcQ", platform: "youtube", direct: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := reg.Select(tt.raw)
			if sel == nil {
				t.Fatalf("Select(%q) = nil", tt.raw)
			}
			if sel.Target.Platform != tt.platform {
				t.Errorf("platform = %q, want %q", sel.Target.Platform, tt.platform)
			}
			if tt.direct && sel.Direct == nil {
				t.Errorf("Select(%q) has no direct resolver", tt.raw)
			}
			if !tt.direct && sel.Browser == nil {
				t.Errorf("Select(%q) has no browser platform", tt.raw)
			}
		})
	}
}

func TestRegistrySelectIgnoresUnsupported(t *testing.T) {
	reg := testRegistry()

	for _, raw := range []string{
		"hello there",
		"",
		"https://example.com/video.mp4",
		"instagram.com/reel/abc", // no scheme
		"https://www.instagram.com/someuser/",
	} {
		if sel := reg.Select(raw); sel != nil {
			t.Errorf("Select(%q) = %+v, want nil", raw, sel)
		}
	}
}

func TestSearchKey(t *testing.T) {
	doc := gjson.Parse(`{
	  "a": {"target": 1, "b": [{"target": 2}, {"c": {"target": 3}}]},
	  "target": 4
	}`)

	found := searchKey(doc, "target")
	if len(found) != 4 {
		t.Fatalf("searchKey() found %d values, want 4", len(found))
	}

	if found := searchKey(doc, "missing"); len(found) != 0 {
		t.Errorf("searchKey(missing) found %d values, want 0", len(found))
	}
}

func TestTikTokMatch(t *testing.T) {
	resp := &Response{
		URL:            "https://v16-webapp.tiktok.com/video/tos/play/?mime_type=video_mp4&br=1200",
		RequestHeaders: map[string]string{"referer": "https://www.tiktok.com/"},
		PageCookies:    func() (string, error) { return "tt_sid=1; msToken=2", nil },
	}

	r, err := tiktokMatch(resp, nil)
	if err != nil {
		t.Fatalf("tiktokMatch() error = %v", err)
	}
	if r == nil {
		t.Fatal("tiktokMatch() = nil, want resource")
	}
	if r.Headers["cookie"] != "tt_sid=1; msToken=2" {
		t.Errorf("cookie header = %q, want page cookies", r.Headers["cookie"])
	}
	if r.Headers["referer"] != "https://www.tiktok.com/" {
		t.Errorf("referer header not preserved: %q", r.Headers["referer"])
	}
}

func TestTikTokMatchIgnoresOthers(t *testing.T) {
	resp := &Response{URL: "https://www.tiktok.com/@user/video/123?mime_type=text_html"}
	if r, err := tiktokMatch(resp, nil); r != nil || err != nil {
		t.Errorf("tiktokMatch() = %v, %v, want nil, nil", r, err)
	}
}

func TestTwitterMatch(t *testing.T) {
	body := `{"track": {"playbackUrl": "https://video.twimg.com/ext_tw_video/1/pl/list.m3u8?tag=12"}}`
	resp := staticResponse("https://api.twitter.com/1.1/videos/tweet/config/123.json", body)

	r, err := twitterMatch(resp, nil)
	if err != nil {
		t.Fatalf("twitterMatch() error = %v", err)
	}
	if r == nil {
		t.Fatal("twitterMatch() = nil, want resource")
	}
	if r.Type != media.Stream {
		t.Errorf("Type = %v, want Stream", r.Type)
	}
	if r.URL != "http://video.twimg.com/ext_tw_video/1/pl/list.m3u8?tag=12" {
		t.Errorf("URL = %q, want playlist over plain http", r.URL)
	}
}

func TestTwitterMatchNoOps(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
	}{
		{name: "unrelated url", resp: staticResponse("https://api.twitter.com/1.1/timeline.json", `{}`)},
		{name: "no playback url", resp: staticResponse("https://api.twitter.com/1.1/videos/tweet/config/1.json", `{"track": {}}`)},
		{name: "malformed body", resp: staticResponse("https://api.twitter.com/1.1/videos/tweet/config/1.json", `{`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r, err := twitterMatch(tt.resp, nil); r != nil || err != nil {
				t.Errorf("twitterMatch() = %v, %v, want nil, nil", r, err)
			}
		})
	}
}

func TestYouTubeBestFormat(t *testing.T) {
	yt := NewYouTube(nil, 1000)
	formats := gjson.Parse(`[
	  {"url": "https://yt/big", "mimeType": "video/mp4; codecs", "contentLength": "2000", "width": 1080, "height": 1920},
	  {"url": "https://yt/heavier", "mimeType": "video/mp4; codecs", "contentLength": "900", "width": 720, "height": 1280},
	  {"url": "https://yt/lighter", "mimeType": "video/mp4; codecs", "contentLength": "800", "width": 720, "height": 1280},
	  {"url": "https://yt/audio", "mimeType": "audio/mp4", "contentLength": "100"},
	  {"url": "https://yt/nolen", "mimeType": "video/mp4", "contentLength": "0", "width": 9999, "height": 9999}
	]`)

	best := yt.bestFormat(formats)
	if best == nil {
		t.Fatal("bestFormat() = nil")
	}
	if best.URL != "https://yt/lighter" {
		t.Errorf("bestFormat() = %q, want the smaller equal-area format within the size limit", best.URL)
	}
}
