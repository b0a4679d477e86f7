// Package resolve turns a classified target into a resolution outcome:
// it drives the browser page, feeds observed responses through the
// platform's matcher, and applies the login compensation policy.
package resolve

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/raphaelm22/media-downloader-bot/internal/browser"
	"github.com/raphaelm22/media-downloader-bot/internal/media"
	"github.com/raphaelm22/media-downloader-bot/internal/platform"
)

// matchEvent is what the response listener hands the waiter: a matched
// resource or an extraction failure.
type matchEvent struct {
	resource *media.Resource
	err      error
}

// Session resolves one target on one browser page.
type Session struct {
	Browser *browser.Browser
	// ProbeTimeout bounds the login-wall probe that runs when a page
	// settles without any match.
	ProbeTimeout time.Duration
}

// Resolve opens a page for the target, attaches the platform's matcher
// as a response listener before navigating, and waits for the first of:
// matcher success, navigation settling, or the platform's open timeout.
func (s *Session) Resolve(ctx context.Context, p platform.Platform, target *platform.Target) (media.Outcome, error) {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	page, err := s.Browser.NewPage(sessionCtx, p.Page(target))
	if err != nil {
		return media.Outcome{}, fmt.Errorf("opening page for %s: %w", target.Platform, err)
	}
	defer page.Close()

	matcher := p.Matcher(target)
	matches := make(chan matchEvent, 32)
	settled := make(chan struct{})

	// The listener must exist before navigation starts, otherwise a
	// qualifying response can arrive before anyone is watching.
	waitEvents := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		resource, err := matcher.Inspect(observed(page, e), target)
		if err == nil && resource == nil {
			return false
		}
		select {
		case matches <- matchEvent{resource: resource, err: err}:
		case <-sessionCtx.Done():
		}
		// A single-item listener is done after its first match; an
		// extraction failure ends any listener.
		return err != nil || target.Kind == media.SingleItem
	})
	go waitEvents()

	waitSettle := page.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	// Navigation gets the same bound as the match wait, so a stalled
	// main-document response cannot hold the page past the open timeout.
	if err := page.Timeout(p.OpenTimeout()).Navigate(target.PageURL); err != nil {
		if navigationTimedOut(err) {
			outcome := media.TimedOut()
			outcome.Screenshot = capture(page)
			return outcome, nil
		}
		return media.Outcome{}, fmt.Errorf("navigating to %s: %w", target.PageURL, err)
	}
	go func() {
		waitSettle()
		close(settled)
	}()

	outcome, err := collect(sessionCtx, target.Kind, matches, settled, p.OpenTimeout())
	if err != nil {
		return media.Outcome{}, err
	}

	if shouldProbe(outcome.Status, p.Probe()) {
		if detectLoginWall(page, p.Probe(), s.ProbeTimeout) {
			return media.AuthRequired(), nil
		}
	}
	if outcome.Status == media.StatusNotFound || outcome.Status == media.StatusTimedOut {
		outcome.Screenshot = capture(page)
	}
	return outcome, nil
}

// shouldProbe reports whether an empty-handed outcome warrants the
// login-wall probe. A gated page can settle on the wall (not found) or
// never settle at all (timed out); both get probed before the user is
// told to retry.
func shouldProbe(status media.Status, probe *platform.AuthProbe) bool {
	if probe == nil {
		return false
	}
	return status == media.StatusNotFound || status == media.StatusTimedOut
}

// navigationTimedOut distinguishes the open timeout expiring from a
// transport fault during navigation.
func navigationTimedOut(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// collect is the waiter half of the listener/waiter pair. Single-item
// targets resolve on the first match; multi-item targets accumulate
// until the page settles or the timeout fires, then report whatever
// arrived.
func collect(ctx context.Context, kind media.Kind, matches <-chan matchEvent, settled <-chan struct{}, timeout time.Duration) (media.Outcome, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var acc []media.Resource
	for {
		select {
		case ev := <-matches:
			if ev.err != nil {
				return media.Outcome{}, ev.err
			}
			if kind == media.SingleItem {
				return media.Resolved(*ev.resource), nil
			}
			acc = append(acc, *ev.resource)

		case <-settled:
			if len(acc) == 0 {
				return media.NotFound(), nil
			}
			return media.Resolved(acc...), nil

		case <-timer.C:
			if len(acc) == 0 {
				return media.TimedOut(), nil
			}
			return media.Resolved(acc...), nil

		case <-ctx.Done():
			return media.Outcome{}, ctx.Err()
		}
	}
}

// observed wraps a DevTools response event. Body and cookies are fetched
// lazily so only matching responses touch the browser again.
func observed(page *rod.Page, e *proto.NetworkResponseReceived) *platform.Response {
	headers := make(map[string]string, len(e.Response.RequestHeaders))
	for k, v := range e.Response.RequestHeaders {
		headers[k] = v.Str()
	}
	return &platform.Response{
		URL:            e.Response.URL,
		RequestHeaders: headers,
		Body: func() ([]byte, error) {
			return responseBody(page, e.RequestID)
		},
		PageCookies: func() (string, error) {
			return cookieHeader(page)
		},
	}
}

func responseBody(page *rod.Page, id proto.NetworkRequestID) ([]byte, error) {
	r, err := proto.NetworkGetResponseBody{RequestID: id}.Call(page)
	if err != nil {
		return nil, fmt.Errorf("fetching response body: %w", err)
	}
	if r.Base64Encoded {
		return base64.StdEncoding.DecodeString(r.Body)
	}
	return []byte(r.Body), nil
}

// cookieHeader renders the page's cookies as one Cookie header value.
func cookieHeader(page *rod.Page) (string, error) {
	cookies, err := page.Cookies(nil)
	if err != nil {
		return "", fmt.Errorf("reading page cookies: %w", err)
	}
	var header string
	for i, c := range cookies {
		if i > 0 {
			header += "; "
		}
		header += c.Name + "=" + c.Value
	}
	return header, nil
}

// capture grabs a diagnostic screenshot of the page. Failures only lose
// the diagnostic, never the outcome.
func capture(page *rod.Page) []byte {
	shot, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		log.Warn().Err(err).Msg("error capturing page screenshot")
		return nil
	}
	return shot
}
