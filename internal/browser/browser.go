// Package browser owns the Chromium instance every resolution shares.
// One browser serves the whole daemon lifetime: login flows mutate its
// cookie state, and later pages reuse that authenticated session.
package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"

	"github.com/raphaelm22/media-downloader-bot/internal/platform"
)

type Browser struct {
	rod      *rod.Browser
	launcher *launcher.Launcher
}

// New launches Chromium and connects to it. An empty execPath falls back
// to the system browser, or to rod's managed download when none is found.
func New(execPath string, headless bool) (*Browser, error) {
	if execPath == "" {
		if found, ok := launcher.LookPath(); ok {
			execPath = found
		}
	}

	l := launcher.New().
		Headless(headless).
		NoSandbox(true)
	if execPath != "" {
		l = l.Bin(execPath)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	log.Info().Str("bin", execPath).Bool("headless", headless).Msg("browser launched")
	return &Browser{rod: b, launcher: l}, nil
}

// NewPage opens a page configured for one platform. The page is bound to
// ctx; cancelling it aborts every pending browser call on the page.
func (b *Browser) NewPage(ctx context.Context, opts platform.PageOptions) (*rod.Page, error) {
	src := b.rod
	if opts.Incognito {
		inc, err := b.rod.Incognito()
		if err != nil {
			return nil, fmt.Errorf("creating incognito context: %w", err)
		}
		src = inc
	}

	var page *rod.Page
	var err error
	if opts.Stealth {
		page, err = stealth.Page(src)
	} else {
		page, err = src.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}

	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			page.Close()
			return nil, fmt.Errorf("setting user agent: %w", err)
		}
	}

	return page.Context(ctx), nil
}

// Close shuts the browser down and kills the launched process.
func (b *Browser) Close() {
	if err := b.rod.Close(); err != nil {
		log.Error().Err(err).Msg("error closing browser")
	}
	b.launcher.Kill()
}
