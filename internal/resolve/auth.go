package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/raphaelm22/media-downloader-bot/internal/browser"
	"github.com/raphaelm22/media-downloader-bot/internal/media"
	"github.com/raphaelm22/media-downloader-bot/internal/platform"
)

// detectLoginWall decides whether the page is demanding a login instead
// of serving content. Two independent signals count: the page landed on
// the platform's login path, or a login-shaped element shows up within
// the probe window. Absence of both within the window means "no
// evidence", not an error.
func detectLoginWall(page *rod.Page, probe *platform.AuthProbe, window time.Duration) bool {
	if info, err := page.Info(); err == nil {
		if u, err := url.Parse(info.URL); err == nil && strings.HasPrefix(u.Path, probe.PathPrefix) {
			return true
		}
	}

	race := page.Timeout(window).Race()
	for _, sel := range probe.Selectors {
		race = race.Element(sel)
	}
	if _, err := race.Do(); err != nil {
		return false
	}
	return true
}

// LoginFlow fills and submits a platform's credential form on the shared
// browser, leaving its cookies behind for the retry.
type LoginFlow struct {
	Browser *browser.Browser
}

// Run performs the linear form-fill sequence: navigate, type username,
// type password, submit, wait for the resulting navigation to settle.
func (f *LoginFlow) Run(ctx context.Context, p platform.Platform, creds media.Credentials) error {
	form := p.Login()
	if form == nil {
		return errors.New("platform has no login flow")
	}

	log.Info().Str("platform", p.Name()).Msg("attempting login")

	page, err := f.Browser.NewPage(ctx, p.Page(nil))
	if err != nil {
		return fmt.Errorf("opening login page: %w", err)
	}
	defer page.Close()

	if err := page.Navigate(form.URL); err != nil {
		return fmt.Errorf("navigating to login page: %w", err)
	}

	username, err := page.Element(form.UsernameField)
	if err != nil {
		return fmt.Errorf("finding username field: %w", err)
	}
	if err := username.Input(creds.Username); err != nil {
		return fmt.Errorf("typing username: %w", err)
	}

	password, err := page.Element(form.PasswordField)
	if err != nil {
		return fmt.Errorf("finding password field: %w", err)
	}
	if err := password.Input(creds.Password); err != nil {
		return fmt.Errorf("typing password: %w", err)
	}

	waitSettle := page.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	submit, err := page.Element(form.SubmitButton)
	if err != nil {
		return fmt.Errorf("finding submit button: %w", err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("submitting login form: %w", err)
	}
	waitSettle()

	log.Info().Str("platform", p.Name()).Msg("login form submitted")
	return nil
}
