package resolve

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/raphaelm22/media-downloader-bot/internal/media"
	"github.com/raphaelm22/media-downloader-bot/internal/platform"
)

// sessionRunner and loginRunner let tests drive the compensation policy
// without a browser.
type sessionRunner interface {
	Resolve(ctx context.Context, p platform.Platform, target *platform.Target) (media.Outcome, error)
}

type loginRunner interface {
	Run(ctx context.Context, p platform.Platform, creds media.Credentials) error
}

// attemptState tracks the single-level login compensation.
type attemptState int

const (
	stateInitial attemptState = iota
	stateAwaitingLogin
	stateRetried
)

// Resolver owns the resolve-maybe-login-resolve-again policy. The login
// compensation runs at most once per resolution attempt; a second
// auth-required outcome is final.
type Resolver struct {
	session sessionRunner
	login   loginRunner
	// creds holds per-platform credentials, keyed by platform name.
	creds map[string]media.Credentials
}

func NewResolver(session sessionRunner, login loginRunner, creds map[string]media.Credentials) *Resolver {
	return &Resolver{session: session, login: login, creds: creds}
}

// Resolve runs the session and, on an auth-required outcome with
// configured credentials, logs in and retries exactly once on the same
// browser. Every other outcome passes through unchanged.
func (r *Resolver) Resolve(ctx context.Context, p platform.Platform, target *platform.Target) (media.Outcome, error) {
	state := stateInitial
	for {
		outcome, err := r.session.Resolve(ctx, p, target)
		if err != nil {
			return media.Outcome{}, err
		}
		if outcome.Status != media.StatusAuthRequired {
			return outcome, nil
		}

		switch state {
		case stateInitial:
			creds := r.creds[p.Name()]
			if !creds.Present() || p.Login() == nil {
				log.Info().Str("platform", p.Name()).Msg("auth required and no credentials configured")
				return outcome, nil
			}
			state = stateAwaitingLogin
			// The login page gets the same bound as any other page
			// open. Without it a form that never renders its fields
			// would pin the attempt to the daemon's lifetime.
			loginCtx, cancel := context.WithTimeout(ctx, p.OpenTimeout())
			err := r.login.Run(loginCtx, p, creds)
			cancel()
			if err != nil {
				log.Error().Err(err).Str("platform", p.Name()).Msg("login failed")
				return outcome, nil
			}
			state = stateRetried

		case stateRetried:
			// The site demanded a login again after a successful login.
			log.Warn().Str("platform", p.Name()).Msg("auth still required after login")
			return outcome, nil
		}
	}
}
