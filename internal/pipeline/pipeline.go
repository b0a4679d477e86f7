// Package pipeline chains one incoming message through resolve,
// download, delivery and cleanup, short-circuiting on the first failure
// and always answering with a human-readable message.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/raphaelm22/media-downloader-bot/internal/fsutil"
	"github.com/raphaelm22/media-downloader-bot/internal/journal"
	"github.com/raphaelm22/media-downloader-bot/internal/media"
	"github.com/raphaelm22/media-downloader-bot/internal/platform"
)

// User-facing messages.
const (
	msgFinding      = "🔎 Alright! Finding video..."
	msgSending      = "📤 Wait! Sending..."
	msgFoundCount   = "%d videos were found"
	msgNotFound     = "No video was found"
	msgTimedOut     = "Timeout to find the video, try again later"
	msgAuthRequired = "This video requires signing in, try again later"
	msgTooLarge     = "The video is too large to send"
	msgGeneric      = "Try again later"
)

// Reply delivers answers for one incoming message.
type Reply interface {
	SendText(text string) error
	SendVideo(filename string, data []byte) error
	SendPhoto(filename string, data []byte) error
}

type browserResolver interface {
	Resolve(ctx context.Context, p platform.Platform, target *platform.Target) (media.Outcome, error)
}

type fetcher interface {
	Fetch(ctx context.Context, res media.Resource) (string, error)
}

type recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

type Pipeline struct {
	Registry   *platform.Registry
	Resolver   browserResolver
	Downloader fetcher
	Files      fsutil.TempFiles
	// Journal may be nil when history is disabled.
	Journal recorder
	// SizeLimit caps what the delivery channel accepts, in bytes.
	SizeLimit int64
}

// ResolveAndDeliver runs one message end to end. Text that no platform
// recognises is silently ignored. Panics anywhere in the run are
// contained to this message and answered with the generic failure.
func (p *Pipeline) ResolveAndDeliver(ctx context.Context, chatID int64, text string, reply Reply) {
	sel := p.Registry.Select(text)
	if sel == nil {
		return
	}
	start := time.Now()

	logger := log.With().
		Int64("chat_id", chatID).
		Str("platform", sel.Target.Platform).
		Str("url", sel.Target.Raw).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("panic handling message")
			p.sendText(reply, msgGeneric)
			p.record(ctx, chatID, sel.Target, "panic", fmt.Sprint(r), time.Since(start))
		}
	}()

	logger.Info().Msg("resolving")
	p.sendText(reply, msgFinding)

	outcome, err := p.resolve(ctx, sel)
	if err != nil {
		var extractionErr *media.ExtractionError
		if errors.As(err, &extractionErr) {
			logger.Warn().Err(err).Msg("extraction failed")
			p.sendText(reply, extractionErr.Msg)
			p.record(ctx, chatID, sel.Target, "extraction-failed", extractionErr.Msg, time.Since(start))
			return
		}
		logger.Error().Err(err).Msg("resolution failed")
		p.sendText(reply, msgGeneric)
		p.record(ctx, chatID, sel.Target, "error", err.Error(), time.Since(start))
		return
	}

	detail := p.deliver(ctx, outcome, reply, logger)
	p.record(ctx, chatID, sel.Target, outcome.Status.String(), detail, time.Since(start))
}

func (p *Pipeline) resolve(ctx context.Context, sel *platform.Selection) (media.Outcome, error) {
	if sel.Direct != nil {
		outcome, err := sel.Direct.Resolve(ctx, sel.Target)
		if err != nil {
			return media.Outcome{}, err
		}
		return *outcome, nil
	}
	return p.Resolver.Resolve(ctx, sel.Browser, sel.Target)
}

// deliver sends the outcome to the user and returns a journal detail.
func (p *Pipeline) deliver(ctx context.Context, outcome media.Outcome, reply Reply, logger zerolog.Logger) string {
	switch outcome.Status {
	case media.StatusNotFound:
		p.sendText(reply, msgNotFound)
		p.sendScreenshot(reply, outcome.Screenshot)
		return ""
	case media.StatusTimedOut:
		p.sendText(reply, msgTimedOut)
		p.sendScreenshot(reply, outcome.Screenshot)
		return ""
	case media.StatusAuthRequired:
		p.sendText(reply, msgAuthRequired)
		return ""
	}

	if len(outcome.Resources) > 1 {
		p.sendText(reply, fmt.Sprintf(msgFoundCount, len(outcome.Resources)))
	}
	p.sendText(reply, msgSending)

	var paths []string
	defer func() { p.Files.SilenceDeleteAll(paths) }()

	for _, res := range outcome.Resources {
		path, err := p.Downloader.Fetch(ctx, res)
		if err != nil {
			logger.Error().Err(err).Str("file", res.Filename).Msg("download failed")
			p.sendText(reply, msgGeneric)
			return "download failed"
		}
		paths = append(paths, path)

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error().Err(err).Str("path", path).Msg("reading downloaded file")
			p.sendText(reply, msgGeneric)
			return "read failed"
		}
		if int64(len(data)) > p.SizeLimit {
			logger.Warn().Int("bytes", len(data)).Msg("video over delivery size limit")
			p.sendText(reply, msgTooLarge)
			return "over size limit"
		}
		if err := reply.SendVideo(res.Filename, data); err != nil {
			logger.Error().Err(err).Str("file", res.Filename).Msg("delivery failed")
			p.sendText(reply, msgGeneric)
			return "delivery failed"
		}
	}

	logger.Info().Int("videos", len(outcome.Resources)).Msg("delivered")
	return ""
}

func (p *Pipeline) sendText(reply Reply, text string) {
	if err := reply.SendText(text); err != nil {
		log.Error().Err(err).Msg("error sending reply")
	}
}

func (p *Pipeline) sendScreenshot(reply Reply, shot []byte) {
	if len(shot) == 0 {
		return
	}
	if err := reply.SendPhoto("page.png", shot); err != nil {
		log.Error().Err(err).Msg("error sending screenshot")
	}
}

func (p *Pipeline) record(ctx context.Context, chatID int64, target *platform.Target, status, detail string, elapsed time.Duration) {
	if p.Journal == nil {
		return
	}
	e := journal.Entry{
		ChatID:   chatID,
		URL:      target.Raw,
		Platform: target.Platform,
		Status:   status,
		Detail:   detail,
		Elapsed:  elapsed,
	}
	if err := p.Journal.Record(ctx, e); err != nil {
		log.Error().Err(err).Msg("error recording journal entry")
	}
}
