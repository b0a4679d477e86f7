package cmd

import (
	"github.com/rs/zerolog/log"

	"github.com/raphaelm22/media-downloader-bot/internal/browser"
	"github.com/raphaelm22/media-downloader-bot/internal/config"
	"github.com/raphaelm22/media-downloader-bot/internal/download"
	"github.com/raphaelm22/media-downloader-bot/internal/fsutil"
	"github.com/raphaelm22/media-downloader-bot/internal/httputil"
	"github.com/raphaelm22/media-downloader-bot/internal/journal"
	"github.com/raphaelm22/media-downloader-bot/internal/media"
	"github.com/raphaelm22/media-downloader-bot/internal/pipeline"
	"github.com/raphaelm22/media-downloader-bot/internal/platform"
	"github.com/raphaelm22/media-downloader-bot/internal/resolve"
	"github.com/raphaelm22/media-downloader-bot/internal/telegram"
)

// app holds everything with a lifetime: one browser, one journal, and
// the pipeline built on top of them.
type app struct {
	Pipeline *pipeline.Pipeline

	browser *browser.Browser
	journal *journal.Journal
}

func newApp(cfg *config.Config) (*app, error) {
	b, err := browser.New(cfg.Browser.ExecutablePath, cfg.Browser.Headless)
	if err != nil {
		return nil, err
	}

	var j *journal.Journal
	if cfg.Journal.Enabled {
		path := cfg.Journal.Path
		if path == "" {
			path, err = config.JournalPath()
			if err != nil {
				b.Close()
				return nil, err
			}
		}
		j, err = journal.Open(path)
		if err != nil {
			b.Close()
			return nil, err
		}
	}

	client := httputil.NewClient()
	creds := media.Credentials{Username: cfg.Instagram.Username, Password: cfg.Instagram.Password}
	log.Debug().Bool("instagram_login", cfg.HasInstagramLogin()).Bool("journal", cfg.Journal.Enabled).Msg("configuration loaded")

	registry := platform.NewRegistry(
		[]platform.Platform{
			platform.NewInstagram(creds, cfg.Instagram.OpenTimeout.Duration),
			platform.NewTikTok(cfg.Tiktok.OpenTimeout.Duration),
			platform.NewTwitter(cfg.Twitter.OpenTimeout.Duration),
		},
		[]platform.DirectResolver{
			platform.NewYouTube(client, telegram.MaxDeliverableSize),
		},
	)

	session := &resolve.Session{Browser: b, ProbeTimeout: cfg.Instagram.ProbeTimeout.Duration}
	login := &resolve.LoginFlow{Browser: b}
	resolver := resolve.NewResolver(session, login, map[string]media.Credentials{
		"instagram": creds,
	})

	files := fsutil.TempFiles{}
	p := &pipeline.Pipeline{
		Registry: registry,
		Resolver: resolver,
		Downloader: &download.Downloader{
			Client:     client,
			FFmpegPath: cfg.Twitter.FFmpegPath,
			Files:      files,
		},
		Files:     files,
		SizeLimit: telegram.MaxDeliverableSize,
	}
	if j != nil {
		p.Journal = j
	}

	return &app{Pipeline: p, browser: b, journal: j}, nil
}

func (a *app) Close() {
	a.browser.Close()
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			log.Error().Err(err).Msg("error closing journal")
		}
	}
}
