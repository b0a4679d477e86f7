// Package cmd wires configuration, the browser, the resolution pipeline
// and the Telegram daemon into the CLI.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/raphaelm22/media-downloader-bot/internal/config"
	"github.com/raphaelm22/media-downloader-bot/internal/telegram"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "media-downloader-bot",
	Short: "Telegram bot that downloads videos from social media links",
	Long: `media-downloader-bot watches a Telegram chat for social media links
(Instagram reels, posts and stories, TikTok, Twitter, YouTube shorts),
resolves the video behind each link with a headless browser, and sends
it back into the chat.`,
	RunE: runDaemon,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func initLogging() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("no telegram token configured, set telegram.token in the config file")
	}

	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	daemon, err := telegram.NewDaemon(cfg.Telegram.Token, app.Pipeline)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return daemon.Run(ctx)
}
