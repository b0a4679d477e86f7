// Package telegram runs the bot: long-polls for updates and hands every
// message to the pipeline on its own goroutine.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/raphaelm22/media-downloader-bot/internal/pipeline"
)

// MaxDeliverableSize is the Bot API upload cap for video files.
const MaxDeliverableSize int64 = 50 << 20

type Daemon struct {
	bot      *tgbotapi.BotAPI
	pipeline *pipeline.Pipeline
}

func NewDaemon(token string, p *pipeline.Pipeline) (*Daemon, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	return &Daemon{bot: bot, pipeline: p}, nil
}

// Run polls for updates until ctx is cancelled. Each message is handled
// concurrently so one slow resolution never blocks the next user.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := d.bot.GetUpdatesChan(cfg)

	log.Info().Str("username", d.bot.Self.UserName).Msg("telegram daemon started")

	for {
		select {
		case <-ctx.Done():
			d.bot.StopReceivingUpdates()
			log.Info().Msg("telegram daemon stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			d.handle(ctx, update)
		}
	}
}

func (d *Daemon) handle(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		return
	}

	reply := &Reply{bot: d.bot, chatID: msg.Chat.ID, replyTo: msg.MessageID}

	switch strings.ToLower(strings.TrimSpace(msg.Text)) {
	case "ping":
		// Liveness check.
		if err := reply.SendText("pong"); err != nil {
			log.Error().Err(err).Msg("error answering ping")
		}
		return
	case "hi", "hello":
		if err := reply.SendText("👋 Hi! Send me a video link and I'll fetch it for you."); err != nil {
			log.Error().Err(err).Msg("error answering greeting")
		}
		return
	}

	go d.pipeline.ResolveAndDeliver(ctx, msg.Chat.ID, msg.Text, reply)
}

// Reply answers one incoming message, always threading responses to it.
type Reply struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	replyTo int
}

func (r *Reply) SendText(text string) error {
	msg := tgbotapi.NewMessage(r.chatID, text)
	msg.ReplyToMessageID = r.replyTo
	_, err := r.bot.Send(msg)
	return err
}

func (r *Reply) SendVideo(filename string, data []byte) error {
	video := tgbotapi.NewVideo(r.chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	video.ReplyToMessageID = r.replyTo
	_, err := r.bot.Send(video)
	return err
}

func (r *Reply) SendPhoto(filename string, data []byte) error {
	photo := tgbotapi.NewPhoto(r.chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	photo.ReplyToMessageID = r.replyTo
	_, err := r.bot.Send(photo)
	return err
}
