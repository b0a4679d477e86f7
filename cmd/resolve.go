package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raphaelm22/media-downloader-bot/internal/config"
	"github.com/raphaelm22/media-downloader-bot/internal/httputil"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "Resolve one link and save the video to the current directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.Pipeline.ResolveAndDeliver(ctx, 0, args[0], &consoleReply{})
	return nil
}

// consoleReply prints texts to stdout and saves media next to the user.
type consoleReply struct{}

func (consoleReply) SendText(text string) error {
	fmt.Println(text)
	return nil
}

func (consoleReply) SendVideo(filename string, data []byte) error {
	return saveLocal(filename, data)
}

func (consoleReply) SendPhoto(filename string, data []byte) error {
	return saveLocal(filename, data)
}

func saveLocal(filename string, data []byte) error {
	name := httputil.SanitizeFilename(filename)
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("saved %s (%d bytes)\n", name, len(data))
	return nil
}
