package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelm22/media-downloader-bot/internal/config"
	"github.com/raphaelm22/media-downloader-bot/internal/journal"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently handled links",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum entries to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	path := cfg.Journal.Path
	if path == "" {
		path, err = config.JournalPath()
		if err != nil {
			return err
		}
	}

	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.Recent(context.Background(), historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no history yet")
		return nil
	}

	for _, e := range entries {
		line := fmt.Sprintf("%s  %-10s %-12s %8s  %s",
			e.RequestedAt.Local().Format(time.DateTime), e.Platform, e.Status,
			e.Elapsed.Round(time.Millisecond), e.URL)
		if e.Detail != "" {
			line += "  (" + e.Detail + ")"
		}
		fmt.Println(line)
	}
	return nil
}
