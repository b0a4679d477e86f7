// Package download fetches resolved resources into temp files: plain
// HTTP for direct media, ffmpeg remuxing for HLS streams.
package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/raphaelm22/media-downloader-bot/internal/fsutil"
	"github.com/raphaelm22/media-downloader-bot/internal/httputil"
	"github.com/raphaelm22/media-downloader-bot/internal/media"
)

type Downloader struct {
	Client     *http.Client
	FFmpegPath string
	Files      fsutil.TempFiles
}

// Fetch downloads one resource to a fresh temp file and returns its
// path. The caller owns the file and is responsible for deleting it.
func (d *Downloader) Fetch(ctx context.Context, res media.Resource) (string, error) {
	ext := filepath.Ext(res.Filename)
	if ext == "" {
		ext = ".mp4"
	}
	path, err := d.Files.Create(ext)
	if err != nil {
		return "", err
	}

	switch res.Type {
	case media.Stream:
		err = d.fetchStream(ctx, res, path)
	default:
		err = d.fetchFile(ctx, res, path)
	}
	if err != nil {
		d.Files.SilenceDelete(path)
		return "", err
	}
	return path, nil
}

func (d *Downloader) fetchFile(ctx context.Context, res media.Resource, path string) error {
	req, err := httputil.NewRequest(ctx, res)
	if err != nil {
		return err
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", res.Filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: unexpected status %s", res.Filename, resp.Status)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return fmt.Errorf("writing %s: %w", res.Filename, err)
	}
	log.Debug().Str("file", res.Filename).Int64("bytes", n).Msg("download complete")
	return nil
}

// fetchStream remuxes an HLS playlist into an mp4 container. Streams are
// copied, not re-encoded; the audio bitstream filter fixes the ADTS
// framing HLS segments carry.
func (d *Downloader) fetchStream(ctx context.Context, res media.Resource, path string) error {
	cmd := exec.CommandContext(ctx, d.FFmpegPath,
		"-i", res.URL,
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		"-y", path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("remuxing stream: %w: %s", err, lastLine(stderr.Bytes()))
	}
	log.Debug().Str("file", res.Filename).Msg("stream remux complete")
	return nil
}

// lastLine keeps error messages short: ffmpeg puts the reason for a
// failure on its final stderr line.
func lastLine(out []byte) string {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return string(bytes.TrimSpace(lines[len(lines)-1]))
}
