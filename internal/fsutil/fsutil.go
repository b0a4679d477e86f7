// Package fsutil implements the scoped temp-file contract used by the
// download and delivery stages.
package fsutil

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// TempFiles creates and removes single-use temporary files.
// The zero value uses the system temp directory.
type TempFiles struct {
	// Dir overrides the directory for created files. Empty means os.TempDir().
	Dir string
}

// Create reserves a fresh temp-file path with the given extension
// (including the dot). The file itself is not created; the path is
// guaranteed unique by a random name.
func (t TempFiles) Create(extension string) (string, error) {
	dir := t.Dir
	if dir == "" {
		dir = os.TempDir()
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating temp file name: %w", err)
	}

	return filepath.Join(dir, hex.EncodeToString(buf)+extension), nil
}

// SilenceDelete removes a file, logging failures instead of returning them.
// Deletion is best-effort cleanup and must never abort a pipeline.
func (t TempFiles) SilenceDelete(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Error().Err(err).Str("path", path).Msg("error deleting temp file")
	}
}

// SilenceDeleteAll removes every path, best-effort.
func (t TempFiles) SilenceDeleteAll(paths []string) {
	for _, p := range paths {
		t.SilenceDelete(p)
	}
}
