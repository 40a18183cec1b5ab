package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Hektorwang/pypi-downloader/internal/httpx"
	"github.com/Hektorwang/pypi-downloader/internal/mirror"
	"github.com/Hektorwang/pypi-downloader/internal/model"
)

// Engine downloads a single artifact with mirror rotation. Each Fetch
// call gets its own rotor so concurrent tasks never disturb each
// other's mirror position.
type Engine struct {
	client           *httpx.Client
	registry         *mirror.Registry
	dir              string
	maxRetries       int
	retriesPerMirror int

	onEvent func(level ProgressLevel, format string, args ...any)
	advance func(n int)
}

func (e *Engine) event(level ProgressLevel, format string, args ...any) {
	if e.onEvent != nil {
		e.onEvent(level, format, args...)
	}
}

func (e *Engine) done() {
	if e.advance != nil {
		e.advance(1)
	}
}

// Fetch downloads task into the engine's directory. Every return path
// counts as a terminal outcome and advances the progress counter,
// except context cancellation, which aborts the whole run anyway.
func (e *Engine) Fetch(ctx context.Context, task model.DownloadTask) error {
	dest := filepath.Join(e.dir, task.Filename)
	expected := strings.TrimPrefix(task.SHA256, "sha256=")

	if _, err := os.Stat(dest); err == nil {
		if expected == "" {
			e.event(LevelVerbose, "File exists, no hash to verify, skipping: %s", task.Filename)
			e.done()
			return nil
		}
		sum, err := fileSHA256(dest)
		if err == nil && sum == expected {
			e.event(LevelVerbose, "File exists with valid hash, skipping: %s", task.Filename)
			e.done()
			return nil
		}
		e.event(LevelWarning, "File exists but hash differs, re-downloading: %s", task.Filename)
	}

	rotor := e.registry.Rotor()
	mirrorAttempts := 0
	var lastErr error

	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		m := rotor.Current()
		url := m.RewriteArtifactURL(task.URL)

		body, err := e.client.Get(ctx, url)
		if err == nil {
			if expected != "" {
				sum := sha256.Sum256(body)
				if hex.EncodeToString(sum[:]) != expected {
					// A corrupt body from a fully completed response will
					// not improve on retry; fail the file immediately.
					e.event(LevelError, "Hash verification failed for %s", task.Filename)
					e.done()
					return fmt.Errorf("hash mismatch for %s", task.Filename)
				}
			}
			if err = e.persist(dest, body); err == nil {
				e.event(LevelInfo, "Downloaded: %s", task.Filename)
				e.done()
				return nil
			}
			e.event(LevelWarning, "Failed to persist %s: %v", task.Filename, err)
			lastErr = err
		} else {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			e.event(LevelWarning, "Attempt %d/%d failed for %s via %s: %v",
				attempt, e.maxRetries, task.Filename, m.URL, err)
		}

		mirrorAttempts++
		if mirrorAttempts >= e.retriesPerMirror {
			next := rotor.Next()
			e.event(LevelInfo, "Switching mirror for %s -> %s", task.Filename, next.URL)
			mirrorAttempts = 0
		}
	}

	e.event(LevelError, "Giving up on %s after %d attempts", task.Filename, e.maxRetries)
	e.done()
	return fmt.Errorf("download failed after %d attempts: %w", e.maxRetries, lastErr)
}

// persist writes body to dest through a temporary file in the same
// directory so a partially written artifact is never observable.
func (e *Engine) persist(dest string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err = tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err = io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
