package pypi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Hektorwang/pypi-downloader/internal/httpx"
	"github.com/Hektorwang/pypi-downloader/internal/mirror"
)

// ErrAllMirrorsFailed is returned when every candidate mirror failed to
// produce valid metadata for a distribution.
var ErrAllMirrorsFailed = errors.New("all mirrors failed")

// Fetcher retrieves release metadata with mirror fallback. Transient
// failures, including bodies that are not valid JSON, advance the
// shared rotation cursor and try the next mirror; anything else aborts
// the fetch immediately.
type Fetcher struct {
	client   *httpx.Client
	registry *mirror.Registry

	// Logf, when set, receives diagnostics about mirror rotation.
	Logf func(format string, args ...any)
}

// NewFetcher creates a metadata fetcher over the given mirror registry.
func NewFetcher(client *httpx.Client, registry *mirror.Registry) *Fetcher {
	return &Fetcher{client: client, registry: registry}
}

// Fetch retrieves metadata for a distribution. distName must not carry
// an extras suffix. Each mirror is tried at most once per call.
func (f *Fetcher) Fetch(ctx context.Context, distName string) (*Metadata, error) {
	var lastErr error

	maxAttempts := f.registry.Len()
	for attempt := 0; attempt < maxAttempts; attempt++ {
		current := f.registry.Current()
		metadataURL := current.MetadataURL(distName)

		body, err := f.client.Get(ctx, metadataURL)
		if err == nil {
			var meta Metadata
			if jsonErr := json.Unmarshal(body, &meta); jsonErr == nil {
				return &meta, nil
			} else {
				err = fmt.Errorf("invalid JSON from %s: %w", current.URL, jsonErr)
			}
		}

		if !httpx.IsTransient(err) && !isJSONError(err) {
			return nil, fmt.Errorf("fetching metadata for %s from %s: %w", distName, metadataURL, err)
		}

		lastErr = err
		f.logf("Mirror %s failed for %s: %v. Trying next mirror...", current.URL, distName, err)
		f.registry.Next()
	}

	return nil, fmt.Errorf("%w for %s: %v", ErrAllMirrorsFailed, distName, lastErr)
}

func isJSONError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func (f *Fetcher) logf(format string, args ...any) {
	if f.Logf != nil {
		f.Logf(format, args...)
	}
}
