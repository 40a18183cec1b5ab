package download

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Hektorwang/pypi-downloader/internal/config"
	"github.com/Hektorwang/pypi-downloader/internal/httpx"
	"github.com/Hektorwang/pypi-downloader/internal/mirror"
	"github.com/Hektorwang/pypi-downloader/internal/model"
	"github.com/Hektorwang/pypi-downloader/internal/pypi"
	"github.com/Hektorwang/pypi-downloader/internal/version"
	"github.com/Hektorwang/pypi-downloader/internal/wheel"
)

// Manager orchestrates a full synchronization run over a requirements
// list. It owns the mirror registry, the metadata fetcher, the
// download engine, and the process-wide concurrency limiter.
type Manager struct {
	settings *config.Settings
	registry *mirror.Registry
	fetcher  *pypi.Fetcher
	engine   *Engine
	limiter  *semaphore.Weighted
	filter   wheel.Filter

	onProgress func(ProgressEvent)

	mu           sync.Mutex
	sink         Sink
	downloadURLs []string
	logFile      *os.File

	totalFiles     atomic.Int32
	completedFiles atomic.Int32
}

// NewManager creates a manager from settings. onProgress, when not
// nil, receives every progress event; events are also appended to the
// settings' log file.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent)) (*Manager, error) {
	mirrorURLs := mirror.DefaultMirrors
	if settings.MirrorsFile != "" {
		loaded, err := mirror.LoadMirrors(settings.MirrorsFile)
		if err != nil {
			return nil, fmt.Errorf("loading mirrors file: %w", err)
		}
		mirrorURLs = loaded
	}

	registry := mirror.NewRegistry(mirrorURLs, mirror.Options{
		UseFallback: settings.UseCNMirrors,
		Shuffle:     true,
	})

	client := httpx.NewClient(httpx.Options{
		ConnectTimeout: time.Duration(settings.ConnectTimeout) * time.Second,
		ReadTimeout:    time.Duration(settings.ReadTimeout) * time.Second,
	})

	m := &Manager{
		settings:   settings,
		registry:   registry,
		fetcher:    pypi.NewFetcher(client, registry),
		limiter:    semaphore.NewWeighted(int64(settings.Concurrency)),
		onProgress: onProgress,
		filter: wheel.Filter{
			Python:   settings.PythonVersion,
			ABI:      settings.ABI,
			Platform: settings.Platform,
		},
	}
	m.fetcher.Logf = func(format string, args ...any) {
		m.event(LevelWarning, format, args...)
	}
	m.engine = &Engine{
		client:           client,
		registry:         registry,
		dir:              settings.DownloadDir,
		maxRetries:       settings.MaxRetries,
		retriesPerMirror: settings.RetriesPerMirror,
		onEvent:          m.event,
		advance:          m.advanceFiles,
	}

	if settings.LogFile != "" {
		f, err := os.OpenFile(settings.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		m.logFile = f
	}

	return m, nil
}

// Close releases the manager's log file.
func (m *Manager) Close() error {
	if m.logFile == nil {
		return nil
	}
	return m.logFile.Close()
}

// SetSink registers a receiver for aggregate progress updates.
func (m *Manager) SetSink(s Sink) {
	m.mu.Lock()
	m.sink = s
	m.mu.Unlock()
}

// Progress returns the number of terminally processed files and the
// total announced after the metadata phase.
func (m *Manager) Progress() (completed, total int) {
	return int(m.completedFiles.Load()), int(m.totalFiles.Load())
}

func (m *Manager) event(level ProgressLevel, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if m.logFile != nil {
		line := fmt.Sprintf("%s | %s | %s\n", time.Now().Format("2006-01-02 15:04:05"), level, msg)
		m.mu.Lock()
		m.logFile.WriteString(line)
		m.mu.Unlock()
	}
	if level == LevelVerbose && !m.settings.Verbose {
		return
	}
	if m.onProgress != nil {
		m.onProgress(ProgressEvent{Message: msg, Level: level})
	}
}

func (m *Manager) advanceFiles(n int) {
	m.completedFiles.Add(int32(n))
	m.mu.Lock()
	sink := m.sink
	m.mu.Unlock()
	if sink != nil {
		sink.Advance(n)
	}
}

// Run executes the two-phase synchronization over the given
// requirements content and returns one status per requirement line, in
// input order.
func (m *Manager) Run(ctx context.Context, requirementsContent string) ([]model.PackageStatus, error) {
	if !m.settings.DryRun {
		if err := os.MkdirAll(m.settings.DownloadDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating download directory: %w", err)
		}
	}

	var lines []string
	for _, raw := range strings.Split(requirementsContent, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := model.ParseRequirement(line); !ok {
			m.event(LevelWarning, "Skipping unparsable line: %s", line)
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, nil
	}

	// Phase 1: sequential metadata fetch. Counts the files every line
	// will attempt so the progress total is known before any download
	// starts.
	m.event(LevelInfo, "Fetching metadata for %d package(s)...", len(lines))
	metas := make([]*pypi.Metadata, len(lines))
	total := 0
	for i, line := range lines {
		req, _ := model.ParseRequirement(line)
		meta, err := m.fetcher.Fetch(ctx, req.DistName())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.event(LevelWarning, "Failed to fetch metadata for %s: %v", req.Name, err)
			continue
		}
		metas[i] = meta
		total += m.countFiles(meta, req.Version)
	}

	m.totalFiles.Store(int32(total))
	m.mu.Lock()
	sink := m.sink
	m.mu.Unlock()
	if sink != nil {
		sink.Init(total)
	}
	m.event(LevelInfo, "Metadata phase complete: %d file(s) to process", total)

	// Phase 2: concurrent processing. One goroutine per line; the
	// per-file limiter bounds actual download concurrency.
	results := make([]model.PackageStatus, len(lines))
	g := new(errgroup.Group)
	for i := range lines {
		g.Go(func() error {
			results[i] = m.processLine(ctx, lines[i], metas[i])
			return nil
		})
	}
	g.Wait()

	if m.settings.DryRun {
		if err := m.writeURLList(); err != nil {
			m.event(LevelError, "Failed to write URL list: %v", err)
		}
	}

	return results, ctx.Err()
}

// selectReleases picks the versions a requirement line resolves to
// and a human-readable version label. A nil map means nothing was
// selectable; the second return carries the reason.
func (m *Manager) selectReleases(meta *pypi.Metadata, pinned string) (map[string][]pypi.ReleaseFile, string, string) {
	if m.settings.AllVersions || m.settings.LatestPatch {
		releases := version.Python3Releases(meta)
		if len(releases) == 0 {
			return nil, pinned, "No Python 3 compatible versions found"
		}
		if m.settings.LatestPatch {
			releases = version.LatestPatchPerMinor(releases)
			return releases, fmt.Sprintf("latest-patch (%d versions)", len(releases)), ""
		}
		return releases, fmt.Sprintf("all (%d versions)", len(releases)), ""
	}

	files, ok := version.ExactRelease(meta, pinned)
	if !ok {
		return nil, pinned, "No release info found"
	}
	return map[string][]pypi.ReleaseFile{pinned: files}, pinned, ""
}

func (m *Manager) countFiles(meta *pypi.Metadata, pinned string) int {
	releases, _, _ := m.selectReleases(meta, pinned)
	n := 0
	for _, files := range releases {
		for _, f := range files {
			if m.filter.Matches(f.Filename) {
				n++
			}
		}
	}
	return n
}

// processLine handles one requirement line end to end and returns its
// final status. meta is the phase-1 result; nil means the metadata
// fetch failed.
func (m *Manager) processLine(ctx context.Context, line string, meta *pypi.Metadata) model.PackageStatus {
	req, ok := model.ParseRequirement(line)
	if !ok {
		return model.PackageStatus{
			Package:      line,
			VersionLabel: "N/A",
			Status:       model.StatusErrorPrefilter,
			Details:      "Unparsable requirement line",
		}
	}

	status := model.PackageStatus{
		Package:      req.Name,
		VersionLabel: req.Version,
		Status:       model.StatusFailed,
	}

	if meta == nil {
		status.Details = "Failed to fetch metadata"
		return status
	}

	releases, label, reason := m.selectReleases(meta, req.Version)
	status.VersionLabel = label
	if releases == nil {
		status.Details = reason
		return status
	}

	var tasks []model.DownloadTask
	for _, files := range releases {
		for _, f := range files {
			if !m.filter.Matches(f.Filename) {
				m.event(LevelVerbose, "Filtered out: %s", f.Filename)
				continue
			}
			finalURL := m.registry.Current().RewriteArtifactURL(f.URL)
			m.mu.Lock()
			m.downloadURLs = append(m.downloadURLs, finalURL)
			m.mu.Unlock()
			tasks = append(tasks, model.DownloadTask{
				URL:      f.URL,
				Filename: f.Filename,
				SHA256:   f.Digests.SHA256,
			})
		}
	}

	if len(tasks) == 0 {
		status.Status = model.StatusNoFiles
		status.Details = "No downloadable files found for this version"
		return status
	}

	var succeeded atomic.Int32
	if m.settings.DryRun {
		for _, task := range tasks {
			m.event(LevelInfo, "[Dry-run] Would download: %s", task.Filename)
			m.advanceFiles(1)
		}
		succeeded.Store(int32(len(tasks)))
	} else {
		g := new(errgroup.Group)
		for _, task := range tasks {
			g.Go(func() error {
				if err := m.limiter.Acquire(ctx, 1); err != nil {
					return nil
				}
				defer m.limiter.Release(1)
				if err := m.engine.Fetch(ctx, task); err != nil {
					m.event(LevelWarning, "Download failed for %s: %v", task.Filename, err)
					return nil
				}
				succeeded.Add(1)
				return nil
			})
		}
		g.Wait()
	}

	n := int(succeeded.Load())
	switch {
	case n == len(tasks):
		status.Status = model.StatusSynchronized
		status.Details = fmt.Sprintf("All %d file(s) processed", len(tasks))
	case n > 0:
		status.Status = model.StatusPartialSync
		status.Details = fmt.Sprintf("%d/%d file(s) processed", n, len(tasks))
	default:
		status.Status = model.StatusFailed
		status.Details = "No files downloaded"
	}
	return status
}

func (m *Manager) writeURLList() error {
	m.mu.Lock()
	urls := make([]string, len(m.downloadURLs))
	copy(urls, m.downloadURLs)
	m.mu.Unlock()

	if len(urls) == 0 {
		m.event(LevelInfo, "Dry-run produced no URLs, nothing to write")
		return nil
	}
	content := strings.Join(urls, "\n") + "\n"
	if err := os.WriteFile(m.settings.URLListPath, []byte(content), 0o644); err != nil {
		return err
	}
	m.event(LevelSuccess, "Wrote %d URL(s) to %s", len(urls), m.settings.URLListPath)
	return nil
}
