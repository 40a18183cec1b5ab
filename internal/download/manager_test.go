package download

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/sync/semaphore"

	"github.com/Hektorwang/pypi-downloader/internal/config"
	"github.com/Hektorwang/pypi-downloader/internal/httpx"
	"github.com/Hektorwang/pypi-downloader/internal/mirror"
	"github.com/Hektorwang/pypi-downloader/internal/model"
	"github.com/Hektorwang/pypi-downloader/internal/pypi"
	"github.com/Hektorwang/pypi-downloader/internal/wheel"
)

func newTestManager(settings *config.Settings, registry *mirror.Registry) *Manager {
	client := httpx.NewClient(httpx.DefaultOptions())
	m := &Manager{
		settings: settings,
		registry: registry,
		fetcher:  pypi.NewFetcher(client, registry),
		limiter:  semaphore.NewWeighted(int64(settings.Concurrency)),
		filter: wheel.Filter{
			Python:   settings.PythonVersion,
			ABI:      settings.ABI,
			Platform: settings.Platform,
		},
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
	return m
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	s := config.DefaultSettings()
	s.DownloadDir = t.TempDir()
	s.MaxRetries = 2
	s.RetriesPerMirror = 2
	s.Concurrency = 4
	s.LogFile = ""
	return s
}

// indexServer serves per-package metadata and artifact bodies in the
// official index layout.
func indexServer(t *testing.T, releases map[string]map[string][]pypi.ReleaseFile, bodies map[string][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/pypi/") && strings.HasSuffix(r.URL.Path, "/json") {
			name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/pypi/"), "/json")
			rel, ok := releases[name]
			if !ok {
				http.NotFound(w, r)
				return
			}
			json.NewEncoder(w).Encode(pypi.Metadata{
				Info:     pypi.Info{Name: name},
				Releases: rel,
			})
			return
		}
		if body, ok := bodies[r.URL.Path]; ok {
			w.Write(body)
			return
		}
		http.NotFound(w, r)
	}))
}

func TestManager_RunSynchronizesPinnedPackage(t *testing.T) {
	bodyA := []byte("sdist bytes")
	bodyB := []byte("wheel bytes")

	var srv *httptest.Server
	releases := map[string]map[string][]pypi.ReleaseFile{}
	bodies := map[string][]byte{"/packages/a.tar.gz": bodyA, "/packages/b.whl": bodyB}
	srv = indexServer(t, releases, bodies)
	defer srv.Close()

	releases["requests"] = map[string][]pypi.ReleaseFile{
		"2.31.0": {
			{Filename: "requests-2.31.0.tar.gz", URL: srv.URL + "/packages/a.tar.gz", Digests: pypi.Digests{SHA256: sha256Hex(bodyA)}},
			{Filename: "requests-2.31.0-py3-none-any.whl", URL: srv.URL + "/packages/b.whl", Digests: pypi.Digests{SHA256: sha256Hex(bodyB)}},
		},
	}

	settings := testSettings(t)
	registry := mirror.NewRegistry(nil, mirror.Options{Primary: srv.URL})
	m := newTestManager(settings, registry)

	statuses, err := m.Run(context.Background(), "requests==2.31.0\n")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("len(statuses) = %d, want 1", len(statuses))
	}
	got := statuses[0]
	if got.Status != model.StatusSynchronized {
		t.Errorf("Status = %q, want %q (details: %s)", got.Status, model.StatusSynchronized, got.Details)
	}
	if got.Details != "All 2 file(s) processed" {
		t.Errorf("Details = %q", got.Details)
	}
	for _, name := range []string{"requests-2.31.0.tar.gz", "requests-2.31.0-py3-none-any.whl"} {
		if _, err := os.Stat(filepath.Join(settings.DownloadDir, name)); err != nil {
			t.Errorf("expected %s on disk: %v", name, err)
		}
	}
	if completed, total := m.Progress(); completed != 2 || total != 2 {
		t.Errorf("Progress() = %d/%d, want 2/2", completed, total)
	}
}

func TestManager_RunPartialSync(t *testing.T) {
	bodyA := []byte("good file")
	releases := map[string]map[string][]pypi.ReleaseFile{}
	bodies := map[string][]byte{"/packages/good.tar.gz": bodyA}
	srv := indexServer(t, releases, bodies)
	defer srv.Close()

	releases["flask"] = map[string][]pypi.ReleaseFile{
		"3.0.0": {
			{Filename: "flask-3.0.0.tar.gz", URL: srv.URL + "/packages/good.tar.gz", Digests: pypi.Digests{SHA256: sha256Hex(bodyA)}},
			{Filename: "flask-3.0.0-py3-none-any.whl", URL: srv.URL + "/packages/missing.whl"},
		},
	}

	settings := testSettings(t)
	registry := mirror.NewRegistry(nil, mirror.Options{Primary: srv.URL})
	m := newTestManager(settings, registry)

	statuses, err := m.Run(context.Background(), "flask==3.0.0")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := statuses[0]
	if got.Status != model.StatusPartialSync {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusPartialSync)
	}
	if got.Details != "1/2 file(s) processed" {
		t.Errorf("Details = %q", got.Details)
	}
}

func TestManager_RunStatuses(t *testing.T) {
	releases := map[string]map[string][]pypi.ReleaseFile{}
	srv := indexServer(t, releases, nil)
	defer srv.Close()

	// Only a Python-2-only wheel: everything gets filtered out.
	releases["legacy"] = map[string][]pypi.ReleaseFile{
		"0.9": {{Filename: "legacy-0.9-py2-none-any.whl", URL: srv.URL + "/packages/l.whl"}},
	}
	// Known package, but the pinned version is absent.
	releases["django"] = map[string][]pypi.ReleaseFile{
		"4.2": {{Filename: "django-4.2.tar.gz", URL: srv.URL + "/packages/d.tar.gz"}},
	}

	settings := testSettings(t)
	registry := mirror.NewRegistry(nil, mirror.Options{Primary: srv.URL})
	m := newTestManager(settings, registry)

	input := strings.Join([]string{
		"legacy==0.9",
		"django==5.0",
		"no-such-package==1.0",
		"!!! not a requirement",
		"# a comment",
		"",
	}, "\n")

	statuses, err := m.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("len(statuses) = %d, want 3 (comment, blank and unparsable lines skipped)", len(statuses))
	}

	want := []struct {
		status  model.Status
		details string
	}{
		{model.StatusNoFiles, "No downloadable files found for this version"},
		{model.StatusFailed, "No release info found"},
		{model.StatusFailed, "Failed to fetch metadata"},
	}
	for i, w := range want {
		if statuses[i].Status != w.status {
			t.Errorf("statuses[%d].Status = %q, want %q", i, statuses[i].Status, w.status)
		}
		if statuses[i].Details != w.details {
			t.Errorf("statuses[%d].Details = %q, want %q", i, statuses[i].Details, w.details)
		}
	}
}

func TestManager_RunAllVersions(t *testing.T) {
	body := []byte("x")
	releases := map[string]map[string][]pypi.ReleaseFile{}
	bodies := map[string][]byte{}
	srv := indexServer(t, releases, bodies)
	defer srv.Close()

	rel := map[string][]pypi.ReleaseFile{}
	for i, v := range []string{"1.0", "1.1", "2.0"} {
		p := fmt.Sprintf("/packages/tool-%d.tar.gz", i)
		bodies[p] = body
		rel[v] = []pypi.ReleaseFile{{
			Filename: fmt.Sprintf("tool-%s.tar.gz", v),
			URL:      srv.URL + p,
			Digests:  pypi.Digests{SHA256: sha256Hex(body)},
		}}
	}
	releases["tool"] = rel

	settings := testSettings(t)
	settings.AllVersions = true
	registry := mirror.NewRegistry(nil, mirror.Options{Primary: srv.URL})
	m := newTestManager(settings, registry)

	statuses, err := m.Run(context.Background(), "tool==1.0")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := statuses[0]
	if got.Status != model.StatusSynchronized {
		t.Errorf("Status = %q, want %q (details: %s)", got.Status, model.StatusSynchronized, got.Details)
	}
	if got.VersionLabel != "all (3 versions)" {
		t.Errorf("VersionLabel = %q, want %q", got.VersionLabel, "all (3 versions)")
	}
}

func TestManager_DryRunWritesURLList(t *testing.T) {
	releases := map[string]map[string][]pypi.ReleaseFile{}
	srv := indexServer(t, releases, nil)
	defer srv.Close()

	releases["requests"] = map[string][]pypi.ReleaseFile{
		"2.31.0": {{Filename: "requests-2.31.0.tar.gz", URL: srv.URL + "/packages/r.tar.gz"}},
	}

	settings := testSettings(t)
	settings.DryRun = true
	settings.URLListPath = filepath.Join(t.TempDir(), "url_list.txt")
	registry := mirror.NewRegistry(nil, mirror.Options{Primary: srv.URL})
	m := newTestManager(settings, registry)

	statuses, err := m.Run(context.Background(), "requests==2.31.0")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if statuses[0].Status != model.StatusSynchronized {
		t.Errorf("Status = %q, want %q", statuses[0].Status, model.StatusSynchronized)
	}

	data, err := os.ReadFile(settings.URLListPath)
	if err != nil {
		t.Fatalf("reading URL list: %v", err)
	}
	if want := srv.URL + "/packages/r.tar.gz\n"; string(data) != want {
		t.Errorf("URL list = %q, want %q", data, want)
	}

	if _, err := os.Stat(filepath.Join(settings.DownloadDir, "requests-2.31.0.tar.gz")); err == nil {
		t.Error("dry run must not download files")
	}
}

func TestManager_ProcessLineUnparsable(t *testing.T) {
	settings := testSettings(t)
	registry := mirror.NewRegistry(nil, mirror.Options{Primary: "http://127.0.0.1:0"})
	m := newTestManager(settings, registry)

	got := m.processLine(context.Background(), "=== nonsense ===", nil)
	if got.Status != model.StatusErrorPrefilter {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusErrorPrefilter)
	}
}
