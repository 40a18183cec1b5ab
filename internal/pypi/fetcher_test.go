package pypi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Hektorwang/pypi-downloader/internal/httpx"
	"github.com/Hektorwang/pypi-downloader/internal/mirror"
)

const sampleMetadata = `{
	"info": {"name": "requests", "version": "2.31.0"},
	"releases": {
		"2.31.0": [
			{
				"filename": "requests-2.31.0-py3-none-any.whl",
				"url": "https://files.pythonhosted.org/packages/ab/cd/requests-2.31.0-py3-none-any.whl",
				"digests": {"sha256": "deadbeef"}
			}
		]
	}
}`

func newRegistry(t *testing.T, mirrorURLs ...string) *mirror.Registry {
	t.Helper()
	return mirror.NewRegistry(mirrorURLs, mirror.Options{UseFallback: true})
}

func TestFetcher_Fetch_FirstMirrorSucceeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pypi/web/json/requests" {
			t.Errorf("path = %q, want mirror json path", r.URL.Path)
		}
		w.Write([]byte(sampleMetadata))
	}))
	defer server.Close()

	reg := newRegistry(t, server.URL+"/pypi")
	f := NewFetcher(httpx.NewClient(httpx.DefaultOptions()), reg)

	meta, err := f.Fetch(context.Background(), "requests")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	files := meta.Releases["2.31.0"]
	if len(files) != 1 || files[0].Digests.SHA256 != "deadbeef" {
		t.Errorf("unexpected releases: %+v", meta.Releases)
	}
}

func TestFetcher_Fetch_RotatesOnBadJSON(t *testing.T) {
	var badHits atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badHits.Add(1)
		w.Write([]byte("<html>not json</html>"))
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleMetadata))
	}))
	defer good.Close()

	reg := newRegistry(t, bad.URL+"/pypi", good.URL+"/pypi")
	f := NewFetcher(httpx.NewClient(httpx.DefaultOptions()), reg)

	meta, err := f.Fetch(context.Background(), "requests")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if meta.Info.Name != "requests" {
		t.Errorf("Info.Name = %q", meta.Info.Name)
	}
	if badHits.Load() != 1 {
		t.Errorf("bad mirror hit %d times, want 1", badHits.Load())
	}
}

func TestFetcher_Fetch_RotatesOnHTTPError(t *testing.T) {
	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer missing.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleMetadata))
	}))
	defer good.Close()

	reg := newRegistry(t, missing.URL+"/pypi", good.URL+"/pypi")
	f := NewFetcher(httpx.NewClient(httpx.DefaultOptions()), reg)

	if _, err := f.Fetch(context.Background(), "requests"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
}

func TestFetcher_Fetch_AllMirrorsExhausted(t *testing.T) {
	var hits atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	reg := mirror.NewRegistry(
		[]string{bad.URL + "/a", bad.URL + "/b"},
		mirror.Options{UseFallback: true, Primary: bad.URL + "/primary"},
	)
	f := NewFetcher(httpx.NewClient(httpx.DefaultOptions()), reg)

	_, err := f.Fetch(context.Background(), "requests")
	if !errors.Is(err, ErrAllMirrorsFailed) {
		t.Fatalf("error = %v, want ErrAllMirrorsFailed", err)
	}
	if hits.Load() != 3 {
		t.Errorf("failing server hit %d times, want 3 (each mirror once)", hits.Load())
	}
}
