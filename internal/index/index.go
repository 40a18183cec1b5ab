// Package index builds a PEP 503 "simple" index over a directory of
// downloaded artifacts, so the directory can be served as a local
// package repository (pip install -i file://... or behind any static
// file server).
package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Hektorwang/pypi-downloader/internal/wheel"
)

var normalizeRe = regexp.MustCompile(`[-_.]+`)

// NormalizeName applies PEP 503 name normalization: lowercase, with
// runs of dash, underscore and dot collapsed to a single dash.
func NormalizeName(name string) string {
	return strings.ToLower(normalizeRe.ReplaceAllString(name, "-"))
}

var sdistExts = []string{".tar.gz", ".tar.bz2", ".zip", ".tar.xz"}

// distNameOf extracts the project name from an artifact filename.
// Wheels carry it as the first tag segment; sdists are split at the
// last dash before the version.
func distNameOf(filename string) (string, bool) {
	if strings.HasSuffix(filename, ".whl") {
		t, ok := wheel.Parse(filename)
		if !ok {
			return "", false
		}
		return t.Name, true
	}
	for _, ext := range sdistExts {
		if stem, ok := strings.CutSuffix(filename, ext); ok {
			i := strings.LastIndex(stem, "-")
			if i <= 0 {
				return "", false
			}
			return stem[:i], true
		}
	}
	return "", false
}

// Build scans dir for artifacts and writes a simple/ tree next to
// them: simple/index.html listing every project, and one
// simple/<name>/index.html per project with sha256-fragment links back
// to the artifacts.
func Build(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading artifact directory: %w", err)
	}

	// project name -> filename -> sha256
	projects := make(map[string]map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := distNameOf(e.Name())
		if !ok {
			continue
		}
		digest, err := fileDigest(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("hashing %s: %w", e.Name(), err)
		}
		normalized := NormalizeName(name)
		if projects[normalized] == nil {
			projects[normalized] = make(map[string]string)
		}
		projects[normalized][e.Name()] = digest
	}

	simpleDir := filepath.Join(dir, "simple")
	if err := os.MkdirAll(simpleDir, 0o755); err != nil {
		return err
	}

	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Strings(names)

	var root strings.Builder
	root.WriteString("<!DOCTYPE html>\n<html>\n<head><title>Simple index</title></head>\n<body>\n")
	for _, name := range names {
		fmt.Fprintf(&root, "<a href=%q>%s</a><br/>\n", name+"/", html.EscapeString(name))
	}
	root.WriteString("</body>\n</html>\n")
	if err := os.WriteFile(filepath.Join(simpleDir, "index.html"), []byte(root.String()), 0o644); err != nil {
		return err
	}

	for _, name := range names {
		projectDir := filepath.Join(simpleDir, name)
		if err := os.MkdirAll(projectDir, 0o755); err != nil {
			return err
		}

		files := make([]string, 0, len(projects[name]))
		for f := range projects[name] {
			files = append(files, f)
		}
		sort.Strings(files)

		var page strings.Builder
		fmt.Fprintf(&page, "<!DOCTYPE html>\n<html>\n<head><title>Links for %s</title></head>\n<body>\n", html.EscapeString(name))
		for _, f := range files {
			href := "../../" + f + "#sha256=" + projects[name][f]
			fmt.Fprintf(&page, "<a href=%q>%s</a><br/>\n", href, html.EscapeString(f))
		}
		page.WriteString("</body>\n</html>\n")
		if err := os.WriteFile(filepath.Join(projectDir, "index.html"), []byte(page.String()), 0o644); err != nil {
			return err
		}
	}

	return nil
}

func fileDigest(path string) (string, error) {
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
