package version

import (
	"github.com/Hektorwang/pypi-downloader/internal/pypi"
	"github.com/Hektorwang/pypi-downloader/internal/wheel"
)

// ExactRelease looks up the files of one pinned version.
func ExactRelease(meta *pypi.Metadata, version string) ([]pypi.ReleaseFile, bool) {
	files, ok := meta.Releases[version]
	return files, ok
}

// Python3Releases keeps every version that has at least one
// Python-3-compatible file. Sdists count as compatible, so a version
// is only dropped when all of its files are Python-2-only wheels (or
// it has no files at all).
func Python3Releases(meta *pypi.Metadata) map[string][]pypi.ReleaseFile {
	selected := make(map[string][]pypi.ReleaseFile)
	for version, files := range meta.Releases {
		if len(files) == 0 {
			continue
		}
		for _, f := range files {
			if wheel.IsPython3Compatible(f.Filename) {
				selected[version] = files
				break
			}
		}
	}
	return selected
}

// LatestPatchPerMinor keeps only the highest version within each
// (major, minor) series. Version strings that fail to parse are kept
// unmodified: favoring stale data over silently dropping releases.
func LatestPatchPerMinor(releases map[string][]pypi.ReleaseFile) map[string][]pypi.ReleaseFile {
	type minorKey struct{ major, minor int }

	best := make(map[minorKey]Version)
	filtered := make(map[string][]pypi.ReleaseFile)

	for versionStr := range releases {
		v, err := Parse(versionStr)
		if err != nil {
			filtered[versionStr] = releases[versionStr]
			continue
		}
		key := minorKey{v.Major(), v.Minor()}
		if current, ok := best[key]; !ok || v.Compare(current) > 0 {
			best[key] = v
		}
	}

	for _, v := range best {
		filtered[v.String()] = releases[v.String()]
	}
	return filtered
}
