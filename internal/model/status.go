package model

// Status is the terminal state of one requirement line.
type Status string

const (
	// StatusSynchronized means every matching file was downloaded or
	// already present with a valid digest.
	StatusSynchronized Status = "Synchronized"

	// StatusPartialSync means some but not all matching files succeeded.
	StatusPartialSync Status = "Partial Sync"

	// StatusNoFiles means no release files matched the active filters.
	StatusNoFiles Status = "No Files"

	// StatusFailed means files existed but none could be downloaded, or
	// metadata could not be fetched at all.
	StatusFailed Status = "Failed"

	// StatusErrorPrefilter marks a line that slipped past upstream
	// pre-filtering and could not be parsed.
	StatusErrorPrefilter Status = "Error (Pre-filter)"
)

// PackageStatus is the per-requirement row of the final summary.
type PackageStatus struct {
	Package      string
	VersionLabel string
	Status       Status
	Details      string
}

// DownloadTask describes one artifact to materialize. URL is the
// upstream (pythonhosted) location; the engine rewrites it per mirror.
// SHA256 is the expected hex digest, empty when the index had none.
type DownloadTask struct {
	URL      string
	Filename string
	SHA256   string
}
