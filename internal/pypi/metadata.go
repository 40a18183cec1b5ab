package pypi

// Metadata is the JSON document served by /pypi/<name>/json and its
// mirror equivalent. Only the fields the downloader consumes are
// mapped.
type Metadata struct {
	Info     Info                     `json:"info"`
	Releases map[string][]ReleaseFile `json:"releases"`
}

// Info carries the distribution's identity.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ReleaseFile is one downloadable artifact of a release.
type ReleaseFile struct {
	Filename string  `json:"filename"`
	URL      string  `json:"url"`
	Digests  Digests `json:"digests"`
}

// Digests holds the artifact checksums published by the index.
type Digests struct {
	SHA256 string `json:"sha256"`
}
