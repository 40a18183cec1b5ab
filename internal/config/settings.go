package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings holds all configuration options.
type Settings struct {
	// Download settings
	DownloadDir      string `json:"download_dir"`
	Concurrency      int    `json:"concurrency"`
	MaxRetries       int    `json:"max_retries"`
	RetriesPerMirror int    `json:"retries_per_mirror"`

	// Mirror settings
	UseCNMirrors bool   `json:"use_cn_mirrors"`
	MirrorsFile  string `json:"mirrors_file"`

	// Timeouts, in seconds
	ConnectTimeout int `json:"connect_timeout"`
	ReadTimeout    int `json:"read_timeout"`

	// Artifact filters
	PythonVersion string `json:"python_version"`
	ABI           string `json:"abi"`
	Platform      string `json:"platform"`

	// Version selection
	AllVersions bool `json:"all_versions"`
	LatestPatch bool `json:"latest_patch"`

	// Dry run
	DryRun      bool   `json:"dry_run"`
	URLListPath string `json:"url_list_path"`

	// Logging
	LogFile string `json:"log_file"`
	Verbose bool   `json:"verbose"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	cwd, _ := os.Getwd()
	return &Settings{
		DownloadDir:      filepath.Join(cwd, "pypi"),
		Concurrency:      16,
		MaxRetries:       32,
		RetriesPerMirror: 2,
		ConnectTimeout:   60,
		ReadTimeout:      60,
		URLListPath:      filepath.Join(cwd, "url_list.txt"),
		LogFile:          "./pypi-downloader.log",
	}
}

// Load reads settings from a JSON file. A missing file yields the
// defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
