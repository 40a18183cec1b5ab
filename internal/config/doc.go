// Package config holds the downloader settings: where files go, how
// hard to push the mirrors, and which artifacts to keep.
package config
