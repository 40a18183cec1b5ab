// Package model defines the core data structures used throughout
// pypi-downloader.
//
// # Requirement
//
// Requirement represents one pinned line from a resolved requirements
// file:
//
//	req, ok := model.ParseRequirement("requests[socks]==2.31.0")
//	req.Name        // "requests[socks]"
//	req.DistName()  // "requests"
//	req.Version     // "2.31.0"
//
// Bare names without a version pin are accepted too, for the
// all-versions and latest-patch modes.
//
// # DownloadTask
//
// DownloadTask describes a single artifact to materialize: the upstream
// URL, the destination filename, and the expected SHA-256 digest when
// the index provided one.
//
// # PackageStatus
//
// PackageStatus is the per-requirement terminal outcome reported in the
// final summary table.
package model
