// Package download drives the two-phase synchronization of packages
// from a requirements list into a local directory.
//
// Phase one walks the requirement lines sequentially, fetching release
// metadata for each package and counting the files that survive the
// wheel filter. Phase two processes the lines concurrently, downloading
// every selected file through a process-wide concurrency limiter.
//
// Engine handles a single file: it retries against a per-task mirror
// rotor until the global attempt budget runs out, verifies the SHA-256
// digest of each fresh body, and persists to disk atomically. Manager
// orchestrates both phases and aggregates one PackageStatus per
// requirement line.
package download
