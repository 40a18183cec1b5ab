// Package httpx wraps HTTP operations with PyPI-mirror-specific
// configuration: a pip-compatible User-Agent, connect and read
// timeouts without an overall request deadline, and error
// classification that drives mirror rotation.
package httpx
