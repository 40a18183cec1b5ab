// Package wheel parses PEP 425 wheel filenames and matches their
// compatibility tags against requested interpreter, ABI, and platform
// filters. Python-2-only wheels are always excluded.
package wheel
