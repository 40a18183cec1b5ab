// Package version implements PEP 440-style version parsing and
// ordering, and the release-selection policies built on it.
//
// # Version
//
// Version is a value type with a total order:
//
//	a, _ := version.Parse("2.1.9")
//	b, _ := version.Parse("2.2.0rc1")
//	a.Compare(b) // -1
//
// Pre-releases (a/b/rc), post-releases, and dev releases order the way
// installers order them: 1.0.dev1 < 1.0a1 < 1.0rc1 < 1.0 < 1.0.post1.
//
// # Selection policies
//
// Three policies decide which releases of a distribution to
// materialize: an exact pinned version, every Python-3-compatible
// version, or only the latest patch release of each minor series.
// Version strings that fail to parse are never silently dropped.
package version
