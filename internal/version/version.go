package version

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Version is a parsed PEP 440-style version. The zero value is not
// meaningful; construct through Parse.
type Version struct {
	Epoch   int
	Release []int

	// PreKind is "a", "b", or "rc" when the version is a pre-release.
	PreKind string
	PreNum  int

	// Post is the post-release number, -1 when absent.
	Post int

	// Dev is the dev-release number, -1 when absent.
	Dev int

	original string
}

var versionRe = regexp.MustCompile(`^(?:(\d+)!)?` + // epoch
	`(\d+(?:\.\d+)*)` + // release segment
	`(?:[._-]?(a|b|c|rc|alpha|beta|pre|preview)[._-]?(\d*))?` + // pre
	`(?:[._-]?(?:post|rev|r)[._-]?(\d*)|-(\d+))?` + // post
	`(?:[._-]?dev[._-]?(\d*))?$`) // dev

// Parse parses a version string. Strings that do not follow the PEP
// 440 shape return an error; callers decide whether to keep them.
func Parse(s string) (Version, error) {
	norm := strings.TrimSpace(strings.ToLower(s))
	norm = strings.TrimPrefix(norm, "v")

	m := versionRe.FindStringSubmatch(norm)
	if m == nil {
		return Version{}, fmt.Errorf("unparseable version %q", s)
	}

	v := Version{Post: -1, Dev: -1, original: s}

	if m[1] != "" {
		v.Epoch, _ = strconv.Atoi(m[1])
	}

	for _, part := range strings.Split(m[2], ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, fmt.Errorf("unparseable version %q", s)
		}
		v.Release = append(v.Release, n)
	}

	if m[3] != "" {
		v.PreKind = normalizePreKind(m[3])
		if m[4] != "" {
			v.PreNum, _ = strconv.Atoi(m[4])
		}
	}

	if m[5] != "" {
		v.Post, _ = strconv.Atoi(m[5])
	} else if m[6] != "" {
		v.Post, _ = strconv.Atoi(m[6])
	}

	if m[7] != "" {
		v.Dev, _ = strconv.Atoi(m[7])
	} else if strings.Contains(norm, "dev") && strings.HasSuffix(norm, "dev") {
		v.Dev = 0
	}

	return v, nil
}

func normalizePreKind(k string) string {
	switch k {
	case "alpha":
		return "a"
	case "beta":
		return "b"
	case "c", "pre", "preview":
		return "rc"
	default:
		return k
	}
}

// Major returns the first release component.
func (v Version) Major() int {
	if len(v.Release) > 0 {
		return v.Release[0]
	}
	return 0
}

// Minor returns the second release component, 0 when absent.
func (v Version) Minor() int {
	if len(v.Release) > 1 {
		return v.Release[1]
	}
	return 0
}

// String returns the original string the version was parsed from.
func (v Version) String() string {
	return v.original
}

// preRank orders the pre/final axis: dev-only < a < b < rc < final.
func (v Version) preRank() int {
	switch v.PreKind {
	case "a":
		return 0
	case "b":
		return 1
	case "rc":
		return 2
	case "":
		if v.Dev >= 0 && v.Post < 0 {
			return -1 // bare dev release sorts before any pre-release
		}
		return 3
	default:
		return 3
	}
}

// Compare returns -1, 0, or 1 ordering v against o.
func (v Version) Compare(o Version) int {
	if v.Epoch != o.Epoch {
		return cmpInt(v.Epoch, o.Epoch)
	}

	n := len(v.Release)
	if len(o.Release) > n {
		n = len(o.Release)
	}
	for i := 0; i < n; i++ {
		if c := cmpInt(releaseAt(v.Release, i), releaseAt(o.Release, i)); c != 0 {
			return c
		}
	}

	if c := cmpInt(v.preRank(), o.preRank()); c != 0 {
		return c
	}
	if c := cmpInt(v.PreNum, o.PreNum); c != 0 {
		return c
	}
	if c := cmpInt(v.Post, o.Post); c != 0 {
		return c
	}

	vDev, oDev := v.Dev, o.Dev
	if vDev < 0 {
		vDev = math.MaxInt // no dev suffix sorts after any dev release
	}
	if oDev < 0 {
		oDev = math.MaxInt
	}
	return cmpInt(vDev, oDev)
}

func releaseAt(release []int, i int) int {
	if i < len(release) {
		return release[i]
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
