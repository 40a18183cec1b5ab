package model

import (
	"regexp"
	"strings"
)

// Requirement is one parsed line from a resolved requirements file.
// Name keeps any extras suffix (e.g. "zabbix-utils[async]"); Version is
// empty for bare lines, which are only meaningful in all-versions and
// latest-patch modes.
type Requirement struct {
	Name    string
	Version string
}

var (
	pinnedLine = regexp.MustCompile(`^([\w.-]+)(?:\[([\w,-]+)\])?==([\w.-]+)$`)
	bareLine   = regexp.MustCompile(`^([\w.-]+)(?:\[([\w,-]+)\])?$`)
)

// ParseRequirement parses a single requirements line. Blank lines and
// comment lines yield ok=false, as does anything that is not
// "name[extras]==version" or a bare "name[extras]".
func ParseRequirement(line string) (Requirement, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Requirement{}, false
	}

	if m := pinnedLine.FindStringSubmatch(line); m != nil {
		name := m[1]
		if m[2] != "" {
			name = m[1] + "[" + m[2] + "]"
		}
		return Requirement{Name: name, Version: m[3]}, true
	}

	if m := bareLine.FindStringSubmatch(line); m != nil {
		name := m[1]
		if m[2] != "" {
			name = m[1] + "[" + m[2] + "]"
		}
		return Requirement{Name: name}, true
	}

	return Requirement{}, false
}

// DistName returns the distribution name without the extras suffix,
// suitable for metadata URLs.
func (r Requirement) DistName() string {
	if i := strings.IndexByte(r.Name, '['); i >= 0 {
		return r.Name[:i]
	}
	return r.Name
}
