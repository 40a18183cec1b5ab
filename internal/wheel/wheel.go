package wheel

import "strings"

// Tags holds the fields encoded in a wheel filename:
// {distribution}-{version}(-{build})?-{python}-{abi}-{platform}.whl.
// Tag fields may be compressed tag sets like "py2.py3".
type Tags struct {
	Name     string
	Version  string
	Build    string
	Python   string
	ABI      string
	Platform string
}

// Parse extracts Tags from a wheel filename. Filenames that do not end
// in .whl or have fewer than five dash-separated segments are not
// wheels.
func Parse(filename string) (Tags, bool) {
	stem, ok := strings.CutSuffix(filename, ".whl")
	if !ok {
		return Tags{}, false
	}

	parts := strings.Split(stem, "-")
	if len(parts) < 5 {
		return Tags{}, false
	}

	if len(parts) >= 6 {
		return Tags{
			Name:     parts[0],
			Version:  parts[1],
			Build:    parts[2],
			Python:   parts[3],
			ABI:      parts[4],
			Platform: parts[5],
		}, true
	}
	return Tags{
		Name:     parts[0],
		Version:  parts[1],
		Python:   parts[2],
		ABI:      parts[3],
		Platform: parts[4],
	}, true
}

// IsPython2Only reports whether the wheel targets only Python 2: its
// python tag set contains a py2* tag and no py3* or cp3* tag.
func IsPython2Only(t Tags) bool {
	hasPy2 := false
	for _, tag := range strings.Split(t.Python, ".") {
		if strings.HasPrefix(tag, "py3") || strings.HasPrefix(tag, "cp3") {
			return false
		}
		if strings.HasPrefix(tag, "py2") {
			hasPy2 = true
		}
	}
	return hasPy2
}

// IsPython3Compatible reports whether a release file can serve a
// Python 3 environment. Non-wheel artifacts (sdists) are always
// compatible; wheels need at least one py3* or cp3* python tag.
func IsPython3Compatible(filename string) bool {
	t, ok := Parse(filename)
	if !ok {
		return true
	}
	for _, tag := range strings.Split(t.Python, ".") {
		if strings.HasPrefix(tag, "py3") || strings.HasPrefix(tag, "cp3") {
			return true
		}
	}
	return false
}

// Filter restricts wheels by compatibility tags. Empty dimensions are
// not checked. Each dimension is a compressed tag set; a dimension
// matches when the file's tags and the filter's tags intersect.
type Filter struct {
	Python   string
	ABI      string
	Platform string
}

// Matches reports whether a release file passes the filter. Non-wheel
// filenames always match; Python-2-only wheels never do.
func (f Filter) Matches(filename string) bool {
	t, ok := Parse(filename)
	if !ok {
		return true
	}

	if IsPython2Only(t) {
		return false
	}

	if f.Python != "" && !tagSetsIntersect(t.Python, f.Python) {
		return false
	}
	if f.ABI != "" && !tagSetsIntersect(t.ABI, f.ABI) {
		return false
	}
	if f.Platform != "" && !tagSetsIntersect(t.Platform, f.Platform) {
		return false
	}
	return true
}

func tagSetsIntersect(fileTags, filterTags string) bool {
	file := strings.Split(fileTags, ".")
	for _, want := range strings.Split(filterTags, ".") {
		for _, got := range file {
			if got == want {
				return true
			}
		}
	}
	return false
}
