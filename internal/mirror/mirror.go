package mirror

import (
	"net/url"
	"path"
	"strings"
)

// OfficialPyPI is the canonical package index. It serves metadata under
// /pypi/<name>/json and artifacts directly from files.pythonhosted.org.
const OfficialPyPI = "https://pypi.org"

// hostedPrefix is the well-known artifact host used in official
// metadata; mirrors serve the same paths under web/packages/.
const hostedPrefix = "https://files.pythonhosted.org/packages/"

// DefaultMirrors is the built-in set of bandersnatch-style mirrors used
// in fallback mode. Order is randomized at registry construction.
var DefaultMirrors = []string{
	"http://mirrors.aliyun.com/pypi",
	"https://mirrors.cloud.tencent.com/pypi",
	"https://mirror.nju.edu.cn/pypi",
	"https://mirror.nyist.edu.cn/pypi",
	"https://mirror.sjtu.edu.cn/pypi",
	"https://mirrors.bfsu.edu.cn/pypi",
	"https://mirrors.jlu.edu.cn/pypi",
	"https://mirrors.neusoft.edu.cn/pypi",
	"https://mirrors.njtech.edu.cn/pypi",
	"https://mirrors.pku.edu.cn/pypi",
	"https://mirrors.qlu.edu.cn/pypi",
	"https://mirrors.tuna.tsinghua.edu.cn/pypi",
	"https://mirrors.ustc.edu.cn/pypi",
	"https://mirrors.zju.edu.cn/pypi",
}

// Mirror is one candidate source. Primary marks the official index,
// which uses different metadata paths and needs no URL rewriting.
type Mirror struct {
	URL     string
	Primary bool
}

// Base returns an absolute URL for this mirror with rel joined onto its
// base path. The result always ends in "/" and rel cannot escape the
// mirror's base path: "." and ".." segments are dropped before joining.
func (m Mirror) Base(rel string) string {
	u, err := url.Parse(m.URL)
	if err != nil {
		return strings.TrimSuffix(m.URL, "/") + "/" + strings.Trim(rel, "/") + "/"
	}

	segments := make([]string, 0, 4)
	for _, s := range strings.Split(rel, "/") {
		if s == "" || s == "." || s == ".." {
			continue
		}
		segments = append(segments, s)
	}

	joined := path.Join(append([]string{"/", u.Path}, segments...)...)
	if !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	u.Path = joined
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// MetadataURL returns the JSON metadata endpoint for a distribution.
// The official index exposes a REST path; mirrors expose the
// bandersnatch web/json tree.
func (m Mirror) MetadataURL(distName string) string {
	if m.Primary {
		return strings.TrimSuffix(m.URL, "/") + "/pypi/" + distName + "/json"
	}
	return m.Base("web/json") + distName
}

// RewriteArtifactURL maps an official artifact URL onto this mirror.
// The official index and URLs outside the known artifact host pass
// through unchanged.
func (m Mirror) RewriteArtifactURL(artifactURL string) string {
	if m.Primary {
		return artifactURL
	}
	rest, ok := strings.CutPrefix(artifactURL, hostedPrefix)
	if !ok {
		return artifactURL
	}
	return m.Base("web/packages") + rest
}
