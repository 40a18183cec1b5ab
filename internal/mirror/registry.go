package mirror

import (
	"fmt"
	"math/rand/v2"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Options configures registry construction.
type Options struct {
	// UseFallback enables the mirror list. When false the registry
	// contains exactly the official index.
	UseFallback bool

	// Shuffle randomizes the non-primary mirrors once at construction.
	// The official index always stays last.
	Shuffle bool

	// Primary overrides the official index URL. Empty means
	// OfficialPyPI.
	Primary string
}

// Registry holds the ordered candidate mirrors and a shared rotation
// cursor. The cursor is process-wide state: the sequential metadata
// phase reads and advances it directly, while download tasks derive a
// private Rotor so concurrent rotations never interfere.
type Registry struct {
	mu      sync.Mutex
	mirrors []Mirror
	cursor  int
}

// NewRegistry builds a registry from mirror base URLs. The official
// index is appended last as the ultimate fallback.
func NewRegistry(mirrorURLs []string, opts Options) *Registry {
	var mirrors []Mirror
	if opts.UseFallback {
		urls := make([]string, len(mirrorURLs))
		copy(urls, mirrorURLs)
		if opts.Shuffle {
			rand.Shuffle(len(urls), func(i, j int) {
				urls[i], urls[j] = urls[j], urls[i]
			})
		}
		for _, u := range urls {
			mirrors = append(mirrors, Mirror{URL: u})
		}
	}
	primary := opts.Primary
	if primary == "" {
		primary = OfficialPyPI
	}
	mirrors = append(mirrors, Mirror{URL: primary, Primary: true})

	return &Registry{mirrors: mirrors}
}

// Len returns the number of candidate mirrors.
func (r *Registry) Len() int {
	return len(r.mirrors)
}

// Current returns the mirror under the shared cursor.
func (r *Registry) Current() Mirror {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mirrors[r.cursor]
}

// Next advances the shared cursor circularly and returns the new
// current mirror.
func (r *Registry) Next() Mirror {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursor = (r.cursor + 1) % len(r.mirrors)
	return r.mirrors[r.cursor]
}

// Rotor returns private rotation state seeded from the shared cursor's
// current position. Rotations on the rotor are invisible to the
// registry and to sibling tasks.
func (r *Registry) Rotor() *Rotor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Rotor{mirrors: r.mirrors, cursor: r.cursor}
}

// Rotor is a single task's view of the mirror list. It is not safe for
// concurrent use; each task owns its own.
type Rotor struct {
	mirrors []Mirror
	cursor  int
}

// Current returns the rotor's current mirror.
func (rt *Rotor) Current() Mirror {
	return rt.mirrors[rt.cursor]
}

// Next advances the rotor circularly and returns the new current
// mirror.
func (rt *Rotor) Next() Mirror {
	rt.cursor = (rt.cursor + 1) % len(rt.mirrors)
	return rt.mirrors[rt.cursor]
}

// mirrorsFile is the YAML shape of a mirror-list override file.
type mirrorsFile struct {
	Mirrors []string `yaml:"mirrors"`
}

// LoadMirrors reads a YAML mirror-list override. The file replaces the
// built-in mirror set; the official index is still appended last by
// NewRegistry.
func LoadMirrors(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f mirrorsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing mirrors file %s: %w", path, err)
	}
	if len(f.Mirrors) == 0 {
		return nil, fmt.Errorf("mirrors file %s lists no mirrors", path)
	}
	return f.Mirrors, nil
}
