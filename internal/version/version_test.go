package version

import (
	"sort"
	"testing"
)

func mustParse(t *testing.T, s string) Version {
	t.Helper()
	v, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", s, err)
	}
	return v
}

func TestParse(t *testing.T) {
	tests := []struct {
		in          string
		wantRelease []int
		wantPreKind string
		wantPreNum  int
		wantPost    int
		wantDev     int
		wantEpoch   int
		wantErr     bool
	}{
		{in: "1.0", wantRelease: []int{1, 0}, wantPost: -1, wantDev: -1},
		{in: "2.1.9", wantRelease: []int{2, 1, 9}, wantPost: -1, wantDev: -1},
		{in: "1.0a1", wantRelease: []int{1, 0}, wantPreKind: "a", wantPreNum: 1, wantPost: -1, wantDev: -1},
		{in: "1.0.beta2", wantRelease: []int{1, 0}, wantPreKind: "b", wantPreNum: 2, wantPost: -1, wantDev: -1},
		{in: "1.0rc1", wantRelease: []int{1, 0}, wantPreKind: "rc", wantPreNum: 1, wantPost: -1, wantDev: -1},
		{in: "1.0.post2", wantRelease: []int{1, 0}, wantPost: 2, wantDev: -1},
		{in: "1.0.dev3", wantRelease: []int{1, 0}, wantPost: -1, wantDev: 3},
		{in: "2!1.0", wantRelease: []int{1, 0}, wantEpoch: 2, wantPost: -1, wantDev: -1},
		{in: "v1.2.3", wantRelease: []int{1, 2, 3}, wantPost: -1, wantDev: -1},
		{in: "1.0C1", wantRelease: []int{1, 0}, wantPreKind: "rc", wantPreNum: 1, wantPost: -1, wantDev: -1},
		{in: "2013b", wantRelease: []int{2013}, wantPreKind: "b", wantPost: -1, wantDev: -1},
		{in: "not-a-version", wantErr: true},
		{in: "1.0+local", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := Parse(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) succeeded, want error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.in, err)
			}
			if len(v.Release) != len(tt.wantRelease) {
				t.Fatalf("Release = %v, want %v", v.Release, tt.wantRelease)
			}
			for i := range v.Release {
				if v.Release[i] != tt.wantRelease[i] {
					t.Errorf("Release = %v, want %v", v.Release, tt.wantRelease)
					break
				}
			}
			if v.PreKind != tt.wantPreKind || v.PreNum != tt.wantPreNum {
				t.Errorf("pre = %q/%d, want %q/%d", v.PreKind, v.PreNum, tt.wantPreKind, tt.wantPreNum)
			}
			if v.Post != tt.wantPost {
				t.Errorf("Post = %d, want %d", v.Post, tt.wantPost)
			}
			if v.Dev != tt.wantDev {
				t.Errorf("Dev = %d, want %d", v.Dev, tt.wantDev)
			}
			if v.Epoch != tt.wantEpoch {
				t.Errorf("Epoch = %d, want %d", v.Epoch, tt.wantEpoch)
			}
		})
	}
}

func TestVersion_Compare_Ordering(t *testing.T) {
	// Already in ascending order; sorting a shuffled copy must
	// reproduce it.
	ascending := []string{
		"0.9",
		"1.0.dev1",
		"1.0a1",
		"1.0a2",
		"1.0b1",
		"1.0rc1",
		"1.0",
		"1.0.post1",
		"1.0.1",
		"1.1",
		"2!0.1",
	}

	shuffled := []string{
		"1.0.post1", "1.0a2", "2!0.1", "1.0", "0.9", "1.0.dev1",
		"1.1", "1.0rc1", "1.0a1", "1.0b1", "1.0.1",
	}

	versions := make([]Version, len(shuffled))
	for i, s := range shuffled {
		versions[i] = mustParse(t, s)
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Compare(versions[j]) < 0
	})

	for i, v := range versions {
		if v.String() != ascending[i] {
			t.Fatalf("sorted[%d] = %s, want %s (full order: %v)", i, v.String(), ascending[i], versions)
		}
	}
}

func TestVersion_Compare_ShortReleasePadded(t *testing.T) {
	a := mustParse(t, "1.0")
	b := mustParse(t, "1.0.0")
	if a.Compare(b) != 0 {
		t.Errorf("1.0 vs 1.0.0 = %d, want 0", a.Compare(b))
	}
}

func TestVersion_MajorMinor(t *testing.T) {
	v := mustParse(t, "2.1.9")
	if v.Major() != 2 || v.Minor() != 1 {
		t.Errorf("Major/Minor = %d.%d, want 2.1", v.Major(), v.Minor())
	}

	single := mustParse(t, "2013")
	if single.Major() != 2013 || single.Minor() != 0 {
		t.Errorf("Major/Minor = %d.%d, want 2013.0", single.Major(), single.Minor())
	}
}
