package pip

import (
	"fmt"
	"net/url"
	"strings"
)

// vcsSchemes is the set of version-control prefixes pip recognizes in a
// requirement specifier.
var vcsSchemes = map[string]struct{}{
	"git": {},
	"hg":  {},
	"bzr": {},
	"svn": {},
}

// EggRef is a parsed source-control egg reference: a requirement that points
// at a remote repository and ref rather than a package index entry, e.g.
//
//	git+https://github.com/org/repo@v0.1.0#egg=name&subdirectory=sub
type EggRef struct {
	// VCS is the version-control system, e.g. "git".
	VCS string
	// RepoURL is the repository URL without the VCS prefix or ref.
	RepoURL string
	// Ref is the pinned branch, tag, or commit. Empty means the default branch.
	Ref string
	// Egg is the project name from the #egg= fragment.
	Egg string
	// Subdirectory is the optional package subdirectory within the repository.
	Subdirectory string
}

// IsVCSRef reports whether a pip source string is a source-control reference
// rather than a local path.
func IsVCSRef(source string) bool {
	scheme, _, ok := strings.Cut(source, "+")
	if !ok {
		return false
	}
	_, known := vcsSchemes[scheme]
	return known
}

// ParseEggRef parses a source-control egg reference. It validates the parts
// pip itself would reject at install time, so a malformed reference fails
// before the subprocess runs.
func ParseEggRef(source string) (*EggRef, error) {
	scheme, rest, ok := strings.Cut(source, "+")
	if !ok {
		return nil, fmt.Errorf("not a source-control reference: %q", source)
	}
	if _, known := vcsSchemes[scheme]; !known {
		return nil, fmt.Errorf("unsupported version-control scheme %q in %q", scheme, source)
	}

	u, err := url.Parse(rest)
	if err != nil {
		return nil, fmt.Errorf("invalid repository URL in %q: %w", source, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("repository URL in %q must be absolute", source)
	}

	ref := &EggRef{VCS: scheme}

	if u.Fragment != "" {
		frag, err := url.ParseQuery(u.Fragment)
		if err != nil {
			return nil, fmt.Errorf("invalid fragment in %q: %w", source, err)
		}
		ref.Egg = frag.Get("egg")
		ref.Subdirectory = frag.Get("subdirectory")
		u.Fragment = ""
	}

	// A pinned ref follows the last '@' in the path. The userinfo '@' of
	// ssh URLs lives in u.User, so it cannot be confused with a ref here.
	if i := strings.LastIndex(u.Path, "@"); i >= 0 {
		ref.Ref = u.Path[i+1:]
		u.Path = u.Path[:i]
		if ref.Ref == "" {
			return nil, fmt.Errorf("empty ref after '@' in %q", source)
		}
	}

	ref.RepoURL = u.String()
	return ref, nil
}
