package path

import (
	"errors"
	"strings"
)

// ErrInvalid is returned when a raw path string cannot be parsed under the
// requested addressing mode. Providers wrap it into their error taxonomy.
var ErrInvalid = errors.New("invalid path")

// Mode selects how a backend addresses objects.
type Mode int

const (
	// PathAddressed backends use the hierarchical path string itself as
	// the address (WebDAV style).
	PathAddressed Mode = iota

	// IDAddressed backends embed an opaque identifier as the first path
	// segment and address objects by that identifier.
	IDAddressed
)

// Path is an immutable location in the virtual namespace. It is constructed
// fresh for every operation and never cached or persisted.
type Path struct {
	raw      string
	mode     Mode
	segments []string
	isDir    bool
	id       string
}

// Parse parses a raw path string for a path-addressed backend. A trailing
// separator marks a directory; anything else is a file.
func Parse(raw string) (*Path, error) {
	return parse(raw, PathAddressed)
}

// ParseID parses a raw path string for an identifier-addressed backend.
// The first segment is the backend identity token. The root path parses as
// a directory with an empty token; operations that need an identifier must
// reject it.
func ParseID(raw string) (*Path, error) {
	p, err := parse(raw, IDAddressed)
	if err != nil {
		return nil, err
	}
	if len(p.segments) > 0 {
		p.id = p.segments[0]
	}
	return p, nil
}

func parse(raw string, mode Mode) (*Path, error) {
	if raw == "" {
		return nil, ErrInvalid
	}
	if !strings.HasPrefix(raw, "/") {
		return nil, ErrInvalid
	}

	var segments []string
	for _, s := range strings.Split(raw, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	return &Path{
		raw:      raw,
		mode:     mode,
		segments: segments,
		isDir:    strings.HasSuffix(raw, "/"),
	}, nil
}

// Name returns the last path segment, or "" for the root.
func (p *Path) Name() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Parent returns the parent directory path, always with a trailing
// separator. The parent of the root is the root itself.
func (p *Path) Parent() string {
	if len(p.segments) <= 1 {
		return "/"
	}
	return "/" + strings.Join(p.segments[:len(p.segments)-1], "/") + "/"
}

// IsDir reports whether the path denotes a directory.
func (p *Path) IsDir() bool { return p.isDir }

// IsFile reports whether the path denotes a file.
func (p *Path) IsFile() bool { return !p.isDir }

// ID returns the backend identity token for identifier-addressed paths.
// It is derived once at construction and is "" for path-addressed paths
// and for the root.
func (p *Path) ID() string { return p.id }

// Mode returns the addressing mode the path was parsed under.
func (p *Path) Mode() Mode { return p.mode }

// String returns the original raw path string.
func (p *Path) String() string { return p.raw }

// Equal reports whether two paths have the same raw string and addressing
// mode.
func (p *Path) Equal(o *Path) bool {
	if o == nil {
		return false
	}
	return p.raw == o.raw && p.mode == o.mode
}
