package provider

import "time"

// EntryKind distinguishes files from folders in canonical metadata.
type EntryKind string

const (
	EntryFile   EntryKind = "file"
	EntryFolder EntryKind = "folder"
)

// SizeUnknown marks an absent byte size (folders, or backends that omit
// one).
const SizeUnknown int64 = -1

// Metadata is the canonical, backend-independent description of a stored
// file or folder. It is produced fresh per request and never cached by the
// core.
type Metadata struct {
	Kind        EntryKind `json:"kind"`
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	Modified    time.Time `json:"modified,omitempty"`
	ETag        string    `json:"etag,omitempty"`
	ContentType string    `json:"content_type,omitempty"`

	// Extra preserves backend-specific fields under namespaced keys
	// ("box:sha1", "{DAV:}getetag").
	Extra map[string]string `json:"extra,omitempty"`
}

// Revision is a point-in-time version of a file. Index 1 always denotes
// the current version; higher indices denote strictly older versions in
// the order the backend returned them.
type Revision struct {
	Index int `json:"revision"`
	Metadata
}
