package adapter

// Attributes describes one entry produced by the adapter: either a
// *FileAttributes or a *DirectoryAttributes.
type Attributes interface {
	// EntryPath returns the entry's path relative to the adapter root.
	EntryPath() string
	// IsDir reports whether the entry is a (virtual) directory.
	IsDir() bool
}

// Keys allowed in FileAttributes.Extra.
const (
	ExtraStorageClass = "StorageClass"
	ExtraETag         = "ETag"
	ExtraVersionID    = "VersionId"
	ExtraMetadata     = "Metadata"
)

// FileAttributes describes a stored object.
//
// Size and LastModified are nil when the backend did not report them (or
// reported something unparsable). LastModified is in Unix seconds.
type FileAttributes struct {
	Path         string         `json:"path" yaml:"path"`
	Size         *int64         `json:"size,omitempty" yaml:"size,omitempty"`
	LastModified *int64         `json:"last_modified,omitempty" yaml:"last_modified,omitempty"`
	MimeType     string         `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	Extra        map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// EntryPath implements Attributes.
func (f *FileAttributes) EntryPath() string { return f.Path }

// IsDir implements Attributes.
func (f *FileAttributes) IsDir() bool { return false }

// DirectoryAttributes describes a virtual directory. Path has no trailing
// delimiter.
type DirectoryAttributes struct {
	Path string `json:"path" yaml:"path"`
}

// EntryPath implements Attributes.
func (d *DirectoryAttributes) EntryPath() string { return d.Path }

// IsDir implements Attributes.
func (d *DirectoryAttributes) IsDir() bool { return true }
