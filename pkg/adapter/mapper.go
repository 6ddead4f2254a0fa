package adapter

import (
	"net/http"
	"strings"
	"time"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// Mapper turns backend object records into Attributes.
type Mapper struct {
	prefixer PathPrefixer
}

// NewMapper returns a mapper that strips the prefixer's root from keys.
func NewMapper(prefixer PathPrefixer) Mapper {
	return Mapper{prefixer: prefixer}
}

// Map converts rec, deriving the path from rec.Key or, when the key is
// empty, from rec.Prefix.
func (m Mapper) Map(rec provider.ObjectRecord) Attributes {
	source := rec.Key
	if source == "" {
		source = rec.Prefix
	}
	return m.MapPath(rec, m.prefixer.StripPrefix(source))
}

// MapPath converts rec using an already resolved path. A trailing delimiter
// makes the result a directory.
func (m Mapper) MapPath(rec provider.ObjectRecord, p string) Attributes {
	if strings.HasSuffix(p, provider.Delimiter) {
		return &DirectoryAttributes{Path: strings.TrimSuffix(p, provider.Delimiter)}
	}

	attrs := &FileAttributes{
		Path:         p,
		Size:         rec.ContentLength,
		LastModified: parseTimestamp(rec.LastModified),
		MimeType:     rec.ContentType,
	}
	if attrs.Size == nil {
		attrs.Size = rec.Size
	}
	if attrs.Size != nil {
		size := *attrs.Size
		attrs.Size = &size
	}
	attrs.Extra = extraFields(rec)
	return attrs
}

func extraFields(rec provider.ObjectRecord) map[string]any {
	extra := map[string]any{}
	if rec.StorageClass != "" {
		extra[ExtraStorageClass] = rec.StorageClass
	}
	if rec.ETag != "" {
		extra[ExtraETag] = rec.ETag
	}
	if rec.VersionID != "" {
		extra[ExtraVersionID] = rec.VersionID
	}
	if len(rec.Metadata) > 0 {
		meta := make(map[string]string, len(rec.Metadata))
		for k, v := range rec.Metadata {
			meta[k] = v
		}
		extra[ExtraMetadata] = meta
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}

// parseTimestamp accepts HTTP dates (RFC 1123, RFC 850, ANSI C) and RFC 3339.
// Anything else yields nil.
func parseTimestamp(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := http.ParseTime(raw)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil
		}
	}
	sec := t.Unix()
	return &sec
}
