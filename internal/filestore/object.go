package filestore

import (
	"io"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string    `json:"key" yaml:"key"`
	Size         int64     `json:"size" yaml:"size"`
	ContentType  string    `json:"content_type" yaml:"content_type"`
	ETag         string    `json:"etag" yaml:"etag"`
	LastModified time.Time `json:"last_modified" yaml:"last_modified"`

	// IsDir marks a virtual directory (common prefix) entry.
	IsDir bool `json:"is_dir,omitempty" yaml:"is_dir,omitempty"`
}

// Object is a streaming handle to an object's content.
type Object interface {
	io.ReadCloser
	Info() *ObjectInfo
}

// ListOptions filters ListObjects.
type ListOptions struct {
	// Prefix restricts results to keys starting with it.
	Prefix string

	// Recursive lists every object under Prefix instead of grouping by
	// virtual directory.
	Recursive bool

	// Limit caps the number of results. 0 means no cap.
	Limit int
}
