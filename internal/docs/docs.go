// Package docs stores student documents: one folder per student, optional
// subfolder per document type.
package docs

import (
	"io"
	"time"
)

type FileInfo struct {
	Name      string    `json:"name"`
	Subfolder string    `json:"subfolder,omitempty"`
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"mod_time"`
}

type Store interface {
	// EnsureFolder creates (or finds) the student's folder and returns its ID.
	EnsureFolder(studentID, name string) (string, error)
	// Upload writes a file into the folder, under subfolder when non-empty,
	// and returns the stored key.
	Upload(folderID, name string, r io.Reader, mimeType, subfolder string) (string, error)
	Open(key string) (io.ReadCloser, error)
	List(folderID string) ([]FileInfo, error)
	// ShareableLink returns a URL staff can open the folder with.
	ShareableLink(folderID string) (string, error)
}
