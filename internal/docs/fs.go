package docs

import (
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FSStore keeps documents on the local filesystem under a base directory.
// Folder IDs are relative paths; ShareableLink returns a file:// URL for dev.
type FSStore struct{ base string }

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		base = "./documents"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base}, nil
}

func (s *FSStore) EnsureFolder(studentID, name string) (string, error) {
	if studentID == "" {
		return "", errors.New("empty student id")
	}
	folderID := sanitize(name) + "_" + studentID
	if name == "" {
		folderID = studentID
	}
	if err := os.MkdirAll(filepath.Join(s.base, folderID), 0o755); err != nil {
		return "", err
	}
	return folderID, nil
}

func (s *FSStore) Upload(folderID, name string, r io.Reader, _ string, subfolder string) (string, error) {
	if folderID == "" || name == "" {
		return "", errors.New("folder id and name required")
	}
	key := filepath.Join(folderID, sanitize(subfolder), sanitize(name))
	dst := filepath.Join(s.base, filepath.Clean(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return key, nil
}

func (s *FSStore) Open(key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.base, filepath.Clean(key)))
}

func (s *FSStore) List(folderID string) ([]FileInfo, error) {
	root := filepath.Join(s.base, filepath.Clean(folderID))
	var out []FileInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		sub := filepath.Dir(rel)
		if sub == "." {
			sub = ""
		}
		out = append(out, FileInfo{
			Name:      d.Name(),
			Subfolder: sub,
			Size:      info.Size(),
			ModTime:   info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FSStore) ShareableLink(folderID string) (string, error) {
	abs, err := filepath.Abs(filepath.Join(s.base, folderID))
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: abs}
	return u.String(), nil
}

// sanitize keeps folder and file names path-safe.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}
