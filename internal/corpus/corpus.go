// Package corpus manages the directory holding uploaded source documents.
package corpus

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

var (
	// ErrNotFound is returned when a named document is not in the corpus.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidName is returned for names that do not denote a plain file.
	ErrInvalidName = errors.New("invalid document name")
)

// File describes one document in the corpus.
type File struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Size      string `json:"size"`
}

// Corpus is a flat directory of documents keyed by filename.
type Corpus struct {
	dir string
}

// New opens the corpus rooted at dir, creating it if needed.
func New(dir string) (*Corpus, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating corpus dir %s: %w", dir, err)
	}
	return &Corpus{dir: dir}, nil
}

// Dir returns the corpus root.
func (c *Corpus) Dir() string { return c.dir }

// CleanName reduces an uploaded filename to its base name and rejects names
// that cannot be stored.
func CleanName(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	base := filepath.Base(name)
	switch base {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("%w: %q is hidden", ErrInvalidName, name)
	}
	return base, nil
}

// Save writes r to the corpus under name, replacing any existing file.
// It returns the stored path and the number of bytes written.
func (c *Corpus) Save(name string, r io.Reader) (string, int64, error) {
	name, err := CleanName(name)
	if err != nil {
		return "", 0, err
	}

	tmp, err := os.CreateTemp(c.dir, ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("closing %s: %w", name, err)
	}

	path := filepath.Join(c.dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", 0, fmt.Errorf("storing %s: %w", name, err)
	}
	return path, n, nil
}

// Path returns the on-disk path of name, or ErrNotFound.
func (c *Corpus) Path(name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	path := filepath.Join(c.dir, clean)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", name, err)
	}
	return path, nil
}

// Exists reports whether name is in the corpus.
func (c *Corpus) Exists(name string) bool {
	_, err := c.Path(name)
	return err == nil
}

// Remove deletes name from the corpus, or returns ErrNotFound.
func (c *Corpus) Remove(name string) error {
	path, err := c.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	return nil
}

// List returns the documents in the corpus sorted by name.
func (c *Corpus) List() ([]File, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus dir: %w", err)
	}

	files := make([]File, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, File{
			Name:      e.Name(),
			SizeBytes: info.Size(),
			Size:      humanize.Bytes(uint64(info.Size())),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
