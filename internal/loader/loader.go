// Package loader turns documents on disk into ordered text segments.
package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ziadkadry99/docsense/internal/document"
)

var (
	// ErrUnsupportedFormat is returned for file extensions other than pdf, txt and docx.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrEmptyDocument is returned when a document yields no text.
	ErrEmptyDocument = errors.New("document contains no text")
	// ErrTooManyPages is returned when a PDF exceeds the configured page limit.
	ErrTooManyPages = errors.New("document exceeds page limit")
)

// Loader reads supported documents into segments.
type Loader struct {
	maxPages int
}

// New creates a Loader. maxPages <= 0 disables the PDF page limit.
func New(maxPages int) *Loader {
	return &Loader{maxPages: maxPages}
}

// FormatOf maps a file path to a supported format by extension.
func FormatOf(path string) (document.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return document.FormatPDF, nil
	case ".txt":
		return document.FormatTXT, nil
	case ".docx":
		return document.FormatDOCX, nil
	default:
		if ext == "" {
			ext = "(none)"
		}
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// Supported reports whether path has a loadable extension.
func Supported(path string) bool {
	_, err := FormatOf(path)
	return err == nil
}

// Load reads the file at path and returns its segments in document order.
// Every segment carries the source filename and format; PDF segments also
// carry their 1-based page number.
func (l *Loader) Load(path string) ([]document.Segment, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	var segments []document.Segment
	switch format {
	case document.FormatPDF:
		segments, err = l.loadPDF(path)
	case document.FormatTXT:
		segments, err = loadText(path)
	case document.FormatDOCX:
		segments, err = loadDOCX(path)
	}
	if err != nil {
		return nil, err
	}

	segments = dropBlank(segments)
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, filepath.Base(path))
	}

	source := filepath.Base(path)
	for i := range segments {
		if segments[i].Metadata == nil {
			segments[i].Metadata = make(map[string]string)
		}
		segments[i].Metadata[document.KeySource] = source
		segments[i].Metadata[document.KeyFormat] = string(format)
	}
	return segments, nil
}

func dropBlank(segments []document.Segment) []document.Segment {
	out := segments[:0]
	for _, s := range segments {
		if strings.TrimSpace(s.Text) != "" {
			out = append(out, s)
		}
	}
	return out
}
