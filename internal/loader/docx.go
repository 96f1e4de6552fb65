package loader

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ziadkadry99/docsense/internal/document"
)

const docxBodyPart = "word/document.xml"

func loadDOCX(path string) ([]document.Segment, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening docx %s: %w", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != docxBodyPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", docxBodyPart, err)
		}
		text, err := parseDocumentXML(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", docxBodyPart, err)
		}
		return []document.Segment{{Text: text, Metadata: map[string]string{}}}, nil
	}
	return nil, fmt.Errorf("docx %s has no %s", path, docxBodyPart)
}

// parseDocumentXML walks the WordprocessingML body and returns its text with
// paragraphs separated by blank lines.
func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if p := strings.TrimSpace(current.String()); p != "" {
					paragraphs = append(paragraphs, p)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if p := strings.TrimSpace(current.String()); p != "" {
		paragraphs = append(paragraphs, p)
	}
	return strings.Join(paragraphs, "\n\n"), nil
}
