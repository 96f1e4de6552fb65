package document

// Metadata keys carried on segments, chunks and indexed records.
const (
	KeySource     = "source"
	KeyPage       = "page"
	KeyTotalPages = "total_pages"
	KeyFormat     = "format"
	KeyChunkIndex = "chunk_index"
)

// Format identifies a supported document format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatTXT  Format = "txt"
	FormatDOCX Format = "docx"
)

// Segment is a unit of loaded text before chunking, usually one page.
type Segment struct {
	Text     string
	Metadata map[string]string
}

// Chunk is a bounded span of text that is indexed and retrieved as a unit.
type Chunk struct {
	Text     string
	Metadata map[string]string
}

// Source returns the owning document's filename, or "" if unset.
func (c Chunk) Source() string {
	return c.Metadata[KeySource]
}

// CloneMetadata returns a shallow copy of m that is safe to mutate.
func CloneMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}
