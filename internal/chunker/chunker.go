// Package chunker splits loaded segments into overlapping, bounded chunks.
package chunker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ziadkadry99/docsense/internal/document"
)

var (
	// ErrInvalidChunkConfig is returned for chunk sizes and overlaps that cannot
	// produce progress, such as an overlap that is not smaller than the size.
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")
	// ErrMissingSource is returned when a chunk would leave without a source tag.
	ErrMissingSource = errors.New("chunk has no source")
	// ErrTooManyChunks is returned when one document exceeds the chunk limit.
	ErrTooManyChunks = errors.New("document exceeds chunk limit")
)

// DefaultSeparators are tried in order: paragraph, line, sentence, word, and
// finally a hard cut between characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Validate checks a size/overlap pair. Config validation calls this so that
// bad values are rejected before any document is split.
func Validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunkConfig, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must be non-negative, got %d", ErrInvalidChunkConfig, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrInvalidChunkConfig, overlap, size)
	}
	return nil
}

// Splitter is a deterministic recursive character splitter. Sizes are
// measured in characters (runes).
type Splitter struct {
	size       int
	overlap    int
	maxChunks  int
	separators []string
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithMaxChunks caps the number of chunks one Split call may produce.
func WithMaxChunks(n int) Option {
	return func(s *Splitter) { s.maxChunks = n }
}

// WithSeparators overrides DefaultSeparators.
func WithSeparators(seps ...string) Option {
	return func(s *Splitter) { s.separators = seps }
}

// New creates a Splitter after validating size and overlap.
func New(size, overlap int, opts ...Option) (*Splitter, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}
	s := &Splitter{size: size, overlap: overlap, separators: DefaultSeparators}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Split chunks the segments of one document. source, when non-empty, is
// stamped on every chunk; otherwise each segment must already carry one.
// Segment metadata is copied onto its chunks and chunk_index numbers the
// chunks across the whole document.
func (s *Splitter) Split(segments []document.Segment, source string) ([]document.Chunk, error) {
	var chunks []document.Chunk
	for i, seg := range segments {
		src := source
		if src == "" {
			src = seg.Metadata[document.KeySource]
		}
		if src == "" {
			return nil, fmt.Errorf("%w: segment %d", ErrMissingSource, i)
		}

		for _, text := range s.SplitText(seg.Text) {
			md := document.CloneMetadata(seg.Metadata)
			md[document.KeySource] = src
			md[document.KeyChunkIndex] = strconv.Itoa(len(chunks))
			chunks = append(chunks, document.Chunk{Text: text, Metadata: md})

			if s.maxChunks > 0 && len(chunks) > s.maxChunks {
				return nil, fmt.Errorf("%w: more than %d chunks", ErrTooManyChunks, s.maxChunks)
			}
		}
	}
	return chunks, nil
}

// SplitText splits a single text into chunks of at most size characters.
func (s *Splitter) SplitText(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := ""
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = ""
			rest = nil
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var (
		out  []string
		good []string
	)
	for _, piece := range splitKeep(text, separator) {
		if runeLen(piece) < s.size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, s.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			if t := strings.TrimSpace(piece); t != "" {
				out = append(out, t)
			}
			continue
		}
		out = append(out, s.split(piece, rest)...)
	}
	if len(good) > 0 {
		out = append(out, s.merge(good)...)
	}
	return out
}

// merge packs pieces greedily into chunks of at most size characters. When a
// chunk is emitted, its trailing pieces totalling no more than overlap
// characters start the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var (
		out     []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.size && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				out = append(out, chunk)
			}
			for total > s.overlap || (total+n > s.size && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		out = append(out, chunk)
	}
	return out
}

// splitKeep splits text after each occurrence of sep, keeping sep at the end
// of the preceding piece. An empty sep splits into single characters.
func splitKeep(text, sep string) []string {
	if sep == "" {
		return strings.Split(text, "")
	}
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
