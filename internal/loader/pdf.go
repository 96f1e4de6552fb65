package loader

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ziadkadry99/docsense/internal/document"
)

// loadPDF validates the file and enforces the page limit with pdfcpu, then
// reads per-page text through each page's fonts.
func (l *Loader) loadPDF(path string) ([]document.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("reading pdf %s: %w", path, err)
	}
	if l.maxPages > 0 && ctx.PageCount > l.maxPages {
		return nil, fmt.Errorf("%w: %d pages, limit is %d", ErrTooManyPages, ctx.PageCount, l.maxPages)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf %s: %w", path, err)
	}
	r, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parsing pdf %s: %w", path, err)
	}

	count := r.NumPage()
	total := strconv.Itoa(count)
	segments := make([]document.Segment, 0, count)
	for page := 1; page <= count; page++ {
		p := r.Page(page)
		if p.V.IsNull() {
			continue
		}
		text, err := pageText(p)
		if err != nil {
			return nil, fmt.Errorf("extracting page %d of %s: %w", page, path, err)
		}

		segments = append(segments, document.Segment{
			Text: text,
			Metadata: map[string]string{
				document.KeyPage:       strconv.Itoa(page),
				document.KeyTotalPages: total,
			},
		})
	}
	return segments, nil
}
