package loader

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	// kerningSpace is the TJ displacement (thousandths of an em) treated as a word gap.
	kerningSpace = -200
	// maxFormDepth bounds Form XObjects drawn from inside other forms.
	maxFormDepth = 8
)

// textWriter accumulates page text with line and word breaks derived from
// text positioning operators.
type textWriter struct {
	out strings.Builder
}

// pageText returns the text drawn on p, decoded through each font's
// encoding or ToUnicode map, including text drawn by Form XObjects.
func pageText(p pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed content stream: %v", r)
		}
	}()

	w := &textWriter{}
	res := p.Resources()
	contents := p.V.Key("Contents")
	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			w.run(contents.Index(i), res, 0)
		}
	} else {
		w.run(contents, res, 0)
	}
	return w.text(), nil
}

// run interprets one content stream against its resource dictionary.
func (w *textWriter) run(strm, res pdf.Value, depth int) {
	if strm.Kind() != pdf.Stream {
		return
	}

	encoders := make(map[string]pdf.TextEncoding)
	var enc pdf.TextEncoding

	pdf.Interpret(strm, func(stk *pdf.Stack, op string) {
		args := make([]pdf.Value, stk.Len())
		for i := len(args) - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		last := pdf.Value{}
		if len(args) > 0 {
			last = args[len(args)-1]
		}

		switch op {
		case "Tf":
			if len(args) < 2 {
				return
			}
			name := args[0].Name()
			e, ok := encoders[name]
			if !ok {
				e = fontEncoding(res.Key("Font").Key(name))
				encoders[name] = e
			}
			enc = e
		case "Tj":
			w.show(enc, last)
		case "'", "\"":
			w.lineBreak()
			w.show(enc, last)
		case "TJ":
			for i := 0; i < last.Len(); i++ {
				item := last.Index(i)
				switch item.Kind() {
				case pdf.String:
					w.show(enc, item)
				case pdf.Integer, pdf.Real:
					if item.Float64() <= kerningSpace {
						w.space()
					}
				}
			}
		case "Td", "TD":
			if len(args) >= 2 && last.Float64() != 0 {
				w.lineBreak()
			} else {
				w.space()
			}
		case "T*", "ET", "Tm":
			w.lineBreak()
		case "Do":
			if depth >= maxFormDepth {
				return
			}
			xobj := res.Key("XObject").Key(last.Name())
			if xobj.Key("Subtype").Name() != "Form" {
				return
			}
			formRes := xobj.Key("Resources")
			if formRes.Kind() != pdf.Dict {
				formRes = res
			}
			w.lineBreak()
			w.run(xobj, formRes, depth+1)
			w.lineBreak()
		}
	})
}

// fontEncoding returns the decoder for a font dictionary, or nil when the
// font is missing.
func fontEncoding(font pdf.Value) pdf.TextEncoding {
	if font.Kind() != pdf.Dict {
		return nil
	}
	return pdf.Font{V: font}.Encoder()
}

func (w *textWriter) show(enc pdf.TextEncoding, v pdf.Value) {
	if v.Kind() != pdf.String {
		return
	}
	raw := v.RawString()
	var s string
	if enc == nil {
		// No font selected: treat bytes as Latin-1.
		runes := make([]rune, len(raw))
		for i := 0; i < len(raw); i++ {
			runes[i] = rune(raw[i])
		}
		s = string(runes)
	} else {
		s = enc.Decode(raw)
	}

	for _, r := range s {
		if r == utf8.RuneError || (unicode.IsControl(r) && r != '\t') {
			continue
		}
		w.out.WriteRune(r)
	}
}

func (w *textWriter) lineBreak() {
	s := w.out.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		w.out.WriteByte('\n')
	}
}

func (w *textWriter) space() {
	s := w.out.String()
	if s != "" && !strings.HasSuffix(s, " ") && !strings.HasSuffix(s, "\n") {
		w.out.WriteByte(' ')
	}
}

func (w *textWriter) text() string {
	lines := strings.Split(w.out.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
