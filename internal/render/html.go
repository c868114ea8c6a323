package render

import (
	"context"
	"html"
	"os"
	"strings"
)

// HTMLPrinter turns a complete HTML document into PDF bytes.
type HTMLPrinter interface {
	PrintHTML(ctx context.Context, doc string) ([]byte, error)
}

const htmlStyle = `body{font-family:Helvetica,Arial,sans-serif;font-size:12pt;line-height:1.45;}
h1{text-align:center;font-size:20pt;margin:0 0 6pt;}
.generated{text-align:center;font-style:italic;margin:0;}
.author{text-align:center;margin:0 0 24pt;}
h2{font-size:14pt;margin:14pt 0 6pt;}
h3{font-size:13pt;margin:8pt 0 6pt;}
p.body{text-align:justify;margin:0 0 9pt;}
p.bullet{margin:0 0 4pt 14pt;}
div.break{height:12pt;}`

// htmlSink lays blocks out as styled HTML and prints them through Chrome on
// Close.
type htmlSink struct {
	ctx     context.Context
	printer HTMLPrinter
	path    string
	b       strings.Builder
}

func newHTMLSink(ctx context.Context, printer HTMLPrinter, path string) *htmlSink {
	return &htmlSink{ctx: ctx, printer: printer, path: path}
}

func esc(s string) string { return html.EscapeString(s) }

func (s *htmlSink) Header(h Header) error {
	s.b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>`)
	s.b.WriteString(esc(h.Title))
	s.b.WriteString(`</title><style>`)
	s.b.WriteString(htmlStyle)
	s.b.WriteString(`</style></head><body>`)
	s.b.WriteString(`<h1>` + esc(strings.ToUpper(h.Title)) + `</h1>`)
	s.b.WriteString(`<p class="generated">Generated on ` + esc(h.Generated) + `</p>`)
	s.b.WriteString(`<p class="author">` + esc(h.Author) + `</p>`)
	return nil
}

func (s *htmlSink) Subheading(text string) error {
	s.b.WriteString(`<h2>` + esc(text) + `</h2>`)
	return nil
}

func (s *htmlSink) NumberedHeading(text string) error {
	s.b.WriteString(`<h3>` + esc(text) + `</h3>`)
	return nil
}

func (s *htmlSink) LabeledBullet(label, body string) error {
	s.b.WriteString(`<p class="bullet">` + bulletGlyph + ` <strong>` + esc(label) + `</strong>: ` + esc(body) + `</p>`)
	return nil
}

func (s *htmlSink) Bullet(text string) error {
	s.b.WriteString(`<p class="bullet">` + bulletGlyph + ` ` + esc(text) + `</p>`)
	return nil
}

func (s *htmlSink) Paragraph(text string) error {
	s.b.WriteString(`<p class="body">` + esc(text) + `</p>`)
	return nil
}

func (s *htmlSink) Break() error {
	s.b.WriteString(`<div class="break"></div>`)
	return nil
}

// Document returns the HTML written so far, closed with the body/html tags.
func (s *htmlSink) Document() string {
	return s.b.String() + `</body></html>`
}

func (s *htmlSink) Close() error {
	pdf, err := s.printer.PrintHTML(s.ctx, s.Document())
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, pdf, 0o644)
}
