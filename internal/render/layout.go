package render

import "fmt"

// Header is the fixed block emitted once at the top of every document.
type Header struct {
	Title     string
	Generated string
	Author    string
}

// Sink receives the styled blocks of a document in reading order. Pagination
// is left to the implementation.
type Sink interface {
	Header(h Header) error
	Subheading(text string) error
	NumberedHeading(text string) error
	LabeledBullet(label, body string) error
	Bullet(text string) error
	Paragraph(text string) error
	Break() error
	// Close finalizes the document and writes it out.
	Close() error
}

// Layout emits the header and then every line onto s in one forward pass. It
// stops at the first sink error. Close is left to the caller.
func Layout(s Sink, h Header, lines []Line) error {
	if err := s.Header(h); err != nil {
		return err
	}
	for i, ln := range lines {
		var err error
		switch ln.Kind {
		case KindBlank:
			err = s.Break()
		case KindBoldHeader:
			err = s.Subheading(ln.Text)
		case KindLabeledBullet:
			err = s.LabeledBullet(ln.Label, ln.Text)
		case KindPlainBullet:
			err = s.Bullet(ln.Text)
		case KindNumberedHeader:
			err = s.NumberedHeading(ln.Text)
		case KindParagraph:
			err = s.Paragraph(ln.Text)
		default:
			err = fmt.Errorf("line %d: unknown kind %d", i+1, ln.Kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
