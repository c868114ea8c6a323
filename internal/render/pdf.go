package render

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

//go:embed fonts/*.ttf
var bundledFonts embed.FS

// Fonts names the TrueType files of the native engine. Empty fields use the
// bundled DejaVu Sans Condensed faces. Runes the font has no glyph for are
// still stored as text and survive extraction.
type Fonts struct {
	Regular string
	Bold    string
	Italic  string
}

const (
	fontFamily   = "body"
	baseFontSize = 12
	bulletGlyph  = "•"
	bulletIndent = 5.0
	lineHeight   = 6.0
)

// pdfSink streams blocks into a gofpdf document and writes it to path on
// Close.
type pdfSink struct {
	pdf  *gofpdf.Fpdf
	path string
}

func newPDFSink(path, paper string, marginMM float64, fonts Fonts) (*pdfSink, error) {
	pdf := gofpdf.New("P", "mm", paper, "")
	faces := []struct {
		style, file, bundled string
	}{
		{"", fonts.Regular, "fonts/DejaVuSansCondensed.ttf"},
		{"B", fonts.Bold, "fonts/DejaVuSansCondensed-Bold.ttf"},
		{"I", fonts.Italic, "fonts/DejaVuSansCondensed-Oblique.ttf"},
	}
	for _, face := range faces {
		data, err := loadFont(face.file, face.bundled)
		if err != nil {
			return nil, err
		}
		pdf.AddUTF8FontFromBytes(fontFamily, face.style, data)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}

	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(true, marginMM)
	pdf.SetCreator("casestudy", true)
	pdf.AddPage()
	return &pdfSink{pdf: pdf, path: path}, nil
}

// unencodable returns the first rune outside the Basic Multilingual Plane.
// gofpdf writes UTF-8 fonts as two-byte codes, so such runes cannot be kept.
func unencodable(texts ...string) (rune, bool) {
	for _, t := range texts {
		for _, r := range t {
			if r > 0xFFFF {
				return r, true
			}
		}
	}
	return 0, false
}

func loadFont(file, bundled string) ([]byte, error) {
	if file == "" {
		return bundledFonts.ReadFile(bundled)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", file, err)
	}
	return data, nil
}

func (s *pdfSink) Header(h Header) error {
	s.pdf.SetTitle(h.Title, true)
	s.pdf.SetAuthor(h.Author, true)

	s.pdf.SetFont(fontFamily, "B", 20)
	s.pdf.MultiCell(0, 10, strings.ToUpper(h.Title), "", "C", false)
	s.pdf.Ln(2)
	s.pdf.SetFont(fontFamily, "I", 11)
	s.pdf.CellFormat(0, lineHeight, "Generated on "+h.Generated, "", 1, "C", false, 0, "")
	s.pdf.SetFont(fontFamily, "", 11)
	s.pdf.CellFormat(0, lineHeight, h.Author, "", 1, "C", false, 0, "")
	s.pdf.Ln(8)
	return s.pdf.Error()
}

func (s *pdfSink) Subheading(text string) error {
	s.pdf.Ln(4)
	s.pdf.SetFont(fontFamily, "B", 14)
	s.pdf.MultiCell(0, 7, text, "", "L", false)
	s.pdf.Ln(2)
	return s.pdf.Error()
}

func (s *pdfSink) NumberedHeading(text string) error {
	s.pdf.SetFont(fontFamily, "B", 13)
	s.pdf.MultiCell(0, 7, text, "", "L", false)
	s.pdf.Ln(2)
	return s.pdf.Error()
}

func (s *pdfSink) LabeledBullet(label, body string) error {
	left, _, _, _ := s.pdf.GetMargins()
	s.pdf.SetX(left + bulletIndent)
	s.pdf.SetFont(fontFamily, "", baseFontSize)
	s.pdf.Write(lineHeight, bulletGlyph+" ")
	s.pdf.SetFont(fontFamily, "B", baseFontSize)
	s.pdf.Write(lineHeight, label)
	s.pdf.SetFont(fontFamily, "", baseFontSize)
	s.pdf.Write(lineHeight, ": "+body)
	s.pdf.Ln(lineHeight + 1)
	return s.pdf.Error()
}

func (s *pdfSink) Bullet(text string) error {
	left, _, _, _ := s.pdf.GetMargins()
	s.pdf.SetX(left + bulletIndent)
	s.pdf.SetFont(fontFamily, "", baseFontSize)
	s.pdf.Write(lineHeight, bulletGlyph+" "+text)
	s.pdf.Ln(lineHeight + 1)
	return s.pdf.Error()
}

func (s *pdfSink) Paragraph(text string) error {
	s.pdf.SetFont(fontFamily, "", baseFontSize)
	s.pdf.MultiCell(0, lineHeight, text, "", "J", false)
	s.pdf.Ln(3)
	return s.pdf.Error()
}

func (s *pdfSink) Break() error {
	s.pdf.Ln(5)
	return s.pdf.Error()
}

func (s *pdfSink) Close() error {
	if err := s.pdf.Error(); err != nil {
		return err
	}
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	if err := s.pdf.Output(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return f.Close()
}
