package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"casestudy/internal/domain"
	"casestudy/internal/infra/logging"
)

// Engine selects the document backend.
type Engine string

const (
	EngineNative Engine = "native"
	EngineChrome Engine = "chrome"
)

// Config is fixed at construction so tests can redirect output and pin the
// date.
type Config struct {
	BaseDir string
	Author  string
	Now     func() time.Time
	Engine  Engine
	// Paper is a gofpdf page size name such as "A4" or "Letter".
	Paper string
	// MarginMM is the page margin of the native engine.
	MarginMM float64
	// Fonts overrides the native engine's bundled faces.
	Fonts Fonts
	// Printer is required by EngineChrome.
	Printer HTMLPrinter
}

// Renderer writes styled PDF documents from markdown-like text bodies. It
// holds no mutable state; concurrent calls only share the output directory.
type Renderer struct {
	cfg Config
}

// New returns a Renderer with defaults filled in for zero fields.
func New(cfg Config) *Renderer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Engine == "" {
		cfg.Engine = EngineNative
	}
	if cfg.Paper == "" {
		cfg.Paper = "A4"
	}
	if cfg.MarginMM <= 0 {
		cfg.MarginMM = 20
	}
	return &Renderer{cfg: cfg}
}

// Path returns where a document titled title would be written today.
func (r *Renderer) Path(title string) string {
	return filepath.Join(r.cfg.BaseDir, FileName(title, r.cfg.Now()))
}

// Render lays content out under a fixed header block and writes one file at
// the deterministic path, overwriting any previous file there. Every failure
// wraps domain.ErrRender. Bytes may already be on disk when an error is
// returned.
func (r *Renderer) Render(ctx context.Context, title, content string) (domain.Document, error) {
	now := r.cfg.Now()
	if err := os.MkdirAll(r.cfg.BaseDir, 0o755); err != nil {
		return domain.Document{}, fmt.Errorf("%w: create %s: %w", domain.ErrRender, r.cfg.BaseDir, err)
	}
	path, err := filepath.Abs(filepath.Join(r.cfg.BaseDir, FileName(title, now)))
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: resolve path: %w", domain.ErrRender, err)
	}

	if r.cfg.Engine == EngineNative {
		if bad, ok := unencodable(title, content, r.cfg.Author); ok {
			return domain.Document{}, fmt.Errorf("%w: character %U is not supported by the native engine", domain.ErrRender, bad)
		}
	}
	sink, err := r.sink(ctx, path)
	if err != nil {
		return domain.Document{}, err
	}
	header := Header{
		Title:     title,
		Generated: now.Format(dateLayout),
		Author:    r.cfg.Author,
	}
	lines := Parse(content)
	if err := Layout(sink, header, lines); err != nil {
		return domain.Document{}, fmt.Errorf("%w: layout: %w", domain.ErrRender, err)
	}
	if err := sink.Close(); err != nil {
		return domain.Document{}, fmt.Errorf("%w: write %s: %w", domain.ErrRender, path, err)
	}

	logging.Info("PDF generated", "path", path, "lines", len(lines), "engine", string(r.cfg.Engine))
	return domain.Document{Path: path, Locator: "file://" + filepath.ToSlash(path)}, nil
}

func (r *Renderer) sink(ctx context.Context, path string) (Sink, error) {
	switch r.cfg.Engine {
	case EngineNative:
		sink, err := newPDFSink(path, r.cfg.Paper, r.cfg.MarginMM, r.cfg.Fonts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrRender, err)
		}
		return sink, nil
	case EngineChrome:
		if r.cfg.Printer == nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrRender, errors.New("chrome engine has no printer"))
		}
		return newHTMLSink(ctx, r.cfg.Printer, path), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", domain.ErrRender, r.cfg.Engine)
	}
}
