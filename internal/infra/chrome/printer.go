package chrome

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"casestudy/internal/config"
	"casestudy/internal/infra/logging"
)

const acquireTimeout = 5 * time.Second

// Printer prints HTML documents to PDF bytes. With a nil pool every call
// starts its own Chrome process.
type Printer struct {
	pool        *Pool
	cfg         config.Config
	paper       config.PaperSize
	timeout     time.Duration
	acquireWait time.Duration
}

func NewPrinter(pool *Pool, cfg config.Config) *Printer {
	timeout := time.Duration(cfg.PDF.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Printer{
		pool:        pool,
		cfg:         cfg,
		paper:       cfg.PDF.PaperSizes[cfg.PDF.DefaultPaper],
		timeout:     timeout,
		acquireWait: acquireTimeout,
	}
}

// PrintHTML renders doc in a pooled tab. A session interruption restarts the
// pool and retries once.
func (p *Printer) PrintHTML(ctx context.Context, doc string) ([]byte, error) {
	if p.pool == nil {
		return p.printStandalone(ctx, doc)
	}
	buf, err := p.printPooled(ctx, doc)
	if err != nil && ctx.Err() == nil && IsSessionInterrupted(err) {
		logging.Warn("Chrome session interrupted; restarting pool and retrying once", "error", err)
		if rerr := p.pool.Restart(); rerr != nil {
			return nil, fmt.Errorf("restart chrome pool: %w", rerr)
		}
		return p.printPooled(ctx, doc)
	}
	return buf, err
}

func (p *Printer) printPooled(ctx context.Context, doc string) ([]byte, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireWait)
	tab, err := p.pool.Acquire(acquireCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("acquire chrome tab: %w", err)
	}

	runCtx, cancel := context.WithTimeout(tab.Ctx, p.timeout)
	stop := context.AfterFunc(ctx, cancel)
	buf, err := printInTab(runCtx, doc, p.paper, p.cfg.PDF.Margin)
	stop()
	cancel()

	p.pool.Release(tab, err)
	return buf, err
}

func (p *Printer) printStandalone(ctx context.Context, doc string) ([]byte, error) {
	dir, err := createProfileDir(p.cfg)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(p.cfg, dir)...)
	defer allocCancel()
	chromeCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	chromeCtx, cancelTimeout := context.WithTimeout(chromeCtx, p.timeout)
	defer cancelTimeout()

	return printInTab(chromeCtx, doc, p.paper, p.cfg.PDF.Margin)
}

func printInTab(ctx context.Context, doc string, paper config.PaperSize, margin float64) ([]byte, error) {
	var buf []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, doc).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			req := page.PrintToPDF().
				WithPrintBackground(true).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin)
			if paper.Width > 0 && paper.Height > 0 {
				req = req.WithPaperWidth(paper.Width).WithPaperHeight(paper.Height)
			}
			var err error
			buf, _, err = req.Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return buf, nil
}
