package document

import (
	"context"
	"fmt"
	"time"

	"seo-offers/internal/common/logger"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// A4 portrait with 10 mm margins, in inches.
const (
	paperWidth  = 8.27
	paperHeight = 11.69
	margin      = 0.3937
)

// Exporter turns rendered HTML into a PDF.
type Exporter interface {
	Export(ctx context.Context, html []byte) ([]byte, error)
}

// ChromeExporter prints HTML to PDF with a headless Chrome per call.
type ChromeExporter struct {
	execPath string
	timeout  time.Duration
	logger   logger.Logger
}

func NewChromeExporter(execPath string, timeout time.Duration, log logger.Logger) *ChromeExporter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChromeExporter{execPath: execPath, timeout: timeout, logger: logger.Component(log, "pdf-export")}
}

func (e *ChromeExporter) Export(ctx context.Context, html []byte) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if e.execPath != "" {
		opts = append(opts, chromedp.ExecPath(e.execPath))
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTask()

	var pdf []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(false).
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				Do(ctx)
			pdf = buf
			return err
		}),
	)
	if err != nil {
		e.logger.Warn("pdf export failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("chrome print to pdf: %w", err)
	}
	return pdf, nil
}
