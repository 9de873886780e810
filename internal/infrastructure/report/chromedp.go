package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/qcdash/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	defaultChromeTimeout = 30 * time.Second
	// A4 in millimetres
	a4WidthMM  = 210
	a4HeightMM = 297
	marginMM   = 12
)

// ErrRenderFailed is returned when Chrome cannot produce a PDF
var ErrRenderFailed = shared.NewDomainError("REPORT_RENDER_FAILED", "Failed to render report")

// ChromedpConfig configures the PDF printer
type ChromedpConfig struct {
	Timeout time.Duration
	// RemoteURL is a Chrome DevTools websocket URL; empty launches a local headless browser
	RemoteURL string
	// NoSandbox is required when Chrome runs as root in a container
	NoSandbox bool
	Logger    *zap.Logger
}

// ChromedpPrinter prints HTML to PDF through the Chrome DevTools Protocol
type ChromedpPrinter struct {
	config      ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpPrinter prepares a browser allocator. Chrome is not started until the first print.
func NewChromedpPrinter(config ChromedpConfig) *ChromedpPrinter {
	if config.Timeout == 0 {
		config.Timeout = defaultChromeTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &ChromedpPrinter{config: config, logger: logger}
	p.initAllocator()
	return p
}

func (p *ChromedpPrinter) initAllocator() {
	if p.config.RemoteURL != "" {
		p.allocCtx, p.allocCancel = chromedp.NewRemoteAllocator(context.Background(), p.config.RemoteURL)
		return
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if p.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	p.allocCtx, p.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
}

// PrintPDF loads html into a blank tab and prints it as A4 portrait
func (p *ChromedpPrinter) PrintPDF(ctx context.Context, html []byte) ([]byte, error) {
	if len(html) == 0 {
		return nil, shared.NewDomainError(ErrRenderFailed.Code, "Report content is empty")
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	tabCtx, tabCancel := chromedp.NewContext(p.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			p.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer tabCancel()

	// the tab lives on the allocator context, so tie it to the request deadline
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	params := buildPrintParams()
	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := params.Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, shared.NewDomainError(ErrRenderFailed.Code,
				fmt.Sprintf("Report rendering timed out after %v", p.config.Timeout))
		}
		p.logger.Error("chromedp rendering failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	if len(pdf) == 0 {
		return nil, shared.NewDomainError(ErrRenderFailed.Code, "Generated PDF is empty")
	}

	p.logger.Info("Report PDF rendered",
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", time.Since(start)))
	return pdf, nil
}

// Close shuts down the browser allocator
func (p *ChromedpPrinter) Close() error {
	if p.allocCancel != nil {
		p.allocCancel()
	}
	return nil
}

func buildPrintParams() *page.PrintToPDFParams {
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(mmToInches(a4WidthMM)).
		WithPaperHeight(mmToInches(a4HeightMM)).
		WithMarginTop(mmToInches(marginMM)).
		WithMarginRight(mmToInches(marginMM)).
		WithMarginBottom(mmToInches(marginMM)).
		WithMarginLeft(mmToInches(marginMM)).
		WithScale(1.0)
}

// mmToInches converts millimetres to the inches Chrome expects
func mmToInches(mm float64) float64 {
	return mm / 25.4
}
