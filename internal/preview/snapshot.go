package preview

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Snapshot renders html in headless Chrome and returns a full-page PNG.
func Snapshot(ctx context.Context, html []byte) ([]byte, error) {
	path, ok := FindChrome()
	if !ok {
		return nil, ErrNoBrowser
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(path),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(640, 480),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	cdpCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var pngBytes []byte
	err := chromedp.Run(cdpCtx,
		chromedp.Navigate("data:text/html;charset=utf-8,"+urlEncode(string(html))),
		chromedp.Sleep(300*time.Millisecond),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, err := page.CaptureScreenshot().
				WithCaptureBeyondViewport(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pngBytes = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed generating image: %w", err)
	}
	return pngBytes, nil
}

func urlEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
