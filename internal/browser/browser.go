// Package browser locates the installed Chrome binary and checks that
// it can start headless the way the scraping service starts it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// ErrNotFound is returned by Find when no candidate is on PATH.
var ErrNotFound = errors.New("browser not found on PATH")

// LookPathFunc resolves a binary name, like exec.LookPath.
type LookPathFunc func(name string) (string, error)

// Find returns the absolute path of the first candidate on PATH.
func Find(lookPath LookPathFunc, candidates []string) (string, error) {
	for _, name := range candidates {
		if path, err := lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

// Probe launches execPath headless with the flags the scraper uses,
// loads a blank page and returns the reported user agent.
func Probe(ctx context.Context, execPath string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	browserCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var userAgent string
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.Evaluate(`navigator.userAgent`, &userAgent),
	); err != nil {
		return "", fmt.Errorf("headless launch %s: %w", execPath, err)
	}
	return userAgent, nil
}
