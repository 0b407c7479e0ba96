package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

type playwrightDriver struct {
	pw      *playwright.Playwright
	context playwright.BrowserContext
	page    playwright.Page
	opts    Options
	logger  *zap.Logger
}

func newPlaywrightDriver(opts Options) (*playwrightDriver, error) {
	if err := playwright.Install(); err != nil {
		return nil, fmt.Errorf("install pw failed: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start pw failed: %w", err)
	}

	userDataDir := opts.UserDataDir
	if userDataDir == "" {
		wd, _ := os.Getwd()
		userDataDir = filepath.Join(wd, ".playwright_data")
	}

	bctx, err := pw.Chromium.LaunchPersistentContext(userDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
		Viewport: &playwright.Size{Width: opts.Width, Height: opts.Height},
		Args: []string{
			"--disable-blink-features=AutomationControlled",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium failed: %w", err)
	}

	var pg playwright.Page
	if pages := bctx.Pages(); len(pages) > 0 {
		pg = pages[0]
	} else {
		pg, err = bctx.NewPage()
		if err != nil {
			_ = bctx.Close()
			_ = pw.Stop()
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}

	timeoutMS := float64(opts.Timeout.Milliseconds())
	pg.SetDefaultTimeout(timeoutMS)
	pg.SetDefaultNavigationTimeout(timeoutMS)

	return &playwrightDriver{
		pw:      pw,
		context: bctx,
		page:    pg,
		opts:    opts,
		logger:  opts.Logger.With(zap.String("engine", EnginePlaywright)),
	}, nil
}

func (d *playwrightDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return err
}

func (d *playwrightDriver) Snapshot(ctx context.Context) (*PageSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	})

	result, err := d.page.Evaluate(snapshotScript)
	if err != nil {
		return nil, fmt.Errorf("js evaluation failed: %w", err)
	}
	tree, err := treeFromResult(result)
	if err != nil {
		return nil, err
	}

	title, _ := d.page.Title()
	snap := &PageSnapshot{
		URL:   d.page.URL(),
		Title: title,
		Tree:  tree,
	}

	if d.opts.Screenshots {
		buf, err := d.page.Screenshot(playwright.PageScreenshotOptions{
			FullPage: playwright.Bool(false),
			Type:     playwright.ScreenshotTypeJpeg,
			Quality:  playwright.Int(70),
		})
		if err != nil {
			d.logger.Warn("screenshot failed", zap.Error(err))
		} else {
			snap.ScreenshotBase64 = encodeScreenshot(buf)
		}
	}
	return snap, nil
}

func (d *playwrightDriver) locate(id int) (playwright.Locator, error) {
	loc := d.page.Locator(selectorFor(id)).First()
	n, err := d.page.Locator(selectorFor(id)).Count()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selectorFor(id))
	}
	return loc, nil
}

func (d *playwrightDriver) Click(ctx context.Context, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc, err := d.locate(id)
	if err != nil {
		return err
	}
	if err := loc.ScrollIntoViewIfNeeded(); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return loc.Click()
}

func (d *playwrightDriver) Type(ctx context.Context, id int, text string, submit bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc, err := d.locate(id)
	if err != nil {
		return err
	}
	if err := loc.Fill(text); err != nil {
		return err
	}
	if submit {
		return loc.Press("Enter")
	}
	return nil
}

func (d *playwrightDriver) Scroll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Evaluate(`window.scrollBy({top: 500, behavior: 'smooth'})`)
	return err
}

func (d *playwrightDriver) Close() error {
	var firstErr error
	if d.context != nil {
		firstErr = d.context.Close()
	}
	if d.pw != nil {
		if err := d.pw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
