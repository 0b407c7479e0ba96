package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"
)

type chromedpDriver struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	opts        Options
	logger      *zap.Logger
}

func newChromedpDriver(parent context.Context, opts Options) (*chromedpDriver, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}

	// The browser outlives any single call, so it hangs off a detached context.
	actx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(parent), allocOpts...)
	bctx, cancelTab := chromedp.NewContext(actx)

	if err := chromedp.Run(bctx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start chrome failed: %w", err)
	}

	return &chromedpDriver{
		ctx:         bctx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		opts:        opts,
		logger:      opts.Logger.With(zap.String("engine", EngineChromedp)),
	}, nil
}

// run executes actions on the tab, bounded by the per-call timeout and by ctx.
func (d *chromedpDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	rctx, cancel := context.WithTimeout(d.ctx, d.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(rctx, actions...)
}

func (d *chromedpDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (d *chromedpDriver) Snapshot(ctx context.Context) (*PageSnapshot, error) {
	var (
		result interface{}
		snap   PageSnapshot
		shot   []byte
	)

	tasks := chromedp.Tasks{
		chromedp.Evaluate(snapshotExpression, &result),
		chromedp.Location(&snap.URL),
		chromedp.Title(&snap.Title),
	}
	if d.opts.Screenshots {
		tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
			buf, err := page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatJpeg).
				WithQuality(70).
				Do(ctx)
			if err != nil {
				d.logger.Warn("screenshot failed", zap.Error(err))
				return nil
			}
			shot = buf
			return nil
		}))
	}

	if err := d.run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("js evaluation failed: %w", err)
	}

	tree, err := treeFromResult(result)
	if err != nil {
		return nil, err
	}
	snap.Tree = tree
	snap.ScreenshotBase64 = encodeScreenshot(shot)
	return &snap, nil
}

const clickHelper = `function() {
	if (this.scrollIntoViewIfNeeded) {
		this.scrollIntoViewIfNeeded();
	} else if (this.scrollIntoView) {
		this.scrollIntoView({ block: "center", inline: "center" });
	}

	const clickable = (el) => {
		if (!el || !el.tagName) return false;
		const tag = el.tagName.toLowerCase();
		const role = ((el.getAttribute && el.getAttribute("role")) || "").toLowerCase();
		if (tag === "button" || tag === "a" || tag === "label") return true;
		if (tag === "input") {
			const type = (el.type || "").toLowerCase();
			return ["button", "submit", "radio", "checkbox"].includes(type);
		}
		return ["button", "link", "radio", "checkbox"].includes(role);
	};
	const toggleInLabel = (label) => {
		const input = label && label.querySelector("input[type='radio'],input[type='checkbox']");
		if (!input) return false;
		input.click();
		return true;
	};

	let el = this;
	for (let i = 0; i < 5 && el; i++) {
		if (el.closest && toggleInLabel(el.closest("label"))) return;
		if (clickable(el)) {
			el.click();
			return;
		}
		el = el.parentElement;
	}
	this.click();
}`

func typeHelper(text string) string {
	// json.Marshal yields a valid JS string literal.
	lit, _ := json.Marshal(text)
	return fmt.Sprintf(`function() {
	if (this.scrollIntoViewIfNeeded) {
		this.scrollIntoViewIfNeeded();
	} else if (this.scrollIntoView) {
		this.scrollIntoView({ block: "center", inline: "center" });
	}
	this.focus();
	this.value = %s;
	this.dispatchEvent(new Event('input', { bubbles: true }));
	this.dispatchEvent(new Event('change', { bubbles: true }));
}`, lit)
}

// callOn resolves the element tagged with id and runs fn with it bound to this.
func (d *chromedpDriver) callOn(ctx context.Context, id int, fn string, after ...chromedp.Action) error {
	sel := selectorFor(id)
	var nodes []*cdp.Node

	return d.run(ctx,
		chromedp.Nodes(sel, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(nodes) == 0 {
				return fmt.Errorf("%w: %s", ErrElementNotFound, sel)
			}
			obj, err := dom.ResolveNode().WithNodeID(nodes[0].NodeID).Do(ctx)
			if err != nil {
				return fmt.Errorf("resolve node failed: %w", err)
			}
			if obj == nil || obj.ObjectID == "" {
				return fmt.Errorf("object id is empty (node might be detached)")
			}
			_, exc, err := runtime.CallFunctionOn(fn).WithObjectID(obj.ObjectID).Do(ctx)
			if err != nil {
				return err
			}
			if exc != nil {
				return fmt.Errorf("js exception: %s", exc.Text)
			}
			for _, a := range after {
				if err := a.Do(ctx); err != nil {
					return err
				}
			}
			return nil
		}),
	)
}

func (d *chromedpDriver) Click(ctx context.Context, id int) error {
	return d.callOn(ctx, id, clickHelper)
}

func (d *chromedpDriver) Type(ctx context.Context, id int, text string, submit bool) error {
	var after []chromedp.Action
	if submit {
		after = append(after, chromedp.KeyEvent(kb.Enter))
	}
	return d.callOn(ctx, id, typeHelper(text), after...)
}

func (d *chromedpDriver) Scroll(ctx context.Context) error {
	return d.run(ctx, chromedp.Evaluate(`window.scrollBy({top: 500, behavior: 'smooth'});`, nil))
}

func (d *chromedpDriver) Close() error {
	d.cancelTab()
	d.cancelAlloc()
	return nil
}
