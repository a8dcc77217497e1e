package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// chromium's lifecycle event for "no more than 2 connections for 500ms",
// what puppeteer calls networkidle2.
const networkAlmostIdle = "networkAlmostIdle"

type ChromeOptions struct {
	// empty means let chromedp search the usual install locations
	ExecPath string
	Headless bool
	// containers usually can't give chromium its setuid sandbox
	NoSandbox  bool
	DisableGPU bool
	UserAgent  string
}

type ChromeLauncher struct {
	opts ChromeOptions
}

func NewChromeLauncher(opts ChromeOptions) ChromeLauncher {
	return ChromeLauncher{opts: opts}
}

func (l ChromeLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", l.opts.Headless))
	if l.opts.NoSandbox {
		opts = append(opts,
			chromedp.NoSandbox,
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}
	if l.opts.DisableGPU {
		opts = append(opts, chromedp.DisableGPU)
	}
	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}
	if l.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.opts.UserAgent))
	}
	return opts
}

func chromedpLogf(format string, args ...any) {
	slog.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
}

func chromedpErrorf(format string, args ...any) {
	slog.Warn("chromedp", "msg", fmt.Sprintf(format, args...))
}

func (l ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	ctx, span := tracer.Start(ctx, "chrome:Launch")
	defer span.End()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, l.allocatorOptions()...)
	browserCtx, cancelBrowser := chromedp.NewContext(
		allocCtx,
		chromedp.WithLogf(chromedpLogf),
		chromedp.WithErrorf(chromedpErrorf),
	)

	// the first Run starts the browser, it must not be given a derived
	// context or the browser's lifetime gets tied to it.
	err := chromedp.Run(browserCtx)
	if err != nil {
		cancelBrowser()
		cancelAlloc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to start browser")
		return nil, err
	}

	return &chromeSession{
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}, nil
}

type chromeSession struct {
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

func (s *chromeSession) NewPage(ctx context.Context) (Page, error) {
	ctx, span := tracer.Start(ctx, "chrome:NewPage")
	defer span.End()

	if s.browserCtx.Err() != nil {
		return nil, ErrSessionClosed
	}

	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	p := &chromePage{
		ctx:    tabCtx,
		cancel: cancel,
		idle:   make(chan struct{}, 1),
	}
	chromedp.ListenTarget(tabCtx, p.onEvent)

	// first Run on the tab creates the target, same rule as Launch
	err := chromedp.Run(
		tabCtx,
		network.Enable(),
		cdppage.SetLifecycleEventsEnabled(true),
	)
	if err != nil {
		cancel()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open tab")
		return nil, err
	}

	c := chromedp.FromContext(tabCtx)
	if c == nil || c.Target == nil {
		cancel()
		return nil, fmt.Errorf("chromedp did not attach a target to the new tab")
	}
	p.setMainFrame(cdp.FrameID(c.Target.TargetID))
	span.SetAttributes(attribute.String("target_id", string(c.Target.TargetID)))

	return p, nil
}

func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		err := chromedp.Cancel(s.browserCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = err
		}
		s.cancelBrowser()
		s.cancelAlloc()
	})
	return s.closeErr
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc

	lock      sync.Mutex
	filter    RequestFilter
	mainFrame cdp.FrameID

	// signalled on networkAlmostIdle for the main frame
	idle chan struct{}
}

func (p *chromePage) setMainFrame(id cdp.FrameID) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.mainFrame = id
}

func (p *chromePage) isMainFrame(id cdp.FrameID) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.mainFrame != "" && p.mainFrame == id
}

func (p *chromePage) currentFilter() RequestFilter {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.filter
}

func (p *chromePage) drainIdle() {
	select {
	case <-p.idle:
	default:
	}
}

// listeners run on chromedp's event loop, anything that talks back to
// the browser has to happen on another goroutine.
func (p *chromePage) onEvent(ev any) {
	switch ev := ev.(type) {
	case *cdppage.EventLifecycleEvent:
		if !p.isMainFrame(ev.FrameID) {
			return
		}
		switch ev.Name {
		case "init":
			// a new document started loading, anything signalled before belongs to the old one
			p.drainIdle()
		case networkAlmostIdle:
			select {
			case p.idle <- struct{}{}:
			default:
			}
		}
	case *fetch.EventRequestPaused:
		go p.answer(ev)
	case *cdpruntime.EventConsoleAPICalled:
		parts := make([]string, 0, len(ev.Args))
		for _, arg := range ev.Args {
			if arg.Value != nil {
				parts = append(parts, strings.Trim(string(arg.Value), `"`))
				continue
			}
			parts = append(parts, arg.Description)
		}
		slog.Debug("PAGE:", "type", ev.Type, "text", strings.Join(parts, " "))
	}
}

func (p *chromePage) answer(ev *fetch.EventRequestPaused) {
	c := chromedp.FromContext(p.ctx)
	if c == nil || c.Target == nil {
		return
	}
	ctx := cdp.WithExecutor(p.ctx, c.Target)

	req := Request{
		URL:          ev.Request.URL,
		ResourceType: NormalizeResourceType(string(ev.ResourceType)),
	}

	filter := p.currentFilter()
	var err error
	if filter == nil || filter(req) {
		err = fetch.ContinueRequest(ev.RequestID).Do(ctx)
	} else {
		err = fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(ctx)
		slog.Debug("blocked request", "type", req.ResourceType, "url", req.URL)
	}
	if err != nil && p.ctx.Err() == nil {
		slog.Debug("failed to answer paused request", "url", req.URL, "err", err)
	}
}

// bind derives a chromedp context for the tab that is also cancelled with
// the caller's ctx, so per call timeouts and run cancellation reach chromium.
func (p *chromePage) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(p.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (p *chromePage) Intercept(ctx context.Context, filter RequestFilter) error {
	p.lock.Lock()
	p.filter = filter
	p.lock.Unlock()

	runCtx, cancel := p.bind(ctx)
	defer cancel()

	err := chromedp.Run(runCtx, fetch.Enable())
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (p *chromePage) Navigate(ctx context.Context, url string) (int64, error) {
	ctx, span := tracer.Start(ctx, "chrome:Navigate")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	runCtx, cancel := p.bind(ctx)
	defer cancel()

	p.drainIdle()
	res, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigation failed")
		return 0, err
	}

	select {
	case <-p.idle:
	case <-runCtx.Done():
		err := ctx.Err()
		if err == nil {
			err = runCtx.Err()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "page never settled")
		return 0, err
	}

	var status int64
	if res != nil {
		status = res.Status
	}
	span.SetAttributes(attribute.Int64("status", status))
	return status, nil
}

func (p *chromePage) Document(ctx context.Context) (*goquery.Document, error) {
	runCtx, cancel := p.bind(ctx)
	defer cancel()

	var outer string
	err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &outer, chromedp.ByQuery))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(outer))
}
