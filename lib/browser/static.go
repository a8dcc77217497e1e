package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type StaticOptions struct {
	Timeout   time.Duration
	UserAgent string
	// when set, redirects leaving this host are refused
	AllowedHost      string
	CloudflareBypass bool
	// request/response dumps, only written with debug logging on
	Output restyutil.InstrumentOutput
}

// StaticLauncher fetches pages over plain HTTP. Only the document itself is
// ever requested so no subresource can leak past the page filter.
type StaticLauncher struct {
	opts StaticOptions
}

func NewStaticLauncher(opts StaticOptions) StaticLauncher {
	return StaticLauncher{opts: opts}
}

func (l StaticLauncher) newClient() *resty.Client {
	client := resty.New()
	if l.opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	userAgent := l.opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client.SetHeader("user-agent", userAgent)
	if l.opts.AllowedHost != "" {
		client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(l.opts.AllowedHost))
	}
	timeout := l.opts.Timeout
	if timeout <= 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)

	restyutil.InstrumentClient(client, tracer, l.opts.Output)
	return client
}

func (l StaticLauncher) Launch(ctx context.Context) (Session, error) {
	return &staticSession{client: l.newClient()}, nil
}

type staticSession struct {
	client *resty.Client

	lock   sync.Mutex
	closed bool
}

func (s *staticSession) NewPage(ctx context.Context) (Page, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return &staticPage{session: s}, nil
}

func (s *staticSession) isClosed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.closed
}

func (s *staticSession) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.client.GetClient().CloseIdleConnections()
	return nil
}

type staticPage struct {
	session *staticSession
	filter  RequestFilter
	body    []byte
	loaded  bool
}

func (p *staticPage) Intercept(ctx context.Context, filter RequestFilter) error {
	p.filter = filter
	return nil
}

func (p *staticPage) Navigate(ctx context.Context, link string) (int64, error) {
	ctx, span := tracer.Start(ctx, "static:Navigate")
	defer span.End()
	span.SetAttributes(attribute.String("url", link))

	if p.session.isClosed() {
		return 0, ErrSessionClosed
	}
	if _, err := url.ParseRequestURI(link); err != nil {
		return 0, err
	}
	if p.filter != nil && !p.filter(Request{URL: link, ResourceType: ResourceDocument}) {
		return 0, fmt.Errorf("navigate %s: %w", link, ErrBlocked)
	}

	res, err := p.session.client.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return 0, err
	}

	p.body = bytes.Clone(res.Body())
	p.loaded = true
	span.SetAttributes(attribute.Int("status", res.StatusCode()))
	return int64(res.StatusCode()), nil
}

func (p *staticPage) Document(ctx context.Context) (*goquery.Document, error) {
	if !p.loaded {
		return nil, ErrNotNavigated
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(p.body))
}
