// Package browsertest is an in-memory browser.Launcher serving fixture HTML,
// it counts what the code under test acquires so teardown can be asserted.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/browser"

	"github.com/PuerkitoBio/goquery"
)

type Fixture struct {
	// defaults to 200
	Status int64
	HTML   string
	// subresources the document would request, each is run through the page filter
	Resources []browser.Request
	// returned from Navigate instead of loading the fixture
	Err error
	// closed when Navigate is entered, lets tests observe concurrent scans
	Entered chan struct{}
	// Navigate blocks on this until it is closed (or ctx is done)
	Block chan struct{}
}

type Launcher struct {
	// url -> fixture, a missing url navigates to an error
	Fixtures map[string]Fixture

	LaunchErr    error
	InterceptErr error
	// when set, NewPage returns NewPageErr once FailAfterPages pages exist
	NewPageErr     error
	FailAfterPages int

	lock      sync.Mutex
	launches  int
	pages     int
	closes    int
	visited   []string
	allowed   []browser.Request
	blocked   []browser.Request
	filters   int
	sessions  []*Session
	inFlight  int
	maxFlight int
}

func NewLauncher(fixtures map[string]Fixture) *Launcher {
	return &Launcher{Fixtures: fixtures}
}

func (l *Launcher) Launch(ctx context.Context) (browser.Session, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.launches++
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	s := &Session{launcher: l}
	l.sessions = append(l.sessions, s)
	return s, nil
}

// Launches is how many times Launch was called, successful or not.
func (l *Launcher) Launches() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.launches
}

func (l *Launcher) Pages() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.pages
}

// Closes counts the Close calls that actually closed a session.
func (l *Launcher) Closes() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.closes
}

// Filters counts pages that had a filter installed.
func (l *Launcher) Filters() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.filters
}

func (l *Launcher) Visited() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]string(nil), l.visited...)
}

func (l *Launcher) Allowed() []browser.Request {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]browser.Request(nil), l.allowed...)
}

func (l *Launcher) Blocked() []browser.Request {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]browser.Request(nil), l.blocked...)
}

// LastSession is the most recently launched session, nil before any launch.
func (l *Launcher) LastSession() *Session {
	l.lock.Lock()
	defer l.lock.Unlock()
	if len(l.sessions) == 0 {
		return nil
	}
	return l.sessions[len(l.sessions)-1]
}

// MaxInFlight is the largest number of navigations seen running at once.
func (l *Launcher) MaxInFlight() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.maxFlight
}

type Session struct {
	launcher *Launcher

	lock   sync.Mutex
	closed bool
	calls  int
}

func (s *Session) NewPage(ctx context.Context) (browser.Page, error) {
	s.lock.Lock()
	closed := s.closed
	s.lock.Unlock()
	if closed {
		return nil, browser.ErrSessionClosed
	}

	l := s.launcher
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.NewPageErr != nil && l.pages >= l.FailAfterPages {
		return nil, l.NewPageErr
	}
	l.pages++
	return &Page{session: s, id: l.pages}, nil
}

// CloseCalls counts every Close call on this session, including no-ops.
func (s *Session) CloseCalls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.calls
}

func (s *Session) Close() error {
	s.lock.Lock()
	s.calls++
	if s.closed {
		s.lock.Unlock()
		return nil
	}
	s.closed = true
	s.lock.Unlock()

	s.launcher.lock.Lock()
	s.launcher.closes++
	s.launcher.lock.Unlock()
	return nil
}

type Page struct {
	session *Session
	id      int

	lock    sync.Mutex
	filter  browser.RequestFilter
	current *Fixture
	busy    bool
}

func (p *Page) Intercept(ctx context.Context, filter browser.RequestFilter) error {
	l := p.session.launcher
	l.lock.Lock()
	err := l.InterceptErr
	if err == nil {
		l.filters++
	}
	l.lock.Unlock()
	if err != nil {
		return err
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	p.filter = filter
	return nil
}

func (p *Page) enter() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.busy {
		return fmt.Errorf("page %d driven concurrently", p.id)
	}
	p.busy = true
	return nil
}

func (p *Page) leave() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.busy = false
}

func (p *Page) Navigate(ctx context.Context, url string) (int64, error) {
	err := p.enter()
	if err != nil {
		return 0, err
	}
	defer p.leave()

	s := p.session
	s.lock.Lock()
	closed := s.closed
	s.lock.Unlock()
	if closed {
		return 0, browser.ErrSessionClosed
	}

	l := s.launcher
	l.lock.Lock()
	l.visited = append(l.visited, url)
	fixture, ok := l.Fixtures[url]
	l.inFlight++
	if l.inFlight > l.maxFlight {
		l.maxFlight = l.inFlight
	}
	l.lock.Unlock()
	defer func() {
		l.lock.Lock()
		l.inFlight--
		l.lock.Unlock()
	}()

	if !ok {
		return 0, fmt.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", url)
	}
	if fixture.Entered != nil {
		close(fixture.Entered)
	}
	if fixture.Block != nil {
		select {
		case <-fixture.Block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if fixture.Err != nil {
		return 0, fixture.Err
	}

	p.lock.Lock()
	filter := p.filter
	p.lock.Unlock()

	document := browser.Request{URL: url, ResourceType: browser.ResourceDocument}
	requests := append([]browser.Request{document}, fixture.Resources...)
	for _, req := range requests {
		passed := filter == nil || filter(req)
		l.lock.Lock()
		if passed {
			l.allowed = append(l.allowed, req)
		} else {
			l.blocked = append(l.blocked, req)
		}
		l.lock.Unlock()
		if req == document && !passed {
			return 0, fmt.Errorf("navigate %s: %w", url, browser.ErrBlocked)
		}
	}

	status := fixture.Status
	if status == 0 {
		status = 200
	}

	p.lock.Lock()
	p.current = &fixture
	p.lock.Unlock()
	return status, nil
}

func (p *Page) Document(ctx context.Context) (*goquery.Document, error) {
	p.lock.Lock()
	current := p.current
	p.lock.Unlock()
	if current == nil {
		return nil, browser.ErrNotNavigated
	}
	return goquery.NewDocumentFromReader(strings.NewReader(current.HTML))
}
