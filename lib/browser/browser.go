// Package browser is the page automation capability the timetable scraper
// drives: open pages in a session, filter their network requests, navigate
// and read back the rendered document.
//
// Two backends are provided, headless chromium over the devtools protocol
// (chromedp) and a plain HTTP document fetcher (resty) for the server
// rendered pages that don't need a real browser.
package browser

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ResourceType uses the lowercase devtools names, the same strings
// puppeteer reports from request.resourceType().
type ResourceType string

const (
	ResourceDocument   ResourceType = "document"
	ResourceStylesheet ResourceType = "stylesheet"
	ResourceImage      ResourceType = "image"
	ResourceMedia      ResourceType = "media"
	ResourceFont       ResourceType = "font"
	ResourceScript     ResourceType = "script"
	ResourceXHR        ResourceType = "xhr"
	ResourceFetch      ResourceType = "fetch"
	ResourceOther      ResourceType = "other"
)

// NormalizeResourceType maps a devtools resource type ("Document", "XHR")
// onto ResourceType.
func NormalizeResourceType(raw string) ResourceType {
	if raw == "" {
		return ResourceOther
	}
	return ResourceType(strings.ToLower(raw))
}

type Request struct {
	URL          string
	ResourceType ResourceType
}

// RequestFilter reports whether a request may continue, false aborts it.
type RequestFilter func(Request) bool

// DocumentOnly lets the top level document through and aborts every
// stylesheet, image, font, script, xhr and so on.
func DocumentOnly(req Request) bool {
	return req.ResourceType == ResourceDocument
}

var ErrBlocked = errors.New("request blocked by filter")
var ErrNotNavigated = errors.New("page has not been navigated")
var ErrSessionClosed = errors.New("session is closed")

// Page is a single tab. A page must not be driven by two goroutines at once.
type Page interface {
	// Intercept installs filter for every request the page makes from now on.
	Intercept(ctx context.Context, filter RequestFilter) error
	// Navigate loads url and returns once the network is mostly idle.
	// status is the HTTP status of the main document.
	Navigate(ctx context.Context, url string) (status int64, err error)
	// Document is a snapshot of the current DOM.
	Document(ctx context.Context) (*goquery.Document, error)
}

type Session interface {
	NewPage(ctx context.Context) (Page, error)
	// Close tears down the session and every page opened in it.
	// Calling it more than once is a no-op.
	Close() error
}

type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}
