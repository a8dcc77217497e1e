package timetable

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/browser"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CourseURL is the course's detail page, <base>/<year>/<code>.html.
func CourseURL(baseURL string, year int, courseCode string) string {
	return fmt.Sprintf("%s/%d/%s.html", strings.TrimRight(baseURL, "/"), year, courseCode)
}

// ScanCourse loads the course page once and extracts every target class in
// the given order. Classes that are missing or full are left out.
func (s *Scraper) ScanCourse(ctx context.Context, page browser.Page, year int, course TargetCourse, term TermCode) ([]ClassRecord, error) {
	ctx, span := tracer.Start(ctx, "ScanCourse")
	defer span.End()

	link := CourseURL(s.baseURL, year, course.CourseCode)
	span.SetAttributes(
		attribute.String("course", course.CourseCode),
		attribute.String("url", link),
	)

	fail := func(status int64, err error) ([]ClassRecord, error) {
		navErr := &NavigationError{
			CourseCode: course.CourseCode,
			URL:        link,
			Status:     status,
			Err:        err,
		}
		span.RecordError(navErr)
		span.SetStatus(codes.Error, "failed to load course page")
		return nil, navErr
	}

	navCtx := ctx
	if s.navigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, s.navigationTimeout)
		defer cancel()
	}

	status, err := page.Navigate(navCtx, link)
	if err != nil {
		return fail(status, err)
	}
	// error pages render too, a course is only read from a successful load
	if status >= 400 {
		return fail(status, nil)
	}
	doc, err := page.Document(navCtx)
	if err != nil {
		return fail(status, err)
	}

	records := []ClassRecord{}
	for _, classID := range course.TargetClassIDs {
		record, ok := ExtractClass(ctx, doc, course.CourseCode, term, classID)
		if ok {
			records = append(records, record)
		}
	}

	slog.DebugContext(ctx, "scanned course",
		"course", course.CourseCode,
		"targets", len(course.TargetClassIDs),
		"open", len(records),
	)
	span.SetAttributes(attribute.Int("open", len(records)))
	return records, nil
}
