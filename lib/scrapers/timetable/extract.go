package timetable

import (
	"context"
	"log/slog"

	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// The class tables have no ids, a row is found by walking up from the class
// anchor and its cells are picked by position.
const (
	rowAncestorDepth = 2
	activityCell     = 0
	statusCell       = 4
	dateCell         = 6
)

// seats left are rendered as green text in the status cell
const openMarker = `font[color="green"]`

type Row struct {
	Cells []*goquery.Selection
}

// Cell returns the i-th direct child element of the row.
func (r Row) Cell(i int) (*goquery.Selection, bool) {
	if i < 0 || i >= len(r.Cells) {
		return nil, false
	}
	return r.Cells[i], true
}

// LocateRow finds the first anchor with exactly href and returns the element
// rowAncestorDepth levels above it as a row of cells.
func LocateRow(doc *goquery.Document, href string) (Row, bool) {
	anchor := htmlutil.FindAnchor(doc.Selection, href)
	if anchor.Length() == 0 {
		return Row{}, false
	}
	container, ok := htmlutil.Ancestor(anchor, rowAncestorDepth)
	if !ok {
		return Row{}, false
	}

	var cells []*goquery.Selection
	container.Children().Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, cell)
	})
	if len(cells) == 0 {
		return Row{}, false
	}
	return Row{Cells: cells}, true
}

func extractMiss(ctx context.Context, reason, courseCode, href string) (ClassRecord, bool) {
	slog.DebugContext(ctx, reason, "course", courseCode, "href", href)
	trace.SpanFromContext(ctx).AddEvent(reason, trace.WithAttributes(
		attribute.String("course", courseCode),
		attribute.String("href", href),
	))
	return ClassRecord{}, false
}

// ExtractClass reads one class out of a rendered course page. ok is false when
// the class is not on the page, its row is malformed, or it is full.
func ExtractClass(ctx context.Context, doc *goquery.Document, courseCode string, term TermCode, classID string) (ClassRecord, bool) {
	href := term.Href(classID)

	row, ok := LocateRow(doc, href)
	if !ok {
		return extractMiss(ctx, "class row not found", courseCode, href)
	}

	status, ok := row.Cell(statusCell)
	if !ok {
		return extractMiss(ctx, "row has no status cell", courseCode, href)
	}
	statusText := htmlutil.SelectionText(status.Find(openMarker).First())
	slog.DebugContext(ctx, "class status", "course", courseCode, "href", href, "status", statusText)
	if statusText == "" {
		return extractMiss(ctx, "class full", courseCode, href)
	}

	activity, ok := row.Cell(activityCell)
	if !ok {
		return extractMiss(ctx, "row has no activity cell", courseCode, href)
	}
	activityAnchor := htmlutil.FindAnchor(activity, href)
	if activityAnchor.Length() == 0 {
		return extractMiss(ctx, "activity cell has no class anchor", courseCode, href)
	}

	date, ok := row.Cell(dateCell)
	if !ok {
		return extractMiss(ctx, "row has no date cell", courseCode, href)
	}

	return ClassRecord{
		CourseCode: courseCode,
		ClassID:    classID,
		IsOpen:     true,
		Date:       htmlutil.SelectionText(date),
		Activity:   htmlutil.SelectionText(activityAnchor),
	}, true
}
