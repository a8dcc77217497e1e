package timetable

import (
	"context"

	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/browser"
)

// AcquirePages opens count pages in session, in order, each only allowed to
// load its top level document. Pages are never closed here, closing the
// session tears them down.
func AcquirePages(ctx context.Context, session browser.Session, count int) ([]browser.Page, error) {
	ctx, span := tracer.Start(ctx, "AcquirePages")
	defer span.End()

	pages := make([]browser.Page, 0, count)
	for i := 0; i < count; i++ {
		page, err := session.NewPage(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, &SessionError{Op: "new page", Err: err}
		}
		err = page.Intercept(ctx, browser.DocumentOnly)
		if err != nil {
			span.RecordError(err)
			return nil, &SessionError{Op: "intercept", Err: err}
		}
		pages = append(pages, page)
	}
	return pages, nil
}
