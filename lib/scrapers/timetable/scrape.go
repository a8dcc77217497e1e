package timetable

import (
	"context"
	"log/slog"
	"time"

	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/browser"
	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/timezone"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

// Scraper runs whole scrapes, one browser session per ScrapeCourses call.
type Scraper struct {
	launcher          browser.Launcher
	baseURL           string
	navigationTimeout time.Duration
	runTimeout        time.Duration
	parallelism       int
	clock             func() time.Time
}

func NewScraper(launcher browser.Launcher, config Config) *Scraper {
	config = config.WithDefaults()
	return &Scraper{
		launcher:          launcher,
		baseURL:           config.BaseURL,
		navigationTimeout: config.NavigationTimeout(),
		runTimeout:        config.RunTimeout(),
		parallelism:       config.Parallelism,
		clock:             timezone.Now,
	}
}

func (s *Scraper) limit(courses int) int {
	if s.parallelism > 0 && s.parallelism < courses {
		return s.parallelism
	}
	return max(courses, 1)
}

// ScrapeCourses resolves the term, opens one browser session with a page per
// course and reports every open target class. Any failure after the term is
// resolved fails the whole run, the session is closed on every path.
func (s *Scraper) ScrapeCourses(ctx context.Context, year int, term string, courses []TargetCourse) (Result, error) {
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "ScrapeCourses")
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.Int("year", year),
		attribute.String("term", term),
		attribute.Int("courses", len(courses)),
	)
	logger := slog.With("run_id", runID)

	start := time.Now()
	result, err := s.scrape(ctx, logger, year, term, courses)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = FailureKind(err)
	}
	outcomeAttr := metric.WithAttributes(attribute.String("outcome", outcome))
	runCounter.Add(ctx, 1, outcomeAttr)
	runDuration.Record(ctx, elapsed.Seconds(), outcomeAttr)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scrape failed")
		logger.ErrorContext(ctx, "scrape failed",
			"year", year,
			"term", term,
			"kind", outcome,
			"err", err,
		)
		return Result{}, err
	}

	openClasses.Record(ctx, int64(len(result.Classes)))
	logger.InfoContext(ctx, "scrape finished",
		"year", year,
		"term", term,
		"courses", len(courses),
		"open", len(result.Classes),
		"elapsed", elapsed,
	)
	return result, nil
}

func (s *Scraper) scrape(ctx context.Context, logger *slog.Logger, year int, term string, courses []TargetCourse) (Result, error) {
	code, err := ResolveTerm(term)
	if err != nil {
		return Result{}, err
	}

	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	session, err := s.launcher.Launch(ctx)
	if err != nil {
		return Result{}, &SessionError{Op: "launch", Err: err}
	}
	defer func() {
		err := session.Close()
		if err != nil {
			logger.WarnContext(ctx, "failed to close browser session", "err", err)
		}
	}()

	pages, err := AcquirePages(ctx, session, len(courses))
	if err != nil {
		return Result{}, err
	}

	// each scan owns its page and its slot, slots are joined in course order
	perCourse := make([][]ClassRecord, len(courses))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.limit(len(courses)))
	for i, course := range courses {
		page := pages[i]
		group.Go(func() error {
			records, err := s.ScanCourse(groupCtx, page, year, course, code)
			if err != nil {
				return err
			}
			perCourse[i] = records
			return nil
		})
	}
	err = group.Wait()
	if err != nil {
		return Result{}, err
	}

	classes := []ClassRecord{}
	for _, records := range perCourse {
		classes = append(classes, records...)
	}
	return Result{
		Classes:     classes,
		LastUpdated: s.clock(),
	}, nil
}
