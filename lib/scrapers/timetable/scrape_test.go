package timetable

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/browser"
	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/browser/browsertest"
	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// steppingClock advances a minute on every call.
func steppingClock() func() time.Time {
	lock := sync.Mutex{}
	current := time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		lock.Lock()
		defer lock.Unlock()
		current = current.Add(time.Minute)
		return current
	}
}

func newTestScraper(launcher browser.Launcher, config Config) *Scraper {
	if config.BaseURL == "" {
		config.BaseURL = testBaseURL
	}
	scraper := NewScraper(launcher, config)
	scraper.clock = steppingClock()
	return scraper
}

func comp1511Fixtures() map[string]browsertest.Fixture {
	return map[string]browsertest.Fixture{
		testBaseURL + "/2025/COMP1511.html": {
			HTML: courseHTML(
				fixtureClass{id: "9301", activity: "Lecture", status: "Open", date: "17-FEB-2025"},
				fixtureClass{id: "9313", activity: "Tutorial", status: "-", date: "18-FEB-2025"},
			),
			Resources: []browser.Request{
				{URL: testBaseURL + "/layout/style.css", ResourceType: browser.ResourceStylesheet},
				{URL: testBaseURL + "/images/logo.gif", ResourceType: browser.ResourceImage},
				{URL: "https://www.googletagmanager.com/gtag/js", ResourceType: browser.ResourceScript},
			},
		},
	}
}

func assertClosedOnce(t testing.TB, launcher *browsertest.Launcher) {
	t.Helper()
	session := launcher.LastSession()
	require.NotNil(t, session)
	require.Equal(t, 1, session.CloseCalls())
	require.Equal(t, 1, launcher.Closes())
}

func TestScrapeCoursesEndToEnd(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:timetable")
	defer cleanup()

	launcher := browsertest.NewLauncher(comp1511Fixtures())
	scraper := newTestScraper(launcher, Config{})

	result, err := scraper.ScrapeCourses(context.Background(), 2025, "T1", []TargetCourse{
		{CourseCode: "COMP1511", TargetClassIDs: []string{"9301", "9313"}},
	})
	require.NoError(t, err)

	expected := []ClassRecord{{
		CourseCode: "COMP1511",
		ClassID:    "9301",
		IsOpen:     true,
		Date:       "17-FEB-2025",
		Activity:   "Lecture",
	}}
	if diff := cmp.Diff(expected, result.Classes); diff != "" {
		t.Fatalf("classes differ (-want +got):\n%s", diff)
	}
	require.False(t, result.LastUpdated.IsZero())

	require.Equal(t, 1, launcher.Launches())
	require.Equal(t, 1, launcher.Pages())
	require.Equal(t, 1, launcher.Filters())
	assertClosedOnce(t, launcher)

	for _, req := range launcher.Allowed() {
		require.Equal(t, browser.ResourceDocument, req.ResourceType)
	}
	require.Len(t, launcher.Blocked(), 3)
}

func TestScrapeCoursesInvalidTerm(t *testing.T) {
	launcher := browsertest.NewLauncher(comp1511Fixtures())
	scraper := newTestScraper(launcher, Config{})

	result, err := scraper.ScrapeCourses(context.Background(), 2025, "INVALID", []TargetCourse{
		{CourseCode: "COMP1511", TargetClassIDs: []string{"9301", "9313"}},
	})
	require.ErrorIs(t, err, ErrTermResolution)
	require.Equal(t, KindTerm, FailureKind(err))
	require.Equal(t, Result{}, result)

	require.Equal(t, 0, launcher.Launches())
	require.Equal(t, 0, launcher.Pages())
	require.Nil(t, launcher.LastSession())
}

func TestScrapeCoursesIdempotent(t *testing.T) {
	launcher := browsertest.NewLauncher(comp1511Fixtures())
	scraper := newTestScraper(launcher, Config{})
	courses := []TargetCourse{
		{CourseCode: "COMP1511", TargetClassIDs: []string{"9301", "9313"}},
	}

	first, err := scraper.ScrapeCourses(context.Background(), 2025, "T1", courses)
	require.NoError(t, err)
	second, err := scraper.ScrapeCourses(context.Background(), 2025, "T1", courses)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Classes, second.Classes); diff != "" {
		t.Fatalf("second run differs (-first +second):\n%s", diff)
	}
	require.False(t, second.LastUpdated.Before(first.LastUpdated))
	require.Equal(t, 2, launcher.Launches())
	require.Equal(t, 2, launcher.Closes())
}

func TestScrapeCoursesStampsOnce(t *testing.T) {
	fixtures := comp1511Fixtures()
	fixtures[testBaseURL+"/2025/MATH1131.html"] = browsertest.Fixture{HTML: courseHTML(
		fixtureClass{id: "5001", activity: "Lecture", status: "Open", date: "17-FEB-2025"},
	)}
	launcher := browsertest.NewLauncher(fixtures)

	calls := 0
	scraper := newTestScraper(launcher, Config{})
	scraper.clock = func() time.Time {
		calls++
		return time.UnixMilli(1739145600000)
	}

	result, err := scraper.ScrapeCourses(context.Background(), 2025, "T1", []TargetCourse{
		{CourseCode: "COMP1511", TargetClassIDs: []string{"9301"}},
		{CourseCode: "MATH1131", TargetClassIDs: []string{"5001"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Classes, 2)
	require.Equal(t, 1, calls)
	require.Equal(t, int64(1739145600000), result.LastUpdated.UnixMilli())
}

func TestScrapeCoursesKeepsCourseOrder(t *testing.T) {
	// the first course can't finish until the second one has started, so
	// the second always completes first
	secondStarted := make(chan struct{})
	fixtures := map[string]browsertest.Fixture{
		testBaseURL + "/2025/COMP1511.html": {
			HTML: courseHTML(
				fixtureClass{id: "9301", activity: "Lecture", status: "Open", date: "17-FEB-2025"},
			),
			Block: secondStarted,
		},
		testBaseURL + "/2025/COMP1521.html": {
			HTML: courseHTML(
				fixtureClass{id: "8001", activity: "Lecture", status: "Open", date: "18-FEB-2025"},
				fixtureClass{id: "8002", activity: "Tutorial", status: "Open", date: "19-FEB-2025"},
			),
			Entered: secondStarted,
		},
	}
	launcher := browsertest.NewLauncher(fixtures)
	scraper := newTestScraper(launcher, Config{})

	result, err := scraper.ScrapeCourses(context.Background(), 2025, "T1", []TargetCourse{
		{CourseCode: "COMP1511", TargetClassIDs: []string{"9301"}},
		{CourseCode: "COMP1521", TargetClassIDs: []string{"8002", "8001"}},
	})
	require.NoError(t, err)

	ids := []string{}
	for _, record := range result.Classes {
		ids = append(ids, record.CourseCode+"/"+record.ClassID)
	}
	require.Equal(t, []string{"COMP1511/9301", "COMP1521/8002", "COMP1521/8001"}, ids)
	assertClosedOnce(t, launcher)
}

func TestScrapeCoursesSequential(t *testing.T) {
	fixtures := map[string]browsertest.Fixture{}
	courses := []TargetCourse{}
	for _, code := range []string{"COMP1511", "COMP1521", "COMP1531"} {
		fixtures[testBaseURL+"/2025/"+code+".html"] = browsertest.Fixture{HTML: courseHTML(
			fixtureClass{id: "1000", activity: "Lecture", status: "Open", date: "17-FEB-2025"},
		)}
		courses = append(courses, TargetCourse{CourseCode: code, TargetClassIDs: []string{"1000"}})
	}
	launcher := browsertest.NewLauncher(fixtures)
	scraper := newTestScraper(launcher, Config{Parallelism: 1})

	result, err := scraper.ScrapeCourses(context.Background(), 2025, "T1", courses)
	require.NoError(t, err)
	require.Len(t, result.Classes, 3)
	require.Equal(t, 1, launcher.MaxInFlight())
	require.Equal(t, []string{
		testBaseURL + "/2025/COMP1511.html",
		testBaseURL + "/2025/COMP1521.html",
		testBaseURL + "/2025/COMP1531.html",
	}, launcher.Visited())
	require.Equal(t, 3, launcher.Pages())
}

func TestScrapeCoursesNoCourses(t *testing.T) {
	launcher := browsertest.NewLauncher(nil)
	scraper := newTestScraper(launcher, Config{})

	result, err := scraper.ScrapeCourses(context.Background(), 2025, "SUMMER", nil)
	require.NoError(t, err)
	require.NotNil(t, result.Classes)
	require.Empty(t, result.Classes)
	require.Equal(t, 0, launcher.Pages())
	assertClosedOnce(t, launcher)
}

func TestScrapeCoursesNavigationFailure(t *testing.T) {
	launcher := browsertest.NewLauncher(comp1511Fixtures())
	scraper := newTestScraper(launcher, Config{Parallelism: 1})

	result, err := scraper.ScrapeCourses(context.Background(), 2025, "T1", []TargetCourse{
		{CourseCode: "COMP1511", TargetClassIDs: []string{"9301"}},
		{CourseCode: "NOPE0000", TargetClassIDs: []string{"1"}},
	})
	require.ErrorIs(t, err, ErrNavigation)
	require.Equal(t, Result{}, result, "no partial results")

	var navErr *NavigationError
	require.ErrorAs(t, err, &navErr)
	require.Equal(t, "NOPE0000", navErr.CourseCode)
	assertClosedOnce(t, launcher)
}

func TestScrapeCoursesSessionFailures(t *testing.T) {
	courses := []TargetCourse{
		{CourseCode: "COMP1511", TargetClassIDs: []string{"9301"}},
		{CourseCode: "COMP1511", TargetClassIDs: []string{"9313"}},
	}
	launchErr := errors.New("chrome failed to start: exec: \"chromium\": executable file not found in $PATH")

	testCases := []struct {
		name    string
		setup   func(l *browsertest.Launcher)
		op      string
		session bool
	}{
		{
			name:  "launch",
			setup: func(l *browsertest.Launcher) { l.LaunchErr = launchErr },
			op:    "launch",
		},
		{
			name: "new page",
			setup: func(l *browsertest.Launcher) {
				l.NewPageErr = errors.New("target crashed")
				l.FailAfterPages = 1
			},
			op:      "new page",
			session: true,
		},
		{
			name:    "intercept",
			setup:   func(l *browsertest.Launcher) { l.InterceptErr = errors.New("fetch.enable failed") },
			op:      "intercept",
			session: true,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			launcher := browsertest.NewLauncher(comp1511Fixtures())
			test.setup(launcher)
			scraper := newTestScraper(launcher, Config{})

			result, err := scraper.ScrapeCourses(context.Background(), 2025, "T1", courses)
			require.Equal(t, Result{}, result)
			require.ErrorIs(t, err, ErrSession)
			require.Equal(t, KindSession, FailureKind(err))

			var sessionErr *SessionError
			require.ErrorAs(t, err, &sessionErr)
			require.Equal(t, test.op, sessionErr.Op)

			require.Equal(t, 1, launcher.Launches())
			require.Empty(t, launcher.Visited())
			if test.session {
				assertClosedOnce(t, launcher)
			} else {
				require.Nil(t, launcher.LastSession())
				require.Equal(t, 0, launcher.Closes())
			}
		})
	}
}

func TestScrapeCoursesRunTimeout(t *testing.T) {
	fixtures := comp1511Fixtures()
	fixture := fixtures[testBaseURL+"/2025/COMP1511.html"]
	fixture.Block = make(chan struct{})
	fixtures[testBaseURL+"/2025/COMP1511.html"] = fixture

	launcher := browsertest.NewLauncher(fixtures)
	scraper := newTestScraper(launcher, Config{})
	scraper.runTimeout = 50 * time.Millisecond

	_, err := scraper.ScrapeCourses(context.Background(), 2025, "T1", []TargetCourse{
		{CourseCode: "COMP1511", TargetClassIDs: []string{"9301"}},
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, err, ErrNavigation)
	require.Equal(t, KindTimeout, FailureKind(err))
	assertClosedOnce(t, launcher)
}

func TestScrapeCoursesNavigationTimeout(t *testing.T) {
	fixtures := comp1511Fixtures()
	fixture := fixtures[testBaseURL+"/2025/COMP1511.html"]
	fixture.Block = make(chan struct{})
	fixtures[testBaseURL+"/2025/COMP1511.html"] = fixture

	launcher := browsertest.NewLauncher(fixtures)
	scraper := newTestScraper(launcher, Config{})
	scraper.navigationTimeout = 50 * time.Millisecond

	_, err := scraper.ScrapeCourses(context.Background(), 2025, "T1", []TargetCourse{
		{CourseCode: "COMP1511", TargetClassIDs: []string{"9301"}},
	})
	require.Equal(t, KindTimeout, FailureKind(err))
	assertClosedOnce(t, launcher)
}

func TestScrapeCoursesFailureCancelsOthers(t *testing.T) {
	fixtures := comp1511Fixtures()
	fixtures[testBaseURL+"/2025/SLOW1000.html"] = browsertest.Fixture{Block: make(chan struct{})}
	launcher := browsertest.NewLauncher(fixtures)
	scraper := newTestScraper(launcher, Config{})

	_, err := scraper.ScrapeCourses(context.Background(), 2025, "T1", []TargetCourse{
		{CourseCode: "SLOW1000", TargetClassIDs: []string{"1"}},
		{CourseCode: "NOPE0000", TargetClassIDs: []string{"1"}},
	})
	// SLOW1000 only returns because the failed scan cancelled it
	var navErr *NavigationError
	require.ErrorAs(t, err, &navErr)
	require.Equal(t, "NOPE0000", navErr.CourseCode)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	assertClosedOnce(t, launcher)
}
