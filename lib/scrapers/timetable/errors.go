package timetable

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrTermResolution = errors.New("unrecognized term")
	ErrSession        = errors.New("browser session failure")
	ErrNavigation     = errors.New("course page failed to load")
)

type TermError struct {
	Term string
}

func (e *TermError) Error() string {
	return fmt.Sprintf("resolve term %q: %s", e.Term, ErrTermResolution)
}

func (e *TermError) Is(target error) bool {
	return target == ErrTermResolution
}

// SessionError is a failure to launch the browser or prepare one of its pages.
type SessionError struct {
	// launch, new page or intercept
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrSession, e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func (e *SessionError) Is(target error) bool {
	return target == ErrSession
}

type NavigationError struct {
	CourseCode string
	URL        string
	// 0 when the document never answered
	Status int64
	Err    error
}

func (e *NavigationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s (%s): status %d", ErrNavigation, e.CourseCode, e.URL, e.Status)
	}
	return fmt.Sprintf("%s: %s (%s): %v", ErrNavigation, e.CourseCode, e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

func (e *NavigationError) Is(target error) bool {
	return target == ErrNavigation
}

const (
	KindTerm       = "term"
	KindSession    = "session"
	KindNavigation = "navigation"
	KindTimeout    = "timeout"
	KindInternal   = "internal"
)

// FailureKind classifies a ScrapeCourses error for callers that need to
// branch on it, a deadline anywhere in the chain wins.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrTermResolution):
		return KindTerm
	case errors.Is(err, ErrSession):
		return KindSession
	case errors.Is(err, ErrNavigation):
		return KindNavigation
	default:
		return KindInternal
	}
}
