// Package classwatch exposes the timetable scraper as a small JSON API.
package classwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/scrapers/timetable"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// request bodies are a handful of course codes, anything bigger is a mistake
const maxBodyBytes = 1 << 20

type Scraper interface {
	ScrapeCourses(ctx context.Context, year int, term string, courses []timetable.TargetCourse) (timetable.Result, error)
}

type ScrapeRequest struct {
	Year    int                      `json:"year"`
	Term    string                   `json:"term"`
	Courses []timetable.TargetCourse `json:"courses"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type Service struct {
	scraper Scraper
}

func NewService(scraper Scraper) Service {
	return Service{scraper: scraper}
}

// Register mounts the service's routes on mux.
func (s Service) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /hello", s.hello)
	mux.HandleFunc("POST /v1/scrape", s.scrape)
	mux.HandleFunc("OPTIONS /", preflight)
}

// WithCORS lets browser clients on any origin call the API.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("access-control-allow-origin", "*")
		next.ServeHTTP(w, r)
	})
}

func preflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("access-control-allow-methods", "GET,POST,OPTIONS")
	w.Header().Set("access-control-allow-headers", "content-type")
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.WarnContext(ctx, "failed to write response", "err", err)
	}
}

func (s Service) hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"message": "Hello world"})
}

func statusOf(kind string) int {
	switch kind {
	case timetable.KindTerm:
		return http.StatusBadRequest
	case timetable.KindTimeout:
		return http.StatusGatewayTimeout
	case timetable.KindSession, timetable.KindNavigation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeRequest(r *http.Request) (ScrapeRequest, error) {
	var req ScrapeRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	err := decoder.Decode(&req)
	if err != nil {
		return req, fmt.Errorf("malformed request body: %w", err)
	}
	if req.Year <= 0 {
		return req, errors.New("year is required")
	}
	for _, course := range req.Courses {
		if course.CourseCode == "" {
			return req, errors.New("every course needs a courseCode")
		}
	}
	return req, nil
}

func (s Service) scrape(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "Scrape")
	defer span.End()

	req, err := decodeRequest(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad request")
		writeJSON(ctx, w, http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Kind:  "request",
		})
		return
	}
	span.SetAttributes(
		attribute.Int("year", req.Year),
		attribute.String("term", req.Term),
		attribute.Int("courses", len(req.Courses)),
	)

	result, err := s.scraper.ScrapeCourses(ctx, req.Year, req.Term, req.Courses)
	if err != nil {
		kind := timetable.FailureKind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "scrape failed")
		writeJSON(ctx, w, statusOf(kind), ErrorResponse{
			Error: err.Error(),
			Kind:  kind,
		})
		return
	}
	writeJSON(ctx, w, http.StatusOK, result)
}
