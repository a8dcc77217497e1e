package timetable

import (
	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/telemetry"

	"go.opentelemetry.io/otel/metric"
)

var tracer = telemetry.Tracer("classwatch.lib.scrapers.timetable")
var meter = telemetry.Meter("classwatch.lib.scrapers.timetable")

var runCounter, _ = meter.Int64Counter(
	"scrape_runs",
	metric.WithDescription("Scrape runs by outcome."),
)
var runDuration, _ = meter.Float64Histogram(
	"scrape_duration_seconds",
	metric.WithUnit("s"),
)
var openClasses, _ = meter.Int64Histogram(
	"open_classes",
	metric.WithDescription("Open classes found per successful run."),
)
