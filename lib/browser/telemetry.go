package browser

import (
	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/telemetry"
)

var tracer = telemetry.Tracer("classwatch.lib.browser")
