package classwatch

import (
	"github.com/Haydos1210/ClassAvailabilityUNSW/lib/telemetry"
)

var tracer = telemetry.Tracer("classwatch.services.classwatch")
