package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Australia/Sydney")
	if err != nil {
		panic(err)
	}
}

// the timetable is published in Sydney time, pin the clock there so
// year rollovers and lastUpdated stamps don't depend on where the
// server happens to run.
func Now() time.Time {
	return time.Now().In(Location)
}

// CurrentYear is the timetable year the site would show today.
func CurrentYear() int {
	return Now().Year()
}
