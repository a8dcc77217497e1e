package timetable

import (
	"encoding/json"
	"time"
)

// TermCode is the token the timetable site embeds in class anchors,
// "S1" in href="#S1-9301".
type TermCode string

// Href is the anchor fragment of one class in this term.
func (c TermCode) Href(classID string) string {
	return "#" + string(c) + "-" + classID
}

type TargetCourse struct {
	CourseCode     string   `json:"courseCode"`
	TargetClassIDs []string `json:"targetClassIDs"`
}

// ClassRecord is only ever produced for a class with seats left, a full or
// missing class is simply absent from the result.
type ClassRecord struct {
	CourseCode string `json:"courseCode"`
	ClassID    string `json:"classID"`
	IsOpen     bool   `json:"isOpen"`
	Date       string `json:"date"`
	Activity   string `json:"activity"`
}

type Result struct {
	// grouped by course in the order the courses were given
	Classes     []ClassRecord
	LastUpdated time.Time
}

type resultJSON struct {
	Classes     []ClassRecord `json:"listOfClasses"`
	LastUpdated int64         `json:"lastUpdated"`
}

// MarshalJSON writes lastUpdated as unix milliseconds.
func (r Result) MarshalJSON() ([]byte, error) {
	classes := r.Classes
	if classes == nil {
		classes = []ClassRecord{}
	}
	return json.Marshal(resultJSON{
		Classes:     classes,
		LastUpdated: r.LastUpdated.UnixMilli(),
	})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}
	r.Classes = raw.Classes
	r.LastUpdated = time.UnixMilli(raw.LastUpdated)
	return nil
}
