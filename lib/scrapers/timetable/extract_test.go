package timetable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocateRow(t *testing.T) {
	doc := parseHTML(t, courseHTML(
		fixtureClass{id: "9301", activity: "Lecture", status: "Open", date: "17-FEB-2025"},
	))

	row, ok := LocateRow(doc, "#S1-9301")
	require.True(t, ok)
	require.Len(t, row.Cells, 7)

	cell, ok := row.Cell(dateCell)
	require.True(t, ok)
	require.Equal(t, "17-FEB-2025", cell.Text())

	_, ok = row.Cell(7)
	require.False(t, ok)
	_, ok = row.Cell(-1)
	require.False(t, ok)

	_, ok = LocateRow(doc, "#S1-0000")
	require.False(t, ok)
	_, ok = LocateRow(doc, "#S2-9301")
	require.False(t, ok, "href must match exactly")
}

func TestExtractClass(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		classID  string
		expected ClassRecord
		found    bool
	}{
		{
			name: "open",
			html: courseHTML(
				fixtureClass{id: "9301", activity: "Lecture", status: "Open", date: "17-FEB-2025"},
			),
			classID: "9301",
			expected: ClassRecord{
				CourseCode: "COMP1511",
				ClassID:    "9301",
				IsOpen:     true,
				Date:       "17-FEB-2025",
				Activity:   "Lecture",
			},
			found: true,
		},
		{
			name: "full",
			html: courseHTML(
				fixtureClass{id: "9313", activity: "Tutorial", status: "-", date: "17-FEB-2025"},
			),
			classID: "9313",
		},
		{
			name: "empty marker",
			html: courseHTML(
				fixtureClass{id: "9313", activity: "Tutorial", status: "", date: "17-FEB-2025"},
			),
			classID: "9313",
		},
		{
			name: "missing anchor",
			html: courseHTML(
				fixtureClass{id: "9301", activity: "Lecture", status: "Open", date: "17-FEB-2025"},
			),
			classID: "9999",
		},
		{
			name: "text is not trimmed",
			html: courseHTML(
				fixtureClass{id: "9320", activity: " Laboratory ", status: "Open*", date: "\n  17-FEB-2025\n"},
			),
			classID: "9320",
			expected: ClassRecord{
				CourseCode: "COMP1511",
				ClassID:    "9320",
				IsOpen:     true,
				Date:       "\n  17-FEB-2025\n",
				Activity:   " Laboratory ",
			},
			found: true,
		},
		{
			name: "short row",
			html: `<html><body><table>
<tr><td><a href="#S1-9301">Lecture</a></td><td>T11A</td><td>9301</td></tr>
</table></body></html>`,
			classID: "9301",
		},
		{
			name: "no date cell",
			html: `<html><body><table>
<tr><td><a href="#S1-9301">Lecture</a></td><td></td><td></td><td></td>
<td><font color="green">Open</font></td></tr>
</table></body></html>`,
			classID: "9301",
		},
		{
			name: "anchor outside the activity cell",
			html: `<html><body><table>
<tr><td>Lecture</td><td><a href="#S1-9301">T11A</a></td><td></td><td></td>
<td><font color="green">Open</font></td><td></td><td>17-FEB-2025</td></tr>
</table></body></html>`,
			classID: "9301",
		},
		{
			name:    "anchor too shallow for a row",
			html:    `<html><body><a href="#S1-9301">Lecture</a></body></html>`,
			classID: "9301",
		},
		{
			name: "marker outside the status cell",
			html: `<html><body><table>
<tr><td><a href="#S1-9301">Lecture</a></td><td><font color="green">Open</font></td>
<td></td><td></td><td>Full</td><td></td><td>17-FEB-2025</td></tr>
</table></body></html>`,
			classID: "9301",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			doc := parseHTML(t, test.html)
			record, ok := ExtractClass(context.Background(), doc, "COMP1511", "S1", test.classID)
			require.Equal(t, test.found, ok)
			require.Equal(t, test.expected, record)
		})
	}
}

func TestExtractClassFirstAnchorWins(t *testing.T) {
	doc := parseHTML(t, courseHTML(
		fixtureClass{id: "9301", activity: "Lecture", status: "-", date: "17-FEB-2025"},
		fixtureClass{id: "9301", activity: "Lecture", status: "Open", date: "24-FEB-2025"},
	))

	// the first row is full, the duplicate further down is never looked at
	_, ok := ExtractClass(context.Background(), doc, "COMP1511", "S1", "9301")
	require.False(t, ok)
}
