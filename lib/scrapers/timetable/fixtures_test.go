package timetable

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const testBaseURL = "http://timetable.test"

type fixtureClass struct {
	id       string
	activity string
	// green marker text, "" renders an empty marker, "-" renders a red Full
	status string
	date   string
}

// courseHTML renders a class table shaped like the timetable site's
// course pages for term S1.
func courseHTML(classes ...fixtureClass) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>COMP1511</title></head><body>
<table class="formBody"><tr><td class="sectionHeading">Class Detail</td></tr></table>
<table class="classTable">
<tr class="rowHighlight">
<td class="tableHeading">Activity</td><td class="tableHeading">Section</td>
<td class="tableHeading">Class</td><td class="tableHeading">Type</td>
<td class="tableHeading">Status</td><td class="tableHeading">Enrols/Capacity</td>
<td class="tableHeading">Offering Period</td>
</tr>
`)
	for _, class := range classes {
		status := fmt.Sprintf(`<font color="green">%s</font>`, class.status)
		if class.status == "-" {
			status = `<font color="red">Full</font>`
		}
		fmt.Fprintf(&b, `<tr class="rowLowlight">
<td class="data"><a href="#S1-%s">%s</a></td>
<td class="data">T11A</td>
<td class="data">%s</td>
<td class="data">In Person</td>
<td class="data">%s</td>
<td class="data">120/300</td>
<td class="data">%s</td>
</tr>
`, class.id, class.activity, class.id, status, class.date)
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

func parseHTML(t testing.TB, contents string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contents))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}
