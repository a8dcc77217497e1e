package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t testing.TB, contents string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contents))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestGetText(t *testing.T) {
	doc := parse(t, `<div id="x"> Lecture <b>A</b><i> (online)</i>
</div>`)
	require.Equal(t, " Lecture A (online)\n", SelectionText(doc.Find("#x")))
	require.Equal(t, "", SelectionText(doc.Find("#missing")))
}

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{in: "  Mon 10:00 - 12:00  \n", expected: "Mon 10:00 - 12:00"},
		{in: "Lecture\n\t\tWeeks 1-5", expected: "Lecture Weeks 1-5"},
		{in: "", expected: ""},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, NormalizeText(test.in))
	}
}

func TestFindAnchor(t *testing.T) {
	doc := parse(t, `<body>
		<a href="#S1-9301x">wrong</a>
		<a href="#S2-9301">other term</a>
		<a href="#S1-9301">first</a>
		<a href="#S1-9301">second</a>
	</body>`)

	anchor := FindAnchor(doc.Selection, "#S1-9301")
	require.Equal(t, 1, anchor.Length())
	require.Equal(t, "first", anchor.Text())

	require.Equal(t, 0, FindAnchor(doc.Selection, "#X1-9301").Length())
}

func TestAncestor(t *testing.T) {
	doc := parse(t, `<table><tbody><tr id="row"><td id="cell"><a id="link" href="#">x</a></td></tr></tbody></table>`)

	row, ok := Ancestor(doc.Find("#link"), 2)
	require.True(t, ok)
	require.Equal(t, "row", row.AttrOr("id", ""))

	_, ok = Ancestor(doc.Find("#missing"), 1)
	require.False(t, ok)

	// html -> document node has no element parent
	_, ok = Ancestor(doc.Find("html"), 2)
	require.False(t, ok)
}
