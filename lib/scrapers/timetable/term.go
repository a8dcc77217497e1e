package timetable

import "regexp"

const summerTerm = "SUMMER"
const summerCode TermCode = "X1"

var standardTerm = regexp.MustCompile(`^T([1-3])$`)

// ResolveTerm maps "SUMMER" to X1 and T1..T3 to S1..S3. Matching is exact,
// "t1" or " T1" are not terms.
func ResolveTerm(term string) (TermCode, error) {
	if term == summerTerm {
		return summerCode, nil
	}
	match := standardTerm.FindStringSubmatch(term)
	if match == nil {
		return "", &TermError{Term: term}
	}
	return TermCode("S" + match[1]), nil
}
