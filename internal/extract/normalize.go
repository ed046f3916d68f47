package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// yearPattern matches a standalone four-digit token "20" followed by two
// digits. Years are visually unambiguous tokens, unlike department or
// subject names, so a deterministic backstop beats asking the model twice.
var yearPattern = regexp.MustCompile(`\b(20\d{2})\b`)

// FallbackYear returns the first year token in text, or nil.
func FallbackYear(text string) *int {
	m := yearPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &y
}

// departmentAliases maps common short codes and spellings to the canonical
// stored representation: the full department name, lower-cased. The table is
// applied deterministically after every model call, at ingestion and at
// query translation, so both sides of a search agree on the representation.
var departmentAliases = map[string]string{
	"cs":               "computer science and engineering",
	"cse":              "computer science and engineering",
	"computer science": "computer science and engineering",
	"ece":              "electronics and communication engineering",
	"eee":              "electrical and electronics engineering",
	"it":               "information technology",
	"mech":             "mechanical engineering",
	"mechanical":       "mechanical engineering",
	"civil":            "civil engineering",
	"chem":             "chemical engineering",
	"chemical":         "chemical engineering",
	"aero":             "aeronautical engineering",
	"biotech":          "biotechnology",
	"maths":            "mathematics",
}

// CanonicalDepartment lower-cases the department and expands known
// abbreviations through the alias table. Unknown values pass through
// lower-cased and trimmed.
func CanonicalDepartment(dept string) string {
	d := strings.ToLower(strings.TrimSpace(dept))
	if canonical, ok := departmentAliases[d]; ok {
		return canonical
	}
	return d
}

// Normalize applies the deterministic post-processing pass to a model
// result, in place. It runs even when res.Err is set so that a failed
// completion still recovers whatever the raw text gives away:
//
//   - a string-typed year has already been coerced at parse time; if the
//     model reported no usable year, the first "20dd" token in the raw text
//     is used instead. A year the model did report is never overridden.
//   - subject is lower-cased.
//   - department is canonicalized through the alias table.
func Normalize(res *Result, rawText string) {
	if res.Year == nil {
		res.Year = FallbackYear(rawText)
	}
	res.Subject = strings.ToLower(strings.TrimSpace(res.Subject))
	res.Department = CanonicalDepartment(res.Department)
}
