package naming

import (
	"regexp"
	"sort"
	"sync"
	"time"
)

// DateCandidate is one date found in a piece of text.
type DateCandidate struct {
	Date   time.Time `json:"date"`
	Raw    string    `json:"raw"`
	Layout string    `json:"layout"`
	Offset int       `json:"offset"`
}

// end returns the byte offset just past the matched text.
func (c DateCandidate) end() int {
	return c.Offset + len(c.Raw)
}

// datePattern is one row of the numeric pattern table. The date itself is
// always capture group 1; the surrounding groups only assert that the
// match is not glued to further digits.
type datePattern struct {
	name   string
	re     *regexp.Regexp
	layout string
}

// numericPatterns is tried top to bottom. The order resolves ambiguous
// inputs: "20150203" is yyyyMMdd, "02.03.2015" is dd.MM.yyyy.
var numericPatterns = []datePattern{
	{name: "yyyy-MM-dd", re: regexp.MustCompile(`(?:^|\D)(\d{4}-\d{2}-\d{2})(?:\D|$)`), layout: "2006-01-02"},
	{name: "yyyy_MM_dd", re: regexp.MustCompile(`(?:^|\D)(\d{4}_\d{2}_\d{2})(?:\D|$)`), layout: "2006_01_02"},
	{name: "yyyyMMdd", re: regexp.MustCompile(`(?:^|\D)(\d{8})(?:\D|$)`), layout: "20060102"},
	{name: "dd.MM.yyyy", re: regexp.MustCompile(`(?:^|\D)(\d{2}\.\d{2}\.\d{4})(?:\D|$)`), layout: "02.01.2006"},
	{name: "d.MM.yyyy", re: regexp.MustCompile(`(?:^|\D)(\d\.\d{2}\.\d{4})(?:\D|$)`), layout: "2.01.2006"},
	{name: "dd-MM-yyyy", re: regexp.MustCompile(`(?:^|\D)(\d{2}-\d{2}-\d{4})(?:\D|$)`), layout: "02-01-2006"},
	{name: "MM/dd/yyyy", re: regexp.MustCompile(`(?:^|\D)(\d{2}/\d{2}/\d{4})(?:\D|$)`), layout: "01/02/2006"},
}

// DateParser finds calendar dates in filenames and free text.
//
// Numeric patterns are tried in priority order; the natural-language
// strategy ("12. März 2020", "March 12, 2020") only runs when none of them
// produced a valid date.
type DateParser struct {
	patterns []datePattern
	natural  *naturalStrategy
}

// NewDateParser returns a parser whose natural-language strategy tries the
// given locale identifiers (e.g. "de_DE", "en-US") in order.
func NewDateParser(locales ...string) *DateParser {
	return &DateParser{
		patterns: numericPatterns,
		natural:  newNaturalStrategy(locales),
	}
}

// Locales returns the resolved natural-language locales in try order.
func (p *DateParser) Locales() []string {
	out := make([]string, len(p.natural.locales))
	for i, l := range p.natural.locales {
		out[i] = string(l)
	}
	return out
}

// Parse returns the best date in text: the leftmost valid match of the
// first pattern that yields one.
func (p *DateParser) Parse(text string) (DateCandidate, bool) {
	for _, pat := range p.patterns {
		var found DateCandidate
		ok := false
		scan(pat.re, text, func(start, end int) bool {
			raw := text[start:end]
			d, err := time.Parse(pat.layout, raw)
			if err != nil {
				return true
			}
			found = DateCandidate{Date: d, Raw: raw, Layout: pat.name, Offset: start}
			ok = true
			return false
		})
		if ok {
			return found, true
		}
	}
	return p.natural.first(text)
}

// ParseAll returns every valid, non-overlapping date in text ordered by
// position. Higher-priority patterns claim their text first.
func (p *DateParser) ParseAll(text string) []DateCandidate {
	var out []DateCandidate
	for _, pat := range p.patterns {
		scan(pat.re, text, func(start, end int) bool {
			raw := text[start:end]
			d, err := time.Parse(pat.layout, raw)
			if err != nil {
				return true
			}
			c := DateCandidate{Date: d, Raw: raw, Layout: pat.name, Offset: start}
			if !overlaps(out, c) {
				out = append(out, c)
			}
			return true
		})
	}
	for _, c := range p.natural.all(text) {
		if !overlaps(out, c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

func overlaps(accepted []DateCandidate, c DateCandidate) bool {
	for _, a := range accepted {
		if c.Offset < a.end() && a.Offset < c.end() {
			return true
		}
	}
	return false
}

// scan calls fn with the bounds of capture group 1 for every match of re in
// text. Scanning resumes right after the group rather than after the whole
// match, so a delimiter shared by two adjacent dates is not swallowed.
// fn returns false to stop.
func scan(re *regexp.Regexp, text string, fn func(start, end int) bool) {
	pos := 0
	for pos < len(text) {
		loc := re.FindStringSubmatchIndex(text[pos:])
		if loc == nil || loc[2] < 0 {
			return
		}
		start, end := pos+loc[2], pos+loc[3]
		if !fn(start, end) {
			return
		}
		pos = end
	}
}

var defaultDateParser = sync.OnceValue(func() *DateParser {
	return NewDateParser(SystemLocales()...)
})

// ParseDate finds the best date in text using the system locale.
func ParseDate(text string) (DateCandidate, bool) {
	return defaultDateParser().Parse(text)
}

// ParseDates finds all dates in text using the system locale.
func ParseDates(text string) []DateCandidate {
	return defaultDateParser().ParseAll(text)
}
