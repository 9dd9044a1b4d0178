package naming

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/goodsign/monday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// fallbackLocale is always tried last by the natural-language strategy.
const fallbackLocale = monday.LocaleEnUS

var (
	// 12. März 2020, 3. Okt. 2021, 1.Jan 2019
	dayMonthYearRe = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(\d{1,2})\.\s*(\p{L}{3,})\.?\s+(\d{4})(?:\D|$)`)
	// March 12, 2020
	monthDayYearRe = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(\p{L}{3,})\.?\s+(\d{1,2}),\s*(\d{4})(?:\D|$)`)
)

type naturalForm struct {
	name    string
	re      *regexp.Regexp
	layouts []string
	// monthFirst is set when group 1 holds the month name.
	monthFirst bool
	// compose rebuilds the normalised value from the day, month and year groups.
	compose func(day, month, year string) string
}

var naturalForms = []naturalForm{
	{
		name:    "d. MMMM yyyy",
		re:      dayMonthYearRe,
		layouts: []string{"2. January 2006", "2. Jan 2006"},
		compose: func(d, m, y string) string { return d + ". " + m + " " + y },
	},
	{
		name:       "MMMM d, yyyy",
		re:         monthDayYearRe,
		layouts:    []string{"January 2, 2006", "Jan 2, 2006"},
		monthFirst: true,
		compose:    func(d, m, y string) string { return m + " " + d + ", " + y },
	},
}

// naturalStrategy parses month-name dates against an ordered locale list.
type naturalStrategy struct {
	locales []monday.Locale
}

func newNaturalStrategy(ids []string) *naturalStrategy {
	return &naturalStrategy{locales: ResolveLocales(ids)}
}

func (s *naturalStrategy) first(text string) (DateCandidate, bool) {
	for _, form := range naturalForms {
		var found DateCandidate
		ok := false
		s.scanForm(form, text, func(c DateCandidate) bool {
			found, ok = c, true
			return false
		})
		if ok {
			return found, true
		}
	}
	return DateCandidate{}, false
}

func (s *naturalStrategy) all(text string) []DateCandidate {
	var out []DateCandidate
	for _, form := range naturalForms {
		s.scanForm(form, text, func(c DateCandidate) bool {
			out = append(out, c)
			return true
		})
	}
	return out
}

func (s *naturalStrategy) scanForm(form naturalForm, text string, fn func(DateCandidate) bool) {
	pos := 0
	for pos < len(text) {
		loc := form.re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			return
		}
		g := func(i int) string { return text[pos+loc[2*i] : pos+loc[2*i+1]] }
		var day, month, year string
		if form.monthFirst {
			month, day, year = g(1), g(2), g(3)
		} else {
			day, month, year = g(1), g(2), g(3)
		}
		start, end := pos+loc[2], pos+loc[7]
		if d, ok := s.parse(form, day, month, year); ok {
			c := DateCandidate{Date: d, Raw: text[start:end], Layout: form.name, Offset: start}
			if !fn(c) {
				return
			}
		}
		pos = end
	}
}

// parse tries every locale in order; a locale that does not know the month
// name simply fails and the next one is tried.
func (s *naturalStrategy) parse(form naturalForm, day, month, year string) (time.Time, bool) {
	for _, locale := range s.locales {
		value := form.compose(day, titleWord(month, locale), year)
		for _, layout := range form.layouts {
			d, err := monday.ParseInLocation(layout, value, time.UTC, locale)
			if err == nil {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

func titleWord(word string, locale monday.Locale) string {
	tag, err := language.Parse(strings.ReplaceAll(string(locale), "_", "-"))
	if err != nil {
		tag = language.Und
	}
	return cases.Title(tag).String(word)
}

// ResolveLocales maps locale identifiers such as "de_DE", "de-AT",
// "en_US.UTF-8" or "fr" onto the month-name tables that are available.
// Unknown identifiers are dropped. The English fallback is appended unless
// already present.
func ResolveLocales(ids []string) []monday.Locale {
	known := make(map[string]monday.Locale)
	byBase := make(map[string]monday.Locale)
	for _, l := range monday.ListLocales() {
		known[string(l)] = l
		base, _, _ := strings.Cut(string(l), "_")
		if _, ok := byBase[base]; !ok {
			byBase[base] = l
		}
	}

	seen := make(map[monday.Locale]struct{})
	var out []monday.Locale
	add := func(l monday.Locale) {
		if _, dup := seen[l]; dup {
			return
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}

	for _, id := range ids {
		tag, err := language.Parse(cleanLocaleID(id))
		if err != nil {
			continue
		}
		base, _ := tag.Base()
		region, _ := tag.Region()
		if l, ok := known[base.String()+"_"+region.String()]; ok {
			add(l)
			continue
		}
		if l, ok := byBase[base.String()]; ok {
			add(l)
		}
	}
	add(fallbackLocale)
	return out
}

// cleanLocaleID strips POSIX encoding and modifier suffixes.
func cleanLocaleID(id string) string {
	id, _, _ = strings.Cut(id, ".")
	id, _, _ = strings.Cut(id, "@")
	return strings.ReplaceAll(strings.TrimSpace(id), "_", "-")
}

// SystemLocales returns the locale configured in the process environment.
func SystemLocales() []string {
	for _, key := range []string{"LC_ALL", "LC_TIME", "LANG"} {
		v := os.Getenv(key)
		if v == "" || v == "C" || v == "POSIX" || strings.HasPrefix(v, "C.") {
			continue
		}
		return []string{v}
	}
	return nil
}
