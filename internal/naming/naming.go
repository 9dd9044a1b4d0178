// Package naming parses and builds archive file names of the form
//
//	yyyy-MM-dd--specification__tag1_tag2.pdf
//
// and extracts dates and tag suggestions from free text. Nothing in this
// package returns an error: unrecognised input yields empty fields.
package naming

import (
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Placeholders keep the file name grammar intact for documents that have no
// specification or tags yet. Consumers strip them with StripPlaceholders.
const (
	SpecificationPlaceholder = "pdfarchiver-description"
	TagPlaceholder           = "pdfarchiver-tag"
)

// Extension is the file extension written by CreateFilename.
const Extension = ".pdf"

const dayLayout = "2006-01-02"

var (
	canonicalDateRe = regexp.MustCompile(`([\d-]+)--`)
	specificationRe = regexp.MustCompile(`--([\p{L}\p{N}-]+)__`)
	tagsRe          = regexp.MustCompile(`(?i)__([\p{L}\p{N}_-]+)\.pdf$`)
	extensionRe     = regexp.MustCompile(`\.[\p{L}\p{N}]{1,5}$`)
	edgeRe          = regexp.MustCompile(`^[^\p{L}\p{N}]+|[^\p{L}\p{N}]+$`)
	dashesRe        = regexp.MustCompile(`-{2,}`)
	spacesRe        = regexp.MustCompile(`\s{2,}`)
)

// ParsedFilename is the metadata encoded in a file name.
type ParsedFilename struct {
	// Date is zero when the name carries no recognisable date.
	Date time.Time `json:"date"`
	// Specification is empty when absent.
	Specification string `json:"specification,omitempty"`
	// Tags is nil when the name has no tag segment. Order is as written.
	Tags []string `json:"tags,omitempty"`
}

// HasDate reports whether a date was found.
func (p ParsedFilename) HasDate() bool {
	return !p.Date.IsZero()
}

// ParseFilename extracts date, specification and tags from filename using
// the system locale for month-name dates.
func ParseFilename(filename string) ParsedFilename {
	return defaultDateParser().ParseFilename(filename)
}

// ParseFilename extracts date, specification and tags from filename.
func (p *DateParser) ParseFilename(filename string) ParsedFilename {
	name := norm.NFC.String(filename)
	var out ParsedFilename

	rawDate, dateAt := "", -1
	if m := canonicalDateRe.FindStringSubmatchIndex(name); m != nil {
		if d, err := time.Parse(dayLayout, name[m[2]:m[3]]); err == nil {
			out.Date, rawDate, dateAt = d, name[m[2]:m[3]], m[2]
		}
	}
	if rawDate == "" {
		if c, ok := p.Parse(name); ok {
			out.Date, rawDate, dateAt = c.Date, c.Raw, c.Offset
		}
	}

	if m := specificationRe.FindStringSubmatch(name); m != nil {
		out.Specification = m[1]
	} else {
		out.Specification = looseSpecification(name, rawDate, dateAt)
	}

	if m := tagsRe.FindStringSubmatch(name); m != nil {
		for _, t := range strings.Split(m[1], "_") {
			if t != "" {
				out.Tags = append(out.Tags, t)
			}
		}
	}
	return out
}

// looseSpecification derives a specification from a name that does not
// follow the convention: the date at dateAt and the extension are dropped,
// anything from "__" on is treated as tags, and "_" is reserved for tags.
func looseSpecification(name, rawDate string, dateAt int) string {
	rest := name
	if rawDate != "" && dateAt >= 0 && dateAt+len(rawDate) <= len(name) {
		rest = name[:dateAt] + name[dateAt+len(rawDate):]
	}
	rest = extensionRe.ReplaceAllString(rest, "")
	rest, _, _ = strings.Cut(rest, "__")
	rest = strings.ReplaceAll(rest, "_", "-")
	rest = spacesRe.ReplaceAllString(rest, " ")
	return edgeRe.ReplaceAllString(rest, "")
}

// CreateFilename builds the canonical name for a document. Tags are sorted
// and deduplicated; missing specification or tags are replaced by the
// placeholders.
func CreateFilename(date time.Time, specification string, tags []string) string {
	spec := Slugify(specification)
	if spec == "" {
		spec = SpecificationPlaceholder
	}
	names := NormalizeTags(tags)
	if len(names) == 0 {
		names = []string{TagPlaceholder}
	}
	return date.Format(dayLayout) + "--" + spec + "__" + strings.Join(names, "_") + Extension
}

// Slugify turns free text into a specification segment: every run of
// characters other than letters, digits and "-" becomes a single "-".
func Slugify(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	out := dashesRe.ReplaceAllString(b.String(), "-")
	return strings.Trim(out, "-")
}

// NormalizeTags lowercases tags, drops characters that cannot appear in a
// tag segment and returns the sorted, deduplicated result.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(norm.NFC.String(t))
		t = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
				return r
			}
			return -1
		}, t)
		t = strings.Trim(t, "-")
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// StripPlaceholders clears placeholder values written by CreateFilename.
func StripPlaceholders(p ParsedFilename) ParsedFilename {
	if p.Specification == SpecificationPlaceholder {
		p.Specification = ""
	}
	if p.Tags != nil {
		tags := make([]string, 0, len(p.Tags))
		for _, t := range p.Tags {
			if t != TagPlaceholder {
				tags = append(tags, t)
			}
		}
		p.Tags = tags
	}
	return p
}

// IsComplete reports whether the parsed name describes a fully tagged
// document: a date, a real specification and at least one real tag.
func IsComplete(p ParsedFilename) bool {
	p = StripPlaceholders(p)
	return p.HasDate() && p.Specification != "" && len(p.Tags) > 0
}
