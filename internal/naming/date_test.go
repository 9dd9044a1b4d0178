package naming

import (
	"testing"
	"time"

	"github.com/goodsign/monday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate_Numeric(t *testing.T) {
	p := NewDateParser("en_US")

	tests := []struct {
		input  string
		want   time.Time
		layout string
	}{
		{"20150203", day(2015, time.February, 3), "yyyyMMdd"},
		{"02.03.2015", day(2015, time.March, 2), "dd.MM.yyyy"},
		{"2015-03-02", day(2015, time.March, 2), "yyyy-MM-dd"},
		{"scan_2015_03_02.pdf", day(2015, time.March, 2), "yyyy_MM_dd"},
		{"Berlin, 2.03.2015", day(2015, time.March, 2), "d.MM.yyyy"},
		{"due 14-03-2021", day(2021, time.March, 14), "dd-MM-yyyy"},
		{"03/14/2021", day(2021, time.March, 14), "MM/dd/yyyy"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := p.Parse(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Date)
			assert.Equal(t, tt.layout, got.Layout)
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	p := NewDateParser("en_US")
	for _, input := range []string{"2015-35-12", "20050232", "122005023212", "no date here", ""} {
		_, ok := p.Parse(input)
		assert.False(t, ok, "input %q", input)
	}
}

func TestParseDate_PatternPriorityBeatsPosition(t *testing.T) {
	got, ok := NewDateParser().Parse("paid 14-03-2021, booked 2021-03-20")
	require.True(t, ok)
	assert.Equal(t, day(2021, time.March, 20), got.Date)
	assert.Equal(t, "2021-03-20", got.Raw)
}

func TestParseDate_SkipsInvalidMatchOfSamePattern(t *testing.T) {
	got, ok := NewDateParser().Parse("ref 20051399 date 20051130")
	require.True(t, ok)
	assert.Equal(t, day(2005, time.November, 30), got.Date)
	assert.Equal(t, 18, got.Offset)
}

func TestParseDate_NaturalLanguage(t *testing.T) {
	got, ok := NewDateParser("de_DE").Parse("Berlin, den 12. März 2020")
	require.True(t, ok)
	assert.Equal(t, day(2020, time.March, 12), got.Date)
	assert.Equal(t, "12. März 2020", got.Raw)

	got, ok = NewDateParser().Parse("Invoice date: March 12, 2020")
	require.True(t, ok)
	assert.Equal(t, day(2020, time.March, 12), got.Date)
	assert.Equal(t, "MMMM d, yyyy", got.Layout)
}

func TestParseDate_WrongLocaleFallsThrough(t *testing.T) {
	_, ok := NewDateParser("fr_FR").Parse("12. März 2020")
	assert.False(t, ok)

	got, ok := NewDateParser("fr_FR", "de_DE").Parse("12. März 2020")
	require.True(t, ok)
	assert.Equal(t, day(2020, time.March, 12), got.Date)
}

func TestParseDates_LongText(t *testing.T) {
	text := `Musterfirma GmbH
Beispielstraße 12
10115 Berlin

Kundennummer: 123456
Rechnungsnummer: RE-4711

Rechnungsdatum: 20190412

Pos. Menge Beschreibung            Preis
1    2     Schreibtischlampe       1.234,56
2    10    Kabelbinder 300mm          12,90

Zwischensumme                   1.247,46
MwSt. 19%                         237,02
Gesamt                          1.484,48

Bitte überweisen Sie den Betrag innerhalb von 14 Tagen.
IBAN: DE89 3704 0044 0532 0130 00
Telefon: +49 30 1234567
`
	got := NewDateParser("de_DE").ParseAll(text)
	require.Len(t, got, 1)
	assert.Equal(t, day(2019, time.April, 12), got[0].Date)
	assert.Equal(t, "20190412", got[0].Raw)

	best, ok := NewDateParser("de_DE").Parse(text)
	require.True(t, ok)
	assert.Equal(t, got[0], best)
}

func TestParseDates_AdjacentDates(t *testing.T) {
	got := NewDateParser().ParseAll("2020-01-01 2020-01-31 and 05.02.2020")
	require.Len(t, got, 3)
	assert.Equal(t, day(2020, time.January, 1), got[0].Date)
	assert.Equal(t, day(2020, time.January, 31), got[1].Date)
	assert.Equal(t, day(2020, time.February, 5), got[2].Date)
	assert.Less(t, got[1].Offset, got[2].Offset)
}

func TestResolveLocales(t *testing.T) {
	got := ResolveLocales([]string{"de_DE.UTF-8", "en-US", "de"})
	assert.Equal(t, []monday.Locale{monday.LocaleDeDE, monday.LocaleEnUS}, got)

	assert.Equal(t, []monday.Locale{monday.LocaleEnUS}, ResolveLocales(nil))
	assert.Equal(t, []string{"en_US"}, NewDateParser("not a locale!").Locales())
}

func TestSystemLocales(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_TIME", "C")
	t.Setenv("LANG", "de_DE.UTF-8")
	assert.Equal(t, []string{"de_DE.UTF-8"}, SystemLocales())

	t.Setenv("LANG", "")
	assert.Nil(t, SystemLocales())
}
