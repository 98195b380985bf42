package calendar

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// DefaultLocaleTag matches the date pickers of the booking widget.
const DefaultLocaleTag = "en-GB"

// Locale carries the calendar conventions used to judge a date.
type Locale struct {
	Tag     language.Tag
	Region  string
	weekend [7]bool
}

// Weekend rules by CLDR region. Regions not listed rest on Saturday and Sunday.
var weekendByRegion = map[string][]time.Weekday{
	"AE": {time.Friday, time.Saturday},
	"BH": {time.Friday, time.Saturday},
	"DZ": {time.Friday, time.Saturday},
	"EG": {time.Friday, time.Saturday},
	"IL": {time.Friday, time.Saturday},
	"IQ": {time.Friday, time.Saturday},
	"JO": {time.Friday, time.Saturday},
	"KW": {time.Friday, time.Saturday},
	"LY": {time.Friday, time.Saturday},
	"OM": {time.Friday, time.Saturday},
	"QA": {time.Friday, time.Saturday},
	"SA": {time.Friday, time.Saturday},
	"SD": {time.Friday, time.Saturday},
	"SY": {time.Friday, time.Saturday},
	"YE": {time.Friday, time.Saturday},
	"AF": {time.Thursday, time.Friday},
	"IR": {time.Friday},
	"IN": {time.Sunday},
	"UG": {time.Sunday},
}

// ParseLocale resolves a BCP 47 tag. An empty tag yields the default locale.
func ParseLocale(tag string) (Locale, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		tag = DefaultLocaleTag
	}
	t, err := language.Parse(tag)
	if err != nil {
		return Locale{}, fmt.Errorf("invalid locale %q: %w", tag, err)
	}
	region, _ := t.Region()

	l := Locale{Tag: t, Region: region.String()}
	days, ok := weekendByRegion[l.Region]
	if !ok {
		days = []time.Weekday{time.Saturday, time.Sunday}
	}
	for _, wd := range days {
		l.weekend[wd] = true
	}
	return l, nil
}

// MustParseLocale is for package-level defaults and tests.
func MustParseLocale(tag string) Locale {
	l, err := ParseLocale(tag)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Locale) IsWeekend(d Date) bool {
	return l.weekend[d.Weekday()]
}

func (l Locale) String() string {
	return l.Tag.String()
}
