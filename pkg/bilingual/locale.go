package bilingual

import (
	"strings"

	"golang.org/x/text/language"
)

// Locale is a supported UI language.
type Locale string

const (
	Thai    Locale = "th"
	English Locale = "en"
)

// Default is used when nothing better can be negotiated.
const Default = Thai

var supportedTags = []language.Tag{language.Thai, language.English}

var matcher = language.NewMatcher(supportedTags)

// Valid reports whether l is one of the supported locales.
func (l Locale) Valid() bool {
	return l == Thai || l == English
}

// Other returns the opposite locale.
func (l Locale) Other() Locale {
	if l == English {
		return Thai
	}
	return English
}

func (l Locale) String() string { return string(l) }

// Parse normalizes a language tag such as "en-US" or "TH" to a Locale.
func Parse(s string) (Locale, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	switch base.String() {
	case "th":
		return Thai, true
	case "en":
		return English, true
	}
	return "", false
}

// Negotiate picks a locale from an explicit query value and an
// Accept-Language header, in that order, falling back to Default.
func Negotiate(query, acceptLanguage string) Locale {
	if l, ok := Parse(query); ok {
		return l
	}
	if strings.TrimSpace(acceptLanguage) == "" {
		return Default
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	if supportedTags[idx] == language.English {
		return English
	}
	return Thai
}
