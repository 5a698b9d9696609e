package enums

import "strings"

// Language is the shopper's UI language, forwarded to payment gateways as a
// display hint.
type Language string

const (
	LanguageUZ Language = "uz"
	LanguageRU Language = "ru"
	LanguageEN Language = "en"
)

// String implements fmt.Stringer.
func (l Language) String() string {
	return string(l)
}

// ParseLanguage normalizes raw input, defaulting to Uzbek for anything
// unknown. Gateways treat the value as advisory, so there is no error path.
func ParseLanguage(value string) Language {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "ru":
		return LanguageRU
	case "en":
		return LanguageEN
	default:
		return LanguageUZ
	}
}
