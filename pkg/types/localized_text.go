package types

import (
	"strings"

	"github.com/texnomart-dev/storefront-backend/pkg/enums"
)

// LocalizedText carries a canonical Uzbek string plus optional per-language
// overrides. Product records in the legacy catalog were sometimes plain
// strings and sometimes per-language objects; this type replaces that with a
// single explicit lookup.
type LocalizedText struct {
	UZ string `json:"uz"`
	RU string `json:"ru,omitempty"`
	EN string `json:"en,omitempty"`
}

// Resolve returns the text for the requested language, falling back to the
// canonical Uzbek value.
func (t LocalizedText) Resolve(lang enums.Language) string {
	switch lang {
	case enums.LanguageRU:
		if strings.TrimSpace(t.RU) != "" {
			return t.RU
		}
	case enums.LanguageEN:
		if strings.TrimSpace(t.EN) != "" {
			return t.EN
		}
	}
	return t.UZ
}

// IsZero reports whether no translation is set at all.
func (t LocalizedText) IsZero() bool {
	return t.UZ == "" && t.RU == "" && t.EN == ""
}
