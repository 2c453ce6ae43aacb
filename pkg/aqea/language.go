package aqea

import "strings"

// languageTable is the static ISO 639-3 → AA byte mapping (SPEC_FULL §6.3).
// Only the normative anchors are assigned; all other slots in the reserved
// ranges are deliberately absent and resolve as unsupported.
var languageTable = map[string]byte{
	"deu": 0xA0, "eng": 0xA1, "nld": 0xA2, "swe": 0xA3, "dan": 0xA4,
	"nor": 0xA5, "isl": 0xA6, "afr": 0xA7, "yid": 0xA8, "fry": 0xA9,

	"fra": 0xB0, "spa": 0xB1, "ita": 0xB2, "por": 0xB3, "ron": 0xB4,
	"cat": 0xB5, "glg": 0xB6, "oci": 0xB7, "lat": 0xB8, "srd": 0xB9,

	"rus": 0xC0, "pol": 0xC1, "ces": 0xC2, "slk": 0xC3, "ukr": 0xC4,
	"bel": 0xC5, "bul": 0xC6, "hrv": 0xC7, "srp": 0xC8, "slv": 0xC9, "mkd": 0xCA,

	"cmn": 0xD0, "yue": 0xD1, "jpn": 0xD2, "kor": 0xD3, "vie": 0xD4,
	"tha": 0xD5, "khm": 0xD6, "mya": 0xD7, "bod": 0xD8, "mon": 0xD9,
}

// languageNames gives a human-readable display form used by description
// generation (SPEC_FULL §4.3); falls back to the ISO code if absent.
var languageNames = map[string]string{
	"deu": "German", "eng": "English", "nld": "Dutch", "swe": "Swedish",
	"dan": "Danish", "nor": "Norwegian", "isl": "Icelandic", "afr": "Afrikaans",
	"yid": "Yiddish", "fry": "Frisian",
	"fra": "French", "spa": "Spanish", "ita": "Italian", "por": "Portuguese",
	"ron": "Romanian", "cat": "Catalan", "glg": "Galician", "oci": "Occitan",
	"lat": "Latin", "srd": "Sardinian",
	"rus": "Russian", "pol": "Polish", "ces": "Czech", "slk": "Slovak",
	"ukr": "Ukrainian", "bel": "Belarusian", "bul": "Bulgarian", "hrv": "Croatian",
	"srp": "Serbian", "slv": "Slovenian", "mkd": "Macedonian",
	"cmn": "Mandarin", "yue": "Cantonese", "jpn": "Japanese", "kor": "Korean",
	"vie": "Vietnamese", "tha": "Thai", "khm": "Khmer", "mya": "Burmese",
	"bod": "Tibetan", "mon": "Mongolian",
}

// LanguageByte resolves an ISO 639-3 code to its AA byte. ok is false for any
// code not in the static table — callers must treat that as UnsupportedLanguage
// (a fatal ConfigError per SPEC_FULL §4.3), never guess a fallback byte.
func LanguageByte(isoCode string) (b byte, ok bool) {
	b, ok = languageTable[strings.ToLower(strings.TrimSpace(isoCode))]
	return b, ok
}

// LanguageName returns a human display name for an ISO 639-3 code, falling
// back to the code itself (upper-cased) when unknown.
func LanguageName(isoCode string) string {
	code := strings.ToLower(strings.TrimSpace(isoCode))
	if name, ok := languageNames[code]; ok {
		return name
	}
	return strings.ToUpper(code)
}

// SupportedLanguages returns the set of ISO 639-3 codes recognized by the
// static table, for config validation and CLI help text.
func SupportedLanguages() []string {
	codes := make([]string, 0, len(languageTable))
	for code := range languageTable {
		codes = append(codes, code)
	}
	return codes
}
