package aqea

import "strings"

// posTable is the universal QQ byte table (SPEC_FULL §6.2). "unknown" is
// handled specially by POSByte rather than appearing here, since it maps to
// the reserved QQUnknown sentinel rather than a table lookup.
var posTable = map[string]byte{
	"noun":        0x01,
	"verb":        0x02,
	"adjective":   0x03,
	"adverb":      0x04,
	"preposition": 0x05,
	"pronoun":     0x06,
	"determiner":  0x07,
	"conjunction": 0x08,
	"numeral":     0x09,
	"interjection": 0x0A,
	"particle":    0x0B,
	"proper_noun": 0x0C,
	"auxiliary":   0x0D,
	"classifier":  0x0E,
	"copula":      0x0F,
}

// POSByte maps a part-of-speech identifier to its QQ byte. Unknown or empty
// input maps to QQUnknown (0xFF) rather than erroring, per SPEC_FULL §4.3's
// null-safety rule: missing pos -> "unknown" -> QQ=0xFF.
func POSByte(pos string) byte {
	b, ok := posTable[strings.ToLower(strings.TrimSpace(pos))]
	if !ok {
		return QQUnknown
	}
	return b
}

// NormalizePOS defaults an empty part-of-speech string to "unknown", the
// canonical null-safe value SPEC_FULL §4.3 requires before it ever reaches
// meta or the converter's POS lookup.
func NormalizePOS(pos string) string {
	pos = strings.ToLower(strings.TrimSpace(pos))
	if pos == "" {
		return "unknown"
	}
	return pos
}
