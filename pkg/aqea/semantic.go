package aqea

import (
	"strings"

	"github.com/OneOfOne/xxhash"
)

// highFrequencyMin..highFrequencyMax is the reserved EE band used when
// frequency_rank is known and at most highFrequencyRankCeiling (SPEC_FULL §4.3).
const (
	highFrequencyMin   = 0x10
	highFrequencyMax   = 0x1F
	highFrequencyRankCeiling = 10000
)

// SemanticDomain computes the deterministic integer d in [0,255] that the EE
// byte derivation hashes against (SPEC_FULL §4.3 / §9 open question #2): a
// pure function of lemma, pos, language and definitions, hashed with xxhash32
// for uniform distribution over the byte range.
func SemanticDomain(lemma, pos, language string, definitions []string) byte {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(lemma)))
	b.WriteByte(0x1f)
	b.WriteString(strings.ToLower(strings.TrimSpace(pos)))
	b.WriteByte(0x1f)
	b.WriteString(strings.ToLower(strings.TrimSpace(language)))
	b.WriteByte(0x1f)
	b.WriteString(strings.Join(definitions, "\x1f"))

	h := xxhash.ChecksumString32(b.String())
	return byte(h % 256)
}

// FrequencyCluster bands the semantic domain integer d by frequency_rank into
// an EE byte, per SPEC_FULL §4.3. frequencyRank <= 0 means unknown, treated
// as > 10^5 (the lowest-frequency band).
func FrequencyCluster(d byte, frequencyRank int) byte {
	if frequencyRank > 0 && frequencyRank <= highFrequencyRankCeiling {
		return highFrequencyMin + byte(int(d)%(highFrequencyMax-highFrequencyMin+1))
	}
	switch {
	case frequencyRank > 0 && frequencyRank <= 1_000:
		return 0x10 + (d % 16)
	case frequencyRank > 0 && frequencyRank <= 10_000:
		return 0x20 + (d % 32)
	case frequencyRank > 0 && frequencyRank <= 100_000:
		return 0x40 + (d % 64)
	default:
		return 0x80 + (d % 128)
	}
}
