// Package converter implements the AQEA Converter (SPEC_FULL §4.3): turning
// one normalized RawRecord into one aqea.Entry with a globally unique address.
//
// The null-safe "default if unset" helper shape is grounded on
// transcode-worker/pkg/models/models.go's JobSpec.GetSegmentTime()-style
// accessor methods, generalized here to free functions since RawRecord is a
// plain data struct rather than an options bag with a dozen getters.
package converter

import (
	"strings"
	"time"

	"github.com/nextX-AG/aqea-distributed-extractor/pkg/allocator"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/aqea"
	"github.com/nextX-AG/aqea-distributed-extractor/pkg/errs"
)

const maxDescriptionFirstDefLen = 200

// Converter turns raw extractor records into AQEA entries, allocating element
// IDs through the shared Allocator.
type Converter struct {
	alloc      *allocator.Allocator
	sourceName string
}

// New builds a Converter that tags produced entries with sourceName (the
// extractor identifier recorded in meta.source, SPEC_FULL §3).
func New(alloc *allocator.Allocator, sourceName string) *Converter {
	return &Converter{alloc: alloc, sourceName: sourceName}
}

// Convert transforms one raw record into an AQEA entry. It returns a soft
// ConversionError for defects that should skip only this record (empty
// lemma), a fatal ConfigError for an unsupported language, and propagates
// AddressSpaceExhausted from the allocator unchanged.
func (c *Converter) Convert(rec aqea.RawRecord, workerID string) (aqea.Entry, error) {
	lemma := strings.TrimSpace(rec.Word)
	if lemma == "" {
		return aqea.Entry{}, errs.New(errs.KindConversion, "empty lemma")
	}
	if containsControlChar(lemma) {
		return aqea.Entry{}, errs.New(errs.KindConversion, "lemma contains control characters")
	}

	aa, ok := aqea.LanguageByte(rec.Language)
	if !ok {
		return aqea.Entry{}, errs.New(errs.KindConfig, "unsupported language: "+rec.Language)
	}

	pos := aqea.NormalizePOS(rec.POS)
	qq := aqea.POSByte(pos)

	definitions := rec.Definitions
	if definitions == nil {
		definitions = []string{}
	}
	if len(definitions) > 10 {
		definitions = definitions[:10]
	}

	d := aqea.SemanticDomain(lemma, pos, rec.Language, definitions)
	ee := aqea.FrequencyCluster(d, rec.FrequencyRank)

	lemmaKey := strings.ToLower(lemma) + "|" + pos
	a2, err := c.alloc.Allocate(aa, qq, ee, lemmaKey)
	if err != nil {
		return aqea.Entry{}, err
	}

	addr := aqea.Address{AA: aa, QQ: qq, EE: ee, A2: a2}
	now := time.Now()

	meta := aqea.EntryMeta{
		Lemma:         lemma,
		POS:           pos,
		IPA:           rec.IPA,
		Definitions:   definitions,
		Examples:      rec.Examples,
		Synonyms:      rec.Synonyms,
		Antonyms:      rec.Antonyms,
		Translations:  rec.Translations,
		Audio:         rec.Audio,
		FrequencyRank: rec.FrequencyRank,
		Source:        c.sourceName,
		WorkerID:      workerID,
		CreatedAt:     now,
	}

	return aqea.Entry{
		Address:     addr,
		AddressStr:  addr.String(),
		Label:       lemma,
		Description: describe(rec.Language, pos, lemma, definitions),
		Domain:      addr.Domain(),
		Meta:        meta,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// describe renders the fixed description template from SPEC_FULL §4.3:
// "{Language} {pos} '{lemma}'. {first_definition_trimmed_to_200_chars}".
func describe(language, pos, lemma string, definitions []string) string {
	first := ""
	if len(definitions) > 0 {
		first = truncate(definitions[0], maxDescriptionFirstDefLen)
	}
	name := aqea.LanguageName(language)
	if first == "" {
		return name + " " + pos + " '" + lemma + "'."
	}
	return name + " " + pos + " '" + lemma + "'. " + first
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func containsControlChar(s string) bool {
	for _, r := range s {
		if r < 0x20 && r != ' ' {
			return true
		}
	}
	return false
}
