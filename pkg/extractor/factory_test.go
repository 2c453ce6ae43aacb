package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Wiktionary(t *testing.T) {
	e, err := New("wiktionary", Config{BaseURL: "http://example.invalid", Language: "deu"})
	require.NoError(t, err)
	_, ok := e.(*WiktionaryExtractor)
	assert.True(t, ok)
}

func TestNew_UnknownSource(t *testing.T) {
	_, err := New("made-up-source", Config{})
	assert.Error(t, err)
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Greater(t, cfg.RequestDelay.Nanoseconds(), int64(0))
	assert.Greater(t, cfg.MaxConcurrentRequests, int64(0))
	assert.Greater(t, cfg.RequestTimeout.Nanoseconds(), int64(0))
}
