package distill

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenetdb/tenet/pkg/types"
)

func TestParseExtraction(t *testing.T) {
	content := `{
		"entities": [{"type": "tool", "name": "PostgreSQL", "aliases": ["postgres"]}],
		"facts": [{
			"subject_type": "project", "subject": "demo",
			"predicate": "uses_database", "object": "postgresql",
			"polarity": "positive", "strength": "stated", "confidence": 0.9,
			"quote": "we switched to postgresql", "supersession": true
		}],
		"signals": ["switched to"]
	}`

	ex, err := parseExtraction(content)
	require.NoError(t, err)
	require.Len(t, ex.Entities, 1)
	require.Len(t, ex.Facts, 1)

	pf := ex.Facts[0]
	assert.Equal(t, "uses_database", pf.Predicate)
	assert.Equal(t, types.PolarityPositive, pf.Polarity)
	assert.True(t, pf.Supersession)
	assert.Equal(t, 0.9, pf.Confidence)
	assert.Equal(t, []string{"switched to"}, ex.Signals)
}

func TestParseExtractionStripsFences(t *testing.T) {
	ex, err := parseExtraction("```json\n{\"facts\": []}\n```")
	require.NoError(t, err)
	assert.Empty(t, ex.Facts)
}

func TestParseExtractionRepairsTrailingComma(t *testing.T) {
	ex, err := parseExtraction(`{"facts": [{"subject": "demo", "predicate": "uses_tool", "object": "make",}]}`)
	require.NoError(t, err)
	require.Len(t, ex.Facts, 1)
	assert.Equal(t, "make", ex.Facts[0].Object)
}

func TestParseExtractionRejectsGarbage(t *testing.T) {
	_, err := parseExtraction("the model had nothing to say")
	require.Error(t, err)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}

func TestIsRetriable(t *testing.T) {
	assert.True(t, isRetriable(fmt.Errorf("request failed: 503 Service Unavailable")))
	assert.True(t, isRetriable(fmt.Errorf("dial tcp: connection refused")))
	assert.False(t, isRetriable(fmt.Errorf("status 401: invalid api key")))
}
