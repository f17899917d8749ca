package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemod/mnemod/pkg/types"
)

func TestParseFacts_CleanArray(t *testing.T) {
	response := `[
		{"content": "The user started a pottery class.", "importance": 6, "category": "episodic",
		 "tags": {"domain": ["hobbies"]}},
		{"content": "The user is allergic to shellfish.", "importance": 9, "category": "semantic"}
	]`

	facts, err := ParseFacts(response)
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, "The user started a pottery class.", facts[0].Content)
	assert.Equal(t, 6, facts[0].Importance)
	assert.Equal(t, types.CategoryEpisodic, facts[0].Category)
	assert.Equal(t, []string{"hobbies"}, facts[0].Tags[types.FacetDomain])
	assert.Equal(t, 9, facts[1].Importance)
}

func TestParseFacts_CodeFenceAndProse(t *testing.T) {
	response := "Here are the extracted facts:\n```json\n" +
		`[{"content": "fact one", "importance": 5, "category": "semantic"}]` +
		"\n```\nLet me know if you need more."

	facts, err := ParseFacts(response)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "fact one", facts[0].Content)
}

func TestParseFacts_Unparseable(t *testing.T) {
	_, err := ParseFacts("I could not find any facts in this content.")
	assert.ErrorIs(t, err, ErrMalformedOutput)

	_, err = ParseFacts(`{"content": "an object, not an array"}`)
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestParseFacts_DropsUnusableCandidates(t *testing.T) {
	response := `[
		{"content": "", "importance": 5, "category": "semantic"},
		{"content": "importance zero is dropped", "importance": 0, "category": "semantic"},
		{"content": "importance eleven is dropped", "importance": 11, "category": "semantic"},
		{"content": "keeper", "importance": 7, "category": "semantic"}
	]`

	facts, err := ParseFacts(response)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "keeper", facts[0].Content)
}

func TestParseFacts_NormalizesLooseValues(t *testing.T) {
	response := `[
		{"content": "fractional importance rounds", "importance": 6.7, "category": "Semantic"},
		{"content": "unknown category defaults", "importance": 5, "category": "emotional"},
		{"content": "unknown facets dropped", "importance": 5, "category": "semantic",
		 "tags": {"mood": ["sunny"], "domain": ["travel", "  "]}}
	]`

	facts, err := ParseFacts(response)
	require.NoError(t, err)
	require.Len(t, facts, 3)
	assert.Equal(t, 7, facts[0].Importance)
	assert.Equal(t, types.CategorySemantic, facts[0].Category)
	assert.Equal(t, types.CategorySemantic, facts[1].Category)
	assert.NotContains(t, facts[2].Tags, "mood")
	assert.Equal(t, []string{"travel"}, facts[2].Tags[types.FacetDomain])
}

func TestExtractJSONArray_NestedArrays(t *testing.T) {
	payload := `[{"content": "has [brackets] in \"quoted [text]\"", "importance": 5, "category": "semantic"}]`
	assert.Equal(t, payload, extractJSONArray("noise before "+payload+" noise after"))
}
