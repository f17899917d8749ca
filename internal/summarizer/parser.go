package summarizer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mnemod/mnemod/pkg/types"
)

// extractJSONArray pulls the first complete JSON array out of a string that
// may contain extra prose. Models add explanations before and after the
// payload despite instructions, and wrap it in markdown code fences.
func extractJSONArray(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "[")
	if start == -1 {
		return text // let the JSON parser produce the error
	}

	depth := 0
	inString := false
	escape := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escape {
			escape = false
			continue
		}
		switch c {
		case '\\':
			escape = true
		case '"':
			inString = !inString
		case '[':
			if !inString {
				depth++
			}
		case ']':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return text[start:]
}

// rawFact mirrors the JSON the model returns. Importance arrives as a
// float now and then; it is rounded rather than rejected.
type rawFact struct {
	Content    string              `json:"content"`
	Importance float64             `json:"importance"`
	Category   string              `json:"category"`
	Tags       map[string][]string `json:"tags"`
}

// ParseFacts parses a model response into fact candidates. A response with
// no parseable array returns ErrMalformedOutput; individual candidates
// that are unusable (empty content, importance out of range after
// rounding) are dropped rather than failing the batch.
func ParseFacts(response string) ([]FactCandidate, error) {
	payload := extractJSONArray(response)

	var raws []rawFact
	if err := json.Unmarshal([]byte(payload), &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	facts := make([]FactCandidate, 0, len(raws))
	for _, r := range raws {
		content := strings.TrimSpace(r.Content)
		if content == "" {
			continue
		}

		importance := int(r.Importance + 0.5)
		if importance < types.MinImportance || importance > types.MaxImportance {
			continue
		}

		category := types.Category(strings.ToLower(strings.TrimSpace(r.Category)))
		if !types.IsValidCategory(category) {
			// Unknown categories default to semantic rather than losing
			// the fact.
			category = types.CategorySemantic
		}

		tags := make(map[string][]string)
		for facet, values := range r.Tags {
			facet = strings.ToLower(strings.TrimSpace(facet))
			if !types.IsValidFacet(facet) {
				continue
			}
			var cleaned []string
			for _, v := range values {
				if v = strings.TrimSpace(v); v != "" {
					cleaned = append(cleaned, v)
				}
			}
			if len(cleaned) > 0 {
				tags[facet] = cleaned
			}
		}
		if len(tags) == 0 {
			tags = nil
		}

		facts = append(facts, FactCandidate{
			Content:    content,
			Importance: importance,
			Category:   category,
			Tags:       tags,
		})
	}
	return facts, nil
}
