package summarizer

import (
	"fmt"

	"github.com/mnemod/mnemod/pkg/types"
)

// summarizePromptByLevel shapes the narrative summary instruction for each
// rollup level. The daily prompt condenses a single day; coarser levels ask
// for progressively broader strokes.
var summarizePromptByLevel = map[types.Level]string{
	types.LevelDaily: `Condense the following daily activity log into a short narrative paragraph.
Keep concrete events, decisions, and outcomes. Drop filler and repetition.`,
	types.LevelWeekly: `Condense the following week of activity into a short narrative.
Focus on themes, progress, and notable events. Individual days matter only
when something significant happened.`,
	types.LevelMonthly: `Condense the following month of activity into a brief narrative.
Capture the arc of the month: major developments, changes, and recurring themes.`,
	types.LevelAnnual: `Condense the following year of activity into a brief retrospective.
Capture only what shaped the year.`,
}

// buildSummarizePrompt returns the full prompt for a narrative summary.
func buildSummarizePrompt(content string, level types.Level) string {
	instruction, ok := summarizePromptByLevel[level]
	if !ok {
		instruction = summarizePromptByLevel[types.LevelDaily]
	}
	return fmt.Sprintf("%s\n\nRespond with the narrative only, no preamble.\n\n---\n%s", instruction, content)
}

// extractFactsPrompt asks for a JSON array of fact candidates. The response
// contract mirrors FactCandidate; the parser tolerates surrounding prose
// and code fences.
const extractFactsPrompt = `Extract the discrete facts worth remembering long-term from the
following activity log. Respond with ONLY a JSON array, no other text:

[
  {
    "content": "one self-contained sentence stating the fact",
    "importance": 7,
    "category": "episodic|semantic|procedural",
    "tags": {"domain": ["..."], "type": ["..."], "priority": ["..."], "entity": ["..."], "sentiment": ["..."]}
  }
]

Rules:
- importance is an integer 1-10; reserve 8+ for facts that change how the
  agent should behave going forward
- category: episodic for events, semantic for stable facts, procedural for how-to
- omit tag facets you have nothing for
- skip trivia, pleasantries, and anything already implied by another fact

---
%s`

// buildExtractFactsPrompt returns the full fact-extraction prompt.
func buildExtractFactsPrompt(content string) string {
	return fmt.Sprintf(extractFactsPrompt, content)
}
