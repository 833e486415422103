package catalog

import (
	"math/rand"
	"sort"

	"calendar_quiz_funnel/internal/domain/quiz"
)

// answerVotes maps an answer's option value to the template types it votes
// for. A multi-type answer counts fully toward each listed type; option
// values absent from this table contribute zero votes. Fixed at build time.
var answerVotes = map[string][]string{
	// Holiday priority
	"family":     {"friends", "love_letters"},
	"fitness":    {"gym", "home_gym"},
	"creativity": {"quotes", "songs"},
	"food":       {"culinary_recipes"},

	// Morning mood
	"energetic": {"gym", "home_gym"},
	"peaceful":  {"quotes", "love_letters"},
	"hungry":    {"culinary_recipes"},
	"inspired":  {"quotes", "songs"},

	// Daily motivation
	"physical": {"gym", "home_gym"},
	"musical":  {"songs"},
	"culinary": {"culinary_recipes"},
	"words":    {"quotes", "love_letters"},

	// Celebration style
	"active":     {"gym", "home_gym", "friends"},
	"cozy":       {"songs", "love_letters"},
	"feast":      {"culinary_recipes"},
	"meaningful": {"love_letters", "quotes", "friends"},

	// Ideal gift
	"music":   {"songs"},
	"recipes": {"culinary_recipes"},

	// Daily rhythm
	"structured":  {"gym", "home_gym"},
	"flexible":    {"quotes", "songs"},
	"spontaneous": {"friends", "songs"},
	"balanced":    {"culinary_recipes", "quotes"},

	// Personal values
	"health":      {"gym", "home_gym"},
	"connection":  {"friends", "love_letters"},
	"achievement": {"gym", "home_gym", "quotes"},
}

// Picker chooses an index in [0, n). It is only consulted when more than one
// template type is tied at the maximum vote count.
type Picker func(n int) int

// Matcher scores an answer set against the catalog. The set of acceptable
// templates for a given input is deterministic; only the final pick among
// ties goes through the injected picker.
type Matcher struct {
	pick Picker
}

// NewMatcher returns a Matcher using the given tie-break picker. A nil
// picker falls back to math/rand.
func NewMatcher(pick Picker) *Matcher {
	if pick == nil {
		pick = rand.Intn
	}
	return &Matcher{pick: pick}
}

// TieSet returns the sorted set of template types tied at the maximum vote
// count for the given answers. When no answer contributes a vote the result
// is the fallback set {quotes}, so the set is never empty.
func (m *Matcher) TieSet(answers quiz.Answers) []string {
	counts := make(map[string]int)
	for _, value := range answers {
		for _, templateType := range answerVotes[value] {
			counts[templateType]++
		}
	}

	if len(counts) == 0 {
		return []string{FallbackType}
	}

	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}

	top := make([]string, 0, len(counts))
	for templateType, n := range counts {
		if n == max {
			top = append(top, templateType)
		}
	}
	sort.Strings(top)
	return top
}

// Select maps an answer set to its best-fit catalog template. It is total:
// every input yields a member of the catalog, with the quotes entry as the
// degenerate-case fallback.
func (m *Matcher) Select(answers quiz.Answers) Template {
	top := m.TieSet(answers)

	selected := top[0]
	if len(top) > 1 {
		selected = top[m.pick(len(top))]
	}

	if t, ok := ByType(selected); ok {
		return t
	}
	fallback, _ := ByType(FallbackType)
	return fallback
}
