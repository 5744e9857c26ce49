// Package distill turns raw conversation text into structured extractions:
// proposed entities, proposed facts with supporting quotes, and supersession
// signals. Two implementations exist: a deterministic heuristic distiller and
// a model-backed one behind a circuit breaker.
package distill

import (
	"context"
	"regexp"
	"strings"

	"github.com/tenetdb/tenet/pkg/types"
)

// Distiller extracts structured claims from a chunk of text. Implementations
// must be safe for concurrent use.
type Distiller interface {
	Distill(ctx context.Context, text string) (*types.Extraction, error)
}

// supersessionSignals are phrasings that explicitly mark a change of state
// rather than a plain assertion. Their presence in a sentence upgrades a
// contradicting claim from conflict to supersession.
var supersessionSignals = []string{
	"switched to",
	"switched from",
	"migrated to",
	"migrated from",
	"moved to",
	"moved from",
	"no longer",
	"not anymore",
	"instead of",
	"replaced",
	"now use",
	"now uses",
	"now using",
	"changed to",
	"from now on",
}

// HasSupersessionSignal reports whether the sentence carries an explicit
// change-of-state phrasing.
func HasSupersessionSignal(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, sig := range supersessionSignals {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

var sentenceSplit = regexp.MustCompile(`[.!?\n]+`)

// splitSentences breaks text into trimmed non-empty sentences.
func splitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
