package distill

import (
	"context"
	"regexp"
	"strings"

	"github.com/tenetdb/tenet/pkg/types"
)

// HeuristicConfidence is assigned to every pattern-derived claim. Pattern
// matches are precise but blind to context, so they sit below model output.
const HeuristicConfidence = 0.7

// categoryPredicates maps the role phrase in "use X as/for the <role>" to a
// predicate.
var categoryPredicates = map[string]string{
	"database":        "uses_database",
	"db":              "uses_database",
	"framework":       "uses_framework",
	"package manager": "package_manager",
	"build tool":      "build_tool",
	"test framework":  "test_framework",
	"testing":         "test_framework",
	"deployment":      "deployed_on",
}

type pattern struct {
	re        *regexp.Regexp
	predicate string
	// objectGroup is the capture index of the object. subjectGroup is 0 when
	// the sentence has no explicit subject and the default applies.
	objectGroup  int
	subjectGroup int
	negative     bool
}

var patterns = []pattern{
	// Role-qualified usage, most specific first.
	{re: regexp.MustCompile(`(?i)\buse[sd]?\s+([A-Za-z0-9_.+\-]+)\s+(?:as|for)\s+(?:the\s+|our\s+)?([a-z ]+?)\s*$`), predicate: "", objectGroup: 1},
	{re: regexp.MustCompile(`(?i)\b(?:the\s+)?database\s+is\s+([A-Za-z0-9_.+\-]+)`), predicate: "uses_database", objectGroup: 1},
	{re: regexp.MustCompile(`(?i)\bswitched\s+from\s+[A-Za-z0-9_.+\-]+\s+to\s+([A-Za-z0-9_.+\-]+)\s+(?:as|for)\s+(?:the\s+|our\s+)?database\b`), predicate: "uses_database", objectGroup: 1},
	{re: regexp.MustCompile(`(?i)\b(?:written|built)\s+in\s+([A-Za-z0-9_.+#\-]+)`), predicate: "primary_language", objectGroup: 1},
	{re: regexp.MustCompile(`(?i)\bprimary\s+language\s+is\s+([A-Za-z0-9_.+#\-]+)`), predicate: "primary_language", objectGroup: 1},
	{re: regexp.MustCompile(`(?i)\bdefault\s+branch\s+is\s+([A-Za-z0-9_./\-]+)`), predicate: "default_branch", objectGroup: 1},
	{re: regexp.MustCompile(`(?i)\bdeploy(?:ed|s)?\s+(?:on|to)\s+([A-Za-z0-9_.\-]+)`), predicate: "deployed_on", objectGroup: 1},
	{re: regexp.MustCompile(`(?i)\bpackage\s+manager\s+is\s+([A-Za-z0-9_.+\-]+)`), predicate: "package_manager", objectGroup: 1},
	{re: regexp.MustCompile(`(?i)\blicensed?\s+(?:under|is)\s+([A-Za-z0-9_.+\-]+)`), predicate: "license", objectGroup: 1},
	{re: regexp.MustCompile(`(?i)\btest(?:s|ing)?\s+with\s+([A-Za-z0-9_.+\-]+)`), predicate: "test_framework", objectGroup: 1},
	{re: regexp.MustCompile(`(?i)\bno\s+longer\s+(?:use|using|uses)\s+([A-Za-z0-9_.+\-]+)`), predicate: "uses_tool", objectGroup: 1, negative: true},
	{re: regexp.MustCompile(`(?i)\b(?:i|we)\s+prefer\s+([A-Za-z0-9_.+\-]+(?:\s+[A-Za-z0-9_.+\-]+)?)\s+over\b`), predicate: "prefers", objectGroup: 1},
	{re: regexp.MustCompile(`(?i)\b(?:i|we)\s+prefer\s+([A-Za-z0-9_.+\-]+(?:\s+[A-Za-z0-9_.+\-]+)?)\s*$`), predicate: "prefers", objectGroup: 1},
	{re: regexp.MustCompile(`(?i)\b(?:i|we)\s+avoid\s+([A-Za-z0-9_.+\-]+)`), predicate: "avoids", objectGroup: 1},
	{re: regexp.MustCompile(`(?i)\bswitched\s+(?:from\s+[A-Za-z0-9_.+\-]+\s+)?to\s+([A-Za-z0-9_.+\-]+)`), predicate: "uses_tool", objectGroup: 1},
	// Generic usage, last so role-qualified forms win.
	{re: regexp.MustCompile(`(?i)\b(?:i|we)\s+(?:now\s+)?(?:use|are\s+using|rely\s+on)\s+([A-Za-z0-9_.+\-]+)`), predicate: "uses_tool", objectGroup: 1},
}

// Heuristic is a deterministic pattern distiller. It catches the common ways
// people state project facts in conversation and never hallucinates, at the
// cost of recall. It is the fallback when no model is configured and the
// baseline the model distiller is compared against.
type Heuristic struct {
	// Subject is attached to claims whose sentence names no subject,
	// typically the project slug or the user's handle.
	Subject string
	// SubjectType is the entity type for Subject. Defaults to "project".
	SubjectType string
}

// NewHeuristic creates a pattern distiller with the given default subject.
func NewHeuristic(subject, subjectType string) *Heuristic {
	if subjectType == "" {
		subjectType = "project"
	}
	return &Heuristic{Subject: subject, SubjectType: subjectType}
}

// Distill implements Distiller.
func (h *Heuristic) Distill(ctx context.Context, text string) (*types.Extraction, error) {
	ex := &types.Extraction{}
	seen := make(map[string]struct{})

	for _, sentence := range splitSentences(text) {
		pf, ok := h.matchSentence(sentence)
		if !ok {
			continue
		}
		key := pf.Predicate + "|" + types.NormalizeObject(pf.Object) + "|" + string(pf.Polarity)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ex.Facts = append(ex.Facts, *pf)
		if sig := supersessionSignalIn(sentence); sig != "" {
			ex.Signals = append(ex.Signals, sig)
		}
	}
	return ex, nil
}

func (h *Heuristic) matchSentence(sentence string) (*types.ProposedFact, bool) {
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(sentence)
		if m == nil {
			continue
		}

		predicate := p.predicate
		if predicate == "" {
			// Role-qualified form: resolve the predicate from the role
			// phrase, or skip so a later pattern can claim the sentence.
			role := strings.TrimSpace(strings.ToLower(m[2]))
			resolved, ok := categoryPredicates[role]
			if !ok {
				continue
			}
			predicate = resolved
		}

		object := strings.TrimSpace(m[p.objectGroup])
		if object == "" {
			continue
		}

		pf := &types.ProposedFact{
			SubjectType:  h.SubjectType,
			Subject:      h.Subject,
			Predicate:    predicate,
			Object:       object,
			Polarity:     types.PolarityPositive,
			Strength:     types.StrengthStated,
			Confidence:   HeuristicConfidence,
			Quote:        sentence,
			Supersession: HasSupersessionSignal(sentence),
		}
		if p.negative {
			pf.Polarity = types.PolarityNegative
		}
		return pf, true
	}
	return nil, false
}

func supersessionSignalIn(sentence string) string {
	lower := strings.ToLower(sentence)
	for _, sig := range supersessionSignals {
		if strings.Contains(lower, sig) {
			return sig
		}
	}
	return ""
}
