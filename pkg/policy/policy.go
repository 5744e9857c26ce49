// Package policy answers one question: for a given predicate, is the
// (subject, predicate) slot single- or multi-valued, and is it exclusive?
//
// The table is deliberately permissive: unknown predicates default to
// multi-valued and non-exclusive, because a false conflict costs more than
// accidental accumulation.
package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Cardinality says how many active facts a slot may hold.
type Cardinality string

const (
	Single Cardinality = "single"
	Multi  Cardinality = "multi"
)

// Policy describes the slot semantics of one predicate.
type Policy struct {
	Cardinality Cardinality `yaml:"cardinality"`
	Exclusive   bool        `yaml:"exclusive"`
}

// Table maps predicates to policies.
type Table struct {
	policies map[string]Policy
}

// defaultPolicy is returned for any predicate the table does not know.
var defaultPolicy = Policy{Cardinality: Multi, Exclusive: false}

// Default returns the built-in predicate table.
func Default() *Table {
	single := Policy{Cardinality: Single, Exclusive: true}
	multi := Policy{Cardinality: Multi, Exclusive: false}

	return &Table{policies: map[string]Policy{
		// Exclusive single-valued slots: only one can be true at a time.
		"uses_database":    single,
		"primary_language": single,
		"package_manager":  single,
		"deployed_on":      single,
		"default_branch":   single,
		"license":          single,
		"build_tool":       single,
		"located_in":       single,
		"employed_by":      single,
		"test_framework":   single,

		// Accumulating slots.
		"uses_framework": multi,
		"uses_library":   multi,
		"uses_tool":      multi,
		"depends_on":     multi,
		"integrates":     multi,
		"prefers":        multi,
		"avoids":         multi,
		"convention":     multi,
	}}
}

// Load reads a YAML override file mapping predicates to policies and merges
// it over the built-in table. Unknown keys in the file extend the table.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var overrides map[string]Policy
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	t := Default()
	for pred, p := range overrides {
		if p.Cardinality != Single && p.Cardinality != Multi {
			return nil, fmt.Errorf("policy for %q: unknown cardinality %q", pred, p.Cardinality)
		}
		t.policies[pred] = p
	}
	return t, nil
}

// PolicyFor returns the policy for a predicate, or the permissive default.
func (t *Table) PolicyFor(predicate string) Policy {
	if p, ok := t.policies[predicate]; ok {
		return p
	}
	return defaultPolicy
}

// Single reports whether the predicate's slot holds at most one active fact.
func (t *Table) Single(predicate string) bool {
	return t.PolicyFor(predicate).Cardinality == Single
}

// Exclusive reports whether a contradiction on the predicate's slot demands
// supersession or conflict rather than accumulation.
func (t *Table) Exclusive(predicate string) bool {
	return t.PolicyFor(predicate).Exclusive
}
