package types

import "time"

// Extraction is the distiller's output for one content item: proposed
// entities and atomic assertions, plus any decisions and free-form signals
// the distiller noticed. The resolver consumes it in one atomic call.
type Extraction struct {
	Entities  []ProposedEntity `json:"entities,omitempty"`
	Facts     []ProposedFact   `json:"facts"`
	Decisions []string         `json:"decisions,omitempty"`
	Signals   []string         `json:"signals,omitempty"`
}

// ProposedEntity is an entity mention prior to identity resolution.
type ProposedEntity struct {
	Type    string   `json:"type"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// ProposedFact is an assertion prior to truth maintenance. Object is always
// the textual object; ObjectType is set when the object should resolve to an
// entity rather than stay a literal.
type ProposedFact struct {
	SubjectType string `json:"subject_type"`
	Subject     string `json:"subject"`
	Predicate   string `json:"predicate"`
	ObjectType  string `json:"object_type,omitempty"`
	Object      string `json:"object"`

	Polarity   Polarity `json:"polarity,omitempty"`
	Strength   Strength `json:"strength,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`

	Quote       string `json:"quote,omitempty"`
	Attribution string `json:"attribution,omitempty"`

	// Supersession marks an explicit replacement signal in the evidence
	// ("switched to", "no longer"). Without it a contradiction on an
	// exclusive slot becomes a conflict, not a replacement.
	Supersession bool `json:"supersession,omitempty"`
}

// Validate checks the structural requirements the resolver depends on.
func (p *ProposedFact) Validate() error {
	if p.Subject == "" {
		return &ValidationError{Field: "subject", Reason: "is required"}
	}
	if p.Predicate == "" {
		return &ValidationError{Field: "predicate", Reason: "is required"}
	}
	if p.Object == "" {
		return &ValidationError{Field: "object", Reason: "is required"}
	}
	return nil
}

// ChangeRecord is one entry of a time-filtered change feed.
type ChangeRecord struct {
	Fact      *Fact     `json:"fact"`
	CreatedAt time.Time `json:"created_at"`
}
