// Package types defines the domain model shared by the store, resolver and
// recall engine: evidence chunks, entities, facts with temporal validity,
// provenance receipts, supersession links and conflicts.
package types

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Scope determines whether a fact applies to a single project or to the user
// as a whole.
type Scope string

const (
	ScopeProject Scope = "project"
	ScopeGlobal  Scope = "global"
	// ScopeAll is a query-time scope that merges project and global results.
	// It is never a valid write scope.
	ScopeAll Scope = "all"
)

// Valid reports whether s is a recognized scope value.
func (s Scope) Valid() bool {
	switch s {
	case ScopeProject, ScopeGlobal, ScopeAll:
		return true
	}
	return false
}

// FactStatus is the lifecycle state of a fact row.
// Transitions: proposed -> active -> {superseded | disputed}.
// Superseded and disputed are terminal but preserved for history.
type FactStatus string

const (
	StatusProposed   FactStatus = "proposed"
	StatusActive     FactStatus = "active"
	StatusSuperseded FactStatus = "superseded"
	StatusDisputed   FactStatus = "disputed"
)

// Strength classifies how directly the evidence supports a fact.
type Strength string

const (
	StrengthStated   Strength = "stated"
	StrengthInferred Strength = "inferred"
)

// Polarity records whether a fact affirms or negates its predicate.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

// LinkType is the kind of a directed fact-to-fact edge.
type LinkType string

// LinkSupersedes points from a replacement fact to the fact it closed.
const LinkSupersedes LinkType = "supersedes"

// ConflictStatus is the lifecycle state of a recorded contradiction.
type ConflictStatus string

const (
	ConflictOpen     ConflictStatus = "open"
	ConflictResolved ConflictStatus = "resolved"
)

// ContentItem is an immutable chunk of ingested evidence. The raw text is not
// retained; only its hash, length and origin metadata. Maintenance may delete
// items that are unreferenced and aged out, nothing else mutates them.
type ContentItem struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	SessionID   string    `json:"session_id"`
	ProjectPath string    `json:"project_path,omitempty"`
	TextHash    string    `json:"text_hash"`
	ByteLen     int64     `json:"byte_len"`
	OccurredAt  time.Time `json:"occurred_at"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// Entity is an identity-resolved thing facts are about. Entities are
// deduplicated by (type, slug) and immutable once written, though they may
// gain aliases.
type Entity struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	CanonicalName string    `json:"canonical_name"`
	Slug          string    `json:"slug"`
	CreatedAt     time.Time `json:"created_at"`
}

// EntityAlias is an alternate name for an entity with a resolution confidence.
type EntityAlias struct {
	ID         string  `json:"id"`
	EntityID   string  `json:"entity_id"`
	Alias      string  `json:"alias"`
	Confidence float64 `json:"confidence"`
}

// Fact is the atomic belief: a subject, a predicate and an object bounded by
// a validity interval. Exactly one of ObjectEntityID / ObjectLiteral is set.
type Fact struct {
	ID              string     `json:"id"`
	SubjectEntityID string     `json:"subject_entity_id"`
	Predicate       string     `json:"predicate"`
	ObjectEntityID  string     `json:"object_entity_id,omitempty"`
	ObjectLiteral   string     `json:"object_literal,omitempty"`
	Polarity        Polarity   `json:"polarity"`
	ValidFrom       time.Time  `json:"valid_from"`
	ValidTo         *time.Time `json:"valid_to,omitempty"`
	Status          FactStatus `json:"status"`
	Confidence      float64    `json:"confidence"`
	Scope           Scope      `json:"scope"`
	ProjectPath     string     `json:"project_path,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`

	// Denormalized read-side fields, populated by store joins so hydration
	// stays at one query per batch. Never written back.
	SubjectName string `json:"subject,omitempty"`
	ObjectName  string `json:"object_name,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Object returns the textual object of the fact: the literal when present,
// otherwise the object entity's canonical name.
func (f *Fact) Object() string {
	if f.ObjectLiteral != "" {
		return f.ObjectLiteral
	}
	return f.ObjectName
}

// ObjectMatches reports whether the given object text refers to the same
// value as this fact's object, compared case-insensitively after trimming.
func (f *Fact) ObjectMatches(object string) bool {
	return NormalizeObject(f.Object()) == NormalizeObject(object)
}

// Provenance is a receipt proving a fact: a quote from a content item and how
// strongly it supports the claim. A fact with zero receipts is invalid.
type Provenance struct {
	ID            string   `json:"id"`
	FactID        string   `json:"fact_id"`
	ContentItemID string   `json:"content_item_id"`
	Quote         string   `json:"quote"`
	Strength      Strength `json:"strength"`
	Attribution   string   `json:"attribution,omitempty"`
}

// FactLink is a directed lineage edge between two facts.
type FactLink struct {
	ID         string   `json:"id"`
	FromFactID string   `json:"from_fact_id"`
	ToFactID   string   `json:"to_fact_id"`
	LinkType   LinkType `json:"link_type"`
}

// Conflict records a contradiction between evidence and an existing fact that
// arrived without a supersession signal. FactBID is empty when the losing
// claim was never persisted as a fact row; its text lives in Notes.
type Conflict struct {
	ID         string         `json:"id"`
	FactAID    string         `json:"fact_a_id"`
	FactBID    string         `json:"fact_b_id,omitempty"`
	Status     ConflictStatus `json:"status"`
	DetectedAt time.Time      `json:"detected_at"`
	Notes      string         `json:"notes,omitempty"`
}

// FactWithReceipts pairs a fact with its provenance for query results.
type FactWithReceipts struct {
	Fact     *Fact         `json:"fact"`
	Receipts []*Provenance `json:"receipts"`
}

// FactPreview is the lightweight index-tier view of a fact. It deliberately
// carries no receipts and no temporal fields so each entry stays near a fixed
// small token cost.
type FactPreview struct {
	ID            string     `json:"id"`
	Subject       string     `json:"subject"`
	Predicate     string     `json:"predicate"`
	ObjectPreview string     `json:"object_preview"`
	Status        FactStatus `json:"status"`
	Scope         Scope      `json:"scope"`
	Confidence    float64    `json:"confidence"`
	TokenEstimate int        `json:"token_estimate"`
	Source        string     `json:"source,omitempty"`
}

// Explanation is the full story of a single fact. Present is false when the
// id does not exist; callers never receive a nil Explanation.
type Explanation struct {
	Present      bool          `json:"present"`
	Fact         *Fact         `json:"fact,omitempty"`
	Receipts     []*Provenance `json:"receipts,omitempty"`
	Supersedes   []string      `json:"supersedes,omitempty"`
	SupersededBy []string      `json:"superseded_by,omitempty"`
	Conflicts    []*Conflict   `json:"conflicts,omitempty"`
}

// ApplyResult aggregates the mutations performed by one resolver call.
type ApplyResult struct {
	EntitiesCreated   int `json:"entities_created"`
	FactsCreated      int `json:"facts_created"`
	FactsSuperseded   int `json:"facts_superseded"`
	ConflictsCreated  int `json:"conflicts_created"`
	ProvenanceCreated int `json:"provenance_created"`
}

// Add accumulates another result into r.
func (r *ApplyResult) Add(other *ApplyResult) {
	r.EntitiesCreated += other.EntitiesCreated
	r.FactsCreated += other.FactsCreated
	r.FactsSuperseded += other.FactsSuperseded
	r.ConflictsCreated += other.ConflictsCreated
	r.ProvenanceCreated += other.ProvenanceCreated
}

// ValidationError describes a malformed extraction entry. A resolver call
// that hits one aborts entirely with no partial writes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid extraction: %s %s", e.Field, e.Reason)
}

// NormalizeObject canonicalizes object text for equivalence checks: trimmed
// and lowercased.
func NormalizeObject(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Slugify converts a display name into the canonical slug used for entity
// deduplication: lowercase, alphanumeric runs joined by single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
