package telemetry

import (
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/tenetdb/tenet/pkg/types"
)

// FactRecord is the flattened parquet row for one fact.
type FactRecord struct {
	ID          string    `parquet:"id"`
	Subject     string    `parquet:"subject"`
	Predicate   string    `parquet:"predicate"`
	Object      string    `parquet:"object"`
	Polarity    string    `parquet:"polarity"`
	Status      string    `parquet:"status"`
	Confidence  float64   `parquet:"confidence"`
	Scope       string    `parquet:"scope"`
	ProjectPath string    `parquet:"project_path"`
	ValidFrom   time.Time `parquet:"valid_from"`
	ValidTo     time.Time `parquet:"valid_to"`
	CreatedAt   time.Time `parquet:"created_at"`
	Source      string    `parquet:"source"`
}

// ExportFacts writes the facts as a parquet file at path.
func ExportFacts(path string, facts []*types.Fact) error {
	records := make([]FactRecord, len(facts))
	for i, f := range facts {
		r := FactRecord{
			ID:          f.ID,
			Subject:     f.SubjectName,
			Predicate:   f.Predicate,
			Object:      f.Object(),
			Polarity:    string(f.Polarity),
			Status:      string(f.Status),
			Confidence:  f.Confidence,
			Scope:       string(f.Scope),
			ProjectPath: f.ProjectPath,
			ValidFrom:   f.ValidFrom.UTC(),
			CreatedAt:   f.CreatedAt.UTC(),
			Source:      f.Source,
		}
		if f.ValidTo != nil {
			r.ValidTo = f.ValidTo.UTC()
		}
		records[i] = r
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("failed to export facts: %w", err)
	}
	return nil
}
