package pipeline

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/permits-ledger/constants"
	"github.com/joseph-ayodele/permits-ledger/internal/entity"
)

// Outcome is the result of one submitted document.
type Outcome struct {
	Input      string
	DocumentID uuid.UUID
	JobID      uuid.UUID
	Record     entity.Record
	Status     constants.JobStatus
	Err        error
	// Unresolved lists the fields that kept a placeholder or fell back to
	// the filename.
	Unresolved   []string
	Pages        int
	PagesScanned int
	Passes       int
	// Resolved is true when the scan latched at least one field.
	Resolved bool
}

// Summary reports a batch.
type Summary struct {
	BatchID    uuid.UUID
	Category   constants.Category
	LedgerPath string

	Submitted  int
	Written    int
	Failed     int
	Duplicates int
	// Complete, Partial and Empty split the written documents by how many
	// fields the scan resolved: all, some, none.
	Complete int
	Partial  int
	Empty    int

	Warnings []string
	Outcomes []Outcome
}

// NothingResolved reports that documents were processed but the scan
// resolved no field in any of them.
func (s Summary) NothingResolved() bool {
	return s.Submitted > 0 && s.Complete == 0 && s.Partial == 0
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Status {
	case constants.JobStatusFailed:
		s.Failed++
	case constants.JobStatusDuplicate:
		s.Duplicates++
	}
}

func (s *Summary) classify(o Outcome) {
	switch {
	case !o.Resolved:
		s.Empty++
	case len(o.Unresolved) == 0:
		s.Complete++
	default:
		s.Partial++
	}
}
