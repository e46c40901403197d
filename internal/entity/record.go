package entity

import "github.com/joseph-ayodele/permits-ledger/constants"

// Record is one ledger row: the fields extracted from a single permit.
type Record struct {
	PersonName string `json:"person_name"`
	Employer   string `json:"employer"`
	JobTitle   string `json:"job_title"`
	ValidFrom  string `json:"valid_from"`
	ValidTo    string `json:"valid_to"`
	Link       string `json:"link"`
}

// Row returns the record in ledger column order.
func (r Record) Row() []string {
	return []string{r.PersonName, r.Employer, r.JobTitle, r.ValidFrom, r.ValidTo, r.Link}
}

// Unresolved lists the ledger columns still holding a placeholder.
func (r Record) Unresolved() []string {
	var out []string
	if r.Employer == constants.DataNotFound {
		out = append(out, "employer")
	}
	if r.JobTitle == constants.DataNotFound {
		out = append(out, "job_title")
	}
	if r.ValidFrom == constants.DateNotFound {
		out = append(out, "valid_from")
	}
	if r.ValidTo == constants.DateNotFound {
		out = append(out, "valid_to")
	}
	return out
}
