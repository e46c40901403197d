package scan

import (
	"github.com/joseph-ayodele/permits-ledger/constants"
)

// Field identifies one tracked permit field.
type Field uint8

const (
	FieldName Field = 1 << iota
	FieldDates
	FieldJobTitle
	FieldEmployer
)

// FieldSet is a bit set of fields.
type FieldSet uint8

// Has reports whether f is in s.
func (s FieldSet) Has(f Field) bool { return s&FieldSet(f) != 0 }

// Covers reports whether every field of other is in s.
func (s FieldSet) Covers(other FieldSet) bool { return s&other == other }

func (s FieldSet) String() string {
	var out []byte
	for _, f := range []struct {
		f    Field
		name string
	}{{FieldName, "name"}, {FieldDates, "dates"}, {FieldJobTitle, "job_title"}, {FieldEmployer, "employer"}} {
		if s.Has(f.f) {
			if len(out) > 0 {
				out = append(out, ',')
			}
			out = append(out, f.name...)
		}
	}
	return string(out)
}

// Fields builds a FieldSet.
func Fields(fs ...Field) FieldSet {
	var s FieldSet
	for _, f := range fs {
		s |= FieldSet(f)
	}
	return s
}

// State accumulates field values for one document. A field is latched by
// its first successful match; later passes never overwrite it.
type State struct {
	Name      string
	ValidFrom string
	ValidTo   string
	JobTitle  string
	Employer  string

	found FieldSet
}

// NewState returns a State with every field unresolved.
func NewState() *State {
	return &State{
		JobTitle:  constants.DataNotFound,
		Employer:  constants.DataNotFound,
		ValidFrom: constants.DateNotFound,
		ValidTo:   constants.DateNotFound,
	}
}

// Found reports whether f has been latched.
func (s *State) Found(f Field) bool { return s.found.Has(f) }

// Resolved returns the set of latched fields.
func (s *State) Resolved() FieldSet { return s.found }

// SetName latches the person name. It returns false if already latched.
func (s *State) SetName(name string) bool {
	if s.Found(FieldName) {
		return false
	}
	s.Name = name
	s.found |= FieldSet(FieldName)
	return true
}

// SetDates latches the validity interval; an empty from keeps the placeholder.
func (s *State) SetDates(from, to string) bool {
	if s.Found(FieldDates) {
		return false
	}
	if from != "" {
		s.ValidFrom = from
	}
	s.ValidTo = to
	s.found |= FieldSet(FieldDates)
	return true
}

// SetJobTitle latches the job title.
func (s *State) SetJobTitle(title string) bool {
	if s.Found(FieldJobTitle) {
		return false
	}
	s.JobTitle = title
	s.found |= FieldSet(FieldJobTitle)
	return true
}

// SetEmployer latches the employer.
func (s *State) SetEmployer(employer string) bool {
	if s.Found(FieldEmployer) {
		return false
	}
	s.Employer = employer
	s.found |= FieldSet(FieldEmployer)
	return true
}
