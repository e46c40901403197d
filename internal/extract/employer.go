package extract

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/permits-ledger/constants"
)

// EmployerResolver decides the employer column of a record.
type EmployerResolver interface {
	// Match looks for the employer in recognized text.
	Match(text string) (string, bool)
	// Default is the value used when Match never succeeds.
	Default() string
	// NeedsText reports whether Match can ever succeed, i.e. whether the
	// scan has to keep looking for the employer.
	NeedsText() bool
}

// Strategy names accepted by NewEmployerResolver.
const (
	StrategyConstant        = "constant"
	StrategyMatchOrCategory = "match-or-category"
	StrategyMatch           = "match"
)

// NewEmployerResolver builds the resolver for strategy. category is the
// batch's selected agency; known is the list of employer names to look for.
func NewEmployerResolver(strategy string, category constants.Category, known []string) (EmployerResolver, error) {
	switch strategy {
	case StrategyConstant, "":
		return constantEmployer(category.Employer), nil
	case StrategyMatchOrCategory:
		return newListEmployer(known, category.Employer), nil
	case StrategyMatch:
		return newListEmployer(known, constants.DataNotFound), nil
	default:
		return nil, fmt.Errorf("unknown employer strategy %q", strategy)
	}
}

type constantEmployer string

func (c constantEmployer) Match(string) (string, bool) { return "", false }
func (c constantEmployer) Default() string             { return string(c) }
func (c constantEmployer) NeedsText() bool             { return false }

// listEmployer matches a fixed list of names as case-insensitive substrings.
type listEmployer struct {
	names    []string
	upper    []string
	fallback string
}

func newListEmployer(known []string, fallback string) *listEmployer {
	l := &listEmployer{fallback: fallback}
	for _, n := range known {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		l.names = append(l.names, n)
		l.upper = append(l.upper, strings.ToUpper(strings.Join(strings.Fields(n), " ")))
	}
	return l
}

// Match returns the first known name, in list order, found in text.
func (l *listEmployer) Match(text string) (string, bool) {
	hay := strings.ToUpper(strings.Join(strings.Fields(text), " "))
	for i, u := range l.upper {
		if strings.Contains(hay, u) {
			return l.names[i], true
		}
	}
	return "", false
}

func (l *listEmployer) Default() string { return l.fallback }
func (l *listEmployer) NeedsText() bool { return len(l.names) > 0 }
