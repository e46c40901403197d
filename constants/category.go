package constants

import (
	"strings"
)

// Category is an employment agency whose permits are filed together.
// Employer is the legal name written to the ledger; Folder is the
// directory name used for intake and archive.
type Category struct {
	Employer string
	Folder   string
}

var (
	Abilitas       = Category{Employer: "ABILITAS EMPLOYMENT D.O.O.", Folder: "Abilitas"}
	Agram          = Category{Employer: "AGRAM EMPLOYMENT D.O.O.", Folder: "Agram"}
	GlobalTeam     = Category{Employer: "GLOBAL TEAM NETWORK D.O.O.", Folder: "GTM"}
	MainPartner    = Category{Employer: "MAIN PARTNER D.O.O.", Folder: "Main Partner"}
	ZaposliStranca = Category{Employer: "ZAPOSLI STRANCA D.O.O.", Folder: "Zaposli Stranca"}
)

var allCategories = []Category{
	Abilitas,
	Agram,
	GlobalTeam,
	MainPartner,
	ZaposliStranca,
}

// DefaultCategories returns a copy of the built-in agency list.
func DefaultCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// EmployerNames returns the employer names of cats in order.
func EmployerNames(cats []Category) []string {
	result := make([]string, len(cats))
	for i, cat := range cats {
		result[i] = cat.Employer
	}
	return result
}

// Canonicalize resolves input against cats by employer name or folder,
// case-insensitively.
func Canonicalize(cats []Category, input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Category{}, false
	}

	for _, cat := range cats {
		if normalized == strings.ToLower(cat.Employer) || normalized == strings.ToLower(cat.Folder) {
			return cat, true
		}
	}

	return Category{}, false
}
