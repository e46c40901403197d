package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Matchers holds the compiled patterns for every permit field. It is
// immutable after NewMatchers and safe to share.
type Matchers struct {
	validity  *regexp.Regexp
	date      *regexp.Regexp
	name      *regexp.Regexp
	position  *regexp.Regexp
	lineBreak *regexp.Regexp
	spaces    *regexp.Regexp
}

const datePat = `\d{2}\.\d{2}\.\d{4}`

// NewMatchers compiles the permit field patterns.
func NewMatchers() *Matchers {
	return &Matchers{
		// "3. Dozvola za boravak i rad vrijedi od 01.01.2024. do 01.01.2025"
		// "Rok važenja dozvole za boravak i rad je 01.01.2024. - 01.01.2025"
		// The first date is optional in both forms: some permits only state expiry.
		validity: regexp.MustCompile(
			`(?i)(?:\d+\.\s*)?dozvola\s+za\s+boravak\s+i\s+rad\s+vrijedi\s+(?:od\s+` + datePat + `\.?\s*)?do\s*` + datePat +
				`|(?:\d+\.\s*)?rok\s+va[žz]enja\s+dozvole\s+za\s+boravak\s+i\s+rad\s+(?:je\s+)?(?:` + datePat + `\.?\s*[-–]?\s*)?` + datePat),
		date: regexp.MustCompile(datePat),
		// Without a comma only a lower-case "rođ" ends the name, so surnames
		// such as ROĐAK stay whole.
		name: regexp.MustCompile(
			`(?i:za\s+državljanina\s+treće\s+zemlje:)\s*([A-ZČĆŠĐŽ][A-ZČĆŠĐŽ\s]*?)\s*,\s*(?i:rođ)` +
				`|(?i:dozvola\s+za\s+boravak\s+i\s+rad\s+izdaje\s+se)\s+([A-ZČĆŠĐŽ][A-ZČĆŠĐŽ\s]*?)(?:\s*,\s*(?i:rođ)|\s+rođ)`),
		position: regexp.MustCompile(
			`(?i)(?:za\s+radno\s+mjesto(?:\s+kod\s+korisnika)?|za\s+zanimanje)\s*[:\-–]?\s*` +
				`([a-zčćšđž/\-\s]+?)` +
				`\s*(?:,|\.|\bkod\s+poslodavca\b|$|\d+\.\s|za\s+zanimanje)`),
		lineBreak: regexp.MustCompile(`[-\n\r]+`),
		spaces:    regexp.MustCompile(`\s+`),
	}
}

// Validity finds the validity sentence and returns its dates. With two dates
// both from and to are set; with one date only to is set.
func (m *Matchers) Validity(text string) (from, to string, ok bool) {
	sentence := m.validity.FindString(text)
	if sentence == "" {
		return "", "", false
	}
	dates := m.date.FindAllString(sentence, -1)
	switch len(dates) {
	case 2:
		return dates[0], dates[1], true
	case 1:
		return "", dates[0], true
	default:
		return "", "", false
	}
}

// PersonName returns the permit holder's name in title case.
func (m *Matchers) PersonName(text string) (string, bool) {
	sub := m.name.FindStringSubmatch(text)
	if sub == nil {
		return "", false
	}
	raw := sub[1]
	if raw == "" {
		raw = sub[2]
	}
	raw = strings.TrimSpace(m.spaces.ReplaceAllString(raw, " "))
	if raw == "" {
		return "", false
	}
	return TitleCase(raw), true
}

// JobTitle returns the upper-cased job position or occupation.
func (m *Matchers) JobTitle(text string) (string, bool) {
	flat := m.lineBreak.ReplaceAllString(text, " ")
	sub := m.position.FindStringSubmatch(flat)
	if sub == nil {
		return "", false
	}
	title := strings.TrimSpace(m.spaces.ReplaceAllString(sub[1], " "))
	if title == "" {
		return "", false
	}
	return strings.ToUpper(title), true
}

// TitleCase renders s with Croatian title-casing rules.
func TitleCase(s string) string {
	return cases.Title(language.Croatian).String(s)
}
