package extract

import (
	"regexp"
	"strings"
)

var (
	reFileExt     = regexp.MustCompile(`(?i)\.(pdf|png|jpe?g|tiff?)$`)
	reBoilerplate = regexp.MustCompile(`(?i)dozvola\s+za\s+boravak\s+i\s+rad|radna\s+dozvola`)
	reFileDate    = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)
	reSeparators  = regexp.MustCompile(`[-–_]`)
	reWhitespace  = regexp.MustCompile(`\s+`)
)

// NormalizeFilename derives a person name from a permit's file name, e.g.
// "Ivan Horvat - Radna dozvola 01.01.2024.pdf" -> "Ivan Horvat".
// The result is a fixed point: normalizing it again returns it unchanged.
func NormalizeFilename(filename string) string {
	name := filename
	for {
		next := normalizeOnce(name)
		if next == name {
			return next
		}
		name = next
	}
}

func normalizeOnce(name string) string {
	name = reFileExt.ReplaceAllString(name, "")
	name = reBoilerplate.ReplaceAllString(name, "")
	name = reFileDate.ReplaceAllString(name, "")
	name = reSeparators.ReplaceAllString(name, " ")
	name = reWhitespace.ReplaceAllString(name, " ")
	return strings.Trim(name, " .-_")
}
