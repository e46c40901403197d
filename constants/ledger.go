package constants

// Placeholder values for fields the scan could not resolve.
const (
	DataNotFound = "Data not found"
	DateNotFound = "Date not found"
)

// LedgerHeaders is the order-significant column header row.
var LedgerHeaders = []string{
	"Ime i prezime",
	"Poslodavac",
	"Radno mjesto",
	"Vrijedi od",
	"Vrijedi do",
	"Link",
}

// LinkColumn is the 1-based column index of the document link.
const LinkColumn = 6
