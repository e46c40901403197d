package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/permits-ledger/constants"
	"github.com/joseph-ayodele/permits-ledger/internal/common"
	"github.com/joseph-ayodele/permits-ledger/internal/entity"
)

func record(name, link string) entity.Record {
	return entity.Record{
		PersonName: name,
		Employer:   constants.Agram.Employer,
		JobTitle:   "ZIDAR",
		ValidFrom:  "01.01.2024",
		ValidTo:    "01.01.2025",
		Link:       link,
	}
}

func TestAppendIsCumulative(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Radne_dozvole.xlsx")
	w := NewWriter(path, "Sheet1", nil)

	a := record("Ivan Horvat", "https://x/Agram/Processed/a.pdf")
	b := record("Ana Kovač", "https://x/Agram/Processed/b.pdf")

	res, err := w.Append([]entity.Record{a})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 2, res.FirstRow)

	res, err = w.Append([]entity.Record{b})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, 3, res.FirstRow)
	assert.Empty(t, res.Warnings)

	rows, err := w.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, a.Row(), rows[0])
	assert.Equal(t, b.Row(), rows[1])

	links, err := w.Links()
	require.NoError(t, err)
	assert.Equal(t, []string{a.Link, b.Link}, links)
}

func TestAppendWritesHeaderAndHyperlinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	w := NewWriter(path, "Evidencija", nil)

	rec := record("Ivan Horvat", "https://x/Main%20Partner/Processed/Ivan%20Horvat.pdf")
	_, err := w.Append([]entity.Record{rec})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Evidencija")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, constants.LedgerHeaders, rows[0])

	ok, target, err := f.GetCellHyperLink("Evidencija", "F2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, rec.Link, target)
}

func TestAppendKeepsPlaceholders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	w := NewWriter(path, "", nil)

	rec := entity.Record{
		PersonName: "Ivan Horvat",
		Employer:   constants.DataNotFound,
		JobTitle:   constants.DataNotFound,
		ValidFrom:  constants.DateNotFound,
		ValidTo:    constants.DateNotFound,
		Link:       "https://x/a.pdf",
	}
	_, err := w.Append([]entity.Record{rec})
	require.NoError(t, err)

	rows, err := w.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, rec.Row(), rows[0])
}

func TestAppendNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	w := NewWriter(path, "Sheet1", nil)

	res, err := w.Append(nil)
	require.NoError(t, err)
	assert.Zero(t, res.Appended)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRowsMissingWorkbook(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "none.xlsx"), "Sheet1", nil)
	rows, err := w.Rows()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAppendCorruptWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o644))

	w := NewWriter(path, "Sheet1", nil)
	_, err := w.Append([]entity.Record{record("Ivan Horvat", "https://x/a.pdf")})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrLedgerWrite)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not a workbook", string(data))
}
