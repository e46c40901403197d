package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/permits-ledger/constants"
	"github.com/joseph-ayodele/permits-ledger/internal/common"
)

func TestParse(t *testing.T) {
	cats, err := Parse([]byte(`
categories:
  - employer: AGRAM EMPLOYMENT D.O.O.
    folder: Agram
  - employer: "NOVA AGENCIJA D.O.O."
    folder: "Nova Agencija"
`))
	require.NoError(t, err)
	assert.Equal(t, []constants.Category{
		constants.Agram,
		{Employer: "NOVA AGENCIJA D.O.O.", Folder: "Nova Agencija"},
	}, cats)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not yaml", doc: "categories: [::"},
		{name: "empty list", doc: "categories: []"},
		{name: "missing folder", doc: "categories:\n  - employer: A\n"},
		{name: "unknown key", doc: "categories:\n  - employer: A\n    folder: B\n    color: red\n"},
		{name: "nested folder", doc: "categories:\n  - employer: A\n    folder: a/b\n"},
		{name: "processed folder", doc: "categories:\n  - employer: A\n    folder: Processed\n"},
		{name: "duplicate folder", doc: "categories:\n  - employer: A\n    folder: X\n  - employer: B\n    folder: x\n"},
		{name: "duplicate employer", doc: "categories:\n  - employer: A\n    folder: X\n  - employer: a\n    folder: Y\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}

func TestLoad(t *testing.T) {
	cats, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultCategories(), cats)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - employer: GLOBAL TEAM NETWORK D.O.O.\n    folder: GTM\n"), 0o644))
	cats, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, []constants.Category{constants.GlobalTeam}, cats)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
