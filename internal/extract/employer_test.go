package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/permits-ledger/constants"
)

func TestEmployerResolvers(t *testing.T) {
	known := constants.EmployerNames(constants.DefaultCategories())
	text := "kod poslodavca Agram Employment\nd.o.o., Zagreb"

	tests := []struct {
		name      string
		strategy  string
		text      string
		wantMatch string
		wantOK    bool
		wantDef   string
		needsText bool
	}{
		{
			name:     "constant ignores text",
			strategy: StrategyConstant,
			text:     text,
			wantDef:  constants.Abilitas.Employer,
		},
		{
			name:      "match or category",
			strategy:  StrategyMatchOrCategory,
			text:      text,
			wantMatch: constants.Agram.Employer,
			wantOK:    true,
			wantDef:   constants.Abilitas.Employer,
			needsText: true,
		},
		{
			name:      "match falls back to sentinel",
			strategy:  StrategyMatch,
			text:      "kod poslodavca NEPOZNATA TVRTKA",
			wantDef:   constants.DataNotFound,
			needsText: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewEmployerResolver(tt.strategy, constants.Abilitas, known)
			require.NoError(t, err)

			got, ok := r.Match(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantMatch, got)
			assert.Equal(t, tt.wantDef, r.Default())
			assert.Equal(t, tt.needsText, r.NeedsText())
		})
	}
}

func TestEmployerFirstMatchWins(t *testing.T) {
	r, err := NewEmployerResolver(StrategyMatch, constants.Category{}, []string{"MAIN PARTNER D.O.O.", "AGRAM EMPLOYMENT D.O.O."})
	require.NoError(t, err)

	got, ok := r.Match("AGRAM EMPLOYMENT D.O.O. i MAIN PARTNER D.O.O.")
	require.True(t, ok)
	assert.Equal(t, "MAIN PARTNER D.O.O.", got)
}

func TestUnknownEmployerStrategy(t *testing.T) {
	_, err := NewEmployerResolver("guess", constants.Abilitas, nil)
	assert.Error(t, err)
}
