package common

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PERMITS_ROOT", "")
	t.Setenv("PERMITS_DPI", "")
	t.Setenv("PERMITS_DB_URL", "")

	cfg := LoadConfig()
	assert.Equal(t, "Radne_Dozvole_Evidencija", cfg.Storage.Root)
	assert.Equal(t, []int{150, 200, 300}, cfg.OCR.DPIs)
	assert.Equal(t, filepath.Join("Radne_Dozvole_Evidencija", "Radne_dozvole.xlsx"), cfg.LedgerPath())
	assert.Equal(t, filepath.Join("Radne_Dozvole_Evidencija", "permits.db"), cfg.DatabaseDSN())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PERMITS_ROOT", "/srv/permits")
	t.Setenv("PERMITS_LEDGER_FILE", "/var/ledger.xlsx")
	t.Setenv("PERMITS_BASE_URL", "https://files.example.com/permits/")
	t.Setenv("PERMITS_DPI", "200, 400")
	t.Setenv("PERMITS_TEXT_LAYER", "false")
	t.Setenv("PERMITS_DOC_TIMEOUT", "90s")
	t.Setenv("PERMITS_DB_URL", "postgres://u:p@localhost/permits")

	cfg := LoadConfig()
	assert.Equal(t, "https://files.example.com/permits", cfg.Storage.BaseURL)
	assert.Equal(t, []int{200, 400}, cfg.OCR.DPIs)
	assert.False(t, cfg.OCR.TextLayer)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.DocTimeout)
	assert.Equal(t, "/var/ledger.xlsx", cfg.LedgerPath())
	assert.Equal(t, "postgres://u:p@localhost/permits", cfg.DatabaseDSN())
}

func TestLoadConfigBadDPIFallsBack(t *testing.T) {
	t.Setenv("PERMITS_DPI", "150,abc")
	assert.Equal(t, DefaultDPIs, LoadConfig().OCR.DPIs)
}

func TestValidate(t *testing.T) {
	t.Setenv("PERMITS_BASE_URL", "https://files.example.com")
	t.Setenv("PERMITS_EMPLOYER_STRATEGY", "")
	t.Setenv("PERMITS_STOP_POLICY", "")
	t.Setenv("PERMITS_LOG_FORMAT", "")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())

	cfg.Storage.BaseURL = ""
	cfg.OCR.DPIs = []int{0}
	cfg.Pipeline.StopPolicy = "sometimes"
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
	assert.Contains(t, appErr.Message, "PERMITS_BASE_URL")
	assert.Contains(t, appErr.Message, "PERMITS_DPI")
	assert.Contains(t, appErr.Message, "PERMITS_STOP_POLICY")
}

func TestURLRule(t *testing.T) {
	assert.Nil(t, URL("u", "file:///srv/permits"))
	assert.NotNil(t, URL("u", "ftp://host/x"))
	assert.NotNil(t, URL("u", "relative/path"))
}
