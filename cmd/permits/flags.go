package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/permits-ledger/internal/common"
)

// flagOverrides are persistent flags that take precedence over the
// environment.
type flagOverrides struct {
	root        string
	baseURL     string
	ledger      string
	catalog     string
	dbURL       string
	noIndex     bool
	logLevel    string
	logFormat   string
	employer    string
	stopPolicy  string
	dpis        []int
	noTextLayer bool
}

func (o *flagOverrides) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.root, "root", "", "storage root holding the category folders (PERMITS_ROOT)")
	f.StringVar(&o.baseURL, "base-url", "", "URL under which the storage root is reachable (PERMITS_BASE_URL)")
	f.StringVar(&o.ledger, "ledger", "", "ledger XLSX file, relative to the root unless absolute (PERMITS_LEDGER_FILE)")
	f.StringVar(&o.catalog, "catalog", "", "YAML category catalog replacing the built-in agencies (PERMITS_CATALOG)")
	f.StringVar(&o.dbURL, "db", "", "document index: sqlite file or postgres:// URL (PERMITS_DB_URL)")
	f.BoolVar(&o.noIndex, "no-index", false, "do not record documents and jobs in the index")
	f.StringVar(&o.logLevel, "log-level", "", "debug | info | warn | error (PERMITS_LOG_LEVEL)")
	f.StringVar(&o.logFormat, "log-format", "", "text | json (PERMITS_LOG_FORMAT)")
	f.StringVar(&o.employer, "employer-strategy", "", "constant | match-or-category | match (PERMITS_EMPLOYER_STRATEGY)")
	f.StringVar(&o.stopPolicy, "stop-policy", "", "all-or-dates | all (PERMITS_STOP_POLICY)")
	f.IntSliceVar(&o.dpis, "dpi", nil, "rasterization resolutions tried per page, in order (PERMITS_DPI)")
	f.BoolVar(&o.noTextLayer, "no-text-layer", false, "skip the embedded PDF text and always OCR")
}

func (o *flagOverrides) apply(cfg *common.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Storage.Root, o.root)
	set(&cfg.Storage.BaseURL, o.baseURL)
	set(&cfg.Storage.LedgerFile, o.ledger)
	set(&cfg.Storage.CatalogPath, o.catalog)
	set(&cfg.Database.DSN, o.dbURL)
	set(&cfg.Log.Level, o.logLevel)
	set(&cfg.Log.Format, o.logFormat)
	set(&cfg.Pipeline.EmployerStrategy, o.employer)
	set(&cfg.Pipeline.StopPolicy, o.stopPolicy)
	if len(o.dpis) > 0 {
		cfg.OCR.DPIs = o.dpis
	}
	if o.noTextLayer {
		cfg.OCR.TextLayer = false
	}
	if o.noIndex {
		cfg.Database.Enabled = false
	}
}
