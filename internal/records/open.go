package records

import (
	"fmt"

	"prism/internal/config"
)

// Open builds the Store selected by cfg.Records.Driver.
func Open(cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("records: config is nil")
	}
	switch cfg.Records.Driver {
	case "", config.RecordsDriverNone:
		return None(), nil
	case config.RecordsDriverSQLite:
		return OpenSQLite(cfg.Records.SQLitePath)
	case config.RecordsDriverHTTP:
		return NewHTTPStore(cfg.Records.URL, cfg.Records.APIKey, WithTimeout(cfg.RecordsTimeout()))
	default:
		return nil, fmt.Errorf("records: unknown driver %q", cfg.Records.Driver)
	}
}
