package app

import (
	"context"

	"github.com/turtleson01/bird-app/internal/conf"
	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/logger"
	"github.com/turtleson01/bird-app/internal/sighting"
	"github.com/turtleson01/bird-app/internal/sighting/sheets"
	"github.com/turtleson01/bird-app/internal/sighting/sqlstore"
)

// OpenTable opens the configured sighting backend. The returned close
// function may be nil.
func OpenTable(ctx context.Context, s conf.StoreSettings, log logger.Logger) (sighting.Table, func() error, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	switch s.Backend {
	case conf.BackendSheets:
		t, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:   s.Sheets.SpreadsheetID,
			SheetName:       s.Sheets.SheetName,
			CredentialsFile: s.Sheets.CredentialsFile,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return t, nil, nil
	case conf.BackendSQLite, "":
		t, err := sqlstore.OpenSQLite(s.SQLite.Path, log)
		if err != nil {
			return nil, nil, err
		}
		return t, t.Close, nil
	case conf.BackendMySQL:
		t, err := sqlstore.OpenMySQL(s.MySQL.DSN, log)
		if err != nil {
			return nil, nil, err
		}
		return t, t.Close, nil
	case conf.BackendMemory:
		log.Warn("using the in-memory sighting store; nothing is persisted")
		return sighting.NewMemoryTable(), nil, nil
	default:
		return nil, nil, errors.Newf("unknown store backend %q", s.Backend).
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}
}
