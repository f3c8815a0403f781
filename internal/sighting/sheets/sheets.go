// Package sheets stores the sighting table in a Google Sheets worksheet.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/logger"
)

const (
	valueInputRaw   = "RAW"
	renderFormatted = "FORMATTED_VALUE"
)

// Config addresses a worksheet
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
}

// Table is a sighting.Table backed by one worksheet.
type Table struct {
	values        *gsheets.SpreadsheetsValuesService
	spreadsheetID string
	sheetName     string
	log           logger.Logger
}

// New creates a Table. Extra client options are appended after the
// credentials option, so tests can point the client at a local server.
func New(ctx context.Context, cfg Config, log logger.Logger, opts ...option.ClientOption) (*Table, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.Newf("spreadsheet id is required").
			Component("sheets").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Sheet1"
	}
	if log == nil {
		log = logger.NewDiscardLogger()
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := gsheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, errors.New(fmt.Errorf("sheets: failed to create client: %w", err)).
			Component("sheets").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return &Table{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		log:           log.Module("sheets"),
	}, nil
}

// quoteSheet renders a sheet name for A1 notation. Embedded quotes are doubled.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// ReadAll returns every non-empty row of the worksheet as strings
func (t *Table) ReadAll(ctx context.Context) ([][]string, error) {
	resp, err := t.values.Get(t.spreadsheetID, quoteSheet(t.sheetName)).
		ValueRenderOption(renderFormatted).
		Context(ctx).
		Do()
	if err != nil {
		return nil, t.wrap(err, "read")
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, r := range resp.Values {
		row := make([]string, len(r))
		for i, v := range r {
			row[i] = fmt.Sprint(v)
		}
		rows = append(rows, row)
	}
	t.log.Debug("worksheet read", logger.Int("rows", len(rows)))
	return rows, nil
}

// ReplaceAll overwrites the worksheet with rows in a single update.
// Cells of the previous contents that fall outside rows are blanked in the
// same request.
func (t *Table) ReplaceAll(ctx context.Context, rows [][]string) error {
	current, err := t.ReadAll(ctx)
	if err != nil {
		return err
	}

	height := max(len(rows), len(current))
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	for _, r := range current {
		width = max(width, len(r))
	}

	values := make([][]any, height)
	for i := range values {
		row := make([]any, width)
		for j := range row {
			row[j] = ""
		}
		if i < len(rows) {
			for j, v := range rows[i] {
				row[j] = v
			}
		}
		values[i] = row
	}

	_, err = t.values.Update(t.spreadsheetID, quoteSheet(t.sheetName)+"!A1", &gsheets.ValueRange{Values: values}).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return t.wrap(err, "replace")
	}
	t.log.Debug("worksheet replaced",
		logger.Int("rows", len(rows)),
		logger.Int("blanked_rows", height-len(rows)))
	return nil
}

func (t *Table) wrap(err error, operation string) error {
	builder := errors.New(fmt.Errorf("sheets %s: %w", operation, err)).
		Component("sheets").
		Category(errors.CategoryNetwork).
		Context("operation", operation).
		Context("sheet", t.sheetName)

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		builder = builder.Context("status", apiErr.Code)
	}
	return builder.Build()
}
