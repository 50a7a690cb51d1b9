package sheets

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/farmsales/internal/config"
)

// ErrEmptyRange is returned when rows are appended without a target range.
var ErrEmptyRange = errors.New("sheet range must not be empty")

// RowAppender appends rows below the last filled row of a sheet range.
type RowAppender interface {
	AppendRows(ctx context.Context, sheetRange string, rows ...[]interface{}) error
}

// Appender writes journal rows into one spreadsheet through the Sheets values API.
type Appender struct {
	values        *sheetsapi.SpreadsheetsValuesService
	spreadsheetID string
	logger        *zap.Logger
}

// NewAppender opens the spreadsheet configured in cfg. Without explicit client
// options the service account file at cfg.CredentialsPath is used.
func NewAppender(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger, opts ...option.ClientOption) (*Appender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet id must not be empty")
	}

	if len(opts) == 0 {
		opts = []option.ClientOption{
			option.WithCredentialsFile(cfg.CredentialsPath),
			option.WithScopes(sheetsapi.SpreadsheetsScope),
		}
	}
	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &Appender{
		values:        service.Spreadsheets.Values,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// AppendRows adds rows in a single append call. Values are parsed as if typed by a user
// so dates and numbers keep their spreadsheet types.
func (a *Appender) AppendRows(ctx context.Context, sheetRange string, rows ...[]interface{}) error {
	if sheetRange == "" {
		return ErrEmptyRange
	}
	if len(rows) == 0 {
		return nil
	}

	resp, err := a.values.Append(a.spreadsheetID, sheetRange, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append %d rows into %s: %w", len(rows), sheetRange, err)
	}

	fields := []zap.Field{zap.String("range", sheetRange), zap.Int("rows", len(rows))}
	if resp.Updates != nil {
		fields = append(fields, zap.String("updated_range", resp.Updates.UpdatedRange))
	}
	a.logger.Debug("rows appended to sheet", fields...)
	return nil
}
