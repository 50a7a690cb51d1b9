package journal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmsales/internal/domain/models"
	repo "github.com/mamadbah2/farmsales/internal/repository/sheets"
)

const (
	salesWriteRange    = "Ventas!A:H"
	depletedWriteRange = "LotesAgotados!A:D"
	timestampLayout    = time.RFC3339
)

// Journal mirrors committed sales and lot depletions into a spreadsheet.
// Write failures are logged; the ledger stays the source of truth.
type Journal struct {
	repo   repo.RowAppender
	logger *zap.Logger
}

// New builds a spreadsheet journal.
func New(repository repo.RowAppender, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{repo: repository, logger: logger}
}

// SaleCommitted appends one row per committed sale.
func (j *Journal) SaleCommitted(ctx context.Context, record models.SaleRecord) {
	values := []interface{}{
		record.Date,
		record.ID,
		record.LotID,
		record.LotCode,
		record.AnimalName,
		record.Quantity,
		record.UnitPrice,
		record.Total,
	}
	if err := j.repo.AppendRows(ctx, salesWriteRange, values); err != nil {
		j.logger.Error("failed to journal sale", zap.Int64("sale_id", record.ID), zap.Error(err))
	}
}

// LotDepleted appends one row per depleted lot.
func (j *Journal) LotDepleted(ctx context.Context, event models.LotDepleted) {
	values := []interface{}{event.At.Format(timestampLayout), event.LotID, event.LotCode, event.SaleID}
	if err := j.repo.AppendRows(ctx, depletedWriteRange, values); err != nil {
		j.logger.Error("failed to journal lot depletion", zap.Int64("lot_id", event.LotID), zap.Error(err))
	}
}
