package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmsales/internal/domain/models"
)

const dateLayout = "2006-01-02"

// ErrLotNotFound indicates the lot registry does not know the requested lot.
var ErrLotNotFound = errors.New("lot not found")

// LotRegistry is the read side of the remote lot store.
type LotRegistry interface {
	GetLots(ctx context.Context) ([]models.Lot, error)
}

// Ledger persists committed sales.
type Ledger interface {
	ListSales(ctx context.Context, rng models.DateRange) ([]models.SaleRecord, error)
	CreateSale(ctx context.Context, item models.SaleLineItem) (models.SaleRecord, error)
	UpdateSale(ctx context.Context, id int64, item models.SaleLineItem) (models.SaleRecord, error)
	DeleteSale(ctx context.Context, id int64) error
}

// DraftStaging is the positional buffer of uncommitted sales. Claim and Settle
// bracket a commit so the committed item is the one unstaged.
type DraftStaging interface {
	Add(item models.SaleLineItem)
	Claim(index int) (uint64, models.SaleLineItem, error)
	Settle(token uint64, committed bool) bool
	RemoveAt(index int) error
	Clear()
	Items() []models.SaleLineItem
}

// Listener observes committed sales and lot depletions. Implementations handle
// their own failures; the sale has already been committed when they run, and the
// context they get is not cancelled with the request.
type Listener interface {
	SaleCommitted(ctx context.Context, record models.SaleRecord)
	LotDepleted(ctx context.Context, event models.LotDepleted)
}

// CommitResult describes a sale accepted by the ledger.
type CommitResult struct {
	Record            models.SaleRecord `json:"record"`
	RequestedQuantity int               `json:"requested_quantity"`
	Clamped           bool              `json:"clamped"`
	CostOfSale        float64           `json:"cost_of_sale"`
	Margin            float64           `json:"margin"`
	RemainingStock    *int              `json:"remaining_stock,omitempty"`
	Depleted          bool              `json:"depleted"`
}

// Quote previews a sale against the lot's current stock without committing it.
type Quote struct {
	LotID             int64   `json:"lot_id"`
	Available         *int    `json:"available,omitempty"`
	RequestedQuantity int     `json:"requested_quantity"`
	Quantity          int     `json:"quantity"`
	Clamped           bool    `json:"clamped"`
	UnitPrice         float64 `json:"unit_price"`
	Total             float64 `json:"total"`
	UnitCost          float64 `json:"unit_cost"`
	CostOfSale        float64 `json:"cost_of_sale"`
	Margin            float64 `json:"margin"`
}

// LotView is a lot enriched with its derived costing figures.
type LotView struct {
	models.Lot
	Species  string  `json:"species"`
	UnitCost float64 `json:"unit_cost"`
	Depleted bool    `json:"depleted"`
}

// Engine turns sale intents into validated ledger entries and keeps lot stock consistent.
type Engine struct {
	lots      LotRegistry
	ledger    Ledger
	drafts    DraftStaging
	listeners []Listener
	logger    *zap.Logger
	now       func() time.Time
}

// NewEngine wires a reconciliation engine for one session.
func NewEngine(lots LotRegistry, ledger Ledger, drafts DraftStaging, logger *zap.Logger, listeners ...Listener) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		lots:      lots,
		ledger:    ledger,
		drafts:    drafts,
		listeners: listeners,
		logger:    logger,
		now:       time.Now,
	}
}

// Lots returns the registry's lots with unit cost and depletion flags.
func (e *Engine) Lots(ctx context.Context) ([]LotView, error) {
	lots, err := e.loadLots(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]LotView, 0, len(lots))
	for _, lot := range lots {
		views = append(views, LotView{
			Lot:      lot,
			Species:  lot.SpeciesName(),
			UnitCost: UnitCost(lot),
			Depleted: lot.HasKnownQuantity() && *lot.Quantity == 0,
		})
	}
	return views, nil
}

// Quote computes the clamped quantity, total and cost figures for a prospective sale.
func (e *Engine) Quote(ctx context.Context, lotID int64, quantity int, unitPrice float64) (Quote, error) {
	probe := models.SaleLineItem{LotID: lotID, Quantity: quantity, UnitPrice: unitPrice}
	if err := probe.Validate(); err != nil {
		return Quote{}, err
	}

	lots, err := e.loadLots(ctx)
	if err != nil {
		return Quote{}, err
	}
	lot, ok := models.FindLot(lots, lotID)
	if !ok {
		return Quote{}, fmt.Errorf("quote lot %d: %w", lotID, ErrLotNotFound)
	}

	qty := ClampToStock(lot, quantity)
	total := ComputeTotal(float64(qty), unitPrice)
	cost := CostOfSale(&lot, qty)
	return Quote{
		LotID:             lotID,
		Available:         lot.Quantity,
		RequestedQuantity: quantity,
		Quantity:          qty,
		Clamped:           qty != quantity,
		UnitPrice:         unitPrice,
		Total:             total,
		UnitCost:          UnitCost(lot),
		CostOfSale:        cost,
		Margin:            round2(total - cost),
	}, nil
}

// StageDraft validates item, fills its total and date, and appends it to the draft buffer.
func (e *Engine) StageDraft(item models.SaleLineItem) (models.SaleLineItem, error) {
	if err := item.Validate(); err != nil {
		return models.SaleLineItem{}, err
	}
	item = e.normalize(item)
	e.drafts.Add(item)
	return item, nil
}

// Drafts returns the staged items.
func (e *Engine) Drafts() []models.SaleLineItem {
	return e.drafts.Items()
}

// DiscardDraft unstages the item at index without committing it.
func (e *Engine) DiscardDraft(index int) error {
	return e.drafts.RemoveAt(index)
}

// ClearDrafts unstages every item.
func (e *Engine) ClearDrafts() {
	e.drafts.Clear()
}

// CommitSale validates item, clamps it to the lot's stock and submits it to the ledger.
// When the sale empties the lot, listeners receive a LotDepleted event.
func (e *Engine) CommitSale(ctx context.Context, item models.SaleLineItem) (CommitResult, error) {
	if err := item.Validate(); err != nil {
		return CommitResult{}, err
	}

	lots, err := e.loadLots(ctx)
	if err != nil {
		return CommitResult{}, err
	}
	lot, known := models.FindLot(lots, item.LotID)
	if !known {
		e.logger.Warn("committing sale for lot unknown to the registry", zap.Int64("lot_id", item.LotID))
	}

	requested := item.Quantity
	if known {
		item.Quantity = ClampToStock(lot, requested)
		if item.Quantity <= 0 {
			return CommitResult{}, &models.ValidationError{Field: "quantity", Reason: "exceeds stock: lot has no animals left"}
		}
		if item.LotCode == "" {
			item.LotCode = lot.Code
		}
		if item.AnimalName == "" {
			item.AnimalName = lotAnimalName(lot)
		}
	}
	item = e.normalize(item)

	record, err := e.ledger.CreateSale(ctx, item)
	if err != nil {
		return CommitResult{}, &models.PersistenceError{Op: "create sale", Err: err}
	}
	if record.ID <= 0 {
		return CommitResult{}, &models.PersistenceError{Op: "create sale", Err: errors.New("ledger returned a sale without id")}
	}

	result := CommitResult{
		Record:            record,
		RequestedQuantity: requested,
		Clamped:           item.Quantity != requested,
	}
	if result.Clamped {
		e.logger.Info("sale quantity clamped to stock",
			zap.Int64("lot_id", item.LotID),
			zap.Int("requested", requested),
			zap.Int("committed", item.Quantity))
	}

	if known {
		result.CostOfSale = CostOfSale(&lot, item.Quantity)
		if lot.HasKnownQuantity() {
			remaining := max(0, *lot.Quantity-item.Quantity)
			result.RemainingStock = &remaining
			result.Depleted = remaining == 0
		}
	}
	result.Margin = round2(record.Total - result.CostOfSale)

	e.logger.Info("sale committed",
		zap.Int64("sale_id", record.ID),
		zap.Int64("lot_id", record.LotID),
		zap.Int("quantity", record.Quantity),
		zap.Float64("total", record.Total))

	listenerCtx := context.WithoutCancel(ctx)
	for _, l := range e.listeners {
		l.SaleCommitted(listenerCtx, record)
	}
	if result.Depleted {
		event := models.LotDepleted{LotID: lot.ID, LotCode: lot.Code, SaleID: record.ID, At: e.now()}
		e.logger.Info("lot depleted", zap.Int64("lot_id", lot.ID), zap.String("lot_code", lot.Code))
		for _, l := range e.listeners {
			l.LotDepleted(listenerCtx, event)
		}
	}

	return result, nil
}

// CommitDraft commits the staged item at index and unstages that item once the ledger
// accepts it, even if other requests moved it meanwhile. On failure the draft stays staged.
// A draft already being committed yields drafts.ErrDraftInFlight.
func (e *Engine) CommitDraft(ctx context.Context, index int) (CommitResult, error) {
	token, item, err := e.drafts.Claim(index)
	if err != nil {
		return CommitResult{}, err
	}

	result, err := e.CommitSale(ctx, item)
	if err != nil {
		e.drafts.Settle(token, false)
		return CommitResult{}, err
	}

	if !e.drafts.Settle(token, true) {
		e.logger.Warn("committed draft was cleared before it could be unstaged", zap.Int("index", index))
	}
	return result, nil
}

// UpdateSale replaces a committed sale.
func (e *Engine) UpdateSale(ctx context.Context, id int64, item models.SaleLineItem) (models.SaleRecord, error) {
	if id <= 0 {
		return models.SaleRecord{}, &models.ValidationError{Field: "id", Reason: "is required"}
	}
	if err := item.Validate(); err != nil {
		return models.SaleRecord{}, err
	}

	record, err := e.ledger.UpdateSale(ctx, id, e.normalize(item))
	if err != nil {
		return models.SaleRecord{}, &models.PersistenceError{Op: fmt.Sprintf("update sale %d", id), Err: err}
	}
	return record, nil
}

// DeleteSale removes a committed sale.
func (e *Engine) DeleteSale(ctx context.Context, id int64) error {
	if id <= 0 {
		return &models.ValidationError{Field: "id", Reason: "is required"}
	}
	if err := e.ledger.DeleteSale(ctx, id); err != nil {
		return &models.PersistenceError{Op: fmt.Sprintf("delete sale %d", id), Err: err}
	}
	return nil
}

func (e *Engine) loadLots(ctx context.Context) ([]models.Lot, error) {
	lots, err := e.lots.GetLots(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "load lots", Err: err}
	}
	return lots, nil
}

func (e *Engine) normalize(item models.SaleLineItem) models.SaleLineItem {
	if item.Date == "" {
		item.Date = e.now().Format(dateLayout)
	}
	item.Total = ComputeTotal(float64(item.Quantity), item.UnitPrice)
	return item
}

func lotAnimalName(lot models.Lot) string {
	if lot.Breed != nil && lot.Breed.Name != "" {
		return lot.Breed.Name
	}
	return lot.Name
}

func round2(v float64) float64 {
	return ComputeTotal(v, 1)
}
