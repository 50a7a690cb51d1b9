package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmsales/internal/domain/models"
	"github.com/mamadbah2/farmsales/internal/service/drafts"
	"github.com/mamadbah2/farmsales/internal/service/reporting"
	"github.com/mamadbah2/farmsales/internal/service/sales"
)

// SalesService is the reconciliation engine as seen by the HTTP layer.
type SalesService interface {
	Lots(ctx context.Context) ([]sales.LotView, error)
	Quote(ctx context.Context, lotID int64, quantity int, unitPrice float64) (sales.Quote, error)
	StageDraft(item models.SaleLineItem) (models.SaleLineItem, error)
	Drafts() []models.SaleLineItem
	DiscardDraft(index int) error
	ClearDrafts()
	CommitDraft(ctx context.Context, index int) (sales.CommitResult, error)
	CommitSale(ctx context.Context, item models.SaleLineItem) (sales.CommitResult, error)
	UpdateSale(ctx context.Context, id int64, item models.SaleLineItem) (models.SaleRecord, error)
	DeleteSale(ctx context.Context, id int64) error
}

// ReportingService is the period aggregator as seen by the HTTP layer.
type ReportingService interface {
	ListSales(ctx context.Context, filter models.PeriodFilter) (models.DateRange, []models.SaleRecord, error)
	Dashboard(ctx context.Context, filter models.PeriodFilter, withRecords bool) (reporting.Dashboard, error)
}

// SalesHandler exposes lots, drafts, sales and the KPI dashboard over HTTP.
type SalesHandler struct {
	sales     SalesService
	reporting ReportingService
	logger    *zap.Logger
}

// NewSalesHandler constructs the HTTP handler adapter.
func NewSalesHandler(salesSvc SalesService, reportingSvc ReportingService, logger *zap.Logger) *SalesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalesHandler{sales: salesSvc, reporting: reportingSvc, logger: logger}
}

type quoteRequest struct {
	LotID     int64   `json:"lot_id" binding:"required"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// ListLots returns lots with their unit cost.
func (h *SalesHandler) ListLots(c *gin.Context) {
	lots, err := h.sales.Lots(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lots": lots})
}

// Quote previews a sale against the lot's stock.
func (h *SalesHandler) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	quote, err := h.sales.Quote(c.Request.Context(), req.LotID, req.Quantity, req.UnitPrice)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// ListDrafts returns the staged sales.
func (h *SalesHandler) ListDrafts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"drafts": h.sales.Drafts()})
}

// AddDraft stages a sale.
func (h *SalesHandler) AddDraft(c *gin.Context) {
	var item models.SaleLineItem
	if err := c.ShouldBindJSON(&item); err != nil {
		h.badRequest(c, err)
		return
	}

	staged, err := h.sales.StageDraft(item)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, staged)
}

// DeleteDraft unstages one sale.
func (h *SalesHandler) DeleteDraft(c *gin.Context) {
	index, ok := h.intParam(c, "index")
	if !ok {
		return
	}
	if err := h.sales.DiscardDraft(index); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearDrafts unstages every sale.
func (h *SalesHandler) ClearDrafts(c *gin.Context) {
	h.sales.ClearDrafts()
	c.Status(http.StatusNoContent)
}

// CommitDraft commits one staged sale.
func (h *SalesHandler) CommitDraft(c *gin.Context) {
	index, ok := h.intParam(c, "index")
	if !ok {
		return
	}
	result, err := h.sales.CommitDraft(c.Request.Context(), index)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// CreateSale commits a sale directly.
func (h *SalesHandler) CreateSale(c *gin.Context) {
	var item models.SaleLineItem
	if err := c.ShouldBindJSON(&item); err != nil {
		h.badRequest(c, err)
		return
	}

	result, err := h.sales.CommitSale(c.Request.Context(), item)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// UpdateSale replaces a committed sale.
func (h *SalesHandler) UpdateSale(c *gin.Context) {
	id, ok := h.int64Param(c, "id")
	if !ok {
		return
	}
	var item models.SaleLineItem
	if err := c.ShouldBindJSON(&item); err != nil {
		h.badRequest(c, err)
		return
	}

	record, err := h.sales.UpdateSale(c.Request.Context(), id, item)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// DeleteSale removes a committed sale.
func (h *SalesHandler) DeleteSale(c *gin.Context) {
	id, ok := h.int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.sales.DeleteSale(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSales returns the committed sales of the requested period.
func (h *SalesHandler) ListSales(c *gin.Context) {
	rng, records, err := h.reporting.ListSales(c.Request.Context(), periodFilter(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if records == nil {
		records = []models.SaleRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"range": rng, "sales": records})
}

// Dashboard returns the KPIs of the requested period.
func (h *SalesHandler) Dashboard(c *gin.Context) {
	withRecords := c.Query("records") == "true"
	d, err := h.reporting.Dashboard(c.Request.Context(), periodFilter(c), withRecords)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func periodFilter(c *gin.Context) models.PeriodFilter {
	return models.PeriodFilter{
		Kind:  models.ParsePeriodKind(c.Query("period")),
		Month: c.Query("month"),
		Year:  c.Query("year"),
		From:  c.Query("from"),
		To:    c.Query("to"),
	}
}

func (h *SalesHandler) intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		h.badRequest(c, err)
		return 0, false
	}
	return v, true
}

func (h *SalesHandler) int64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		h.badRequest(c, err)
		return 0, false
	}
	return v, true
}

func (h *SalesHandler) badRequest(c *gin.Context, err error) {
	h.logger.Warn("invalid request", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

func (h *SalesHandler) fail(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	var persistenceErr *models.PersistenceError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.Is(err, drafts.ErrDraftNotFound), errors.Is(err, sales.ErrLotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, drafts.ErrDraftInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &persistenceErr):
		h.logger.Error("backend call failed", zap.String("op", persistenceErr.Op), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "farm backend unavailable, please retry"})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
