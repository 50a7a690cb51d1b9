package farmapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmsales/internal/config"
	"github.com/mamadbah2/farmsales/internal/domain/models"
)

// Client is a resty-backed client for the farm REST backend. It serves both as the
// lot registry and the sales ledger.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient builds a backend client using the provided configuration values.
func NewClient(cfg config.FarmAPIConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	restyClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)
	if cfg.Token != "" {
		restyClient.SetAuthToken(cfg.Token)
	}

	return &Client{httpClient: restyClient, logger: logger}
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("farm api error: status=%d", e.Status)
	}
	return fmt.Sprintf("farm api error: status=%d, message=%s", e.Status, e.Message)
}

// errorBody covers the two error shapes the backend answers with.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GetLots lists every lot known to the backend.
func (c *Client) GetLots(ctx context.Context) ([]models.Lot, error) {
	var lots []models.Lot
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&lots).
		SetError(&errorBody{}).
		Get("/lots")
	if err := checkResponse(resp, err, "list lots"); err != nil {
		return nil, err
	}
	return lots, nil
}

// ListSales lists committed sales within the inclusive range. Empty bounds are omitted.
// Records that fail validation are dropped.
func (c *Client) ListSales(ctx context.Context, rng models.DateRange) ([]models.SaleRecord, error) {
	req := c.httpClient.R().SetContext(ctx)
	if rng.From != "" {
		req.SetQueryParam("from", rng.From)
	}
	if rng.To != "" {
		req.SetQueryParam("to", rng.To)
	}

	var records []models.SaleRecord
	resp, err := req.SetResult(&records).SetError(&errorBody{}).Get("/sales")
	if err := checkResponse(resp, err, "list sales"); err != nil {
		return nil, err
	}

	valid := records[:0]
	for _, record := range records {
		if err := record.ValidateRecord(); err != nil {
			c.logger.Debug("skip invalid sale record", zap.Int64("id", record.ID), zap.Error(err))
			continue
		}
		valid = append(valid, record)
	}
	return valid, nil
}

// CreateSale commits a line item and returns the stored record.
func (c *Client) CreateSale(ctx context.Context, item models.SaleLineItem) (models.SaleRecord, error) {
	var record models.SaleRecord
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(item).
		SetResult(&record).
		SetError(&errorBody{}).
		Post("/sales")
	if err := checkResponse(resp, err, "create sale"); err != nil {
		return models.SaleRecord{}, err
	}
	return record, nil
}

// UpdateSale replaces the sale with the given id.
func (c *Client) UpdateSale(ctx context.Context, id int64, item models.SaleLineItem) (models.SaleRecord, error) {
	var record models.SaleRecord
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetBody(item).
		SetResult(&record).
		SetError(&errorBody{}).
		Put("/sales/{id}")
	if err := checkResponse(resp, err, "update sale"); err != nil {
		return models.SaleRecord{}, err
	}
	return record, nil
}

// DeleteSale removes the sale with the given id.
func (c *Client) DeleteSale(ctx context.Context, id int64) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetError(&errorBody{}).
		Delete("/sales/{id}")
	return checkResponse(resp, err, "delete sale")
}

func checkResponse(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode() < http.StatusBadRequest {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		apiErr.Message = body.Error
		if apiErr.Message == "" {
			apiErr.Message = body.Message
		}
	}
	return fmt.Errorf("%s: %w", op, apiErr)
}
