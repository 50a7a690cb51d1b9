package models

import (
	"encoding/json"
	"fmt"
)

// SaleLineItem is one sale of animals from a lot, either staged as a draft or committed.
type SaleLineItem struct {
	LotID      int64   `json:"lot_id"`
	LotCode    string  `json:"lot_code"`
	AnimalName string  `json:"animal_name"`
	Date       string  `json:"date"` // YYYY-MM-DD
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Total      float64 `json:"total"`
}

// Validate checks the shape rules a line item must satisfy before it reaches the ledger.
func (i SaleLineItem) Validate() error {
	switch {
	case i.LotID <= 0:
		return &ValidationError{Field: "lot_id", Reason: "is required"}
	case i.Quantity <= 0:
		return &ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	case i.UnitPrice < 0:
		return &ValidationError{Field: "unit_price", Reason: "must not be negative"}
	}
	return nil
}

// SaleRecord is a line item committed to the sales ledger.
// Fields the backend sends that are not modelled here are kept in Extra.
type SaleRecord struct {
	ID int64 `json:"id"`
	SaleLineItem
	Extra map[string]any `json:"-"`
}

var saleRecordFields = []string{"id", "lot_id", "lot_code", "animal_name", "date", "quantity", "unit_price", "total"}

// UnmarshalJSON decodes the known fields and collects the remaining ones into Extra.
func (r *SaleRecord) UnmarshalJSON(data []byte) error {
	type plain struct {
		ID int64 `json:"id"`
		SaleLineItem
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range saleRecordFields {
		delete(raw, key)
	}

	r.ID = p.ID
	r.SaleLineItem = p.SaleLineItem
	r.Extra = nil
	if len(raw) > 0 {
		r.Extra = raw
	}
	return nil
}

// MarshalJSON writes the known fields and merges Extra without letting it shadow them.
func (r SaleRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+len(saleRecordFields))
	for k, v := range r.Extra {
		out[k] = v
	}
	out["id"] = r.ID
	out["lot_id"] = r.LotID
	out["lot_code"] = r.LotCode
	out["animal_name"] = r.AnimalName
	out["date"] = r.Date
	out["quantity"] = r.Quantity
	out["unit_price"] = r.UnitPrice
	out["total"] = r.Total
	return json.Marshal(out)
}

// ValidateRecord checks a record decoded from the ledger.
func (r SaleRecord) ValidateRecord() error {
	if r.ID <= 0 {
		return fmt.Errorf("sale record without id")
	}
	if r.Quantity < 0 {
		return fmt.Errorf("sale record %d has negative quantity", r.ID)
	}
	if r.Total < 0 {
		return fmt.Errorf("sale record %d has negative total", r.ID)
	}
	return nil
}
