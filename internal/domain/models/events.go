package models

import "time"

// LotDepleted signals that a committed sale brought a lot's live count to zero.
// The lot registry decides what to do with the lot; this is only a notification.
type LotDepleted struct {
	LotID   int64     `json:"lot_id"`
	LotCode string    `json:"lot_code"`
	SaleID  int64     `json:"sale_id"`
	At      time.Time `json:"at"`
}
