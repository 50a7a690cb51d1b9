package models

import "time"

// SalesSnapshot is the daily KPI aggregate stored in MongoDB.
type SalesSnapshot struct {
	Date            string             `bson:"date" json:"date"`
	RecordCount     int                `bson:"record_count" json:"record_count"`
	CountBySpecies  map[string]int     `bson:"count_by_species" json:"count_by_species"`
	AmountBySpecies map[string]float64 `bson:"amount_by_species" json:"amount_by_species"`
	TotalCount      int                `bson:"total_count" json:"total_count"`
	TotalAmount     float64            `bson:"total_amount" json:"total_amount"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}
