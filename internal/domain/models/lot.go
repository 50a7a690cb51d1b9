package models

// SpeciesRef is the species node at the end of a lot's breed chain.
type SpeciesRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Breed identifies the breed a lot belongs to.
type Breed struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	Species *SpeciesRef `json:"species,omitempty"`
}

// Lot is a batch of animals acquired together.
type Lot struct {
	ID               int64   `json:"id"`
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	Breed            *Breed  `json:"breed,omitempty"`
	Quantity         *int    `json:"quantity"`          // live count, nil when the registry did not report it
	QuantityOriginal int     `json:"quantity_original"` // count at lot creation
	AcquisitionCost  float64 `json:"acquisition_cost"`  // total cost for QuantityOriginal units
	BirthDate        string  `json:"birth_date,omitempty"`
}

// HasKnownQuantity reports whether the live count is known.
func (l Lot) HasKnownQuantity() bool {
	return l.Quantity != nil
}

// SpeciesName returns the species name from the breed chain, or "".
func (l Lot) SpeciesName() string {
	if l.Breed == nil || l.Breed.Species == nil {
		return ""
	}
	return l.Breed.Species.Name
}

// FindLot returns the lot with the given id.
func FindLot(lots []Lot, id int64) (Lot, bool) {
	for _, lot := range lots {
		if lot.ID == id {
			return lot, true
		}
	}
	return Lot{}, false
}
