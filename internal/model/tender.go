// Package model defines the tender record types shared across the pipeline.
package model

// Sector classifies a tender into a broad industry bucket.
type Sector string

const (
	SectorTransport Sector = "Transport"
	SectorWater     Sector = "Water"
	SectorHealth    Sector = "Health"
	SectorEducation Sector = "Education"
	SectorIT        Sector = "IT/Digital"
	SectorEnergy    Sector = "Energy"
	SectorBuilding  Sector = "Building"
	SectorOther     Sector = "Other"
)

// Valid reports whether s is one of the known sectors.
func (s Sector) Valid() bool {
	switch s {
	case SectorTransport, SectorWater, SectorHealth, SectorEducation,
		SectorIT, SectorEnergy, SectorBuilding, SectorOther:
		return true
	}
	return false
}

// ContractType classifies what a tender procures.
type ContractType string

const (
	ContractWorks    ContractType = "Works"
	ContractGoods    ContractType = "Goods"
	ContractServices ContractType = "Services"
)

// Valid reports whether c is one of the known contract types.
func (c ContractType) Valid() bool {
	switch c {
	case ContractWorks, ContractGoods, ContractServices:
		return true
	}
	return false
}

// AllIndia is the location sentinel for tenders without a single state.
const AllIndia = "All India"

// TenderRecord is one procurement notice scraped from the listing page.
// The first four fields are always set once a row has been parsed; the
// pointer fields are populated by merging a complete Enrichment and stay
// nil when enrichment fails for the record.
type TenderRecord struct {
	Title             string        `json:"title" csv:"title"`
	ReferenceNumber   string        `json:"reference_number" csv:"reference_number"`
	Ministry          string        `json:"ministry" csv:"ministry"`
	ClosingDate       string        `json:"closing_date" csv:"closing_date"`
	Sector            *Sector       `json:"sector" csv:"sector"`
	EstimatedValueINR *float64      `json:"estimated_value_inr" csv:"estimated_value_inr"`
	LocationState     *string       `json:"location_state" csv:"location_state"`
	ContractType      *ContractType `json:"contract_type" csv:"contract_type"`
}

// Enrichment holds the four derived fields as a single unit so a record
// can only ever be merged with a complete, validated set. Individual
// values may still be null when the enrichment service could not infer
// them from the tender text.
type Enrichment struct {
	Sector            *Sector       `json:"sector"`
	EstimatedValueINR *float64      `json:"estimated_value_inr"`
	LocationState     *string       `json:"location_state"`
	ContractType      *ContractType `json:"contract_type"`
}

// Merge applies the enrichment to a record. Records are merged at most
// once per run; the caller owns that invariant.
func (t *TenderRecord) Merge(e Enrichment) {
	t.Sector = e.Sector
	t.EstimatedValueINR = e.EstimatedValueINR
	t.LocationState = e.LocationState
	t.ContractType = e.ContractType
}
