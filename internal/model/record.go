// Package model defines the records, series and analysis artifacts shared by
// the population pipeline stages.
package model

// Canonical column names, in schema order.
const (
	ColRegionCode   = "SIGLA_REGION"
	ColTerritory    = "TERRITORIO"
	ColYear         = "AÑO"
	ColAreaCategory = "AREA_GEOGRAFICA"
	ColTotal        = "TOTAL"
)

// StandardColumns is the schema every standardized extract shares.
var StandardColumns = []string{ColRegionCode, ColTerritory, ColYear, ColAreaCategory, ColTotal}

// RawRecord is one source row after column selection, before any parsing.
type RawRecord struct {
	Extract string    `json:"extract"`
	Row     int       `json:"row"` // 1-based row number in the source sheet
	Cells   [5]string `json:"cells"`
}

// StandardRecord is the canonical shape of a population row.
type StandardRecord struct {
	RegionCode   string   `json:"region_code"`
	Territory    string   `json:"territory"`
	Year         int      `json:"year"`
	AreaCategory string   `json:"area_category"`
	Total        float64  `json:"total"`
	Nulls        []string `json:"nulls,omitempty"` // canonical columns that were empty or unparseable
}

// Complete reports whether every column carried a value.
func (r StandardRecord) Complete() bool {
	return len(r.Nulls) == 0
}

// Values returns the record in canonical column order.
func (r StandardRecord) Values() []any {
	return []any{r.RegionCode, r.Territory, r.Year, r.AreaCategory, r.Total}
}
