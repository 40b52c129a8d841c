// Package transform merges standardized extracts into one filtered record
// set and aggregates it into a yearly series.
package transform

import (
	"go.uber.org/zap"

	"github.com/sells-group/popforecast/internal/model"
)

// Merge concatenates record sets in the order given. The result is a new
// slice; inputs are not modified.
func Merge(sets ...[]model.StandardRecord) []model.StandardRecord {
	n := 0
	for _, s := range sets {
		n += len(s)
	}
	out := make([]model.StandardRecord, 0, n)
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

// DropIncomplete removes records with a null in any column.
func DropIncomplete(records []model.StandardRecord) []model.StandardRecord {
	out := make([]model.StandardRecord, 0, len(records))
	for _, r := range records {
		if r.Complete() {
			out = append(out, r)
		}
	}
	return out
}

// Filter keeps records whose territory and area category match exactly.
func Filter(records []model.StandardRecord, territory, area string) []model.StandardRecord {
	out := make([]model.StandardRecord, 0, len(records))
	for _, r := range records {
		if r.Territory == territory && r.AreaCategory == area {
			out = append(out, r)
		}
	}
	return out
}

// MergeAndFilter concatenates the sets, drops incomplete rows, and keeps the
// target territory and area category. No match yields an empty slice, not an
// error.
func MergeAndFilter(territory, area string, sets ...[]model.StandardRecord) []model.StandardRecord {
	merged := Merge(sets...)
	complete := DropIncomplete(merged)
	filtered := Filter(complete, territory, area)

	zap.L().Info("transform: merged extracts",
		zap.Int("extracts", len(sets)),
		zap.Int("rows", len(merged)),
		zap.Int("complete", len(complete)),
		zap.Int("filtered", len(filtered)),
		zap.String("territory", territory),
		zap.String("area", area),
	)
	return filtered
}
