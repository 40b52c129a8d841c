package extract

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/popforecast/internal/model"
)

// Standardize maps raw rows onto the canonical schema. Text is trimmed and
// NFC-normalized; year and total are parsed. Cells that are empty or do not
// parse are recorded as null rather than failing. When rule is non-nil the
// territory goes through the composite rewrite.
func Standardize(raw []model.RawRecord, rule *CompositeRule) []model.StandardRecord {
	out := make([]model.StandardRecord, 0, len(raw))
	for _, r := range raw {
		out = append(out, standardizeRecord(r, rule))
	}
	return out
}

// StandardizeBatch standardizes a loaded extract using its own descriptor.
func StandardizeBatch(b Batch) []model.StandardRecord {
	return Standardize(b.Records, b.Descriptor.Normalize)
}

func standardizeRecord(r model.RawRecord, rule *CompositeRule) model.StandardRecord {
	var rec model.StandardRecord
	null := func(col string) { rec.Nulls = append(rec.Nulls, col) }

	rec.RegionCode = normalizeText(r.Cells[0])
	if rec.RegionCode == "" {
		null(model.ColRegionCode)
	}

	rec.Territory = normalizeText(r.Cells[1])
	if rec.Territory == "" {
		null(model.ColTerritory)
	} else if rule != nil {
		rec.Territory = rule.Apply(rec.Territory)
	}

	if year, ok := parseYear(r.Cells[2]); ok {
		rec.Year = year
	} else {
		null(model.ColYear)
	}

	rec.AreaCategory = normalizeText(r.Cells[3])
	if rec.AreaCategory == "" {
		null(model.ColAreaCategory)
	}

	if total, ok := parseTotal(r.Cells[4]); ok {
		rec.Total = total
	} else {
		null(model.ColTotal)
	}

	return rec
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// parseYear accepts integral values such as "1985" or "1985.0".
func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// parseTotal accepts non-negative numbers with optional thousands
// separators ("6,407,102", "6.407.102", "6 407 102").
func parseTotal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.NewReplacer(",", "", " ", "", "\u00a0", "").Replace(s)
	if strings.Count(s, ".") > 1 {
		s = strings.ReplaceAll(s, ".", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
