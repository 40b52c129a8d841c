package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/popforecast/internal/config"
)

// writeExtractCSV writes a CSV extract covering from..to with totals on a
// straight line, plus rows the filter must drop.
func writeExtractCSV(t *testing.T, dir, name string, from, to int, territory string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("DP,DPNOM,AÑO,AREA,TOTAL\n")
	for y := from; y <= to; y++ {
		total := strconv.Itoa(4000000 + 50000*(y-1985) + (y%4)*700)
		b.WriteString("05," + territory + "," + strconv.Itoa(y) + ",Total," + total + "\n")
		b.WriteString("05," + territory + "," + strconv.Itoa(y) + ",Cabecera,1\n")
		b.WriteString("08,Atlántico," + strconv.Itoa(y) + ",Total,2000000\n")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o644))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	writeExtractCSV(t, dir, "df1.csv", 1985, 1992, "Antioquia")
	writeExtractCSV(t, dir, "df2.csv", 1993, 2004, "Antioquia")
	writeExtractCSV(t, dir, "df3.csv", 2005, 2017, "Antioquia")
	writeExtractCSV(t, dir, "df4.csv", 2018, 2050, "Antioquia y Urabá")

	zero := 0
	return &config.Config{
		Data: config.DataConfig{Dir: dir},
		Extracts: []config.ExtractConfig{
			{Name: "df1", File: "df1.csv", FirstColumn: &zero},
			{Name: "df2", File: "df2.csv", FirstColumn: &zero},
			{Name: "df3", File: "df3.csv", FirstColumn: &zero},
			{Name: "df4", File: "df4.csv", FirstColumn: &zero, CompositeRewrite: true},
		},
		Analysis: config.AnalysisConfig{
			TrainCutoffYear:   2015,
			ProjectionEndYear: 2050,
			TargetRegion:      "Antioquia",
			AreaCategory:      "Total",
			CompositeSuffix:   "Urabá",
		},
		Cache:  config.CacheConfig{MaxAnalyses: 4},
		Report: config.ReportConfig{Locale: "en"},
		Server: config.ServerConfig{Port: 8080, RateLimit: 100, RateBurst: 100, AllowedOrigins: []string{"*"}},
		Log:    config.LogConfig{Level: "info", Format: "json"},
	}
}
