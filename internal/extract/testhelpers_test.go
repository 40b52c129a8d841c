package extract

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

// createTestXLSX writes a workbook with the given sheets into a temp dir.
func createTestXLSX(t *testing.T, name string, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for sheetName, rows := range sheets {
		sheet, err := f.AddSheet(sheetName)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.Save(path))
	return path
}

// writeTestFile writes content to name inside a temp dir and returns the path.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// daneSheet builds a sheet with preamble rows, a header at headerRow and a
// leading index column, like the published DANE workbooks.
func daneSheet(headerRow int, data [][]string) [][]string {
	rows := make([][]string, 0, headerRow+1+len(data))
	for i := 0; i < headerRow; i++ {
		rows = append(rows, []string{"DANE - Proyecciones de población"})
	}
	rows = append(rows, []string{"", "DP", "DPNOM", "AÑO", "ÁREA GEOGRÁFICA", "Población"})
	for i, d := range data {
		rows = append(rows, append([]string{strconv.Itoa(i + 1)}, d...))
	}
	return rows
}
