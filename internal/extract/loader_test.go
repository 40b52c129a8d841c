package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/popforecast/internal/config"
	"github.com/sells-group/popforecast/internal/model"
	"github.com/sells-group/popforecast/internal/resilience"
)

func TestLoadExtract_XLSXWithHeaderOffset(t *testing.T) {
	path := createTestXLSX(t, "df1.xlsx", map[string][][]string{
		"Hoja1": daneSheet(3, [][]string{
			{"05", "Antioquia", "1985", "Total", "4000000"},
			{"", "", "", "", ""},
			{"05", "Antioquia", "1985", "Cabecera", "3000000"},
		}),
	})

	b, err := LoadExtract(Descriptor{Name: "df1", Path: path, HeaderRow: 3, FirstColumn: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"DP", "DPNOM", "AÑO", "ÁREA GEOGRÁFICA", "Población"}, b.Header)
	require.Len(t, b.Records, 2, "blank rows are skipped")
	assert.Equal(t, "df1", b.Records[0].Extract)
	assert.Equal(t, 5, b.Records[0].Row)
	assert.Equal(t, [5]string{"05", "Antioquia", "1985", "Total", "4000000"}, b.Records[0].Cells)
	assert.Equal(t, "Cabecera", b.Records[1].Cells[3])
}

func TestLoadExtract_SheetSelector(t *testing.T) {
	path := createTestXLSX(t, "df4.xlsx", map[string][][]string{
		"Notas":                 {{"nothing here"}},
		"PobDepartamentalxÁrea": daneSheet(1, [][]string{{"05", "Antioquia y Urabá", "2018", "Total", "6407102"}}),
	})

	b, err := LoadExtract(Descriptor{Name: "df4", Path: path, Sheet: "PobDepartamentalxÁrea", HeaderRow: 1, FirstColumn: 1})
	require.NoError(t, err)
	require.Len(t, b.Records, 1)
	assert.Equal(t, "Antioquia y Urabá", b.Records[0].Cells[1])
}

func TestLoadExtract_CSV(t *testing.T) {
	path := writeTestFile(t, "df2.csv", "DP,DPNOM,AÑO,AREA,TOTAL\n05,Antioquia,1993,Total,4500000\n")

	b, err := LoadExtract(Descriptor{Name: "df2", Path: path, HeaderRow: 0, FirstColumn: 0})
	require.NoError(t, err)
	require.Len(t, b.Records, 1)
	assert.Equal(t, [5]string{"05", "Antioquia", "1993", "Total", "4500000"}, b.Records[0].Cells)
}

func TestLoadExtract_ShortRowsArePadded(t *testing.T) {
	path := writeTestFile(t, "a.csv", "i,DP,DPNOM,AÑO,AREA,TOTAL\n1,05,Antioquia,1993\n")

	b, err := LoadExtract(Descriptor{Name: "a", Path: path, FirstColumn: 1})
	require.NoError(t, err)
	require.Len(t, b.Records, 1)
	assert.Equal(t, [5]string{"05", "Antioquia", "1993", "", ""}, b.Records[0].Cells)
}

func TestLoadExtract_Errors(t *testing.T) {
	xlsxPath := createTestXLSX(t, "a.xlsx", map[string][][]string{
		"Hoja1": daneSheet(2, [][]string{{"05", "Antioquia", "1985", "Total", "1"}}),
	})
	narrow := writeTestFile(t, "narrow.csv", "DP,DPNOM\n05,Antioquia\n")
	other := writeTestFile(t, "a.json", "{}")

	tests := []struct {
		name    string
		d       Descriptor
		wantMsg string
	}{
		{"missing file", Descriptor{Name: "x", Path: filepath.Join(t.TempDir(), "missing.xlsx")}, "missing.xlsx"},
		{"missing sheet", Descriptor{Name: "x", Path: xlsxPath, Sheet: "Nope", HeaderRow: 2, FirstColumn: 1}, "Nope"},
		{"header beyond sheet", Descriptor{Name: "x", Path: xlsxPath, HeaderRow: 50, FirstColumn: 1}, "header row 50 not found"},
		{"header too narrow", Descriptor{Name: "x", Path: narrow, HeaderRow: 0, FirstColumn: 0}, "need 5"},
		{"unsupported type", Descriptor{Name: "x", Path: other}, "unsupported file type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadExtract(tt.d)
			require.Error(t, err)
			assert.True(t, model.IsDataAccess(err), "want DataAccessError, got %T", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoad_AllOrNothing(t *testing.T) {
	good := writeTestFile(t, "good.csv", "DP,DPNOM,AÑO,AREA,TOTAL\n05,Antioquia,1993,Total,1\n")

	reg := NewRegistry()
	reg.Register(Descriptor{Name: "good", Path: good})
	reg.Register(Descriptor{Name: "bad", Path: filepath.Join(t.TempDir(), "gone.csv")})

	batches, err := Load(context.Background(), reg)
	require.Error(t, err)
	assert.True(t, model.IsDataAccess(err))
	assert.Nil(t, batches)
}

func TestLoad_RegistrationOrder(t *testing.T) {
	a := writeTestFile(t, "a.csv", "DP,DPNOM,AÑO,AREA,TOTAL\n05,Antioquia,2000,Total,1\n")
	b := writeTestFile(t, "b.csv", "DP,DPNOM,AÑO,AREA,TOTAL\n05,Antioquia,1990,Total,1\n")

	reg := NewRegistry()
	reg.Register(Descriptor{Name: "second", Path: a})
	reg.Register(Descriptor{Name: "first", Path: b})

	batches, err := Load(context.Background(), reg)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "second", batches[0].Descriptor.Name)
	assert.Equal(t, "first", batches[1].Descriptor.Name)
}

func TestLoad_EmptyRegistry(t *testing.T) {
	_, err := Load(context.Background(), NewRegistry())
	require.Error(t, err)
	assert.True(t, model.IsDataAccess(err))
}

func TestLoad_CanceledContext(t *testing.T) {
	path := writeTestFile(t, "a.csv", "DP,DPNOM,AÑO,AREA,TOTAL\n05,Antioquia,2000,Total,1\n")
	reg := NewRegistry()
	reg.Register(Descriptor{Name: "a", Path: path})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, reg)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoad_RetriesHalfWrittenWorkbook(t *testing.T) {
	good := createTestXLSX(t, "good.xlsx", map[string][][]string{
		"Hoja1": daneSheet(0, [][]string{{"05", "Antioquia", "1985", "Total", "1"}}),
	})
	path := writeTestFile(t, "df1.xlsx", "PK\x03\x04truncated")

	reg := NewRegistry()
	reg.Register(Descriptor{Name: "df1", Path: path, FirstColumn: 1})
	reg.SetRetry(resilience.RetryConfig{MaxAttempts: 20, InitialBackoff: 20 * time.Millisecond, MaxBackoff: 20 * time.Millisecond})

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.Rename(good, path)
	}()

	batches, err := Load(context.Background(), reg)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Len(t, batches[0].Records, 1)
}

func TestLoad_LayoutErrorsAreNotRetried(t *testing.T) {
	narrow := writeTestFile(t, "narrow.csv", "DP,DPNOM\n05,Antioquia\n")
	reg := NewRegistry()
	reg.Register(Descriptor{Name: "x", Path: narrow})
	reg.SetRetry(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Minute})

	start := time.Now()
	_, err := Load(context.Background(), reg)
	require.Error(t, err)
	assert.True(t, model.IsDataAccess(err))
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRetryable(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.csv")
	_, statErr := os.Stat(missing)

	assert.False(t, retryable(model.NewDataAccessError(missing, statErr)))
	assert.False(t, retryable(model.NewDataAccessError("x", layoutError{assert.AnError})))
	assert.False(t, retryable(context.Canceled))
	assert.True(t, retryable(model.NewDataAccessError("x", assert.AnError)))
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Descriptor{Name: "df1", Path: "a"})
	reg.Register(Descriptor{Name: "df2", Path: "b"})
	reg.Register(Descriptor{Name: "df1", Path: "c"})

	require.Equal(t, 2, reg.Len())
	all := reg.All()
	assert.Equal(t, "c", all[0].Path)
	assert.Equal(t, "df2", all[1].Name)

	_, err := reg.Get("df9")
	assert.Error(t, err)
	d, err := reg.Get("df2")
	require.NoError(t, err)
	assert.Equal(t, "b", d.Path)
}

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := &config.Config{
		Data: config.DataConfig{Dir: "/data"},
		Analysis: config.AnalysisConfig{
			TargetRegion:    "Antioquia",
			CompositeSuffix: "Urabá",
		},
	}
	zero := 0
	cfg.Extracts = []config.ExtractConfig{
		{Name: "df1", File: "a.xlsx", HeaderRow: 11},
		{Name: "df4", File: "/abs/d.xlsx", Sheet: "S", HeaderRow: 7, FirstColumn: &zero, CompositeRewrite: true},
	}

	cfg.Data.ReadAttempts = 4
	cfg.Data.RetryBackoffMs = 50

	reg, err := NewRegistryFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, reg.retry.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, reg.retry.InitialBackoff)
	all := reg.All()
	require.Len(t, all, 2)

	assert.Equal(t, filepath.Join("/data", "a.xlsx"), all[0].Path)
	assert.Equal(t, 1, all[0].FirstColumn)
	assert.Nil(t, all[0].Normalize)

	assert.Equal(t, "/abs/d.xlsx", all[1].Path)
	assert.Equal(t, 0, all[1].FirstColumn)
	require.NotNil(t, all[1].Normalize)
	assert.Equal(t, "Antioquia", all[1].Normalize.Apply("ANTIOQUIA - URABÁ"))
	assert.Equal(t, "/abs/d.xlsx#S", all[1].Resource())
}

func TestNewRegistryFromConfig_MissingSuffix(t *testing.T) {
	cfg := &config.Config{
		Analysis: config.AnalysisConfig{TargetRegion: "Antioquia"},
		Extracts: []config.ExtractConfig{{Name: "df4", File: "d.xlsx", CompositeRewrite: true}},
	}
	_, err := NewRegistryFromConfig(cfg)
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	path := writeTestFile(t, "a.csv", "DP,DPNOM,AÑO,AREA,TOTAL\n")
	reg := NewRegistry()
	reg.Register(Descriptor{Name: "a", Path: path})

	fp1, err := Fingerprint(reg)
	require.NoError(t, err)
	fp2, err := Fingerprint(reg)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)

	// Replacing the file changes its identity.
	require.NoError(t, os.WriteFile(path, []byte("DP,DPNOM,AÑO,AREA,TOTAL\n05,Antioquia,1990,Total,1\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	fp3, err := Fingerprint(reg)
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3)

	// Descriptor metadata is part of the key.
	reg.Register(Descriptor{Name: "a", Path: path, HeaderRow: 2})
	fp4, err := Fingerprint(reg)
	require.NoError(t, err)
	assert.NotEqual(t, fp3, fp4)

	reg.Register(Descriptor{Name: "gone", Path: filepath.Join(t.TempDir(), "gone.csv")})
	_, err = Fingerprint(reg)
	assert.True(t, model.IsDataAccess(err))
}
