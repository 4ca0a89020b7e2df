package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"tides.csv": "dates,tide\n" +
			"2021-03-04 00:00:00,0.0\n" +
			"2021-03-04 01:00:00,0.5\n" +
			"2021-03-04 02:00:00,1.0\n",
		"NARRA.csv": "Date,NA1,NA2\n" +
			"2021-03-04 00:10:00,100,80\n" +
			"2021-03-04 01:10:00,101,\n",
		"settings.yaml": "contour: 0.5\n" +
			"beach_slope: [0.1, 0.05]\n" +
			"transects: [NA1, NA2]\n" +
			"tide_data: tides.csv\n" +
			"shoreline_csv: NARRA.csv\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	t.Setenv("DATA_DIR", dir)
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func TestRunCorrect_WritesCorrectedCSV(t *testing.T) {
	dir := writeFixtures(t)

	var out bytes.Buffer
	err := runCorrect(context.Background(), correctOptions{settings: filepath.Join(dir, "settings.yaml")}, &out, io.Discard)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "corrected 2 rows of NARRA")

	got, err := os.ReadFile(filepath.Join(dir, "NARRA_tide_corr.csv"))
	require.NoError(t, err)
	// Row 1 takes tide 0.5 (correction 0), row 2 takes tide 1.0: NA1 moves
	// by 0.5/0.1 = 5.
	want := "Date,NA1,NA2,Tide\n" +
		"2021-03-04 00:10:00,100,80,0.5\n" +
		"2021-03-04 01:10:00,106,,1\n"
	assert.Equal(t, want, string(got))
}

func TestRunCorrect_JSONReport(t *testing.T) {
	dir := writeFixtures(t)
	t.Setenv("LOG_LEVEL", "info")
	output := filepath.Join(dir, "out.csv")

	var out, logs bytes.Buffer
	err := runCorrect(context.Background(), correctOptions{
		settings: filepath.Join(dir, "settings.yaml"),
		dataset:  "narrabeen",
		output:   output,
		jsonOut:  true,
	}, &out, &logs)
	require.NoError(t, err)

	// stdout holds exactly one JSON document; logs go to stderr.
	var report struct {
		Dataset string   `json:"dataset"`
		Rows    int      `json:"rows"`
		Sinks   []string `json:"sinks"`
	}
	dec := json.NewDecoder(&out)
	require.NoError(t, dec.Decode(&report))
	var extra json.RawMessage
	require.ErrorIs(t, dec.Decode(&extra), io.EOF, "unexpected output after the report")
	assert.Contains(t, logs.String(), "inputs loaded")
	assert.Contains(t, logs.String(), "extracting closest points")

	assert.Equal(t, "narrabeen", report.Dataset)
	assert.Equal(t, 2, report.Rows)
	assert.Equal(t, []string{"csv"}, report.Sinks)
	assert.FileExists(t, output)
}

func TestRunCorrect_SlopeCountMismatch(t *testing.T) {
	dir := writeFixtures(t)
	settings := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(settings, []byte(
		"beach_slope: [0.1]\ntide_data: tides.csv\nshoreline_csv: NARRA.csv\n"), 0o600))

	err := runCorrect(context.Background(), correctOptions{settings: settings}, &bytes.Buffer{}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2, got 1")
	assert.NoFileExists(t, filepath.Join(dir, "NARRA_tide_corr.csv"))
}

func TestRunCorrect_SettingsWithoutFiles(t *testing.T) {
	dir := writeFixtures(t)
	settings := filepath.Join(dir, "partial.yaml")
	require.NoError(t, os.WriteFile(settings, []byte("beach_slope: 0.1\n"), 0o600))

	err := runCorrect(context.Background(), correctOptions{settings: settings}, &bytes.Buffer{}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shoreline_csv and tide_data")
}

func TestRootCmd_RequiresSettingsFlag(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"correct"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "settings" not set`)
}

func TestRunValidate_Passes(t *testing.T) {
	dir := writeFixtures(t)

	var out bytes.Buffer
	err := runValidate(context.Background(), filepath.Join(dir, "settings.yaml"), &out)
	require.NoError(t, err, out.String())
	assert.Contains(t, out.String(), "Tide coverage")
	assert.NotContains(t, out.String(), "FAIL")
	assert.Contains(t, out.String(), "2 acquisitions, 2 transects, 3 tide samples")
}

func TestRunValidate_ReportsFailingPhases(t *testing.T) {
	dir := writeFixtures(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "short.csv"),
		[]byte("dates,tide\n2021-03-04 00:00:00,0.0\n2021-03-04 01:00:00,0.5\n"), 0o600))
	settings := filepath.Join(dir, "short.yaml")
	require.NoError(t, os.WriteFile(settings, []byte(
		"beach_slope: [0.1]\ntide_data: short.csv\nshoreline_csv: NARRA.csv\n"), 0o600))

	var out bytes.Buffer
	err := runValidate(context.Background(), settings, &out)
	require.ErrorIs(t, err, errValidation)
	assert.Contains(t, out.String(), "--- Correction settings ---")
	assert.Contains(t, out.String(), "--- Tide coverage ---")
	assert.Contains(t, out.String(), "does not cover")
}

func TestRunCorrect_RejectsZonedShorelineWithZoneLessTides(t *testing.T) {
	dir := writeFixtures(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "NARRA.csv"), []byte("Date,NA1,NA2\n"+
		"2021-03-04 10:10:00+10:00,100,80\n"+
		"2021-03-04 11:10:00+10:00,101,\n"), 0o600))

	err := runCorrect(context.Background(), correctOptions{settings: filepath.Join(dir, "settings.yaml")}, &bytes.Buffer{}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shoreline timestamps are zoned but tide timestamps are zone-less")
	assert.NoFileExists(t, filepath.Join(dir, "NARRA_tide_corr.csv"))

	var out bytes.Buffer
	err = runValidate(context.Background(), filepath.Join(dir, "settings.yaml"), &out)
	require.ErrorIs(t, err, errValidation)
	assert.Contains(t, out.String(), "use the same convention")
}
