package sink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tender-intel/internal/model"
)

func enrichedRecord() model.TenderRecord {
	sector := model.SectorHealth
	value := float64(5000000)
	state := "Kerala"
	ct := model.ContractWorks
	return model.TenderRecord{
		Title:             "District Hospital Extension",
		ReferenceNumber:   "REF/2026/042",
		Ministry:          "Kerala Health Dept",
		ClosingDate:       "09-Jan-2026",
		Sector:            &sector,
		EstimatedValueINR: &value,
		LocationState:     &state,
		ContractType:      &ct,
	}
}

func TestWriteCreatesDirectoryAndArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output", "tenders_clean.csv")
	s := NewCSVSink(path)

	require.NoError(t, s.Write([]model.TenderRecord{enrichedRecord()}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "title,reference_number,ministry,closing_date,sector,estimated_value_inr,location_state,contract_type", lines[0])
	assert.Contains(t, lines[1], "District Hospital Extension")
	assert.Contains(t, strings.ToLower(lines[1]), "5e+06")
}

func TestWriteUnenrichedFieldsAreEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenders.csv")
	s := NewCSVSink(path)

	rec := model.TenderRecord{
		Title:           "Generic Notice XYZ123",
		ReferenceNumber: "N/A",
		Ministry:        "Some Dept",
		ClosingDate:     "11-Jan-2026",
	}
	require.NoError(t, s.Write([]model.TenderRecord{rec}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Generic Notice XYZ123,N/A,Some Dept,11-Jan-2026,,,,", lines[1])
}

func TestWriteOverwritesPriorArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenders.csv")
	s := NewCSVSink(path)

	require.NoError(t, s.Write([]model.TenderRecord{enrichedRecord(), enrichedRecord()}))

	second := enrichedRecord()
	second.Title = "Replacement Run"
	require.NoError(t, s.Write([]model.TenderRecord{second}))

	records, err := s.Read()
	require.NoError(t, err)
	require.Len(t, records, 1, "prior run must be superseded wholesale")
	assert.Equal(t, "Replacement Run", records[0].Title)
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenders.csv")
	s := NewCSVSink(path)

	want := enrichedRecord()
	require.NoError(t, s.Write([]model.TenderRecord{want}))

	records, err := s.Read()
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.ReferenceNumber, got.ReferenceNumber)
	assert.Equal(t, want.Ministry, got.Ministry)
	assert.Equal(t, want.ClosingDate, got.ClosingDate)
	require.NotNil(t, got.Sector)
	assert.Equal(t, *want.Sector, *got.Sector)
	require.NotNil(t, got.EstimatedValueINR)
	assert.Equal(t, *want.EstimatedValueINR, *got.EstimatedValueINR)
}

func TestReadMissingArtifact(t *testing.T) {
	s := NewCSVSink(filepath.Join(t.TempDir(), "nope.csv"))
	records, err := s.Read()
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestWriteFailureIsPersistError(t *testing.T) {
	// A file where the output directory should be makes MkdirAll fail.
	base := t.TempDir()
	blocker := filepath.Join(base, "output")
	require.NoError(t, os.WriteFile(blocker, []byte("in the way"), 0o644))

	s := NewCSVSink(filepath.Join(blocker, "tenders.csv"))
	err := s.Write([]model.TenderRecord{enrichedRecord()})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrPersist))
}

func TestWriteFailureKeepsPriorArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tenders.csv")
	s := NewCSVSink(path)

	require.NoError(t, s.Write([]model.TenderRecord{enrichedRecord()}))

	// Turning the artifact path into a directory forces the rename to
	// fail after the temp write; the prior bytes must survive intact.
	prior, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))
	t.Cleanup(func() { _ = os.RemoveAll(path) })

	err = s.Write([]model.TenderRecord{enrichedRecord()})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrPersist))
	assert.NotEmpty(t, prior)
}
