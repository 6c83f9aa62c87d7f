// Package sink persists the enriched tender set as the run's tabular
// artifact.
package sink

import (
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tender-intel/internal/model"
)

// ErrPersist marks a fatal artifact write failure.
var ErrPersist = eris.New("sink: artifact write failed")

// CSVSink writes the full record set for a run to a single CSV file,
// superseding the prior run's artifact wholesale. The artifact is the
// read surface for the display collaborator, so writes go through a temp
// file and rename: a failure mid-write leaves the last good artifact
// untouched.
type CSVSink struct {
	path string
}

// NewCSVSink creates a sink writing to the given artifact path.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Path returns the artifact location.
func (s *CSVSink) Path() string {
	return s.path
}

// Write serializes the records and replaces the artifact.
func (s *CSVSink) Write(records []model.TenderRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(ErrPersist, "create output dir: "+err.Error())
	}

	data, err := csvutil.Marshal(records)
	if err != nil {
		return eris.Wrap(ErrPersist, "encode csv: "+err.Error())
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return eris.Wrap(ErrPersist, "create temp file: "+err.Error())
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return eris.Wrap(ErrPersist, "write temp file: "+err.Error())
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return eris.Wrap(ErrPersist, "close temp file: "+err.Error())
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return eris.Wrap(ErrPersist, "replace artifact: "+err.Error())
	}

	return nil
}

// Read loads the current artifact. A missing artifact returns an empty
// set, not an error: the readout surfaces treat "no run yet" as empty.
func (s *CSVSink) Read() ([]model.TenderRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sink: read artifact")
	}

	var records []model.TenderRecord
	if err := csvutil.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrap(err, "sink: decode artifact")
	}

	return records, nil
}
