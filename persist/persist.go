package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zerbitx/gnockcycle/encode"
	"github.com/zerbitx/gnockcycle/registry"
	"github.com/zerbitx/gnockcycle/spec"
)

type (
	// RowLoader loads the rows a record's data source reference points at
	RowLoader interface {
		Load(ref string) ([]spec.Row, error)
	}

	// Error is returned when the snapshot can't be read or written
	Error struct {
		Op   string
		Path string
		Err  error
	}

	// Manager keeps the registry's durable fields in a JSON snapshot file
	Manager struct {
		path   string
		loader RowLoader
		logger logrus.FieldLogger

		writeMu sync.Mutex
	}
)

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("snapshot %s %s: %s", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a Manager for the snapshot at path
func New(path string, loader RowLoader, logger logrus.FieldLogger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Manager{
		path:   path,
		loader: loader,
		logger: logger,
	}
}

// Path is the snapshot file location
func (m *Manager) Path() string {
	return m.path
}

// Build turns a record into a fresh mock. A data source that fails to load leaves the mock
// without rows, the failure is returned alongside it for the caller to report.
func Build(rec spec.Record, loader RowLoader) (*spec.Mock, error) {
	rec = rec.Normalize()
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	var rows []spec.Row
	var dsErr error
	if rec.CSVFile != "" && loader != nil {
		rows, dsErr = loader.Load(rec.CSVFile)
		if dsErr != nil {
			rows = nil
		}
	}

	return spec.NewMock(rec, rows), dsErr
}

// Hydrate reads the snapshot into store. A missing snapshot is an empty registry. Records
// that fail validation are skipped, records whose data source fails to load come up without rows.
func (m *Manager) Hydrate(store *registry.Store) (int, error) {
	recs, err := m.Read()
	if err != nil {
		return 0, err
	}

	restored := 0
	for i, rec := range recs {
		mock, err := Build(rec, m.loader)
		if mock == nil {
			m.logger.WithError(err).WithField("index", i).Warn("skipping invalid snapshot record")
			continue
		}

		if err != nil {
			m.logger.WithError(err).WithField("key", mock.Key()).Warn("data source unavailable, serving without rows")
		}

		store.Add(mock)
		restored++
	}

	m.logger.WithFields(logrus.Fields{"path": m.path, "mocks": restored}).Info("restored mocks")

	return restored, nil
}

// Read decodes the snapshot's records without building mocks
func (m *Manager) Read() ([]spec.Record, error) {
	raw, err := ioutil.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &Error{Op: "read", Path: m.path, Err: err}
	}

	var recs []spec.Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, &Error{Op: "decode", Path: m.path, Err: err}
	}

	return recs, nil
}

// Flush rewrites the whole snapshot from mocks, durable fields only. Writers are serialized and
// the file is replaced by rename, readers never see a partial snapshot.
func (m *Manager) Flush(mocks []*spec.Mock) error {
	recs := make([]spec.Record, 0, len(mocks))
	for _, mock := range mocks {
		recs = append(recs, mock.Record)
	}

	data, err := encode.JSONIndentedBytes(recs)
	if err != nil {
		return &Error{Op: "encode", Path: m.path, Err: err}
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if dir := filepath.Dir(m.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &Error{Op: "write", Path: m.path, Err: err}
		}
	}

	tmp := m.path + ".tmp"
	if err := ioutil.WriteFile(tmp, data, 0o644); err != nil {
		return &Error{Op: "write", Path: m.path, Err: err}
	}

	if err := os.Rename(tmp, m.path); err != nil {
		_ = os.Remove(tmp)
		return &Error{Op: "write", Path: m.path, Err: err}
	}

	m.logger.WithFields(logrus.Fields{"path": m.path, "mocks": len(recs)}).Debug("snapshot written")

	return nil
}
