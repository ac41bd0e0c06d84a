package datasource

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/zerbitx/gnockcycle/spec"
)

type (
	// Error is returned when a data source is missing or can't be parsed
	Error struct {
		Ref string
		Err error
	}

	// Loader reads data sources relative to BaseDir. Uploads land in BaseDir/DataDir.
	Loader struct {
		BaseDir string
		DataDir string
	}
)

var (
	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	// ErrEmptyHeader is wrapped when the header row is missing or has a blank column name
	ErrEmptyHeader = errors.New("empty header")
)

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("data source %s: %s", e.Ref, e.Err)
}

// Unwrap exposes the cause, os.ErrNotExist for missing files
func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a Loader rooted at baseDir, storing uploads under baseDir/dataDir
func New(baseDir, dataDir string) *Loader {
	return &Loader{BaseDir: baseDir, DataDir: dataDir}
}

// Load reads and parses the data source ref, relative to the base directory.
// Every call returns its own rows.
func (l *Loader) Load(ref string) ([]spec.Row, error) {
	f, err := os.Open(l.resolve(ref))
	if err != nil {
		return nil, &Error{Ref: ref, Err: err}
	}
	defer f.Close()

	rows, err := Parse(f)
	if err != nil {
		return nil, &Error{Ref: ref, Err: err}
	}

	return rows, nil
}

// Store saves an uploaded data source and returns the reference to register it with.
// Content that doesn't parse is never written and is reported as an *Error.
func (l *Loader) Store(name string, content io.Reader) (string, error) {
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." {
		return "", &Error{Ref: name, Err: errors.New("missing file name")}
	}

	ref := path.Join(filepath.ToSlash(l.DataDir), name)
	full := l.resolve(ref)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create data dir %w", err)
	}

	raw, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("failed to read upload %w", err)
	}

	if _, err := Parse(bytes.NewReader(raw)); err != nil {
		return "", &Error{Ref: ref, Err: err}
	}

	if err := os.WriteFile(full, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s %w", full, err)
	}

	return ref, nil
}

func (l *Loader) resolve(ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}

	return filepath.Join(l.BaseDir, filepath.FromSlash(ref))
}

// Parse reads comma separated text with a header row. Empty lines are skipped, every record
// must have as many fields as the header.
func Parse(r io.Reader) ([]spec.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if err == io.EOF {
		return []spec.Row{}, nil
	}
	if err != nil {
		return nil, err
	}

	header[0] = string(bytes.TrimPrefix([]byte(header[0]), utf8BOM))
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
		if header[i] == "" {
			return nil, fmt.Errorf("column %d: %w", i+1, ErrEmptyHeader)
		}
	}

	rows := []spec.Row{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(spec.Row, len(header))
		for i, value := range record {
			row[header[i]] = value
		}
		rows = append(rows, row)
	}

	return rows, nil
}
