package persist

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/zerbitx/gnockcycle/spec"
)

// LoadSeed reads a YAML (or JSON) list of records to register at startup.
// No seed file, no problem.
func LoadSeed(path string) ([]spec.Record, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := ioutil.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	recs, err := spec.UnmarshalYAMLRecords(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode seed %s %w", path, err)
	}

	return recs, nil
}
