package encode

import (
	"bytes"
	"encoding/json"
	"io"
)

// JSONIndented encodes a value into a writer with two space indentation
func JSONIndented(v interface{}, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	return encoder.Encode(v)
}

// JSONIndentedBytes is JSONIndented into a fresh buffer
func JSONIndentedBytes(v interface{}) ([]byte, error) {
	var buf bytes.Buffer

	if err := JSONIndented(v, &buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
