package spec

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

// UnmarshalYAMLRecord decodes a single Record from YAML (JSON is valid YAML too)
func UnmarshalYAMLRecord(data []byte) (Record, error) {
	var rec Record

	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}

	return rec.stringKeyed(), nil
}

// UnmarshalYAMLRecords decodes a list of Records from YAML
func UnmarshalYAMLRecords(data []byte) ([]Record, error) {
	var recs []Record

	if err := yaml.Unmarshal(data, &recs); err != nil {
		return nil, err
	}

	for i := range recs {
		recs[i] = recs[i].stringKeyed()
	}

	return recs, nil
}

// yaml.v2 decodes nested mappings as map[interface{}]interface{}, which encoding/json refuses
func (r Record) stringKeyed() Record {
	if r.ResponseBody == nil {
		return r
	}

	body := make(map[string]interface{}, len(r.ResponseBody))
	for k, v := range r.ResponseBody {
		body[k] = stringKeys(v)
	}
	r.ResponseBody = body

	return r
}

func stringKeys(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = stringKeys(val)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = stringKeys(val)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = stringKeys(val)
		}
		return s
	default:
		return v
	}
}
