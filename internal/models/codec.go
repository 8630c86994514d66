package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// MarshalJSON encodes the result as one flat object mapping path to either an
// integer count or an error string. Keys are emitted in lexical order.
func (r *ScanResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fr := range r.Files() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(fr.Path)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := json.Marshal(fr.Outcome)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the flat object form produced by MarshalJSON.
func (r *ScanResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("scan result must be a JSON object")
	}

	files := make(map[string]FileResult, len(raw))
	for path, value := range raw {
		var o Outcome
		if err := json.Unmarshal(value, &o); err != nil {
			return fmt.Errorf("path %q: %w", path, err)
		}
		files[path] = FileResult{Path: path, Outcome: o}
	}
	r.files = files
	return nil
}

// MarshalJSON encodes a count as a JSON integer and a failure as a string.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Failed() {
		return json.Marshal(o.Failure)
	}
	return []byte(strconv.Itoa(o.Count)), nil
}

// UnmarshalJSON accepts a non-negative integer or a string.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty outcome")
	}

	if data[0] == '"' {
		var msg string
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		*o = FailureOutcome(msg)
		return nil
	}

	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("outcome must be an integer count or an error string, got %s", data)
	}
	if n < 0 {
		return fmt.Errorf("outcome count must be non-negative, got %d", n)
	}
	*o = CountOutcome(n)
	return nil
}
