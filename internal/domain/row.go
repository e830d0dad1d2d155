package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TableRow maps column name to a scalar value and remembers the order in
// which columns first appeared. Values are string, json.Number, bool or nil.
type TableRow struct {
	keys   []string
	values map[string]any
}

// NewTableRow builds a row from alternating key, value pairs.
func NewTableRow(kv ...any) TableRow {
	var r TableRow
	for i := 0; i+1 < len(kv); i += 2 {
		k, _ := kv[i].(string)
		r.Set(k, kv[i+1])
	}
	return r
}

// Set stores v under key, appending key to the order when new.
func (r *TableRow) Set(key string, v any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value for key and whether the key is present.
func (r TableRow) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the columns in insertion order.
func (r TableRow) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of columns.
func (r TableRow) Len() int { return len(r.keys) }

// UnmarshalJSON decodes a JSON object keeping its key order. Nested arrays
// and objects are kept as their compact JSON text.
func (r *TableRow) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = TableRow{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("table row: expected object, got %v", tok)
	}

	row := TableRow{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("table row: expected key, got %v", kt)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("table row %q: %w", key, err)
		}
		v, err := scalar(raw)
		if err != nil {
			return fmt.Errorf("table row %q: %w", key, err)
		}
		row.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = row
	return nil
}

// MarshalJSON writes the row back as an object in column order.
func (r TableRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func scalar(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	switch raw[0] {
	case '[', '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		return buf.String(), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
