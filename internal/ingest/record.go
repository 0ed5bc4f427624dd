package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var (
	errBlankLine    = errors.New("blank line")
	errNotAnObject  = errors.New("record is not a JSON object")
	errTrailingData = errors.New("unexpected data after record")
	errInvalidUTF8  = errors.New("record is not valid UTF-8")
)

type (
	// Field is a single top-level member of a record. The value is kept
	// as compacted, undecoded JSON so that it is written back exactly
	// as it was received.
	Field struct {
		Name  string
		Value json.RawMessage
	}

	// Record is one video's metadata: the ordered members of a single JSON object.
	Record []Field

	// FieldSet is a set of top-level field names.
	FieldSet map[string]struct{}
)

func NewFieldSet(names ...string) FieldSet {
	set := make(FieldSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}

	return set
}

func (set FieldSet) Contains(name string) bool {
	_, ok := set[name]
	return ok
}

// ParseRecord parses a single line of a decoded shard. The line must
// contain exactly one UTF-8 encoded JSON object; blank lines, other JSON
// values and trailing content are all rejected.
//
// A field name which appears more than once keeps the position of its
// first occurrence and the value of its last.
func ParseRecord(line []byte) (Record, error) {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, errBlankLine
	}
	if !utf8.Valid(line) {
		return nil, errInvalidUTF8
	}

	dec := json.NewDecoder(bytes.NewReader(line))
	if tok, err := dec.Token(); err != nil {
		return nil, err
	} else if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errNotAnObject
	}

	record := make(Record, 0, 16)
	seen := make(map[string]int, 16)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v in place of field name", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("field '%s': %w", name, err)
		}

		compact := &bytes.Buffer{}
		if err := json.Compact(compact, raw); err != nil {
			return nil, fmt.Errorf("field '%s': %w", name, err)
		}

		if k, ok := seen[name]; ok {
			record[k].Value = compact.Bytes()
			continue
		}

		seen[name] = len(record)
		record = append(record, Field{Name: name, Value: compact.Bytes()})
	}

	if _, err := dec.Token(); err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	} else if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}

	return record, nil
}

// Get returns the raw value of the named field, if present.
func (record Record) Get(name string) (json.RawMessage, bool) {
	for _, f := range record {
		if f.Name == name {
			return f.Value, true
		}
	}

	return nil, false
}

// Names returns the field names of this record, in order.
func (record Record) Names() []string {
	names := make([]string, len(record))
	for k, f := range record {
		names[k] = f.Name
	}

	return names
}

// Project returns a new record containing the fields of the record
// provided which are not in the exclusion set. The input record is
// never modified, and excluded fields which are absent are ignored.
func Project(record Record, exclude FieldSet) Record {
	out := make(Record, 0, len(record))
	for _, f := range record {
		if !exclude.Contains(f.Name) {
			out = append(out, f)
		}
	}

	return out
}

// AppendJSON appends the compact JSON encoding of this record to buf.
func (record Record) AppendJSON(buf []byte) ([]byte, error) {
	buf = append(buf, '{')
	for k, f := range record {
		if k > 0 {
			buf = append(buf, ',')
		}

		key, err := encodeName(f.Name)
		if err != nil {
			return nil, err
		}

		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, f.Value...)
	}

	return append(buf, '}'), nil
}

func (record Record) MarshalJSON() ([]byte, error) {
	return record.AppendJSON(nil)
}

func encodeName(name string) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(name); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
