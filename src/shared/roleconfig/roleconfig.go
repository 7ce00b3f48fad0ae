package roleconfig

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/OneOfOne/xxhash"
)

// Document is a user-authored role assignment configuration. It maps a
// category name to a descriptor of the form
//
//	{"limit": 1, "roles": {"name": {"search": "re", "primary": 1, "secondary": 2}}}
//
// The store keeps it opaque; Validate is the only place that interprets it.
type Document map[string]any

// Parse decodes raw JSON into a Document. A surrounding markdown code fence
// (``` or ```json) is stripped first. Numbers are kept as json.Number so the
// validator can tell integers from floats.
func Parse(raw string) (Document, error) {
	raw = stripCodeFence(strings.TrimSpace(raw))
	if raw == "" {
		return nil, errors.New("roleconfig: empty document")
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("roleconfig: decode: %w", err)
	}
	if dec.More() {
		return nil, errors.New("roleconfig: trailing data after document")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("roleconfig: document must be a JSON object")
	}
	return Document(obj), nil
}

func stripCodeFence(raw string) string {
	if !strings.HasPrefix(raw, "```") || !strings.HasSuffix(raw, "```") || len(raw) < 6 {
		return raw
	}
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "```"), "```")
	raw = strings.TrimPrefix(raw, "json")
	return strings.TrimSpace(raw)
}

// Pretty renders the document as indented JSON.
func Pretty(doc Document) (string, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("roleconfig: encode: %w", err)
	}
	return string(b), nil
}

// Fingerprint returns a stable hash of the document. Object keys are encoded
// in sorted order, so two documents with the same content hash equal.
func Fingerprint(doc Document) uint64 {
	if doc == nil {
		return 0
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return 0
	}
	return xxhash.Checksum64(b)
}

// Value implements driver.Valuer.
func (d Document) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (d *Document) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*d = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("roleconfig: cannot scan %T", src)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		*d = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("roleconfig: scan: %w", err)
	}
	*d = Document(m)
	return nil
}

// UnmarshalJSON keeps numbers as json.Number so large role ids survive a
// round trip through caches.
func (d *Document) UnmarshalJSON(b []byte) error {
	if string(bytes.TrimSpace(b)) == "null" {
		*d = nil
		return nil
	}
	return d.Scan(b)
}

// GormDataType keeps the column a plain text column on every dialect.
func (Document) GormDataType() string {
	return "text"
}
