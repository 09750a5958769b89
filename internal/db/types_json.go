package db

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// RawList is a JSONB array column kept as raw JSON.
type RawList json.RawMessage

// Value implements driver.Valuer
func (l RawList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return []byte("[]"), nil
	}
	return []byte(l), nil
}

// Scan implements sql.Scanner
func (l *RawList) Scan(value any) error {
	if value == nil {
		*l = RawList("[]")
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*l = append(RawList(nil), v...)
	case string:
		*l = RawList(v)
	default:
		return errors.New("type assertion failed for RawList")
	}
	return nil
}

// MarshalJSON emits the raw array, or [] when empty.
func (l RawList) MarshalJSON() ([]byte, error) {
	if len(l) == 0 {
		return []byte("[]"), nil
	}
	return []byte(l), nil
}

// UnmarshalJSON keeps the raw bytes.
func (l *RawList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}
	*l = append(RawList(nil), data...)
	return nil
}

// Items decodes the list into generic objects.
func (l RawList) Items() ([]any, error) {
	if len(l) == 0 {
		return nil, nil
	}
	var items []any
	if err := json.Unmarshal(l, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// RawObject is a nullable JSONB object column kept as raw JSON.
type RawObject json.RawMessage

// Value implements driver.Valuer
func (o RawObject) Value() (driver.Value, error) {
	if len(o) == 0 {
		return nil, nil
	}
	return []byte(o), nil
}

// Scan implements sql.Scanner
func (o *RawObject) Scan(value any) error {
	if value == nil {
		*o = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*o = append(RawObject(nil), v...)
	case string:
		*o = RawObject(v)
	default:
		return errors.New("type assertion failed for RawObject")
	}
	return nil
}

// MarshalJSON emits the raw object, or null when empty.
func (o RawObject) MarshalJSON() ([]byte, error) {
	if len(o) == 0 {
		return []byte("null"), nil
	}
	return []byte(o), nil
}

// UnmarshalJSON keeps the raw bytes.
func (o *RawObject) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = nil
		return nil
	}
	*o = append(RawObject(nil), data...)
	return nil
}
