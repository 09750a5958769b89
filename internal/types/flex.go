package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var jsonNull = []byte("null")

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), jsonNull)
}

// FlexInt decodes a JSON number or a numeric string. Null and the empty
// string decode as unset.
type FlexInt struct {
	Value int
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	*f = FlexInt{}
	if isNull(data) {
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		f.Value, f.Valid = int(v), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			fl, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil {
				return fmt.Errorf("invalid number %q", v)
			}
			n = int(fl)
		}
		f.Value, f.Valid = n, true
	default:
		return fmt.Errorf("expected number or numeric string, got %s", data)
	}
	return nil
}

// Ptr returns the value, or nil when unset.
func (f FlexInt) Ptr() *int {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// StringList decodes either a list of strings or one comma-separated
// string. Entries are trimmed and empty ones dropped.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*l = nil
		return nil
	}
	var items []string
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
	} else {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("expected string or list of strings: %w", err)
		}
		items = strings.Split(s, ",")
	}
	*l = CleanList(items)
	return nil
}

// CleanList trims every entry and drops the empty ones.
func CleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

// OptionalTime records whether a timestamp field was present, explicitly
// null, or set.
type OptionalTime struct {
	Set  bool
	Null bool
	Time time.Time
}

// UnmarshalJSON implements json.Unmarshaler. It accepts RFC 3339
// timestamps and plain dates.
func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	*o = OptionalTime{Set: true}
	if isNull(data) {
		o.Null = true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected a date string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		o.Null = true
		return nil
	}
	t, err := ParseTime(s)
	if err != nil {
		return err
	}
	o.Time = t
	return nil
}

// Ptr returns the time when one was given.
func (o OptionalTime) Ptr() *time.Time {
	if !o.Set || o.Null {
		return nil
	}
	t := o.Time
	return &t
}

// ParseTime parses an RFC 3339 timestamp or a YYYY-MM-DD date.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
