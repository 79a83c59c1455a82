package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// YesNo is a binary permission flag stored as "YES" / "NO".
type YesNo string

const (
	Yes YesNo = "YES"
	No  YesNo = "NO"
)

// Valid reports whether v is one of the two literals.
func (v YesNo) Valid() bool { return v == Yes || v == No }

// Override is either an explicit YES/NO or "inherit from parent".
// It is NULL in the database and absent/null on the wire when inheriting.
type Override struct {
	value YesNo
	set   bool
}

// Inherit returns an override that defers to the parent default.
func Inherit() Override { return Override{} }

// Set returns an explicit override.
func Set(v YesNo) Override { return Override{value: v, set: true} }

// IsSet reports whether the override carries its own value.
func (o Override) IsSet() bool { return o.set }

// Get returns the explicit value and whether one is present.
func (o Override) Get() (YesNo, bool) { return o.value, o.set }

// Or resolves the override against an inherited default.
func (o Override) Or(def YesNo) YesNo {
	if o.set {
		return o.value
	}
	return def
}

func (o Override) Value() (driver.Value, error) {
	if !o.set {
		return nil, nil
	}
	return string(o.value), nil
}

func (o *Override) Scan(src interface{}) error {
	if src == nil {
		*o = Inherit()
		return nil
	}
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("models.Override: unsupported Scan type %T", src)
	}
	yn := YesNo(strings.ToUpper(strings.TrimSpace(raw)))
	if yn == "" {
		*o = Inherit()
		return nil
	}
	if !yn.Valid() {
		return fmt.Errorf("models.Override: invalid value %q", raw)
	}
	*o = Set(yn)
	return nil
}

func (o Override) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(string(o.value))
}

func (o *Override) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Inherit()
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	yn := YesNo(strings.ToUpper(strings.TrimSpace(raw)))
	if !yn.Valid() {
		return fmt.Errorf("invalid override %q, expected YES, NO or null", raw)
	}
	*o = Set(yn)
	return nil
}
