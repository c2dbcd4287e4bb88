package command

import (
	"encoding/json"
	"math"
	"strconv"
)

// Has reports whether field is present and not null.
func (c Command) Has(field string) bool {
	v, ok := c.Data[field]
	return ok && v != nil
}

// Int returns a required integer field.
func (c Command) Int(field string) (int, error) {
	v, ok := c.Data[field]
	if !ok || v == nil {
		return 0, c.schemaErr(field, "is missing")
	}
	n, ok := toInt(v)
	if !ok {
		return 0, c.schemaErr(field, "must be an integer")
	}
	return n, nil
}

// IntOr returns an optional integer field, or def when it is absent.
func (c Command) IntOr(field string, def int) (int, error) {
	if !c.Has(field) {
		return def, nil
	}
	return c.Int(field)
}

// String returns a required string field.
func (c Command) String(field string) (string, error) {
	v, ok := c.Data[field]
	if !ok || v == nil {
		return "", c.schemaErr(field, "is missing")
	}
	s, ok := v.(string)
	if !ok {
		return "", c.schemaErr(field, "must be a string")
	}
	return s, nil
}

// StringOr returns an optional string field, or def when it is absent.
func (c Command) StringOr(field, def string) (string, error) {
	if !c.Has(field) {
		return def, nil
	}
	return c.String(field)
}

// IntSlice returns a required array of integers. When n > 0 the array
// must have exactly n elements.
func (c Command) IntSlice(field string, n int) ([]int, error) {
	v, ok := c.Data[field]
	if !ok || v == nil {
		return nil, c.schemaErr(field, "is missing")
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, c.schemaErr(field, "must be an array")
	}
	if n > 0 && len(arr) != n {
		return nil, c.schemaErr(field, "must have "+strconv.Itoa(n)+" elements")
	}
	out := make([]int, len(arr))
	for i, e := range arr {
		x, ok := toInt(e)
		if !ok {
			return nil, c.schemaErr(field, "must contain only integers")
		}
		out[i] = x
	}
	return out, nil
}

func (c Command) schemaErr(field, reason string) *SchemaError {
	return &SchemaError{Component: c.Component, Field: field, Reason: reason}
}

// toInt accepts the numeric shapes a data map can hold: json.Number from
// Decode and native numbers from commands built in code.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			if i < math.MinInt || i > math.MaxInt {
				return 0, false
			}
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case int:
		return n, true
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float64:
		return floatToInt(n)
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	// float64(math.MaxInt) rounds up to 2^63, which int cannot hold.
	if f < float64(math.MinInt) || f >= -float64(math.MinInt) {
		return 0, false
	}
	return int(f), true
}
