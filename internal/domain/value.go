package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind discriminates the typed representations a ThingsBoard
// attribute or telemetry value can take.
type ValueKind int

const (
	KindBool ValueKind = iota
	KindString
	KindLong
	KindDouble
	KindJSON
)

// Value is a tagged union over the value types ThingsBoard stores
// (bool_v / str_v / long_v / dbl_v / json_v in ts_kv, and the untyped
// JSON values of the attribute API). Exactly one representation is
// valid, selected by Kind.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Str    string
	Long   int64
	Double float64
	JSON   json.RawMessage
}

func BoolValue(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func LongValue(i int64) Value     { return Value{Kind: KindLong, Long: i} }
func DoubleValue(f float64) Value { return Value{Kind: KindDouble, Double: f} }
func JSONValue(raw []byte) Value {
	return Value{Kind: KindJSON, JSON: append(json.RawMessage(nil), raw...)}
}

// IsNull reports whether the value is a JSON null (an attribute that
// exists upstream but carries no value).
func (v Value) IsNull() bool {
	return v.Kind == KindJSON && (len(v.JSON) == 0 || bytes.Equal(bytes.TrimSpace(v.JSON), []byte("null")))
}

// Float64 converts numeric and numeric-string values for aggregation.
// Bool and JSON values do not convert.
func (v Value) Float64() (float64, bool) {
	switch v.Kind {
	case KindLong:
		return float64(v.Long), true
	case KindDouble:
		return v.Double, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		return f, err == nil
	case KindBool, KindJSON:
		return 0, false
	}
	return 0, false
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindBool:
		return json.Marshal(v.Bool)
	case KindString:
		return json.Marshal(v.Str)
	case KindLong:
		return strconv.AppendInt(nil, v.Long, 10), nil
	case KindDouble:
		return json.Marshal(v.Double)
	case KindJSON:
		if len(v.JSON) == 0 {
			return []byte("null"), nil
		}
		return v.JSON, nil
	}
	return nil, fmt.Errorf("unknown value kind %d", v.Kind)
}

// UnmarshalJSON picks the narrowest representation: bool, string,
// integer, float, and finally raw JSON for objects, arrays and null.
func (v *Value) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch {
	case s == "true" || s == "false":
		v.Kind = KindBool
		v.Bool = s == "true"
	case len(s) > 0 && s[0] == '"':
		v.Kind = KindString
		return json.Unmarshal(data, &v.Str)
	default:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			v.Kind = KindLong
			v.Long = i
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			v.Kind = KindDouble
			v.Double = f
			return nil
		}
		v.Kind = KindJSON
		v.JSON = append(json.RawMessage(nil), data...)
	}
	return nil
}
