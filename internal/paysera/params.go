package paysera

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Params is a request or callback parameter set keyed by protocol field name.
// Values are strings or integers; other scalars are formatted with fmt.
type Params map[string]any

// Reserved request keys that are always taken from MerchantConfig.
const (
	KeyProjectID    = "projectid"
	KeySignPassword = "sign_password"
	KeyTest         = "test"
	KeyOrderID      = "orderid"
	KeyStatus       = "status"
)

// Strings returns a copy of p with every value formatted as a string.
// Nil values are dropped.
func (p Params) Strings() map[string]string {
	out := make(map[string]string, len(p))
	for k, v := range p {
		if v == nil {
			continue
		}
		out[k] = formatValue(v)
	}
	return out
}

// FromStrings converts a decoded string map into Params.
func FromStrings(m map[string]string) Params {
	out := make(Params, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (p Params) has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int8:
		return strconv.FormatInt(int64(t), 10)
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint8:
		return strconv.FormatUint(uint64(t), 10)
	case uint16:
		return strconv.FormatUint(uint64(t), 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// statusCode extracts the integer status from p. ok is false when the field is
// missing or not an integral number. Numeric text such as "1.0" compares by value.
func (p Params) statusCode() (int64, bool) {
	switch t := p[KeyStatus].(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return uintCode(uint64(t))
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return uintCode(t)
	case float32:
		return floatCode(float64(t))
	case float64:
		return floatCode(t)
	case string:
		return textCode(t)
	case []byte:
		return textCode(string(t))
	case fmt.Stringer:
		// json.Number and similar wrappers.
		return textCode(t.String())
	default:
		return 0, false
	}
}

func uintCode(v uint64) (int64, bool) {
	if v > math.MaxInt64 {
		return 0, false
	}
	return int64(v), true
}

func floatCode(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func textCode(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return floatCode(f)
}
