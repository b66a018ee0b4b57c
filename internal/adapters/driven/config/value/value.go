// Package value converts loosely typed configuration values.
//
// TOML decodes integers as int64 and arrays as []any, while values set at
// runtime arrive as int, float64 or []string. Both config stores read
// through these helpers so a key behaves the same whichever store holds it.
package value

// Int returns v as an int. Floats are truncated; anything else is 0.
func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// Float returns v as a float64, widening integers.
func Float(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// Bool returns v when it is a bool and false otherwise.
func Bool(v any) bool {
	b, _ := v.(bool)
	return b
}

// String returns v when it is a string and "" otherwise.
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Strings returns v as a string slice. Non-string elements of a []any are
// skipped.
func Strings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
