package node

import (
	"time"
)

// FlagSet holds the values of the flags of a command. The client encodes it in
// JSON for the daemon, which means that the daemon sees the numbers as float64
// and the slices as []interface{}. The getters accept both the original and
// the decoded forms, and return the zero value for a flag that is not set or
// has an unexpected type.
//
// - implements cli.Flags
type FlagSet map[string]interface{}

// String implements cli.Flags.
func (fset FlagSet) String(name string) string {
	v, _ := fset[name].(string)

	return v
}

// StringSlice implements cli.Flags.
func (fset FlagSet) StringSlice(name string) []string {
	switch v := fset[name].(type) {
	case []string:
		return v
	case []interface{}:
		values := make([]string, 0, len(v))
		for _, e := range v {
			str, ok := e.(string)
			if !ok {
				return nil
			}

			values = append(values, str)
		}

		return values
	default:
		return nil
	}
}

// Duration implements cli.Flags.
func (fset FlagSet) Duration(name string) time.Duration {
	switch v := fset[name].(type) {
	case time.Duration:
		return v
	case float64:
		return time.Duration(v)
	default:
		return 0
	}
}

// Path implements cli.Flags.
func (fset FlagSet) Path(name string) string {
	return fset.String(name)
}

// Int implements cli.Flags. A decoded value with a fractional part is not an
// integer and returns zero.
func (fset FlagSet) Int(name string) int {
	switch v := fset[name].(type) {
	case int:
		return v
	case float64:
		if v != float64(int(v)) {
			return 0
		}

		return int(v)
	default:
		return 0
	}
}

// Bool implements cli.Flags.
func (fset FlagSet) Bool(name string) bool {
	v, _ := fset[name].(bool)

	return v
}
