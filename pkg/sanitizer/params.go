package sanitizer

import (
	"fmt"
	"regexp"
	"time"
)

// identifierRE is the parameter-name grammar: a leading letter or
// underscore, then letters, digits, or underscores.
var identifierRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// checkParams validates parameter names and value types. Parameter values
// are not scanned for keywords: they travel through the bound-parameter
// channel and cannot alter query structure. Only scalar types are accepted.
func checkParams(params map[string]any) *Verdict {
	for name, value := range params {
		if !identifierRE.MatchString(name) {
			// The key itself may be attacker-controlled; report the shape
			// violation without echoing it.
			v := reject(ReasonBadParameterName, "parameter name is not a valid identifier")
			return &v
		}
		if !scalarValue(value) {
			v := reject(ReasonBadParameterValue,
				fmt.Sprintf("parameter %q has unsupported type %T", name, value))
			return &v
		}
	}
	return nil
}

// scalarValue reports whether a parameter value is one of the supported
// scalar types.
func scalarValue(v any) bool {
	switch v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		time.Time:
		return true
	default:
		return false
	}
}
