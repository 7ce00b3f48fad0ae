package roleconfig

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var roleFields = []string{"search", "primary", "secondary"}

// ValidationError carries every problem found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "\n")
}

// Check validates doc and returns a *ValidationError when it is not acceptable.
func Check(doc Document) error {
	if problems := Validate(doc); len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Validate reports every schema violation in doc. An empty result means the
// document may be persisted. Categories and roles are visited in sorted order.
func Validate(doc Document) []string {
	var problems []string

	for _, catName := range sortedKeys(doc) {
		cat, ok := doc[catName].(map[string]any)
		if !ok {
			problems = append(problems, fmt.Sprintf("Category `%s` must be an object", catName))
			continue
		}

		if lim, ok := cat["limit"]; ok {
			if !isNumber(lim) {
				problems = append(problems, fmt.Sprintf("Category limit for `%s` has to be a number", catName))
			}
		} else {
			problems = append(problems, fmt.Sprintf("Missing category limit for `%s`, set to 0 to disable", catName))
		}

		rolesVal, ok := cat["roles"]
		if !ok {
			problems = append(problems, fmt.Sprintf("Missing roles for category `%s`", catName))
			continue
		}
		roles, ok := rolesVal.(map[string]any)
		if !ok {
			problems = append(problems, fmt.Sprintf("Roles in category `%s` are not configured properly as an object", catName))
			continue
		}
		if len(roles) == 0 {
			problems = append(problems, fmt.Sprintf("Roles for `%s` cannot be empty", catName))
		}

		for _, roleName := range sortedKeys(roles) {
			role, _ := roles[roleName].(map[string]any)
			for _, field := range roleFields {
				val, ok := role[field]
				if !ok {
					problems = append(problems, fmt.Sprintf("Role `%s` in category `%s` is missing field `%s`", roleName, catName, field))
					continue
				}
				if field == "search" {
					if _, isStr := val.(string); !isStr {
						problems = append(problems, fmt.Sprintf("Field `%s` for role `%s` in category `%s` must be a string (Supports RegEx)", field, roleName, catName))
					}
					continue
				}
				if !isUint(val) {
					problems = append(problems, fmt.Sprintf("Field `%s` for role `%s` in category `%s` has to be a number (Role ID)", field, roleName, catName))
				}
			}
		}
	}

	return problems
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isNumber(v any) bool {
	switch n := v.(type) {
	case json.Number:
		_, err := n.Float64()
		return err == nil
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		return true
	}
	return false
}

func isUint(v any) bool {
	switch n := v.(type) {
	case json.Number:
		_, err := strconv.ParseUint(n.String(), 10, 64)
		return err == nil
	case uint, uint32, uint64:
		return true
	case int:
		return n >= 0
	case int32:
		return n >= 0
	case int64:
		return n >= 0
	case float64:
		return n >= 0 && n == math.Trunc(n) && n <= math.MaxUint64
	}
	return false
}
