package command

import "fmt"

// ValidateInput checks input against the parameter definitions and applies
// defaults for absent optional parameters. It returns the validated input
// and the list of per-field issues; an empty issue list means the input
// is acceptable. The original input map is not modified.
func ValidateInput(input map[string]any, params []Parameter) (map[string]any, []string) {
	validated := make(map[string]any, len(input))
	for k, v := range input {
		validated[k] = v
	}

	var issues []string
	for _, p := range params {
		value, present := validated[p.Name]

		if !present || value == nil {
			if p.Required {
				issues = append(issues, fmt.Sprintf("missing required parameter %q", p.Name))
			} else if p.Default != nil {
				validated[p.Name] = p.Default
			}
			continue
		}

		if issue := checkType(p, value); issue != "" {
			issues = append(issues, issue)
			continue
		}

		if len(p.Enum) > 0 && !inEnum(value, p.Enum) {
			issues = append(issues, fmt.Sprintf("%q must be one of %v", p.Name, p.Enum))
		}
	}
	return validated, issues
}

func checkType(p Parameter, value any) string {
	switch p.Type {
	case TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("%q must be a string", p.Name)
		}
	case TypeNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
		default:
			return fmt.Sprintf("%q must be a number", p.Name)
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("%q must be a boolean", p.Name)
		}
	case TypeObject:
		if _, ok := value.(map[string]any); !ok {
			return fmt.Sprintf("%q must be an object", p.Name)
		}
	case TypeArray:
		if _, ok := value.([]any); !ok {
			return fmt.Sprintf("%q must be an array", p.Name)
		}
	}
	return ""
}

func inEnum(value any, enum []string) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	for _, e := range enum {
		if e == s {
			return true
		}
	}
	return false
}
