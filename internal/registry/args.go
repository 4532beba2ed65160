package registry

// helpers for parsing map[string]any args into typed values

// GetString returns args[key] as a string, or "" when missing or not a string.
func GetString(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetInt returns args[key] as an int. JSON numbers arrive as float64.
func GetInt(args map[string]any, key string, def int) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// GetFloat returns args[key] as a float64.
func GetFloat(args map[string]any, key string, def float64) float64 {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

// GetBool returns args[key] as a bool, or def when missing.
func GetBool(args map[string]any, key string, def bool) bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// GetBoolPtr returns args[key] as a *bool, or nil when missing, so callers
// can distinguish "false" from "not provided".
func GetBoolPtr(args map[string]any, key string) *bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return &b
		}
	}
	return nil
}

// GetStringSlice returns args[key] as a []string. Accepts both []any
// (JSON default) and []string.
func GetStringSlice(args map[string]any, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case []string:
		return s
	}
	return nil
}

// GetStringMap returns args[key] as a map[string]any, or nil when missing.
func GetStringMap(args map[string]any, key string) map[string]any {
	if v, ok := args[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}
