package utils

// ToStringSlice keeps the string members of a decoded JSON array.
func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0)
	for _, v := range slice {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}

// Messages flattens a decoded JSON value into display strings. Strings become a
// one element slice, arrays keep their string members and anything else is dropped.
func Messages(v any) []string {
	switch value := v.(type) {
	case string:
		return []string{value}
	case []any:
		return ToStringSlice(value)
	default:
		return nil
	}
}
