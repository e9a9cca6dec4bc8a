package utils

import "strings"

// ToStringSlice reads a string list out of a decoded JSON claim. It accepts
// []any, []string or a single space separated string; anything else yields
// an empty slice.
func ToStringSlice(claim any) []string {
	stringSlice := make([]string, 0)
	switch v := claim.(type) {
	case []string:
		stringSlice = append(stringSlice, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				stringSlice = append(stringSlice, s)
			}
		}
	case string:
		stringSlice = append(stringSlice, strings.Fields(v)...)
	}
	return stringSlice
}
