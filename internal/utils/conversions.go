package utils

import (
	"sort"
	"strings"
)

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

// SplitScopes splits a space separated scope string, dropping empty entries.
func SplitScopes(scopes string) []string {
	return strings.Fields(scopes)
}

// JoinScopes returns the scopes sorted and space separated, the form used
// on the wire and in authorize URLs.
func JoinScopes(scopes []string) string {
	sorted := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if s != "" {
			sorted = append(sorted, s)
		}
	}
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}
