package services

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// foldKey normalises labels so tags, categories and difficulty compare case-insensitively.
func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if k := foldKey(v); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}
