package slice

import "strings"

func splitLines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func splitFields(s string) []string {
	return strings.Fields(s)
}
