package features

import "strings"

// Validate checks that every required column is present in columns.
// Column names are compared after trimming surrounding whitespace.
// The returned *SchemaError lists all missing names in RequiredColumns order.
func Validate(columns []string) error {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[strings.TrimSpace(c)] = struct{}{}
	}
	var missing []string
	for _, c := range RequiredColumns() {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}
