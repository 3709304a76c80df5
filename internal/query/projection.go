package query

import (
	"fmt"
	"strings"

	"entityapi/internal/model"
)

// BuildProjection turns a comma separated field list into an inclusion
// projection. Blank segments are dropped and duplicates collapse; an empty
// list means no projection. A path nested under another selected path is
// dropped, so "a,a.b" selects only "a".
func BuildProjection(fields string) (model.Projection, error) {
	if strings.TrimSpace(fields) == "" {
		return nil, nil
	}

	var names []string
	seen := make(map[string]bool)
	for _, seg := range strings.Split(fields, ",") {
		name := strings.TrimSpace(seg)
		if name == "" || seen[name] {
			continue
		}
		if err := validateProjectionPath(name); err != nil {
			return nil, &QueryParseError{Param: ParamFields, Reason: err.Error()}
		}
		seen[name] = true
		names = append(names, name)
	}

	var proj model.Projection
	for _, name := range names {
		if !coveredBy(name, seen) {
			proj = append(proj, name)
		}
	}
	return proj, nil
}

// validateProjectionPath also rejects array index segments, which only some
// stores can project.
func validateProjectionPath(path string) error {
	if err := ValidateFieldPath(path); err != nil {
		return err
	}
	for _, seg := range model.SplitPath(path) {
		if isIndex(seg) {
			return fmt.Errorf("field name %q selects an array index", path)
		}
	}
	return nil
}

// coveredBy reports whether a proper prefix of path is also selected.
func coveredBy(path string, selected map[string]bool) bool {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' && selected[path[:i]] {
			return true
		}
	}
	return false
}

func isIndex(seg string) bool {
	if seg == "" {
		return false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
