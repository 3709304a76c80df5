package query

import "fmt"

// Request parameter names.
const (
	ParamQuery    = "query"
	ParamFields   = "fields"
	ParamPage     = "page"
	ParamPageSize = "page_size"
)

// QueryParseError reports a filter or projection parameter that could not
// be turned into a safe structured value.
type QueryParseError struct {
	Param  string
	Reason string
	Err    error
}

func (e *QueryParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s parameter: %s: %v", e.Param, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s parameter: %s", e.Param, e.Reason)
}

func (e *QueryParseError) Unwrap() error { return e.Err }

// InvalidPaginationError reports a page or page size that is not a positive
// integer.
type InvalidPaginationError struct {
	Param  string
	Value  string
	Reason string
}

func (e *InvalidPaginationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Param, e.Value, e.Reason)
}
