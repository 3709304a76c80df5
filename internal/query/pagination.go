package query

import (
	"math"
	"strconv"
	"strings"

	"entityapi/internal/model"
)

// Pagination defaults applied when a parameter is absent.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// Paginate converts 1-based page number and page size parameters into a
// skip/limit window. Empty parameters take their defaults; anything that is
// not a positive integer is rejected.
func Paginate(pageText, sizeText string) (model.PageSpec, error) {
	page, err := parsePositive(ParamPage, pageText, DefaultPage)
	if err != nil {
		return model.PageSpec{}, err
	}
	size, err := parsePositive(ParamPageSize, sizeText, DefaultPageSize)
	if err != nil {
		return model.PageSpec{}, err
	}
	if page-1 > math.MaxInt64/size {
		return model.PageSpec{}, &InvalidPaginationError{
			Param:  ParamPage,
			Value:  strings.TrimSpace(pageText),
			Reason: "page window out of range",
		}
	}
	return model.PageSpec{Skip: (page - 1) * size, Limit: size}, nil
}

func parsePositive(param, text string, def int64) (int64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &InvalidPaginationError{Param: param, Value: s, Reason: "must be an integer"}
	}
	if n < 1 {
		return 0, &InvalidPaginationError{Param: param, Value: s, Reason: "must be at least 1"}
	}
	return n, nil
}
