// Package search normalises listing parameters and chooses result ordering
// for the reference lookup endpoints.
package search

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
	DefaultPage  = 1
)

// Kind identifies the reference table being searched.
type Kind int

const (
	// KindArea covers wards and villages.
	KindArea Kind = iota
	// KindClassification covers ICD10 classification codes.
	KindClassification
)

// Order is the fixed set of result orderings. The store maps each value to a
// constant SQL clause per dialect; caller text never reaches the clause.
type Order int

const (
	// OrderByName sorts by display name.
	OrderByName Order = iota
	// OrderBySimilarity ranks names by similarity to the query, best first.
	// Classification searches break ties by clinical code.
	OrderBySimilarity
	// OrderByCodeThenName sorts by clinical code, then name.
	OrderByCodeThenName
)

func (o Order) String() string {
	switch o {
	case OrderByName:
		return "name"
	case OrderBySimilarity:
		return "similarity"
	case OrderByCodeThenName:
		return "code_then_name"
	default:
		return "unknown"
	}
}

// OrderFor picks the ordering for a search. A query always ranks by
// similarity; without one, areas sort by name and classification codes by
// clinical code.
func OrderFor(query string, kind Kind) Order {
	if query != "" {
		return OrderBySimilarity
	}
	if kind == KindClassification {
		return OrderByCodeThenName
	}
	return OrderByName
}

// Params are validated listing parameters.
type Params struct {
	Query string
	Page  int
	Limit int
}

// Offset returns the number of rows skipped before the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParamError reports an invalid listing parameter.
type ParamError struct {
	Param   string
	Message string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s", e.Param, e.Message)
}

// ParseParams validates raw query values. Empty values take defaults; the
// query text is trimmed and an all-blank query means no filter.
func ParseParams(query, page, limit string) (Params, error) {
	p := Params{
		Query: strings.TrimSpace(query),
		Page:  DefaultPage,
		Limit: DefaultLimit,
	}

	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return Params{}, &ParamError{Param: "page", Message: "must be an integer >= 1"}
		}
		p.Page = n
	}

	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > MaxLimit {
			return Params{}, &ParamError{
				Param:   "limit",
				Message: fmt.Sprintf("must be an integer between 1 and %d", MaxLimit),
			}
		}
		p.Limit = n
	}

	return p, nil
}

// Normalize clamps programmatic parameters into range without failing.
func (p Params) Normalize() Params {
	p.Query = strings.TrimSpace(p.Query)
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}
