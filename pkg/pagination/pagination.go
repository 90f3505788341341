package pagination

import (
	"fmt"
	"strings"

	"github.com/azulbooks/bookstore/pkg/errcodes"
)

const (
	// DefaultSize is used when the caller doesn't specify a page size.
	DefaultSize = 20
	// MaxSize caps the page size. Requests above it are silently capped and
	// the effective size is reported in the page metadata.
	MaxSize = 100
)

type Order struct {
	Column    string
	Direction string // "ASC" or "DESC"
}

// Request is a zero-based page request with an ordered sort spec.
type Request struct {
	Page int
	Size int
	Sort []Order
}

func NewRequest(page, size int, sort []Order) Request {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return Request{Page: page, Size: size, Sort: sort}
}

func (r Request) Limit() int {
	return r.Size
}

func (r Request) Offset() int {
	return r.Page * r.Size
}

// OrderExprs renders the sort spec as ORDER BY expressions against the given
// table alias. If the caller's sort doesn't mention id, "id DESC" is appended
// as the implicit final tiebreaker so that under-specified sorts still page
// deterministically.
func (r Request) OrderExprs(alias string) []string {
	exprs := make([]string, 0, len(r.Sort)+1)
	hasID := false
	for _, o := range r.Sort {
		if o.Column == "id" {
			hasID = true
		}
		exprs = append(exprs, fmt.Sprintf("%s.%s %s", alias, o.Column, o.Direction))
	}
	if !hasID {
		exprs = append(exprs, alias+".id DESC")
	}
	return exprs
}

// ParseSort parses repeated "field,direction" query params (direction optional,
// defaults to asc) into an ordered sort spec, restricted to the allowed fields.
func ParseSort(params []string, allowed ...string) ([]Order, error) {
	orders := make([]Order, 0, len(params))
	for _, param := range params {
		if param == "" {
			continue
		}
		field, direction, _ := strings.Cut(param, ",")
		field = strings.TrimSpace(field)
		direction = strings.TrimSpace(direction)

		ok := false
		for _, a := range allowed {
			if field == a {
				ok = true
				break
			}
		}
		if !ok {
			return nil, errcodes.ValidationError(fmt.Sprintf("%q is not a sortable field", field))
		}

		switch strings.ToLower(direction) {
		case "", "asc":
			direction = "ASC"
		case "desc":
			direction = "DESC"
		default:
			return nil, errcodes.ValidationError(fmt.Sprintf("sort direction must be \"asc\" or \"desc\", got %q", direction))
		}

		orders = append(orders, Order{Column: field, Direction: direction})
	}
	return orders, nil
}

type Info struct {
	Number        int `json:"number"`
	Size          int `json:"size"`
	TotalElements int `json:"total_elements"`
	TotalPages    int `json:"total_pages"`
}

// Page is a bounded slice of a larger ordered result set plus its metadata.
type Page[T any] struct {
	Content []T  `json:"content"`
	Page    Info `json:"page"`
}

// NewPage computes total pages against the effective (clamped) page size. Zero
// matches yield zero pages, not one.
func NewPage[T any](content []T, req Request, total int) Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total + req.Size - 1) / req.Size
	}
	return Page[T]{
		Content: content,
		Page: Info{
			Number:        req.Page,
			Size:          req.Size,
			TotalElements: total,
			TotalPages:    totalPages,
		},
	}
}
